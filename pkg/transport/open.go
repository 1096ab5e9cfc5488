package transport

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
)

// TimeoutReader is implemented by streams whose Read returns periodically
// even when nothing is received.
type TimeoutReader interface {
	HasReadTimeout() bool
}

// HasReadTimeout tells if the stream is a TimeoutReader reporting true.
func HasReadTimeout(s interface{}) bool {
	if r, ok := s.(TimeoutReader); ok {
		return r.HasReadTimeout()
	}
	return false
}

// Target is a parsed stream address.
type Target struct {
	Scheme string // serial, ws or wss
	Path   string // device path, or the full URL for websockets
	Baud   int    // 0 if not specified
}

// ParseTarget parses addresses like:
//
//	/dev/ttyACM0
//	serial:///dev/ttyACM0?baud=9600
//	ws://localhost:8080/link
func ParseTarget(addr string) (*Target, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "":
		return &Target{Scheme: "serial", Path: addr}, nil
	case "serial":
		t := &Target{Scheme: u.Scheme, Path: u.Path}
		if t.Path == "" {
			return nil, fmt.Errorf("serial device path required: %q", addr)
		}
		if val := u.Query().Get("baud"); val != "" {
			if t.Baud, err = strconv.Atoi(val); err != nil || t.Baud <= 0 {
				return nil, fmt.Errorf("invalid baud rate: %q", val)
			}
		}
		return t, nil
	case "ws", "wss":
		return &Target{Scheme: u.Scheme, Path: addr}, nil
	}
	return nil, fmt.Errorf("unknown scheme: %q", u.Scheme)
}

// Open opens the stream.
func (t *Target) Open() (io.ReadWriteCloser, error) {
	if t.Scheme == "serial" {
		port, err := OpenSerial(t.Path, t.Baud)
		if err != nil {
			return nil, err
		}
		return port, nil
	}
	conn, err := DialWebsocket(t.Path)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// String implements fmt.Stringer.
func (t *Target) String() string {
	if t.Scheme == "serial" && t.Baud > 0 {
		return fmt.Sprintf("%s@%d", t.Path, t.Baud)
	}
	return t.Path
}

// Open opens the stream at addr, see ParseTarget.
func Open(addr string) (io.ReadWriteCloser, error) {
	t, err := ParseTarget(addr)
	if err != nil {
		return nil, err
	}
	return t.Open()
}
