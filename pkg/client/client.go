// Package client talks to an MCU over the SLIP command link.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/mcplink/pkg/link"
	"github.com/robotalks/mcplink/pkg/manifest"
	"github.com/robotalks/mcplink/pkg/slip"
)

// ErrBadChecksum indicates the reply failed checksum verification.
var ErrBadChecksum = errors.New("bad reply checksum")

// RemoteError is an error frame sent by the device.
type RemoteError struct {
	Code byte
}

// Error implements error.
func (e *RemoteError) Error() string {
	return "device error: " + link.CodeName(e.Code)
}

// DefaultSettle is the default of Client.Settle.
const DefaultSettle = 100 * time.Millisecond

// Client sends commands and waits for replies, one at a time.
// Replies carry no sequence number. After a call times out, the next call
// first waits up to Settle for the late reply and discards it. A reply
// later than Timeout+Settle is still taken as the answer of the next call.
type Client struct {
	Timeout time.Duration
	Settle  time.Duration

	rw       io.ReadWriter
	frameCh  chan []byte
	done     chan struct{}
	readErr  error
	callLock sync.Mutex
	stale    bool
}

// New creates a Client and starts reading rw.
func New(rw io.ReadWriter) *Client {
	c := &Client{
		Timeout: time.Second,
		Settle:  DefaultSettle,
		rw:      rw,
		frameCh: make(chan []byte, 4),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Done is closed when reading the stream fails.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the read error after Done is closed.
func (c *Client) Err() error {
	select {
	case <-c.done:
		return c.readErr
	default:
		return nil
	}
}

// Close closes the underlying stream if it's a Closer.
func (c *Client) Close() error {
	if closer, ok := c.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *Client) readLoop() {
	dec := slip.NewDecoder(slip.HandleFrameFunc(func(frame []byte) {
		f := append([]byte(nil), frame...)
		select {
		case c.frameCh <- f:
		default:
			glog.Warningf("drop unsolicited frame (%d bytes)", len(f))
		}
	}))
	dec.AllowEmpty = true
	buf := make([]byte, slip.MaxFrameSize)
	for {
		n, err := c.rw.Read(buf)
		if n > 0 {
			dec.Write(buf[:n])
		}
		if err != nil {
			c.readErr = err
			close(c.done)
			return
		}
	}
}

// Call sends a command and returns the reply without checksum.
func (c *Client) Call(ctx context.Context, tag byte, args []byte) ([]byte, error) {
	req := make([]byte, 0, len(args)+2)
	req = slip.AppendChecksum(append(append(req, tag), args...))
	if len(req) > slip.MaxFrameSize {
		return nil, slip.ErrFrameTooLarge
	}

	c.callLock.Lock()
	defer c.callLock.Unlock()

	if c.stale {
		c.stale = false
		select {
		case <-c.frameCh:
			glog.V(2).Info("discard late reply")
		case <-time.After(c.Settle):
		case <-c.done:
		}
	}
	for drained := false; !drained; {
		select {
		case <-c.frameCh:
		default:
			drained = true
		}
	}

	if _, err := c.rw.Write(slip.AppendEncoded(nil, req)); err != nil {
		return nil, err
	}
	glog.V(2).Infof("call tag %d with %d arg bytes", tag, len(args))

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	select {
	case frame := <-c.frameCh:
		return parseReply(frame)
	case <-c.done:
		return nil, c.readErr
	case <-ctx.Done():
		c.stale = true
		return nil, ctx.Err()
	}
}

func parseReply(frame []byte) ([]byte, error) {
	data, ok := slip.SplitChecksum(frame)
	if !ok {
		return nil, ErrBadChecksum
	}
	// a two byte reply of 0xff and a known code is an error frame.
	if len(data) == 2 && data[0] == link.ErrorMarker &&
		(data[1] == link.CodeBadChecksum || data[1] == link.CodeDispatchFailed) {
		return nil, &RemoteError{Code: data[1]}
	}
	return data, nil
}

// DeviceID queries the device id.
func (c *Client) DeviceID(ctx context.Context) (string, error) {
	data, err := c.Call(ctx, manifest.DeviceIDTag, nil)
	if err != nil {
		return "", err
	}
	return manifest.NewArgReader(data).ReadCStr(), nil
}

// Invoke encodes values by the function params, calls the function and
// formats the result.
func (c *Client) Invoke(ctx context.Context, fn *manifest.Function, values ...string) (string, error) {
	if len(values) != len(fn.Params) {
		return "", fmt.Errorf("%s expects %d arguments, got %d", fn.Name, len(fn.Params), len(values))
	}
	var w manifest.ArgWriter
	for n, p := range fn.Params {
		if err := w.WriteString(p.Type, values[n]); err != nil {
			return "", fmt.Errorf("invalid %s: %w", p.Name, err)
		}
	}
	data, err := c.Call(ctx, fn.Tag, w.Bytes())
	if err != nil {
		return "", err
	}
	if fn.Return == manifest.Void || len(data) == 0 {
		return "", nil
	}
	return manifest.NewArgReader(data).ReadString(fn.Return)
}
