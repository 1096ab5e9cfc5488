package slip

// FrameHandler is called when a complete frame is decoded.
// The frame aliases the decoder buffer and is only valid during the call.
type FrameHandler interface {
	HandleFrame(frame []byte)
}

// HandleFrameFunc is func type of FrameHandler.
type HandleFrameFunc func([]byte)

// HandleFrame implements FrameHandler.
func (f HandleFrameFunc) HandleFrame(frame []byte) {
	f(frame)
}

// State is the decoder state.
type State int

const (
	// StateIdle waits for a frame to start.
	StateIdle State = iota
	// StateReceiving accumulates frame bytes.
	StateReceiving
	// StateEscaped has seen ESC and waits for the escape code.
	StateEscaped
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReceiving:
		return "receiving"
	case StateEscaped:
		return "escaped"
	}
	return "unknown"
}

// Stats counts what the decoder has seen.
type Stats struct {
	Frames     uint64 // delivered to the handler
	Runts      uint64 // closed with less than 2 bytes
	Overflows  uint64
	BadEscapes uint64
}

// Decoder reassembles frames from a byte stream, one byte at a time.
// It is not safe for concurrent use.
type Decoder struct {
	Handler FrameHandler
	// AllowEmpty also delivers frames holding only the checksum byte.
	// Hosts need it for replies of void commands.
	AllowEmpty bool

	state State
	buf   [MaxFrameSize]byte
	pos   int
	stats Stats
}

// NewDecoder creates a Decoder delivering frames to h.
func NewDecoder(h FrameHandler) *Decoder {
	return &Decoder{Handler: h}
}

// State gets the current state.
func (d *Decoder) State() State {
	return d.state
}

// Stats gets the counters.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// Buffered returns the number of bytes of the frame in progress.
func (d *Decoder) Buffered() int {
	return d.pos
}

// Reset drops any frame in progress and returns to idle.
func (d *Decoder) Reset() {
	d.pos, d.state = 0, StateIdle
}

// Feed consumes one byte.
func (d *Decoder) Feed(b byte) {
	switch d.state {
	case StateIdle:
		if b == END {
			d.pos, d.state = 0, StateReceiving
		}
	case StateReceiving:
		switch b {
		case END:
			if d.pos > 1 || (d.AllowEmpty && d.pos == 1) {
				d.stats.Frames++
				if h := d.Handler; h != nil {
					h.HandleFrame(d.buf[:d.pos])
				}
			} else {
				d.stats.Runts++
			}
			d.Reset()
		case ESC:
			d.state = StateEscaped
		default:
			if d.pos < MaxFrameSize {
				d.buf[d.pos] = b
				d.pos++
			} else {
				d.stats.Overflows++
				d.Reset()
			}
		}
	case StateEscaped:
		switch b {
		case ESCEND:
			d.unescape(END)
		case ESCESC:
			d.unescape(ESC)
		default:
			d.stats.BadEscapes++
			d.pos = 0
		}
		d.state = StateReceiving
	}
}

// Write implements io.Writer and feeds every byte.
func (d *Decoder) Write(p []byte) (int, error) {
	for _, b := range p {
		d.Feed(b)
	}
	return len(p), nil
}

func (d *Decoder) unescape(b byte) {
	if d.pos < MaxFrameSize {
		d.buf[d.pos] = b
		d.pos++
		return
	}
	d.stats.Overflows++
	d.pos = 0
}
