package link

import (
	"io"

	"github.com/golang/glog"

	"github.com/robotalks/mcplink/pkg/slip"
)

// Dispatcher executes a validated request.
// It writes at most len(resp) bytes of response into resp and returns the
// number of bytes written. A non-nil error is reported to the peer as
// CodeDispatchFailed. Dispatch runs on the link's only control path and
// must return promptly.
type Dispatcher interface {
	Dispatch(req, resp []byte) (int, error)
}

// DispatchFunc is func type of Dispatcher.
type DispatchFunc func(req, resp []byte) (int, error)

// Dispatch implements Dispatcher.
func (f DispatchFunc) Dispatch(req, resp []byte) (int, error) {
	return f(req, resp)
}

// FrameWriter is where encoded frames go. Flush is called once per frame.
type FrameWriter interface {
	io.ByteWriter
	Flush() error
}

// Processor validates decoded frames, dispatches them and sends replies.
// It implements slip.FrameHandler.
type Processor struct {
	Writer     FrameWriter
	Dispatcher Dispatcher
	Observer   Observer

	resp [slip.MaxFrameSize]byte
	err  error
}

// Err returns the first error from writing replies.
func (p *Processor) Err() error {
	return p.err
}

// ClearErr forgets the write error, e.g. after the transport is replaced.
func (p *Processor) ClearErr() {
	p.err = nil
}

// HandleFrame implements slip.FrameHandler.
func (p *Processor) HandleFrame(frame []byte) {
	if len(frame) < 2 {
		return
	}
	data, ok := slip.SplitChecksum(frame)
	p.notify(EventFrameReceived, frame, 0, nil)
	if !ok {
		if glog.V(2) {
			glog.Infof("checksum mismatch: got 0x%02x want 0x%02x (%d bytes)",
				frame[len(frame)-1], slip.Checksum(data), len(frame))
		}
		p.sendError(CodeBadChecksum, frame, nil)
		return
	}

	var n int
	var err error
	if d := p.Dispatcher; d != nil {
		n, err = d.Dispatch(data, p.resp[:slip.MaxFrameSize-1])
		if err == nil && (n < 0 || n > slip.MaxFrameSize-1) {
			err = ErrResponseTooLarge
		}
	} else {
		err = ErrUnknownCommand
	}
	if err != nil {
		glog.V(1).Infof("dispatch failed: %v", err)
		p.sendError(CodeDispatchFailed, frame, err)
		return
	}

	p.resp[n] = slip.Checksum(p.resp[:n])
	glog.V(2).Infof("reply %d bytes", n+1)
	p.send(p.resp[:n+1])
	p.notify(EventResponseSent, p.resp[:n+1], 0, nil)
}

func (p *Processor) sendError(code byte, frame []byte, err error) {
	p.resp[0], p.resp[1] = ErrorMarker, code
	p.resp[2] = slip.Checksum(p.resp[:2])
	p.send(p.resp[:3])
	p.notify(EventFrameRejected, frame, code, err)
}

func (p *Processor) send(payload []byte) {
	if p.err != nil || p.Writer == nil {
		return
	}
	if err := slip.Encode(p.Writer, payload); err != nil {
		p.err = err
		return
	}
	p.err = p.Writer.Flush()
}

func (p *Processor) notify(kind EventKind, data []byte, code byte, err error) {
	if o := p.Observer; o != nil {
		o.Observe(&Event{Kind: kind, Data: data, Code: code, Err: err})
	}
}
