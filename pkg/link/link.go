package link

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/mcplink/pkg/slip"
)

// Link serves commands over one byte stream.
type Link struct {
	ReadWriter  io.ReadWriter
	ReadTimeout bool // set to true if ReadWriter already supports timeout with Read

	decoder   slip.Decoder
	processor Processor
	writer    *bufio.Writer
}

// New creates a Link.
func New(rw io.ReadWriter, d Dispatcher) *Link {
	l := &Link{ReadWriter: rw}
	l.writer = bufio.NewWriterSize(rw, slip.MaxFrameSize*2+4)
	l.processor.Writer = l.writer
	l.processor.Dispatcher = d
	l.decoder.Handler = &l.processor
	return l
}

// WithObserver sets the Observer.
func (l *Link) WithObserver(o Observer) *Link {
	l.processor.Observer = o
	return l
}

// Decoder exposes the frame decoder, e.g. for its stats.
func (l *Link) Decoder() *slip.Decoder {
	return &l.decoder
}

// Reset drops any partially received frame and forgets write errors.
func (l *Link) Reset() {
	l.decoder.Reset()
	l.writer.Reset(l.ReadWriter)
	l.processor.ClearErr()
}

// Feed consumes received bytes. Replies are written synchronously.
func (l *Link) Feed(p []byte) error {
	for _, b := range p {
		l.decoder.Feed(b)
		if err := l.processor.Err(); err != nil {
			return err
		}
	}
	return nil
}

// Run processes the link until ctx is done or the transport fails.
func (l *Link) Run(ctx context.Context) error {
	buf := make([]byte, slip.MaxFrameSize)
	if l.ReadTimeout {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			n, err := l.ReadWriter.Read(buf)
			if n > 0 {
				if ferr := l.Feed(buf[:n]); ferr != nil {
					return ferr
				}
			}
			if err != nil && !os.IsTimeout(err) {
				return err
			}
		}
	}

	chunkCh, errCh := make(chan []byte), make(chan error, 1)
	ackCh := make(chan struct{})
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go l.readLoop(subCtx, buf, chunkCh, ackCh, errCh)
	for {
		select {
		case chunk := <-chunkCh:
			err := l.Feed(chunk)
			if err != nil {
				return err
			}
			select {
			case ackCh <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Link) readLoop(ctx context.Context, buf []byte, chunkCh chan<- []byte, ackCh <-chan struct{}, errCh chan<- error) {
	for {
		n, err := l.ReadWriter.Read(buf)
		if n > 0 {
			glog.V(4).Infof("read %d bytes", n)
			// buf is reused only after the chunk is consumed.
			select {
			case chunkCh <- buf[:n]:
			case <-ctx.Done():
				return
			}
			select {
			case <-ackCh:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			errCh <- err
			return
		}
	}
}
