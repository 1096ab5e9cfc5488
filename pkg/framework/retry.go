package framework

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/golang/glog"
)

// Reconnect keeps a stream served: it opens the stream, serves it until
// it fails, then opens it again after Backoff.
type Reconnect struct {
	Name    string
	Open    func() (io.ReadWriteCloser, error)
	Serve   func(ctx context.Context, rw io.ReadWriteCloser) error
	Backoff time.Duration
}

// DefaultBackoff is the delay between reconnect attempts.
const DefaultBackoff = time.Second

// Run implements Runnable.
func (r *Reconnect) Run(ctx context.Context) error {
	backoff := r.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	for {
		rw, err := r.Open()
		if err == nil {
			glog.Infof("%s: connected", r.Name)
			err = RunWithContextCloser(ctx, rw, func() error {
				return r.Serve(ctx, rw)
			})
		}
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return ctx.Err()
		}
		glog.Warningf("%s: %v, retry in %s", r.Name, err, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}
