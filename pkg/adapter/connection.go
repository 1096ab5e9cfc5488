package adapter

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/mcplink/pkg/client"
	fx "github.com/robotalks/mcplink/pkg/framework"
	"github.com/robotalks/mcplink/pkg/transport"
)

// Defaults of Connection.
const (
	DefaultCheckInterval = 5 * time.Second
	DefaultInitDelay     = 3 * time.Second
	DefaultCallTimeout   = time.Second
)

// ErrNotPresent indicates the serial device node doesn't exist.
var ErrNotPresent = errors.New("device not present")

// Connection keeps a device connected and identified. The device is opened
// again CheckInterval after it's lost or fails.
type Connection struct {
	Name string
	Open func() (io.ReadWriteCloser, error)
	// Present tells if the device can be opened. Nil means always.
	Present func() bool
	// CheckInterval is the delay between connection attempts and between
	// presence checks while connected.
	CheckInterval time.Duration
	// InitDelay is the wait after opening for the device to boot, as
	// opening a serial line usually resets the MCU.
	InitDelay   time.Duration
	CallTimeout time.Duration
	// OnChange is called on every state change.
	OnChange func(Status)

	lock   sync.RWMutex
	status Status
	client *client.Client
}

// NewConnection creates a Connection to the stream target.
func NewConnection(t *transport.Target) *Connection {
	c := &Connection{
		Name:          t.String(),
		Open:          t.Open,
		CheckInterval: DefaultCheckInterval,
		InitDelay:     DefaultInitDelay,
		CallTimeout:   DefaultCallTimeout,
	}
	if t.Scheme == "serial" {
		path := t.Path
		c.Present = func() bool {
			_, err := os.Stat(path)
			return err == nil
		}
	}
	return c
}

// Status returns the current status.
func (c *Connection) Status() Status {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.status
}

func (c *Connection) setStatus(st Status) {
	c.lock.Lock()
	changed := c.status != st
	c.status = st
	c.lock.Unlock()
	if !changed {
		return
	}
	switch st.State {
	case Failed:
		glog.Errorf("%s: %s", c.Name, st.Message())
	case Ready:
		glog.Infof("%s: ready, device id %q", c.Name, st.DeviceID)
	default:
		glog.Infof("%s: %s", c.Name, st.State)
	}
	if c.OnChange != nil {
		c.OnChange(st)
	}
}

// Run implements framework.Runnable.
func (c *Connection) Run(ctx context.Context) error {
	r := &fx.Reconnect{
		Name:    c.Name,
		Open:    c.open,
		Serve:   c.serve,
		Backoff: c.CheckInterval,
	}
	err := r.Run(ctx)
	c.setStatus(Status{State: Disconnected})
	return err
}

// Call sends a command to the device.
func (c *Connection) Call(ctx context.Context, tag byte, args []byte) ([]byte, error) {
	c.lock.RLock()
	st, cl := c.status, c.client
	c.lock.RUnlock()
	if !st.IsReady() || cl == nil {
		return nil, &NotReadyError{Status: st}
	}
	return cl.Call(ctx, tag, args)
}

func (c *Connection) open() (io.ReadWriteCloser, error) {
	if c.Present != nil && !c.Present() {
		c.setStatus(Status{State: Disconnected})
		return nil, ErrNotPresent
	}
	c.setStatus(Status{State: Connecting})
	rw, err := c.Open()
	if err != nil {
		c.setStatus(Status{State: Failed, Err: "connection failed: " + err.Error()})
		return nil, err
	}
	return rw, nil
}

func (c *Connection) serve(ctx context.Context, rw io.ReadWriteCloser) error {
	c.setStatus(Status{State: Initializing})
	cl := client.New(rw)
	cl.Timeout = c.CallTimeout
	if c.InitDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.InitDelay):
		}
	}
	id, err := cl.DeviceID(ctx)
	if err != nil {
		c.setStatus(Status{State: Failed, Err: "failed to get device id: " + err.Error()})
		return err
	}

	c.lock.Lock()
	c.client = cl
	c.lock.Unlock()
	defer func() {
		c.lock.Lock()
		c.client = nil
		c.lock.Unlock()
	}()
	c.setStatus(Status{State: Ready, DeviceID: id})

	err = c.watch(ctx, cl)
	if ctx.Err() == nil {
		c.setStatus(Status{State: Disconnected})
	}
	return err
}

func (c *Connection) watch(ctx context.Context, cl *client.Client) error {
	var tick <-chan time.Time
	if c.Present != nil && c.CheckInterval > 0 {
		ticker := time.NewTicker(c.CheckInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-cl.Done():
			if err := cl.Err(); err != nil && err != io.EOF {
				return err
			}
			return io.ErrUnexpectedEOF
		case <-tick:
			if !c.Present() {
				return ErrNotPresent
			}
		}
	}
}
