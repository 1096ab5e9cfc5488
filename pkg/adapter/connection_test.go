package adapter

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/mcplink/pkg/link"
	"github.com/robotalks/mcplink/pkg/manifest"
	"github.com/robotalks/mcplink/pkg/sim"
)

const roverJSON = `{
  "name": "rover",
  "description": "test rover",
  "version": "1.0",
  "functions": [
    {"tag": 1, "name": "drive", "desc": "Drive wheels",
     "params": [{"name": "left", "type": "i16"}, {"name": "right", "type": "i16"}]},
    {"tag": 2, "name": "add", "desc": "Add numbers", "return": "i32",
     "params": [{"name": "a", "type": "i32"}, {"name": "b", "type": "i32"}]},
    {"tag": 3, "name": "greet", "desc": "Say hello", "return": "CStr",
     "params": [{"name": "name", "type": "CStr"}]}
  ]
}`

func roverManifest(t *testing.T) *manifest.Manifest {
	m, err := manifest.Parse([]byte(roverJSON), manifest.FormatYAML)
	require.NoError(t, err)
	return m
}

func roverDevice(t *testing.T) *sim.Device {
	return sim.NewDevice("rover-1", roverManifest(t)).
		Handle("add", func(call *sim.Call, result *manifest.ArgWriter) error {
			r := call.Reader()
			a, _ := r.ReadI32()
			b, _ := r.ReadI32()
			result.WriteI32(a + b)
			return nil
		}).
		Handle("greet", func(call *sim.Call, result *manifest.ArgWriter) error {
			name := call.Reader().ReadCStr()
			if name == "" {
				return errors.New("empty name")
			}
			result.WriteCStr("hello " + name)
			return nil
		})
}

// pipeDevice serves a dispatcher on the far end of a net.Pipe per open.
type pipeDevice struct {
	dispatcher link.Dispatcher

	lock  sync.Mutex
	ends  []net.Conn
	opens int
}

func (p *pipeDevice) open() (io.ReadWriteCloser, error) {
	host, dev := net.Pipe()
	p.lock.Lock()
	p.ends = append(p.ends, dev)
	p.opens++
	p.lock.Unlock()
	go link.New(dev, p.dispatcher).Run(context.Background())
	return host, nil
}

func (p *pipeDevice) unplug() {
	p.lock.Lock()
	defer p.lock.Unlock()
	if len(p.ends) > 0 {
		p.ends[len(p.ends)-1].Close()
	}
}

func (p *pipeDevice) openCount() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.opens
}

func (p *pipeDevice) closeAll() {
	p.lock.Lock()
	defer p.lock.Unlock()
	for _, end := range p.ends {
		end.Close()
	}
}

type recorder struct {
	lock   sync.Mutex
	states []Status
}

func (r *recorder) record(st Status) {
	r.lock.Lock()
	r.states = append(r.states, st)
	r.lock.Unlock()
}

func (r *recorder) seen(state State) bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, st := range r.states {
		if st.State == state {
			return true
		}
	}
	return false
}

func (r *recorder) last() Status {
	r.lock.Lock()
	defer r.lock.Unlock()
	if len(r.states) == 0 {
		return Status{}
	}
	return r.states[len(r.states)-1]
}

func newPipeConnection(d link.Dispatcher) (*Connection, *pipeDevice, *recorder) {
	p := &pipeDevice{dispatcher: d}
	rec := &recorder{}
	c := &Connection{
		Name:          "pipe",
		Open:          p.open,
		CheckInterval: 20 * time.Millisecond,
		CallTimeout:   time.Second,
		OnChange:      rec.record,
	}
	return c, p, rec
}

func runConnection(t *testing.T, c *Connection, p *pipeDevice) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		if p != nil {
			p.closeAll()
		}
	})
}

func waitReady(t *testing.T, c *Connection) Status {
	require.Eventually(t, func() bool {
		return c.Status().IsReady()
	}, 2*time.Second, 5*time.Millisecond)
	return c.Status()
}

func TestConnectionReady(t *testing.T) {
	c, p, rec := newPipeConnection(roverDevice(t))
	runConnection(t, c, p)

	st := waitReady(t, c)
	require.Equal(t, "rover-1", st.DeviceID)
	require.True(t, rec.seen(Connecting))
	require.True(t, rec.seen(Initializing))

	data, err := c.Call(context.Background(), 2, []byte{40, 0, 0, 0, 2, 0, 0, 0})
	require.NoError(t, err)
	require.Equal(t, []byte{42, 0, 0, 0}, data)
}

func TestConnectionReconnects(t *testing.T) {
	c, p, rec := newPipeConnection(roverDevice(t))
	runConnection(t, c, p)
	waitReady(t, c)

	p.unplug()
	require.Eventually(t, func() bool {
		return p.openCount() >= 2 && c.Status().IsReady()
	}, 2*time.Second, 5*time.Millisecond)
	require.True(t, rec.seen(Disconnected))
}

func TestConnectionDeviceIDFailure(t *testing.T) {
	failing := link.DispatchFunc(func(req, resp []byte) (int, error) {
		return 0, errors.New("not booted")
	})
	c, p, rec := newPipeConnection(failing)
	runConnection(t, c, p)

	require.Eventually(t, func() bool {
		return rec.seen(Failed)
	}, 2*time.Second, 5*time.Millisecond)
	rec.lock.Lock()
	var failed Status
	for _, st := range rec.states {
		if st.State == Failed {
			failed = st
			break
		}
	}
	rec.lock.Unlock()
	require.Contains(t, failed.Err, "failed to get device id")
	require.Contains(t, failed.Message(), "device error: ")

	// it keeps retrying
	require.Eventually(t, func() bool {
		return p.openCount() >= 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestConnectionOpenFailure(t *testing.T) {
	rec := &recorder{}
	c := &Connection{
		Name:          "broken",
		Open:          func() (io.ReadWriteCloser, error) { return nil, errors.New("port busy") },
		CheckInterval: 20 * time.Millisecond,
		OnChange:      rec.record,
	}
	runConnection(t, c, nil)
	require.Eventually(t, func() bool {
		return rec.seen(Failed)
	}, 2*time.Second, 5*time.Millisecond)

	_, err := c.Call(context.Background(), 1, nil)
	var notReady *NotReadyError
	require.ErrorAs(t, err, &notReady)
	require.False(t, notReady.Status.IsReady())
}

func TestConnectionNotPresent(t *testing.T) {
	rec := &recorder{}
	c := &Connection{
		Name:          "absent",
		Open:          func() (io.ReadWriteCloser, error) { return nil, errors.New("unexpected open") },
		Present:       func() bool { return false },
		CheckInterval: 10 * time.Millisecond,
		OnChange:      rec.record,
	}
	// Disconnected is the zero state, so nothing is recorded.
	runConnection(t, c, nil)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, Disconnected, c.Status().State)
	require.False(t, rec.seen(Connecting))
	require.Equal(t, Status{}, rec.last())
}

func TestConnectionStopsDisconnected(t *testing.T) {
	c, p, _ := newPipeConnection(roverDevice(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	defer p.closeAll()

	waitReady(t, c)
	cancel()
	require.Equal(t, context.Canceled, <-done)
	require.Equal(t, Disconnected, c.Status().State)
}
