// Package stream pushes status updates to server-sent event clients.
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/coregx/stream/sse"
	"github.com/golang/glog"
)

// Broadcaster sends every published value to all connected clients.
// A new client first receives the last published value.
type Broadcaster struct {
	hub *sse.Hub[string]

	lock sync.RWMutex
	last string
}

// New creates a Broadcaster and starts its hub.
func New() *Broadcaster {
	b := &Broadcaster{hub: sse.NewHub[string]()}
	go b.hub.Run()
	return b
}

// Publish encodes v as JSON and broadcasts it.
func (b *Broadcaster) Publish(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b.lock.Lock()
	b.last = string(data)
	b.lock.Unlock()
	return b.hub.Broadcast(string(data))
}

// Last returns the last published value.
func (b *Broadcaster) Last() string {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.last
}

// Clients returns the number of connected clients.
func (b *Broadcaster) Clients() int {
	return b.hub.Clients()
}

// Close disconnects all clients.
func (b *Broadcaster) Close() error {
	return b.hub.Close()
}

// Run closes the Broadcaster when ctx is done.
func (b *Broadcaster) Run(ctx context.Context) error {
	<-ctx.Done()
	b.Close()
	return ctx.Err()
}

// ServeHTTP implements http.Handler.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := sse.Upgrade(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := b.hub.Register(conn); err != nil {
		conn.Close()
		return
	}
	glog.V(1).Infof("event client %s connected", r.RemoteAddr)
	if last := b.Last(); last != "" {
		conn.SendData(last)
	}
	<-conn.Done()
	b.hub.Unregister(conn)
	glog.V(1).Infof("event client %s disconnected", r.RemoteAddr)
}
