package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"io"
	"log"
	"net/http"

	"github.com/golang/glog"

	"github.com/robotalks/mcplink/pkg/env"
	fx "github.com/robotalks/mcplink/pkg/framework"
	"github.com/robotalks/mcplink/pkg/link"
	"github.com/robotalks/mcplink/pkg/manifest"
	"github.com/robotalks/mcplink/pkg/sim"
	"github.com/robotalks/mcplink/pkg/tap/mqtt"
	"github.com/robotalks/mcplink/pkg/transport"
)

var (
	listenAddr string
	wsPath     = "/link"
)

func init() {
	env.SetupFlags()
	flag.StringVar(&listenAddr, "listen", listenAddr, "Serve the device over websocket at this address, e.g. :8080.")
	flag.StringVar(&wsPath, "ws-path", wsPath, "Websocket path.")
}

type simulator struct {
	device   *sim.Device
	observer link.Observer
}

func (s *simulator) serve(ctx context.Context, rw io.ReadWriter) error {
	l := link.New(rw, s.device).WithObserver(s.observer)
	l.ReadTimeout = transport.HasReadTimeout(rw)
	err := l.Run(ctx)
	stats := l.Decoder().Stats()
	glog.Infof("link stopped: %d frames, %d runts, %d overflows, %d bad escapes",
		stats.Frames, stats.Runts, stats.Overflows, stats.BadEscapes)
	return err
}

func (s *simulator) servePTY(line string) fx.Runnable {
	return &fx.Reconnect{
		Name: "pty",
		Open: func() (io.ReadWriteCloser, error) {
			p, err := transport.OpenPTY(line)
			if err != nil {
				return nil, err
			}
			glog.Infof("serving %s on %s", s.device.ID, p.Name())
			return p, nil
		},
		Serve: func(ctx context.Context, rw io.ReadWriteCloser) error {
			return s.serve(ctx, rw)
		},
	}
}

func (s *simulator) serveWebsocket(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(wsPath, transport.WebsocketHandler(func(rw io.ReadWriteCloser) {
		glog.Infof("websocket connected")
		s.serve(ctx, rw)
	}))
	srv := &http.Server{Addr: listenAddr, Handler: mux}
	glog.Infof("serving %s on ws://%s%s", s.device.ID, listenAddr, wsPath)
	return fx.RunWithContextCancel(ctx, func() { srv.Close() }, srv.ListenAndServe)
}

func main() {
	flag.Parse()

	conf := env.NewConfig()
	m, err := conf.LoadManifest()
	if err != nil {
		log.Fatalln(err)
	}
	if m == nil {
		glog.Warning("no manifest, only the device id is served")
		m = &manifest.Manifest{Name: "empty"}
	}

	s := &simulator{device: sim.NewDevice(conf.ResolveDeviceID(), m)}
	observers := link.Observers{link.LogEvents}
	if conf.MQTTBrokerURL != "" {
		q, err := mqtt.NewQueueFromURL(conf.MQTTBrokerURL)
		if err != nil {
			log.Fatalln(err)
		}
		q.Connect()
		defer q.Close()
		observers = append(observers, mqtt.NewPublisher(q, s.device.ID))
	}
	s.observer = observers

	runner := fx.NewRunner().HandleSignals()
	if conf.Line != "" {
		runner.Go(fx.NamedRun("pty", s.servePTY(conf.Line)))
	}
	if listenAddr != "" {
		runner.Go(fx.NamedRun("websocket", fx.RunFunc(s.serveWebsocket)))
	}
	if len(runner.Runners) == 0 {
		log.Fatalln("nothing to serve, -line or -listen required")
	}
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
