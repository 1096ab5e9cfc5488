package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/mcplink/pkg/adapter"
	"github.com/robotalks/mcplink/pkg/adapter/stream"
	"github.com/robotalks/mcplink/pkg/env"
	fx "github.com/robotalks/mcplink/pkg/framework"
)

var (
	listenAddr    = ":8080"
	manifestDir   string
	checkInterval = adapter.DefaultCheckInterval
	initDelay     = adapter.DefaultInitDelay
)

func init() {
	env.SetupFlags()
	if val := os.Getenv("MCPLINK_LISTEN"); val != "" {
		listenAddr = val
	}
	if val := os.Getenv("MCPLINK_MANIFEST_DIR"); val != "" {
		manifestDir = val
	}
	flag.StringVar(&listenAddr, "listen", listenAddr, "HTTP listen address.")
	flag.StringVar(&manifestDir, "manifests", manifestDir, "Directory of <device-id>.json manifests, defaults to the directory of -manifest.")
	flag.DurationVar(&checkInterval, "check-interval", checkInterval, "Interval of connection checks.")
	flag.DurationVar(&initDelay, "init-delay", initDelay, "Wait after opening the line before querying the device id.")
}

func main() {
	flag.Parse()

	conf := env.NewConfig()
	target, err := conf.Target()
	if err != nil {
		log.Fatalln(err)
	}
	dir := manifestDir
	if dir == "" {
		dir = "manifests"
		if conf.Manifest != "" {
			dir = filepath.Dir(conf.Manifest)
		}
	}

	events := stream.New()
	conn := adapter.NewConnection(target)
	conn.CheckInterval = checkInterval
	conn.InitDelay = initDelay
	conn.OnChange = func(st adapter.Status) {
		if err := events.Publish(st); err != nil {
			glog.Warningf("publish status: %v", err)
		}
	}

	manifests := adapter.NewManifests(dir)
	if ids, err := manifests.List(); err == nil {
		glog.Infof("manifests in %s: %v", dir, ids)
	}

	srv := &http.Server{
		Addr: listenAddr,
		Handler: &adapter.Server{
			Name:      "mcplink-adapter",
			Device:    conn,
			Manifests: manifests,
			Events:    events,
		},
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveHTTP := func(ctx context.Context) error {
		glog.Infof("serving %s on http://%s/mcp", target, listenAddr)
		return fx.RunWithContextCancel(ctx, func() { srv.Close() }, srv.ListenAndServe)
	}

	runner := fx.NewRunner().HandleSignals()
	runner.Go(
		fx.NamedRun("connection", conn),
		fx.NamedRun("events", fx.RunFunc(events.Run)),
		fx.NamedRun("http", fx.RunFunc(serveHTTP)),
	)
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
