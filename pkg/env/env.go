// Package env provides the common options of mcplink binaries.
package env

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/golang/glog"

	"github.com/robotalks/mcplink/pkg/manifest"
	"github.com/robotalks/mcplink/pkg/transport"
)

// Config provides common options.
type Config struct {
	// Line is the stream address, see transport.ParseTarget.
	// The simulator creates a PTY symlink at this path instead.
	Line string
	// Baud is used when Line doesn't specify one.
	Baud int
	// Manifest is the path of the function manifest.
	Manifest string
	// MQTTBrokerURL specifies the MQTT broker for diagnostics,
	// e.g. mqtt://host:port/topic-prefix/. Empty disables it.
	MQTTBrokerURL string
	// DeviceID is reported by the simulator.
	DeviceID string
}

var defaultConfig = Config{
	Line: "/tmp/ttyMCU",
	Baud: transport.DefaultBaudRate,
}

func init() {
	loadEnv(&defaultConfig, os.Getenv)
}

func loadEnv(c *Config, getenv func(string) string) {
	if val := getenv("MCPLINK_LINE"); val != "" {
		c.Line = val
	}
	if val := getenv("MCPLINK_BAUD"); val != "" {
		if baud, err := strconv.Atoi(val); err == nil && baud > 0 {
			c.Baud = baud
		} else {
			glog.Warningf("ignore invalid MCPLINK_BAUD %q", val)
		}
	}
	if val := getenv("MCPLINK_MANIFEST"); val != "" {
		c.Manifest = val
	}
	if val := getenv("MCPLINK_MQTT_URL"); val != "" {
		c.MQTTBrokerURL = val
	}
	if val := getenv("MCPLINK_DEVICE_ID"); val != "" {
		c.DeviceID = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Line, "line", defaultConfig.Line, "Serial line, e.g. /dev/ttyACM0, serial:///dev/ttyUSB0?baud=9600 or ws://host:port/path.")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Baud rate of the serial line.")
	flag.StringVar(&defaultConfig.Manifest, "manifest", defaultConfig.Manifest, "Function manifest (YAML, JSON or TOML).")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL for diagnostics.")
	flag.StringVar(&defaultConfig.DeviceID, "id", defaultConfig.DeviceID, "Device ID.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Target parses Line.
func (c *Config) Target() (*transport.Target, error) {
	t, err := transport.ParseTarget(c.Line)
	if err != nil {
		return nil, fmt.Errorf("invalid line %q: %w", c.Line, err)
	}
	if t.Baud == 0 {
		t.Baud = c.Baud
	}
	return t, nil
}

// OpenLine opens the stream at Line.
func (c *Config) OpenLine() (io.ReadWriteCloser, error) {
	t, err := c.Target()
	if err != nil {
		return nil, err
	}
	return t.Open()
}

// LoadManifest loads the manifest. It returns nil if not configured.
func (c *Config) LoadManifest() (*manifest.Manifest, error) {
	if c.Manifest == "" {
		return nil, nil
	}
	return manifest.Load(c.Manifest)
}

// ResolveDeviceID returns DeviceID, falling back to the id derived from
// the manifest path, then the machine id.
func (c *Config) ResolveDeviceID() string {
	if c.DeviceID != "" {
		return c.DeviceID
	}
	if c.Manifest != "" {
		if id := manifest.DeviceIDFromPath(c.Manifest); id != "" {
			return id
		}
	}
	return MachineID()
}
