// Package sh provides the interactive host shell talking to a device.
package sh

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/mcplink/pkg/client"
	"github.com/robotalks/mcplink/pkg/env"
	"github.com/robotalks/mcplink/pkg/manifest"
	"github.com/robotalks/mcplink/pkg/transport"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell    *ishell.Shell
	Config   *env.Config
	Manifest *manifest.Manifest
	Client   *client.Client
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// ErrNotConnected is returned when a command needs a device.
	ErrNotConnected = errors.New("not connected")
	// ErrNoManifest is returned when a command needs the manifest.
	ErrNoManifest = errors.New("no manifest loaded")
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
		&IDCmd,
		&ListCmd,
		&CallCmd,
		&RawCmd,
		&PortsCmd,
	}

	listPorts = transport.ListSerialPorts
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// Connect opens the line and replaces the current connection.
// An empty line uses the configured one.
func (s *Shell) Connect(line string) error {
	conf := *s.Config
	if line != "" {
		conf.Line = line
	}
	rw, err := conf.OpenLine()
	if err != nil {
		return err
	}
	s.Attach(rw)
	if s.Shell != nil {
		s.Shell.SetPrompt(fmt.Sprintf("%s > ", conf.Line))
	}
	return nil
}

// Attach uses rw as the connection.
func (s *Shell) Attach(rw io.ReadWriteCloser) {
	s.Disconnect()
	s.Client = client.New(rw)
}

// Disconnect closes the current connection.
func (s *Shell) Disconnect() {
	if s.Client != nil {
		s.Client.Close()
		s.Client = nil
		if s.Shell != nil {
			s.Shell.SetPrompt(unconnectedPrompt)
		}
	}
}

// DeviceID queries the device id.
func (s *Shell) DeviceID() (string, error) {
	if s.Client == nil {
		return "", ErrNotConnected
	}
	return s.Client.DeviceID(context.Background())
}

// Ports lists serial ports on this machine, sorted.
func (s *Shell) Ports() ([]string, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, err
	}
	sort.Strings(ports)
	return ports, nil
}

// Call invokes a function from the manifest.
func (s *Shell) Call(name string, args ...string) (string, error) {
	if s.Client == nil {
		return "", ErrNotConnected
	}
	if s.Manifest == nil {
		return "", ErrNoManifest
	}
	fn := s.Manifest.ByName(name)
	if fn == nil {
		return "", fmt.Errorf("unknown function %q", name)
	}
	return s.Client.Invoke(context.Background(), fn, args...)
}

// Raw sends a tag with hex encoded arguments and returns the raw reply.
func (s *Shell) Raw(tag string, hexArgs ...string) ([]byte, error) {
	if s.Client == nil {
		return nil, ErrNotConnected
	}
	t, args, err := ParseRaw(tag, hexArgs...)
	if err != nil {
		return nil, err
	}
	return s.Client.Call(context.Background(), t, args)
}

// ParseRaw parses a tag (decimal or 0x prefixed) and hex encoded
// argument bytes. Arguments may be split, e.g. "01 02" or "0102".
func ParseRaw(tag string, hexArgs ...string) (byte, []byte, error) {
	t, err := strconv.ParseUint(tag, 0, 8)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid tag %q: %w", tag, err)
	}
	args, err := hex.DecodeString(strings.Join(hexArgs, ""))
	if err != nil {
		return 0, nil, fmt.Errorf("invalid hex arguments: %w", err)
	}
	return byte(t), args, nil
}

// Print prints the result in text or JSON.
func (s *Shell) Print(c *ishell.Context, v interface{}, text string) {
	if s.OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.Config.Manifest != "" {
		m, err := s.Config.LoadManifest()
		if err != nil {
			log.Fatalln(err)
		}
		s.Manifest = m
	}
	if s.AutoConnect && s.Config.Line != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.Line)
		}
		if err := s.Connect(""); err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.Line, err)
		}
	}
	defer s.Disconnect()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
