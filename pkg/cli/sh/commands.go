package sh

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/abiosoft/ishell"
)

var (
	// ConnectCmd connects a device.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[LINE]",
		Func: func(c *ishell.Context) {
			var line string
			if len(c.Args) > 0 {
				line = c.Args[0]
			}
			if err := ShellFrom(c).Connect(line); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current device.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// IDCmd queries the device id.
	IDCmd = ishell.Cmd{
		Name: "id",
		Help: "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			id, err := s.DeviceID()
			if err != nil {
				c.Err(err)
				return
			}
			s.Print(c, map[string]string{"id": id}, id)
		},
	}

	// ListCmd lists functions in the manifest.
	ListCmd = ishell.Cmd{
		Name:    "list",
		Aliases: []string{"l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if s.Manifest == nil {
				c.Err(ErrNoManifest)
				return
			}
			if s.OutputJSON {
				s.Print(c, s.Manifest.Functions, "")
				return
			}
			for _, fn := range s.Manifest.Functions {
				line := fmt.Sprintf("%3d %s", fn.Tag, fn.Signature())
				if fn.Desc != "" {
					line += ": " + fn.Desc
				}
				c.Println(line)
			}
		},
	}

	// CallCmd invokes a function.
	CallCmd = ishell.Cmd{
		Name: "call",
		Help: "NAME ARGS...",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("NAME required"))
				return
			}
			s := ShellFrom(c)
			result, err := s.Call(c.Args[0], c.Args[1:]...)
			if err != nil {
				c.Err(err)
				return
			}
			if result == "" {
				result = "OK"
			}
			s.Print(c, map[string]string{"result": result}, result)
		},
	}

	// RawCmd sends a command by tag.
	RawCmd = ishell.Cmd{
		Name: "raw",
		Help: "TAG [HEX...]",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("TAG required"))
				return
			}
			s := ShellFrom(c)
			data, err := s.Raw(c.Args[0], c.Args[1:]...)
			if err != nil {
				c.Err(err)
				return
			}
			out := hex.EncodeToString(data)
			s.Print(c, map[string]string{"data": out}, out)
		},
	}

	// PortsCmd lists serial ports.
	PortsCmd = ishell.Cmd{
		Name: "ports",
		Help: "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			ports, err := s.Ports()
			if err != nil {
				c.Err(err)
				return
			}
			s.Print(c, ports, strings.Join(ports, "\n"))
		},
	}
)
