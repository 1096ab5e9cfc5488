// Package sim simulates an MCU serving the functions of a manifest.
package sim

import (
	"fmt"
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/mcplink/pkg/link"
	"github.com/robotalks/mcplink/pkg/manifest"
)

// Call is a decoded invocation.
type Call struct {
	Function *manifest.Function
	Args     []string // formatted for display
	Raw      []byte   // encoded arguments, only valid during the call
}

// Reader decodes the arguments again, e.g. to get numeric values.
func (c *Call) Reader() *manifest.ArgReader {
	return manifest.NewArgReader(c.Raw)
}

// String formats the call like name(a=1, b="x").
func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for n, arg := range c.Args {
		args[n] = c.Function.Params[n].Name + "=" + arg
	}
	return c.Function.Name + "(" + strings.Join(args, ", ") + ")"
}

// HandlerFunc produces the encoded result of a call.
type HandlerFunc func(call *Call, result *manifest.ArgWriter) error

// Device implements link.Dispatcher from a manifest. Functions without a
// handler return the zero value of their return type.
type Device struct {
	ID       string
	Manifest *manifest.Manifest
	Handlers map[string]HandlerFunc
}

// NewDevice creates a Device.
func NewDevice(id string, m *manifest.Manifest) *Device {
	return &Device{ID: id, Manifest: m, Handlers: make(map[string]HandlerFunc)}
}

// Handle sets the handler of a function.
func (d *Device) Handle(name string, h HandlerFunc) *Device {
	d.Handlers[name] = h
	return d
}

// Dispatch implements link.Dispatcher.
func (d *Device) Dispatch(req, resp []byte) (int, error) {
	if len(req) == 0 {
		return 0, fmt.Errorf("empty request: %w", link.ErrUnknownCommand)
	}
	var result manifest.ArgWriter
	tag := req[0]
	if tag == manifest.DeviceIDTag {
		glog.Infof("[deviceId()] -> %q", d.ID)
		result.WriteCStr(d.ID)
		return d.reply(result.Bytes(), resp)
	}

	fn := d.Manifest.ByTag(tag)
	if fn == nil {
		glog.Warningf("unknown function tag: %d", tag)
		return 0, fmt.Errorf("tag %d: %w", tag, link.ErrUnknownCommand)
	}
	call, err := decodeCall(fn, req[1:])
	if err != nil {
		glog.Warningf("%s: %v", fn.Name, err)
		return 0, err
	}

	if h := d.Handlers[fn.Name]; h != nil {
		if err = h(call, &result); err != nil {
			glog.Warningf("[%s] failed: %v", call, err)
			return 0, err
		}
	} else {
		switch fn.Return {
		case manifest.I16:
			result.WriteI16(0)
		case manifest.I32:
			result.WriteI32(0)
		case manifest.CStr:
			result.WriteCStr("")
		}
	}

	if fn.Return == manifest.Void {
		glog.Infof("[%s] -> void", call)
	} else if s, err := manifest.NewArgReader(result.Bytes()).ReadString(fn.Return); err == nil {
		glog.Infof("[%s] -> %s (%s)", call, s, fn.Return)
	}
	return d.reply(result.Bytes(), resp)
}

func (d *Device) reply(result, resp []byte) (int, error) {
	if len(result) > len(resp) {
		return 0, link.ErrResponseTooLarge
	}
	return copy(resp, result), nil
}

func decodeCall(fn *manifest.Function, args []byte) (*Call, error) {
	call := &Call{Function: fn, Raw: args, Args: make([]string, 0, len(fn.Params))}
	r := manifest.NewArgReader(args)
	for _, p := range fn.Params {
		s, err := r.ReadString(p.Type)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", p.Name, err)
		}
		call.Args = append(call.Args, s)
	}
	return call, nil
}
