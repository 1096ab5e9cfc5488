// Package manifest describes the commands a device exposes.
package manifest

import (
	"fmt"
	"strings"
)

// DeviceIDTag is the reserved tag of the device id query.
// It takes no arguments and returns a CStr.
const DeviceIDTag uint8 = 0

// Manifest describes a device.
type Manifest struct {
	Name        string     `json:"name" yaml:"name" toml:"name"`
	Description string     `json:"description" yaml:"description" toml:"description"`
	Version     string     `json:"version" yaml:"version" toml:"version"`
	Functions   []Function `json:"functions" yaml:"functions" toml:"functions"`
}

// Function is a command identified by its tag.
type Function struct {
	Tag    uint8     `json:"tag" yaml:"tag" toml:"tag"`
	Name   string    `json:"name" yaml:"name" toml:"name"`
	Desc   string    `json:"desc" yaml:"desc" toml:"desc"`
	Return ValueType `json:"return,omitempty" yaml:"return,omitempty" toml:"return,omitempty"`
	Params []Param   `json:"params" yaml:"params" toml:"params"`
}

// Param is a function parameter.
type Param struct {
	Name string    `json:"name" yaml:"name" toml:"name"`
	Type ValueType `json:"type" yaml:"type" toml:"type"`
}

// ByTag finds a function by tag.
func (m *Manifest) ByTag(tag uint8) *Function {
	for n := range m.Functions {
		if m.Functions[n].Tag == tag {
			return &m.Functions[n]
		}
	}
	return nil
}

// ByName finds a function by name.
func (m *Manifest) ByName(name string) *Function {
	for n := range m.Functions {
		if m.Functions[n].Name == name {
			return &m.Functions[n]
		}
	}
	return nil
}

// Validate checks the manifest is usable.
func (m *Manifest) Validate() error {
	tags := make(map[uint8]string)
	names := make(map[string]bool)
	for _, fn := range m.Functions {
		if fn.Name == "" {
			return fmt.Errorf("function with tag %d has no name", fn.Tag)
		}
		if fn.Tag == DeviceIDTag {
			return fmt.Errorf("function %q: tag %d is reserved", fn.Name, DeviceIDTag)
		}
		if other, ok := tags[fn.Tag]; ok {
			return fmt.Errorf("function %q: tag %d already used by %q", fn.Name, fn.Tag, other)
		}
		if names[fn.Name] {
			return fmt.Errorf("duplicated function %q", fn.Name)
		}
		tags[fn.Tag], names[fn.Name] = fn.Name, true
		if fn.Return != Void && !fn.Return.IsValid() {
			return fmt.Errorf("function %q: %w", fn.Name, &ErrUnknownType{Type: fn.Return})
		}
		for _, p := range fn.Params {
			if !p.Type.IsValid() {
				return fmt.Errorf("function %q param %q: %w", fn.Name, p.Name, &ErrUnknownType{Type: p.Type})
			}
		}
	}
	return nil
}

// Signature renders the function like name(a: i16) -> i32.
func (f *Function) Signature() string {
	params := make([]string, len(f.Params))
	for n, p := range f.Params {
		params[n] = p.Name + ": " + string(p.Type)
	}
	sig := f.Name + "(" + strings.Join(params, ", ") + ")"
	if f.Return != Void {
		sig += " -> " + string(f.Return)
	}
	return sig
}
