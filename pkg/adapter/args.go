package adapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/robotalks/mcplink/pkg/manifest"
)

// VoidResult is the text result of a function returning nothing.
const VoidResult = "Command executed successfully"

// Tool describes a function for the client.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema Schema `json:"inputSchema"`
}

// Schema is the JSON schema of tool arguments.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// Property is the JSON schema of a single argument.
type Property struct {
	Type    string `json:"type"`
	Minimum *int64 `json:"minimum,omitempty"`
	Maximum *int64 `json:"maximum,omitempty"`
}

// JSONType maps a value type to its JSON schema type.
func JSONType(t manifest.ValueType) string {
	switch t {
	case manifest.I16, manifest.I32:
		return "integer"
	}
	return "string"
}

func intRange(t manifest.ValueType) (int64, int64, bool) {
	switch t {
	case manifest.I16:
		return math.MinInt16, math.MaxInt16, true
	case manifest.I32:
		return math.MinInt32, math.MaxInt32, true
	}
	return 0, 0, false
}

// ToolsFor lists the functions of a manifest as tools.
func ToolsFor(m *manifest.Manifest) []Tool {
	tools := make([]Tool, 0, len(m.Functions))
	for n := range m.Functions {
		fn := &m.Functions[n]
		schema := Schema{
			Type:       "object",
			Properties: make(map[string]Property, len(fn.Params)),
			Required:   make([]string, 0, len(fn.Params)),
		}
		for _, p := range fn.Params {
			prop := Property{Type: JSONType(p.Type)}
			if lo, hi, ok := intRange(p.Type); ok {
				prop.Minimum, prop.Maximum = &lo, &hi
			}
			schema.Properties[p.Name] = prop
			schema.Required = append(schema.Required, p.Name)
		}
		tools = append(tools, Tool{Name: fn.Name, Description: fn.Desc, InputSchema: schema})
	}
	return tools
}

func paramList(fn *manifest.Function) string {
	items := make([]string, len(fn.Params))
	for n, p := range fn.Params {
		items[n] = p.Name + ": " + JSONType(p.Type)
	}
	return "[" + strings.Join(items, ", ") + "]"
}

// EncodeArguments validates JSON object arguments against the function
// params and encodes them in param order.
func EncodeArguments(fn *manifest.Function, raw json.RawMessage) ([]byte, error) {
	args := make(map[string]interface{})
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		var v interface{}
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("arguments: %w", err)
		}
		obj, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("arguments must be an object")
		}
		args = obj
	}

	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(fn.Params) == 0 && len(args) > 0 {
		return nil, fmt.Errorf("function %q takes no parameters, got [%s]", fn.Name, strings.Join(names, ", "))
	}
	if len(fn.Params) > 0 && len(args) == 0 {
		return nil, fmt.Errorf("function %q requires %d parameters: %s", fn.Name, len(fn.Params), paramList(fn))
	}
	for _, name := range names {
		if !hasParam(fn, name) {
			return nil, fmt.Errorf("invalid parameter %q for function %q, valid parameters are %s", name, fn.Name, paramList(fn))
		}
	}

	var w manifest.ArgWriter
	for _, p := range fn.Params {
		v, ok := args[p.Name]
		if !ok {
			return nil, fmt.Errorf("missing parameter %q (type: %s) for function %q", p.Name, JSONType(p.Type), fn.Name)
		}
		if err := encodeArg(&w, p, v); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

func hasParam(fn *manifest.Function, name string) bool {
	for _, p := range fn.Params {
		if p.Name == name {
			return true
		}
	}
	return false
}

func encodeArg(w *manifest.ArgWriter, p manifest.Param, v interface{}) error {
	switch p.Type {
	case manifest.I16, manifest.I32:
		num, ok := v.(json.Number)
		if !ok {
			return fmt.Errorf("parameter %q must be a number (type: integer), got %s", p.Name, jsonText(v))
		}
		val, err := strconv.ParseInt(num.String(), 10, 64)
		if err != nil {
			return fmt.Errorf("parameter %q must be an integer, got %s", p.Name, num)
		}
		lo, hi, _ := intRange(p.Type)
		if val < lo || val > hi {
			return fmt.Errorf("parameter %q value %d is out of range for %s (%d to %d)", p.Name, val, p.Type, lo, hi)
		}
		if p.Type == manifest.I16 {
			w.WriteI16(int16(val))
		} else {
			w.WriteI32(int32(val))
		}
	case manifest.CStr:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("parameter %q must be a string, got %s", p.Name, jsonText(v))
		}
		if strings.IndexByte(s, 0) >= 0 {
			return fmt.Errorf("parameter %q must not contain NUL", p.Name)
		}
		w.WriteCStr(s)
	default:
		return &manifest.ErrUnknownType{Type: p.Type}
	}
	return nil
}

func jsonText(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// FormatResult formats a reply by the function return type. Strings are
// not quoted.
func FormatResult(fn *manifest.Function, data []byte) (string, error) {
	switch fn.Return {
	case manifest.Void:
		return VoidResult, nil
	case manifest.CStr:
		return manifest.NewArgReader(data).ReadCStr(), nil
	}
	return manifest.NewArgReader(data).ReadString(fn.Return)
}
