package adapter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/mcplink/pkg/manifest"
)

func TestEncodeArguments(t *testing.T) {
	m := roverManifest(t)
	drive, add, greet := m.ByName("drive"), m.ByName("add"), m.ByName("greet")
	stop := &manifest.Function{Tag: 9, Name: "stop"}

	tests := []struct {
		fn   *manifest.Function
		args string
		data []byte
		err  string
	}{
		{fn: drive, args: `{"left": -1, "right": 256}`, data: []byte{0xff, 0xff, 0x00, 0x01}},
		{fn: drive, args: `{"right": 2, "left": 1}`, data: []byte{1, 0, 2, 0}},
		{fn: add, args: `{"a": 70000, "b": -2}`, data: []byte{0x70, 0x11, 0x01, 0x00, 0xfe, 0xff, 0xff, 0xff}},
		{fn: greet, args: `{"name": "bob"}`, data: []byte{'b', 'o', 'b', 0}},
		{fn: stop, args: ``, data: nil},
		{fn: stop, args: `null`, data: nil},
		{fn: stop, args: `{}`, data: nil},

		{fn: drive, args: `[1, 2]`, err: "arguments must be an object"},
		{fn: drive, args: `{"left": 1`, err: "arguments: "},
		{fn: stop, args: `{"speed": 1}`, err: `function "stop" takes no parameters, got [speed]`},
		{fn: drive, args: `{}`, err: `function "drive" requires 2 parameters: [left: integer, right: integer]`},
		{fn: drive, args: `{"left": 1, "speed": 2}`, err: `invalid parameter "speed" for function "drive"`},
		{fn: drive, args: `{"left": 1}`, err: `missing parameter "right" (type: integer)`},
		{fn: drive, args: `{"left": "1", "right": 2}`, err: `parameter "left" must be a number`},
		{fn: drive, args: `{"left": 1.5, "right": 2}`, err: `parameter "left" must be an integer`},
		{fn: drive, args: `{"left": 32768, "right": 2}`, err: `value 32768 is out of range for i16 (-32768 to 32767)`},
		{fn: drive, args: `{"left": -32769, "right": 2}`, err: "out of range"},
		{fn: add, args: `{"a": 2147483648, "b": 0}`, err: "out of range for i32"},
		{fn: greet, args: `{"name": 42}`, err: `parameter "name" must be a string, got 42`},
		{fn: greet, args: `{"name": "a\u0000b"}`, err: "must not contain NUL"},
	}
	for _, test := range tests {
		data, err := EncodeArguments(test.fn, json.RawMessage(test.args))
		if test.err != "" {
			require.Error(t, err, test.args)
			require.Contains(t, err.Error(), test.err)
			continue
		}
		require.NoError(t, err, test.args)
		require.Equal(t, test.data, data, test.args)
	}
}

func TestToolsFor(t *testing.T) {
	tools := ToolsFor(roverManifest(t))
	require.Len(t, tools, 3)

	drive := tools[0]
	require.Equal(t, "drive", drive.Name)
	require.Equal(t, "Drive wheels", drive.Description)
	require.Equal(t, "object", drive.InputSchema.Type)
	require.Equal(t, []string{"left", "right"}, drive.InputSchema.Required)
	left := drive.InputSchema.Properties["left"]
	require.Equal(t, "integer", left.Type)
	require.Equal(t, int64(-32768), *left.Minimum)
	require.Equal(t, int64(32767), *left.Maximum)

	greet := tools[2]
	require.Equal(t, Property{Type: "string"}, greet.InputSchema.Properties["name"])

	out, err := json.Marshal(ToolsFor(&manifest.Manifest{Functions: []manifest.Function{{Tag: 1, Name: "stop"}}}))
	require.NoError(t, err)
	require.JSONEq(t, `[{"name":"stop","description":"","inputSchema":{"type":"object","properties":{},"required":[]}}]`, string(out))
}

func TestFormatResult(t *testing.T) {
	m := roverManifest(t)

	text, err := FormatResult(m.ByName("drive"), nil)
	require.NoError(t, err)
	require.Equal(t, VoidResult, text)

	text, err = FormatResult(m.ByName("add"), []byte{0xfe, 0xff, 0xff, 0xff})
	require.NoError(t, err)
	require.Equal(t, "-2", text)

	text, err = FormatResult(m.ByName("greet"), []byte("hello bob\x00"))
	require.NoError(t, err)
	require.Equal(t, "hello bob", text)

	_, err = FormatResult(m.ByName("add"), []byte{1})
	require.ErrorIs(t, err, manifest.ErrShortData)
}
