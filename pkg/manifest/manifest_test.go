package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testManifestJSON = `{
  "name": "rover",
  "description": "two wheeled rover",
  "version": "0.1.0",
  "functions": [
    {"tag": 1, "name": "drive", "desc": "drive wheels", "params": [{"name": "left", "type": "i16"}, {"name": "right", "type": "i16"}]},
    {"tag": 2, "name": "distance", "desc": "read sonar", "return": "i32", "params": []},
    {"tag": 3, "name": "say", "desc": "print text", "return": "CStr", "params": [{"name": "text", "type": "CStr"}]}
  ]
}`

const testManifestYAML = `
name: rover
description: two wheeled rover
version: 0.1.0
functions:
  - tag: 1
    name: drive
    desc: drive wheels
    params:
      - {name: left, type: i16}
      - {name: right, type: i16}
  - tag: 2
    name: distance
    desc: read sonar
    return: i32
  - tag: 3
    name: say
    desc: print text
    return: CStr
    params:
      - {name: text, type: CStr}
`

const testManifestTOML = `
name = "rover"
description = "two wheeled rover"
version = "0.1.0"

[[functions]]
tag = 1
name = "drive"
desc = "drive wheels"
params = [{name = "left", type = "i16"}, {name = "right", type = "i16"}]

[[functions]]
tag = 2
name = "distance"
desc = "read sonar"
return = "i32"

[[functions]]
tag = 3
name = "say"
desc = "print text"
return = "CStr"
params = [{name = "text", type = "CStr"}]
`

func requireRover(t *testing.T, m *Manifest) {
	require.Equal(t, "rover", m.Name)
	require.Equal(t, "0.1.0", m.Version)
	require.Len(t, m.Functions, 3)
	drive := m.ByName("drive")
	require.NotNil(t, drive)
	require.Equal(t, uint8(1), drive.Tag)
	require.Equal(t, Void, drive.Return)
	require.Equal(t, []Param{{Name: "left", Type: I16}, {Name: "right", Type: I16}}, drive.Params)
	require.Equal(t, "distance", m.ByTag(2).Name)
	require.Equal(t, I32, m.ByTag(2).Return)
	require.Nil(t, m.ByTag(9))
	require.Nil(t, m.ByName("fly"))
}

func TestParse(t *testing.T) {
	testCases := []struct {
		name   string
		data   string
		format Format
	}{
		{"json", testManifestJSON, FormatYAML},
		{"yaml", testManifestYAML, FormatYAML},
		{"toml", testManifestTOML, FormatTOML},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := Parse([]byte(tc.data), tc.format)
			require.NoError(t, err)
			requireRover(t, m)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rover.toml")
	require.NoError(t, os.WriteFile(path, []byte(testManifestTOML), 0644))
	m, err := Load(path)
	require.NoError(t, err)
	requireRover(t, m)
	require.Equal(t, "rover", DeviceIDFromPath(path))

	_, err = Load(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name string
		fns  []Function
	}{
		{"reserved tag", []Function{{Tag: 0, Name: "a"}}},
		{"no name", []Function{{Tag: 1}}},
		{"duplicated tag", []Function{{Tag: 1, Name: "a"}, {Tag: 1, Name: "b"}}},
		{"duplicated name", []Function{{Tag: 1, Name: "a"}, {Tag: 2, Name: "a"}}},
		{"bad return", []Function{{Tag: 1, Name: "a", Return: "f32"}}},
		{"bad param", []Function{{Tag: 1, Name: "a", Params: []Param{{Name: "x", Type: "u8"}}}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := &Manifest{Functions: tc.fns}
			require.Error(t, m.Validate())
		})
	}
	require.NoError(t, (&Manifest{}).Validate())
}

func TestSignature(t *testing.T) {
	m, err := Parse([]byte(testManifestJSON), FormatYAML)
	require.NoError(t, err)
	require.Equal(t, "drive(left: i16, right: i16)", m.ByTag(1).Signature())
	require.Equal(t, "distance() -> i32", m.ByTag(2).Signature())
	require.Equal(t, "say(text: CStr) -> CStr", m.ByTag(3).Signature())
}
