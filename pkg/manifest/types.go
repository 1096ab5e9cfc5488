package manifest

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
)

// ValueType is the wire type of a parameter or return value.
type ValueType string

// Supported value types.
const (
	Void ValueType = ""
	I16  ValueType = "i16"  // little-endian int16
	I32  ValueType = "i32"  // little-endian int32
	CStr ValueType = "CStr" // NUL terminated string
)

// IsValid tells if the type can be carried as a value.
func (t ValueType) IsValid() bool {
	return t == I16 || t == I32 || t == CStr
}

// ErrUnknownType indicates an unsupported value type.
type ErrUnknownType struct {
	Type ValueType
}

// Error implements error.
func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown type: %q", string(e.Type))
}

// ErrShortData indicates not enough bytes for a value.
var ErrShortData = errors.New("not enough data")

// ArgWriter encodes values.
type ArgWriter struct {
	buf []byte
}

// WriteI16 appends an i16.
func (w *ArgWriter) WriteI16(v int16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, uint16(v))
}

// WriteI32 appends an i32.
func (w *ArgWriter) WriteI32(v int32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v))
}

// WriteCStr appends a NUL terminated string.
func (w *ArgWriter) WriteCStr(s string) {
	w.buf = append(append(w.buf, s...), 0)
}

// WriteString parses s according to t and appends it.
func (w *ArgWriter) WriteString(t ValueType, s string) error {
	switch t {
	case I16:
		v, err := strconv.ParseInt(s, 0, 16)
		if err != nil {
			return err
		}
		w.WriteI16(int16(v))
	case I32:
		v, err := strconv.ParseInt(s, 0, 32)
		if err != nil {
			return err
		}
		w.WriteI32(int32(v))
	case CStr:
		w.WriteCStr(s)
	default:
		return &ErrUnknownType{Type: t}
	}
	return nil
}

// Bytes returns encoded bytes.
func (w *ArgWriter) Bytes() []byte {
	return w.buf
}

// ArgReader decodes values.
type ArgReader struct {
	data []byte
	pos  int
}

// NewArgReader creates an ArgReader over data.
func NewArgReader(data []byte) *ArgReader {
	return &ArgReader{data: data}
}

// Remaining returns the number of unread bytes.
func (r *ArgReader) Remaining() int {
	return len(r.data) - r.pos
}

// ReadI16 reads an i16.
func (r *ArgReader) ReadI16() (int16, error) {
	if r.Remaining() < 2 {
		return 0, ErrShortData
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return int16(v), nil
}

// ReadI32 reads an i32.
func (r *ArgReader) ReadI32() (int32, error) {
	if r.Remaining() < 4 {
		return 0, ErrShortData
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return int32(v), nil
}

// ReadCStr reads a string up to NUL or the end of data.
func (r *ArgReader) ReadCStr() string {
	rest := r.data[r.pos:]
	for n, b := range rest {
		if b == 0 {
			r.pos += n + 1
			return string(rest[:n])
		}
	}
	r.pos = len(r.data)
	return string(rest)
}

// ReadString reads a value of type t and formats it for display.
// Strings are quoted.
func (r *ArgReader) ReadString(t ValueType) (string, error) {
	switch t {
	case I16:
		v, err := r.ReadI16()
		if err != nil {
			return "", err
		}
		return strconv.Itoa(int(v)), nil
	case I32:
		v, err := r.ReadI32()
		if err != nil {
			return "", err
		}
		return strconv.Itoa(int(v)), nil
	case CStr:
		return strconv.Quote(r.ReadCStr()), nil
	}
	return "", &ErrUnknownType{Type: t}
}
