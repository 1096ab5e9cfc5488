package link

import (
	"errors"
	"fmt"
)

// Error codes carried by error frames.
const (
	CodeBadChecksum    byte = 0x01
	CodeDispatchFailed byte = 0x02
)

// ErrorMarker is the first byte of an error payload.
const ErrorMarker byte = 0xff

var (
	// ErrResponseTooLarge indicates the dispatcher reported more bytes than
	// the response buffer holds.
	ErrResponseTooLarge = errors.New("response too large")
	// ErrUnknownCommand is a convenient error for dispatchers.
	ErrUnknownCommand = errors.New("unknown command")
)

// CodeName gives a short description of an error code.
func CodeName(code byte) string {
	switch code {
	case CodeBadChecksum:
		return "checksum mismatch"
	case CodeDispatchFailed:
		return "dispatch failed"
	}
	return fmt.Sprintf("error 0x%02x", code)
}
