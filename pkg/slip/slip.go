package slip

import "errors"

// Wire bytes.
const (
	END    byte = 0xc0 // frame boundary
	ESC    byte = 0xdb // escape marker
	ESCEND byte = 0xdc // escaped END
	ESCESC byte = 0xdd // escaped ESC
	CLEAR  byte = 0xde // resync, only sent after ESC
)

// MaxFrameSize is the capacity of the frame buffer and the response buffer.
const MaxFrameSize = 256

// ErrFrameTooLarge indicates a payload exceeds MaxFrameSize.
var ErrFrameTooLarge = errors.New("frame too large")
