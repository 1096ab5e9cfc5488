package slip

import "io"

// Encode writes payload as one framed unit, preceded by the resync sequence.
func Encode(w io.ByteWriter, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	for _, b := range [...]byte{ESC, CLEAR, END} {
		if err := w.WriteByte(b); err != nil {
			return err
		}
	}
	for _, b := range payload {
		var err error
		switch b {
		case END:
			if err = w.WriteByte(ESC); err == nil {
				err = w.WriteByte(ESCEND)
			}
		case ESC:
			if err = w.WriteByte(ESC); err == nil {
				err = w.WriteByte(ESCESC)
			}
		default:
			err = w.WriteByte(b)
		}
		if err != nil {
			return err
		}
	}
	return w.WriteByte(END)
}

// AppendEncoded appends the framed form of payload to dst.
// Unlike Encode it doesn't limit the payload size.
func AppendEncoded(dst, payload []byte) []byte {
	dst = append(dst, ESC, CLEAR, END)
	for _, b := range payload {
		switch b {
		case END:
			dst = append(dst, ESC, ESCEND)
		case ESC:
			dst = append(dst, ESC, ESCESC)
		default:
			dst = append(dst, b)
		}
	}
	return append(dst, END)
}

// EncodedLen returns the number of bytes Encode writes for payload.
func EncodedLen(payload []byte) int {
	n := 4 + len(payload)
	for _, b := range payload {
		if b == END || b == ESC {
			n++
		}
	}
	return n
}
