// Package slip provides the frame codec of the MCU command link.
package slip

// Frames travel over a byte stream (typically a serial port) and are
// delimited by END markers. END and ESC never appear literally inside a
// frame: the encoder substitutes two-byte escape codes and the decoder
// undoes the substitution.
//
// Every outgoing unit looks like:
//
//	ESC CLEAR END <escaped payload> END
//
// The leading ESC CLEAR flushes whatever partial state the receiver holds.
// The last payload byte is a CRC-8 over the preceding bytes.
//
// Structural problems (overflow, invalid escape) silently drop the frame
// being received. The decoder resynchronizes on the next END.
