// Package link serves MCU commands over a SLIP framed byte stream.
//
// A Link reads the transport and feeds the frame decoder. Every complete
// frame is checked by the Processor, handed to a Dispatcher, and the
// response (or an error frame) is encoded back onto the transport before
// the next byte is consumed.
package link
