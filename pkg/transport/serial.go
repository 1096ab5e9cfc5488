package transport

import (
	"time"

	"go.bug.st/serial"
)

// DefaultBaudRate is used when the baud rate is not specified.
const DefaultBaudRate = 115200

// PollInterval is the read timeout of serial ports.
const PollInterval = 100 * time.Millisecond

// SerialPort is an opened serial port. Read returns 0 bytes without error
// when nothing arrives within PollInterval.
type SerialPort struct {
	serial.Port
	Path string
}

// OpenSerial opens a serial port in 8N1 mode.
func OpenSerial(path string, baud int) (*SerialPort, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(path, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}
	if err = port.SetReadTimeout(PollInterval); err != nil {
		port.Close()
		return nil, err
	}
	return &SerialPort{Port: port, Path: path}, nil
}

// HasReadTimeout implements TimeoutReader.
func (p *SerialPort) HasReadTimeout() bool {
	return true
}

// ListSerialPorts lists serial ports on the system.
func ListSerialPorts() ([]string, error) {
	return serial.GetPortsList()
}
