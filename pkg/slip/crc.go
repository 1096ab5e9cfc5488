package slip

import "github.com/sigurn/crc8"

// CRC-8 with polynomial 0x07, zero init, no reflection and no final xor.
var crcTable = crc8.MakeTable(crc8.CRC8)

// Checksum calculates the CRC-8 of data.
func Checksum(data []byte) byte {
	return crc8.Checksum(data, crcTable)
}

// AppendChecksum appends the checksum of data to data.
func AppendChecksum(data []byte) []byte {
	return append(data, Checksum(data))
}

// SplitChecksum separates a frame into its data and trailing checksum and
// reports whether the checksum matches.
func SplitChecksum(frame []byte) (data []byte, ok bool) {
	if len(frame) == 0 {
		return nil, false
	}
	data = frame[:len(frame)-1]
	return data, frame[len(frame)-1] == Checksum(data)
}
