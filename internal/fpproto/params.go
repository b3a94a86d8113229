package fpproto

import "encoding/binary"

// SystemParameters is the PARAMETERS_GET response body, laid out as
// status(2) | id(2) | capacity(2) | security(2) | address(4) |
// packet_size(2) | baudrate(2), all big-endian.
type SystemParameters struct {
	Status     uint16
	ID         uint16
	Capacity   uint16
	Security   uint16
	Address    uint32
	PacketSize PacketSizeCode
	BaudRate   uint16 // multiples of 9600; actual bps = BaudRate * 9600
}

// SystemParametersLen is the expected decoded payload length.
const SystemParametersLen = 16

// DecodeSystemParameters parses a PARAMETERS_GET ack body (ack payload
// with the leading confirmation-code byte already stripped).
func DecodeSystemParameters(b []byte) (SystemParameters, bool) {
	if len(b) < SystemParametersLen {
		return SystemParameters{}, false
	}
	var p SystemParameters
	p.Status = binary.BigEndian.Uint16(b[0:2]) & 0x000F
	p.ID = binary.BigEndian.Uint16(b[2:4])
	p.Capacity = binary.BigEndian.Uint16(b[4:6])
	p.Security = binary.BigEndian.Uint16(b[6:8])
	p.Address = binary.BigEndian.Uint32(b[8:12])
	p.PacketSize = PacketSizeCode(binary.BigEndian.Uint16(b[12:14]))
	p.BaudRate = binary.BigEndian.Uint16(b[14:16])
	return p, true
}

// BaudBPS returns the actual bits-per-second the sensor's BaudRate
// field encodes.
func (p SystemParameters) BaudBPS() uint32 { return uint32(p.BaudRate) * 9600 }
