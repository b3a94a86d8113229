package wire

import (
	"encoding/binary"
)

// DefaultAddress is the broadcast address used when no sensor address
// has been configured.
const DefaultAddress uint32 = 0xFFFFFFFF

// MinEncodedLength is the smallest legal encoded frame: header, address,
// pid, length and checksum, with an empty payload.
const MinEncodedLength = 11

// MaxPayloadLength bounds a single frame's payload, which keeps the
// length field (payload plus the 2-byte checksum) at 255 or below; the
// whole encoded frame is then at most 264 bytes.
const MaxPayloadLength = 253

// header is the fixed two-byte preamble every frame starts with.
var header = [2]byte{0xEF, 0x01}

// Frame is the unit exchanged with the sensor over the wire.
type Frame struct {
	Address uint32
	PID     PID
	Payload []byte
}

// NewFrame builds a frame addressed to the default broadcast address.
func NewFrame(pid PID, payload []byte) Frame {
	return Frame{Address: DefaultAddress, PID: pid, Payload: payload}
}

// Length is the wire length field: payload plus the trailing checksum.
func (f Frame) Length() int { return len(f.Payload) + 2 }

// body is the byte run the checksum is computed over: pid, the 2-byte
// length field, and the payload. It deliberately excludes the header
// and address per the protocol's checksum definition.
func (f Frame) body() []byte {
	b := make([]byte, 0, 3+len(f.Payload))
	b = append(b, byte(f.PID))
	b = binary.BigEndian.AppendUint16(b, uint16(f.Length()))
	b = append(b, f.Payload...)
	return b
}

// Checksum sums body() mod 2^16. The mask is applied after summing, not
// before, and only the body bytes participate — not the header or
// address.
func (f Frame) Checksum() uint16 {
	var sum uint32
	for _, b := range f.body() {
		sum += uint32(b)
	}
	return uint16(sum & 0xFFFF)
}

// Encode serializes the frame: header, address (BE4), pid, length (BE2),
// payload, checksum (BE2).
func (f Frame) Encode() []byte {
	body := f.body()
	out := make([]byte, 0, 6+len(body)+2)
	out = append(out, header[:]...)
	out = binary.BigEndian.AppendUint32(out, f.Address)
	out = append(out, body...)
	out = binary.BigEndian.AppendUint16(out, f.Checksum())
	return out
}

// Equal compares two frames by value (address, pid and payload bytes).
func (f Frame) Equal(o Frame) bool {
	if f.Address != o.Address || f.PID != o.PID || len(f.Payload) != len(o.Payload) {
		return false
	}
	for i := range f.Payload {
		if f.Payload[i] != o.Payload[i] {
			return false
		}
	}
	return true
}

// Clone returns a frame holding its own copy of the payload bytes, so a
// subscriber can retain it past the emitting goroutine's next reuse of
// the underlying buffer.
func (f Frame) Clone() Frame {
	cp := make([]byte, len(f.Payload))
	copy(cp, f.Payload)
	return Frame{Address: f.Address, PID: f.PID, Payload: cp}
}
