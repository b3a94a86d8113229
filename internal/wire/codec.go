package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrMalformed is returned when a frame's declared length or checksum
// does not match its actual bytes.
var ErrMalformed = errors.New("wire: malformed frame")

// ErrBadPid is returned when the pid byte is not one of the four known
// values.
var ErrBadPid = errors.New("wire: unknown pid")

// ErrTooShort is returned when the buffer is smaller than the minimum
// possible encoded frame.
var ErrTooShort = errors.New("wire: frame too short")

// ErrBadHeader is returned when the fixed two-byte preamble is missing.
var ErrBadHeader = errors.New("wire: bad header")

// DecodeError wraps one of the sentinels above with the offending bytes'
// length, for logging without leaking the raw payload.
type DecodeError struct {
	Err error
	Len int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v (len=%d)", e.Err, e.Len)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode parses one frame out of data. data must hold exactly one
// encoded frame (no trailing bytes) — the frame reader is responsible
// for carving the right slice out of the byte stream before calling
// Decode.
func Decode(data []byte) (Frame, error) {
	if len(data) < MinEncodedLength {
		return Frame{}, &DecodeError{Err: ErrTooShort, Len: len(data)}
	}
	if data[0] != header[0] || data[1] != header[1] {
		return Frame{}, &DecodeError{Err: ErrBadHeader, Len: len(data)}
	}
	pid := PID(data[6])
	if !pid.Valid() {
		return Frame{}, &DecodeError{Err: ErrBadPid, Len: len(data)}
	}

	address := binary.BigEndian.Uint32(data[2:6])
	lengthField := binary.BigEndian.Uint16(data[7:9])
	payload := make([]byte, len(data)-9-2)
	copy(payload, data[9:len(data)-2])

	f := Frame{Address: address, PID: pid, Payload: payload}
	if int(lengthField) != f.Length() {
		return Frame{}, &DecodeError{Err: ErrMalformed, Len: len(data)}
	}

	trailer := binary.BigEndian.Uint16(data[len(data)-2:])
	if trailer != f.Checksum() {
		return Frame{}, &DecodeError{Err: ErrMalformed, Len: len(data)}
	}
	return f, nil
}
