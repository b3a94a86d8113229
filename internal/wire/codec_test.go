package wire

import (
	"errors"
	"testing"
)

func TestDecodeTooShort(t *testing.T) {
	_, err := Decode([]byte{0xEF, 0x01, 0, 0, 0, 0})
	if !errors.Is(err, ErrTooShort) {
		t.Fatalf("expected ErrTooShort, got %v", err)
	}
}

func TestDecodeBadHeader(t *testing.T) {
	f := NewFrame(PIDCommand, []byte{0x01})
	enc := f.Encode()
	enc[0] = 0x00
	_, err := Decode(enc)
	if !errors.Is(err, ErrBadHeader) {
		t.Fatalf("expected ErrBadHeader, got %v", err)
	}
}

func TestDecodeBadPid(t *testing.T) {
	f := NewFrame(PIDCommand, []byte{0x01})
	enc := f.Encode()
	enc[6] = 0xAA // not one of the four known PIDs; checksum now also wrong but BadPid must win
	_, err := Decode(enc)
	if !errors.Is(err, ErrBadPid) {
		t.Fatalf("expected ErrBadPid, got %v", err)
	}
}

// Law 2: checksum totality — flipping any one bit in pid, length or
// payload must cause Decode to fail.
func TestChecksumTotality(t *testing.T) {
	f := NewFrame(PIDCommand, []byte{0x01, 0x02, 0x03})
	enc := f.Encode()

	// Indices covering pid(6), length(7,8) and payload(9..) — not the
	// checksum trailer itself, and not the header/address which the
	// checksum does not cover.
	for i := 6; i < len(enc)-2; i++ {
		corrupt := append([]byte(nil), enc...)
		corrupt[i] ^= 0x01
		if _, err := Decode(corrupt); err == nil {
			t.Fatalf("byte %d: expected Decode to fail after single-bit flip", i)
		}
	}
}

func TestDecodeLengthMismatch(t *testing.T) {
	f := NewFrame(PIDCommand, []byte{0x01, 0x02})
	enc := f.Encode()
	// Corrupt the length field only (leave checksum trailer alone) so we
	// specifically exercise the length-vs-payload consistency check.
	enc[8] ^= 0x01
	_, err := Decode(enc)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}
