package wire

import (
	"bytes"
	"testing"
)

// E1/E2: image-capture frame encode/decode round trip against the exact
// documented wire bytes.
func TestImageCaptureFrameWireBytes(t *testing.T) {
	f := NewFrame(PIDCommand, []byte{0x01})
	got := f.Encode()
	want := []byte{0xEF, 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0x01, 0x00, 0x03, 0x01, 0x00, 0x05}
	if !bytes.Equal(got, want) {
		t.Fatalf("Encode() = % X, want % X", got, want)
	}

	decoded, err := Decode(got)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if !decoded.Equal(f) {
		t.Fatalf("decoded frame %+v does not equal input %+v", decoded, f)
	}
}

// E3: frame comparison by value.
func TestFrameEqual(t *testing.T) {
	a := NewFrame(PIDCommand, []byte{0x07})
	b := NewFrame(PIDCommand, []byte{0x07})
	if !a.Equal(b) {
		t.Fatalf("expected equal frames")
	}
	c := NewFrame(PIDAck, []byte{0x08})
	if a.Equal(c) {
		t.Fatalf("expected frames with different pid/payload to differ")
	}
}

// Law 1: codec round trip for arbitrary valid frames.
func TestRoundTrip(t *testing.T) {
	cases := []Frame{
		NewFrame(PIDCommand, nil),
		NewFrame(PIDData, []byte{1, 2, 3}),
		{Address: 0x12345678, PID: PIDAck, Payload: []byte{0x00}},
		NewFrame(PIDEndOfData, bytes.Repeat([]byte{0xAB}, MaxPayloadLength)),
	}
	for i, f := range cases {
		enc := f.Encode()
		dec, err := Decode(enc)
		if err != nil {
			t.Fatalf("case %d: Decode error: %v", i, err)
		}
		if !dec.Equal(f) {
			t.Fatalf("case %d: round trip mismatch: got %+v want %+v", i, dec, f)
		}
	}
}

// Law 4: length invariant for every accepted encoded frame.
func TestLengthInvariant(t *testing.T) {
	f := NewFrame(PIDCommand, []byte{1, 2, 3, 4, 5})
	enc := f.Encode()
	lengthField := uint16(enc[7])<<8 | uint16(enc[8])
	if int(lengthField) != len(f.Payload)+2 {
		t.Fatalf("length field %d != payload+2 (%d)", lengthField, len(f.Payload)+2)
	}
}

func TestMinEncodedLength(t *testing.T) {
	f := NewFrame(PIDCommand, nil)
	if len(f.Encode()) != MinEncodedLength {
		t.Fatalf("empty-payload frame encoded to %d bytes, want %d", len(f.Encode()), MinEncodedLength)
	}
}
