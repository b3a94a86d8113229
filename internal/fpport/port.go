// Package fpport defines the byte-oriented duplex Port the driver core
// depends on, plus a loopback test double. The real hardware adapter
// lives in the sibling fpserial package so the core never imports a
// concrete transport.
package fpport

// Port is the only way the core touches the wire. It is injected by the
// caller — opening the physical device, choosing settings and closing it
// are all outside the core's responsibility (spec §6).
type Port interface {
	// ReadUntil blocks until delim has been seen in the incoming stream.
	// A frame header can legitimately be idle for an arbitrary stretch
	// between commands, so implementations give this call no overall
	// deadline; it returns ok=false once the device itself is confirmed
	// gone, or as soon as cancel is closed/receivable. cancel may be nil,
	// in which case the call can only end on data or disconnect. Partial
	// bytes read before that, if any, are returned in the same slice —
	// callers must not assume it is empty.
	ReadUntil(delim []byte, cancel <-chan struct{}) (data []byte, ok bool)

	// ReadN blocks until exactly n bytes have been read or the read
	// deadline elapses. ok is false on a short read (timeout) or on
	// device disappearance; data holds whatever bytes were read so far.
	ReadN(n int) (data []byte, ok bool)

	// Write sends p in full or returns an error.
	Write(p []byte) (int, error)

	// SetBaud reconfigures the line speed. Callers must ensure no
	// concurrent reads/writes are outstanding; the transaction layer
	// serializes this with a pause/resume of the frame reader.
	SetBaud(baud uint32) error

	// CTS reports the current state of the Clear-To-Send line, used as
	// the finger-presence signal when the sensor's TOUT pin is wired to
	// it.
	CTS() (bool, error)

	Close() error
}
