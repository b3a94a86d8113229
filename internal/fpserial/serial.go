// Package fpserial is the concrete hardware Port adapter: a
// go.bug.st/serial-backed implementation of fpport.Port. go.bug.st/serial
// is the one library in the retrieved example corpus whose API exposes
// both a runtime baud change (SetMode) and modem status bits
// (GetModemStatusBits().CTS) — the two capabilities the sensor protocol
// needs and the teacher's own tarm/serial-based port wrapper cannot
// provide (see DESIGN.md).
package fpserial

import (
	"bytes"
	"fmt"
	"time"

	"go.bug.st/serial"

	"github.com/r30x/fpdriver/internal/logging"
)

// Port wraps an open go.bug.st/serial.Port to satisfy fpport.Port.
type Port struct {
	sp      serial.Port
	readBuf []byte
}

// Open configures and opens name at baud with 8N1 framing, matching the
// R30x family's documented serial defaults.
func Open(name string, baud int) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	sp, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("fpserial: open %s: %w", name, err)
	}
	if err := sp.SetReadTimeout(50 * time.Millisecond); err != nil {
		_ = sp.Close()
		return nil, fmt.Errorf("fpserial: set read timeout: %w", err)
	}
	return &Port{sp: sp, readBuf: make([]byte, 256)}, nil
}

// readLoop accumulates bytes from the underlying port into acc until
// stop(acc) reports true, overallDeadline elapses, or cancel becomes
// ready. It returns ok=false on timeout, cancellation or device
// disappearance (distinguished from a clean EOF-free short read the
// same way the sensor's own protocol treats both as "no more bytes are
// coming"). cancel may be nil, which never fires.
func (p *Port) readLoop(acc *bytes.Buffer, overallDeadline time.Time, cancel <-chan struct{}, stop func(*bytes.Buffer) bool) bool {
	for {
		if stop(acc) {
			return true
		}
		select {
		case <-cancel:
			return false
		default:
		}
		if time.Now().After(overallDeadline) {
			return false
		}
		n, err := p.sp.Read(p.readBuf)
		if n > 0 {
			acc.Write(p.readBuf[:n])
			continue
		}
		if err != nil {
			logging.L().Warn("serial_read_error", "error", err)
			return false
		}
		// n == 0, err == nil: the per-call read timeout elapsed with
		// nothing available; loop and re-check the overall deadline.
	}
}

// ReadUntil waits for delim with no overall deadline: a frame header
// can legitimately be idle for an arbitrary stretch between commands,
// so only a genuine read error or a closed cancel ends the wait early.
// Only ReadN, used mid-frame once a header has already been seen, is
// time-bounded.
func (p *Port) ReadUntil(delim []byte, cancel <-chan struct{}) ([]byte, bool) {
	var acc bytes.Buffer
	farFuture := time.Now().Add(365 * 24 * time.Hour)
	ok := p.readLoop(&acc, farFuture, cancel, func(b *bytes.Buffer) bool {
		return bytes.Contains(b.Bytes(), delim)
	})
	data := acc.Bytes()
	if ok {
		idx := bytes.Index(data, delim)
		return data[:idx+len(delim)], true
	}
	return data, false
}

func (p *Port) ReadN(n int) ([]byte, bool) {
	var acc bytes.Buffer
	deadline := time.Now().Add(5 * time.Second)
	ok := p.readLoop(&acc, deadline, nil, func(b *bytes.Buffer) bool {
		return b.Len() >= n
	})
	if ok {
		return acc.Bytes()[:n], true
	}
	return acc.Bytes(), false
}

func (p *Port) Write(b []byte) (int, error) { return p.sp.Write(b) }

func (p *Port) SetBaud(baud uint32) error {
	return p.sp.SetMode(&serial.Mode{
		BaudRate: int(baud),
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
}

func (p *Port) CTS() (bool, error) {
	bits, err := p.sp.GetModemStatusBits()
	if err != nil {
		return false, fmt.Errorf("fpserial: modem status: %w", err)
	}
	return bits.CTS, nil
}

func (p *Port) Close() error { return p.sp.Close() }
