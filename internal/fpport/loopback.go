package fpport

import (
	"bytes"
	"sync"
	"time"
)

// Loopback is an in-memory Port used by tests and fixtures. ReadUntil /
// ReadN consume only the bytes a test feeds with Feed; bytes written via
// Write are kept in a separate buffer that Written returns and are not
// read back. It never reports a disconnect on its own — call Disconnect
// to simulate one.
type Loopback struct {
	mu         sync.Mutex
	cond       *sync.Cond
	buf        bytes.Buffer
	written    bytes.Buffer
	baud       uint32
	cts        bool
	closed     bool
	disconnect bool
	deadline   time.Duration
}

// NewLoopback returns a Loopback with the given read deadline (used to
// bound ReadN waits so tests for timeouts terminate; ReadUntil has no
// deadline).
func NewLoopback(deadline time.Duration) *Loopback {
	l := &Loopback{deadline: deadline}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Feed appends bytes as if they had arrived from the wire.
func (l *Loopback) Feed(b []byte) {
	l.mu.Lock()
	l.buf.Write(b)
	l.mu.Unlock()
	l.cond.Broadcast()
}

// Disconnect makes subsequent reads fail with ok=false once they cannot
// be satisfied from bytes already fed.
func (l *Loopback) Disconnect() {
	l.mu.Lock()
	l.disconnect = true
	l.mu.Unlock()
	l.cond.Broadcast()
}

// SetCTS sets the simulated Clear-To-Send line state.
func (l *Loopback) SetCTS(v bool) {
	l.mu.Lock()
	l.cts = v
	l.mu.Unlock()
}

// Written returns a copy of everything written to the port so far.
func (l *Loopback) Written() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]byte(nil), l.written.Bytes()...)
}

// ReadUntil waits for delim with no overall deadline: a frame header
// can legitimately be idle for an arbitrary stretch (nobody has issued
// a command), so only Disconnect/Close or a closed cancel end the wait
// early. Only ReadN, used mid-frame once a header has already been
// seen, is time-bounded.
func (l *Loopback) ReadUntil(delim []byte, cancel <-chan struct{}) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	farFuture := time.Now().Add(24 * time.Hour)
	for {
		if idx := bytes.Index(l.buf.Bytes(), delim); idx >= 0 {
			end := idx + len(delim)
			out := append([]byte(nil), l.buf.Bytes()[:end]...)
			l.buf.Next(end)
			return out, true
		}
		if l.disconnect || l.closed {
			return append([]byte(nil), l.buf.Bytes()...), false
		}
		select {
		case <-cancel:
			return append([]byte(nil), l.buf.Bytes()...), false
		default:
		}
		l.waitWithTimeout(farFuture)
	}
}

func (l *Loopback) ReadN(n int) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	deadlineAt := time.Now().Add(l.deadline)
	for {
		if l.buf.Len() >= n {
			out := make([]byte, n)
			_, _ = l.buf.Read(out)
			return out, true
		}
		if l.disconnect || l.closed {
			return append([]byte(nil), l.buf.Bytes()...), false
		}
		if time.Now().After(deadlineAt) {
			return append([]byte(nil), l.buf.Bytes()...), false
		}
		l.waitWithTimeout(deadlineAt)
	}
}

// waitWithTimeout wakes periodically so the deadline check above can
// fire even with no Feed/Disconnect call; l.mu must be held.
func (l *Loopback) waitWithTimeout(deadlineAt time.Time) {
	remaining := time.Until(deadlineAt)
	if remaining <= 0 {
		return
	}
	wait := remaining
	if wait > 5*time.Millisecond {
		wait = 5 * time.Millisecond
	}
	timer := time.AfterFunc(wait, func() { l.cond.Broadcast() })
	l.cond.Wait()
	timer.Stop()
}

func (l *Loopback) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written.Write(p)
}

func (l *Loopback) SetBaud(baud uint32) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.baud = baud
	return nil
}

func (l *Loopback) Baud() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.baud
}

func (l *Loopback) CTS() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cts, nil
}

func (l *Loopback) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.cond.Broadcast()
	return nil
}

var _ Port = (*Loopback)(nil)
