package driver

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/r30x/fpdriver/internal/fpproto"
	"github.com/r30x/fpdriver/internal/wire"
)

// session holds the driver's cached mutable state. Address and password
// updates from AddressSet/PasswordSet are made under cmdMu; other writes
// (construction options, PasswordVerify's optional password, the
// capacity and packet size cached by ParametersGet, the watchdog's finger
// flag) are made without it. Every field is read and written through an
// atomic or passwordMu, so callers never need to take cmdMu just to read
// a cached value, matching the "thread-visible cached fields" design note.
type session struct {
	address atomic.Uint32
	// password is guarded by passwordMu rather than stored in an atomic.
	passwordMu sync.RWMutex
	password   uint32

	capacity   atomic.Uint32 // 0 means "not yet loaded"
	packetSize atomic.Uint32 // bytes, defaults to 32 until PARAMETERS_GET runs
	fingerUp   atomic.Bool

	detectionPeriod atomic.Int64 // nanoseconds
}

func newSession() *session {
	s := &session{}
	s.address.Store(wire.DefaultAddress)
	s.packetSize.Store(32)
	s.detectionPeriod.Store(int64(300 * time.Millisecond))
	return s
}

func (s *session) Address() uint32 { return s.address.Load() }
func (s *session) setAddress(v uint32) { s.address.Store(v) }

func (s *session) Password() uint32 {
	s.passwordMu.RLock()
	defer s.passwordMu.RUnlock()
	return s.password
}

func (s *session) setPassword(v uint32) {
	s.passwordMu.Lock()
	s.password = v
	s.passwordMu.Unlock()
}

func (s *session) Capacity() (uint16, bool) {
	v := s.capacity.Load()
	return uint16(v), v != 0
}

func (s *session) setCapacity(v uint16) { s.capacity.Store(uint32(v)) }

func (s *session) PacketSize() int { return int(s.packetSize.Load()) }

func (s *session) setPacketSize(code fpproto.PacketSizeCode) {
	s.packetSize.Store(uint32(code.Bytes()))
}

func (s *session) FingerDetected() bool { return s.fingerUp.Load() }

func (s *session) DetectionPeriod() time.Duration {
	return time.Duration(s.detectionPeriod.Load())
}

func (s *session) SetDetectionPeriod(d time.Duration) {
	if d <= 0 {
		return
	}
	s.detectionPeriod.Store(int64(d))
}
