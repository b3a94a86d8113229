package driver

import (
	"encoding/binary"
	"log/slog"
	"sync"

	"github.com/r30x/fpdriver/internal/dispatch"
	"github.com/r30x/fpdriver/internal/fpport"
	"github.com/r30x/fpdriver/internal/logging"
	"github.com/r30x/fpdriver/internal/metrics"
	"github.com/r30x/fpdriver/internal/wire"
)

var frameHeader = []byte{0xEF, 0x01}

// reader is the two-state frame assembly loop (WAIT_HEAD / WAIT_BODY):
// it owns nothing but the Port and the dispatcher, runs for the
// lifetime of the Driver, and resynchronizes on any short read instead
// of retaining bytes across resyncs.
type reader struct {
	port fpport.Port
	disp *dispatch.Dispatcher
	log  *slog.Logger

	mu       sync.Mutex
	pauseReq chan struct{} // closed by requestPause to interrupt an in-flight ReadUntil
	paused   chan struct{} // closed by run once it has honored the current pauseReq

	resume chan struct{}
	done   chan struct{}
}

func newReader(port fpport.Port, disp *dispatch.Dispatcher) *reader {
	return &reader{
		port:     port,
		disp:     disp,
		log:      logging.Component("reader"),
		pauseReq: make(chan struct{}),
		paused:   make(chan struct{}),
		resume:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (r *reader) currentPauseReq() chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pauseReq
}

// run executes the WAIT_HEAD/WAIT_BODY loop until stop is closed. A
// failed read emits a disconnect and the loop keeps reading; it does not
// return on a disconnect. It also answers pause/resume requests used by
// the baud-change sequence, which must guarantee no read is outstanding
// while the Port's line speed changes. Because ReadUntil has no overall
// deadline (it can legitimately idle between commands), ReadUntil is
// handed a cancel channel that closes as soon as pauseReq or stop closes,
// instead of those being polled only between reads: a pause request or a
// stop interrupts a blocked read at once.
func (r *reader) run(stop <-chan struct{}) {
	defer close(r.done)
	for {
		pauseReq := r.currentPauseReq()
		select {
		case <-stop:
			return
		case <-pauseReq:
			if !r.honorPause(stop) {
				return
			}
			continue
		default:
		}

		cancel := make(chan struct{})
		readDone := make(chan struct{})
		go func() {
			select {
			case <-stop:
				close(cancel)
			case <-pauseReq:
				close(cancel)
			case <-readDone:
			}
		}()
		head, ok := r.port.ReadUntil(frameHeader, cancel)
		close(readDone)
		if !ok {
			select {
			case <-stop:
				return
			case <-pauseReq:
				if !r.honorPause(stop) {
					return
				}
				continue
			default:
			}
			r.disp.EmitDisconnect()
			select {
			case <-stop:
				return
			default:
			}
			continue
		}

		buf := make([]byte, 0, wire.MinEncodedLength)
		buf = append(buf, head[len(head)-2:]...)

		rest, ok := r.port.ReadN(7)
		if !ok {
			r.disp.EmitDisconnect()
			continue
		}
		buf = append(buf, rest...)

		n := int(binary.BigEndian.Uint16(buf[len(buf)-2:]))
		payload, ok := r.port.ReadN(n)
		if !ok {
			r.disp.EmitDisconnect()
			continue
		}
		buf = append(buf, payload...)

		f, err := wire.Decode(buf)
		if err != nil {
			metrics.IncChecksumFailure()
			r.log.Debug("frame_decode_failed", "error", err)
			continue
		}
		metrics.IncFramesRx()
		r.disp.EmitFrame(f)
	}
}

// honorPause closes paused to acknowledge the request, blocks until
// resumed (or stop fires), then arms fresh pauseReq/paused channels for
// the next cycle. It returns false if stop fired first, telling run to
// exit instead of continuing its loop.
func (r *reader) honorPause(stop <-chan struct{}) bool {
	r.mu.Lock()
	close(r.paused)
	r.mu.Unlock()

	select {
	case <-r.resume:
	case <-stop:
		return false
	}

	r.mu.Lock()
	r.pauseReq = make(chan struct{})
	r.paused = make(chan struct{})
	r.mu.Unlock()
	return true
}

// requestPause closes the reader's current pauseReq, interrupting any
// ReadUntil blocked on it, and blocks until the reader has confirmed it
// stopped touching the Port. Must not be called concurrently with
// itself; the Driver serializes baud changes under cmdMu.
func (r *reader) requestPause() {
	r.mu.Lock()
	pauseReq := r.pauseReq
	paused := r.paused
	r.mu.Unlock()
	close(pauseReq)
	<-paused
}

// requestResume lets the reader proceed past the pause it last
// acknowledged.
func (r *reader) requestResume() {
	r.resume <- struct{}{}
}
