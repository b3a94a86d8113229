package driver

import (
	"testing"
	"time"

	"github.com/r30x/fpdriver/internal/dispatch"
	"github.com/r30x/fpdriver/internal/fpport"
	"github.com/r30x/fpdriver/internal/wire"
)

// TestReaderHeaderResync is Law 3: a byte prefix containing no
// 0xEF 0x01 ahead of an encoded frame still yields exactly one decoded
// frame equal to the original.
func TestReaderHeaderResync(t *testing.T) {
	port := fpport.NewLoopback(2 * time.Second)
	disp := dispatch.New()
	r := newReader(port, disp)

	received := make(chan wire.Frame, 4)
	disp.OnFrameReceived.Subscribe(func(f wire.Frame) { received <- f })

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() { defer close(done); r.run(stop) }()
	defer func() { close(stop); <-done }()

	want := wire.NewFrame(wire.PIDCommand, []byte{0x07})
	noise := []byte{0x00, 0x11, 0x22, 0xEF, 0x00, 0x33}
	port.Feed(append(append([]byte(nil), noise...), want.Encode()...))

	select {
	case got := <-received:
		if !got.Equal(want) {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for decoded frame")
	}

	select {
	case extra := <-received:
		t.Fatalf("unexpected extra frame: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestReaderDropsMalformedFrameAndResyncs ensures a corrupted frame
// does not wedge the state machine: the next well-formed frame still
// decodes.
func TestReaderDropsMalformedFrameAndResyncs(t *testing.T) {
	port := fpport.NewLoopback(2 * time.Second)
	disp := dispatch.New()
	r := newReader(port, disp)

	received := make(chan wire.Frame, 4)
	disp.OnFrameReceived.Subscribe(func(f wire.Frame) { received <- f })

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() { defer close(done); r.run(stop) }()
	defer func() { close(stop); <-done }()

	bad := wire.NewFrame(wire.PIDCommand, []byte{0x01}).Encode()
	bad[len(bad)-1] ^= 0xFF // corrupt the checksum trailer

	good := wire.NewFrame(wire.PIDCommand, []byte{0x02})
	port.Feed(append(bad, good.Encode()...))

	select {
	case got := <-received:
		if !got.Equal(good) {
			t.Fatalf("got %+v, want %+v", got, good)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for decoded frame after malformed one")
	}
}

// TestReaderPauseInterruptsIdleReadUntil guards against the reader
// parking forever in ReadUntil (which has no overall deadline) while a
// pause is requested with no bytes in flight: requestPause must return
// promptly, and the reader must resume decoding once requestResume is
// called.
func TestReaderPauseInterruptsIdleReadUntil(t *testing.T) {
	port := fpport.NewLoopback(2 * time.Second)
	disp := dispatch.New()
	r := newReader(port, disp)

	received := make(chan wire.Frame, 4)
	disp.OnFrameReceived.Subscribe(func(f wire.Frame) { received <- f })

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() { defer close(done); r.run(stop) }()
	defer func() { close(stop); <-done }()

	pauseDone := make(chan struct{})
	go func() {
		r.requestPause()
		close(pauseDone)
	}()

	select {
	case <-pauseDone:
	case <-time.After(time.Second):
		t.Fatal("requestPause did not return; reader is stuck in idle ReadUntil")
	}

	// No frame should be decoded while paused, even though bytes are
	// sitting in the loopback buffer.
	want := wire.NewFrame(wire.PIDCommand, []byte{0x09})
	port.Feed(want.Encode())

	select {
	case got := <-received:
		t.Fatalf("unexpected frame decoded while paused: %+v", got)
	case <-time.After(50 * time.Millisecond):
	}

	r.requestResume()

	select {
	case got := <-received:
		if !got.Equal(want) {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for decoded frame after resume")
	}
}
