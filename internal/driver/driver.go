// Package driver implements the R30x transaction layer: the Driver
// owns a Port, a frame reader, a finger-detection watchdog and the
// full command surface (handshake, parameters, image, template,
// notepad, random, backlight), grounded on the original SDK's FpSDK
// class and the teacher's functional-options server constructor.
package driver

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/r30x/fpdriver/internal/dispatch"
	"github.com/r30x/fpdriver/internal/fpport"
	"github.com/r30x/fpdriver/internal/logging"
	"github.com/r30x/fpdriver/internal/metrics"
)

// Driver is the fingerprint sensor transaction layer. Exactly one
// public command is in flight at a time per Driver; callers may issue
// commands concurrently and rely on the internal command mutex to
// serialize them.
type Driver struct {
	port fpport.Port
	disp *dispatch.Dispatcher
	sess *session
	rd   *reader
	log  *slog.Logger

	cmdMu     sync.Mutex
	connected atomic.Bool

	stop      chan struct{}
	watchDone chan struct{}
	wg        sync.WaitGroup
}

// Option configures a Driver at construction time.
type Option func(*Driver)

// WithAddress seeds the session's cached sensor address instead of the
// default broadcast address.
func WithAddress(addr uint32) Option {
	return func(d *Driver) { d.sess.setAddress(addr) }
}

// WithPassword seeds the session's cached password, sent by
// PasswordVerify/PasswordSet.
func WithPassword(pw uint32) Option {
	return func(d *Driver) { d.sess.setPassword(pw) }
}

// WithDetectionPeriod overrides the default 300ms CTS poll interval.
func WithDetectionPeriod(p time.Duration) Option {
	return func(d *Driver) { d.sess.SetDetectionPeriod(p) }
}

// New constructs a Driver over port, spawning its reader and
// finger-watchdog goroutines. Callers must Close it to join both.
func New(port fpport.Port, opts ...Option) *Driver {
	d := &Driver{
		port:      port,
		disp:      dispatch.New(),
		sess:      newSession(),
		log:       logging.Component("driver"),
		stop:      make(chan struct{}),
		watchDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.rd = newReader(port, d.disp)
	d.connected.Store(true)
	metrics.SetConnected(true)

	d.disp.OnDisconnect.Subscribe(func(struct{}) {
		if d.connected.CompareAndSwap(true, false) {
			metrics.SetConnected(false)
			d.log.Warn("sensor_disconnected")
		}
	})

	d.wg.Add(2)
	go func() { defer d.wg.Done(); d.rd.run(d.stop) }()
	go func() { defer d.wg.Done(); d.fingerWatch(d.stop) }()
	return d
}

// Connected reports whether the driver currently believes the sensor
// is reachable.
func (d *Driver) Connected() bool { return d.connected.Load() }

// Reconnect marks the driver connected again and emits on_connect,
// used after the caller has replaced or recovered the underlying Port.
func (d *Driver) Reconnect() {
	if d.connected.CompareAndSwap(false, true) {
		metrics.SetConnected(true)
		metrics.IncReconnect()
		d.log.Info("sensor_reconnected")
		d.disp.EmitConnect()
	}
}

// OnFingerDetected exposes the finger-presence signal for callers that
// want to react to a touch without polling a command.
func (d *Driver) OnFingerDetected() *dispatch.Signal[struct{}] {
	return &d.disp.OnFingerDetected
}

// FingerPresent reports the watchdog's last-polled CTS reading.
func (d *Driver) FingerPresent() bool { return d.sess.FingerDetected() }

// Close stops the reader and watchdog goroutines and closes the Port.
func (d *Driver) Close() error {
	close(d.stop)
	d.wg.Wait()
	return d.port.Close()
}

// fingerWatch polls CTS every session.DetectionPeriod and emits
// on_finger_detected on a rising edge only, grounded on the original
// SDK's _detector_process loop.
func (d *Driver) fingerWatch(stop <-chan struct{}) {
	var last bool
	for {
		timer := time.NewTimer(d.sess.DetectionPeriod())
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		cts, err := d.port.CTS()
		if err != nil {
			d.log.Warn("cts_read_error", "error", err)
			continue
		}
		d.sess.fingerUp.Store(cts)
		if cts && !last {
			metrics.IncFingerDetection()
			d.disp.EmitFingerDetected()
		}
		last = cts
	}
}

// pauseReaderForBaudChange stops the reader from touching the Port,
// runs change, then resumes it. No frames are in flight during this
// window by construction: the caller only invokes this after the baud
// command has already been acked at the old rate.
func (d *Driver) pauseReaderForBaudChange(change func() error) error {
	d.rd.requestPause()
	defer d.rd.requestResume()
	return change()
}
