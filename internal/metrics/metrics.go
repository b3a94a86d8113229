// Package metrics exposes the driver's Prometheus counters/gauges
// (frame traffic, checksum failures, transaction timeouts, bulk
// transfers, finger-detection edges) plus a /metrics and /ready HTTP
// endpoint, grounded on the teacher's counter/gauge + local-mirror
// shape.
package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/r30x/fpdriver/internal/logging"
)

// Prometheus series.
var (
	FramesRx = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fpsensor_frames_rx_total",
		Help: "Total frames successfully decoded from the sensor link.",
	})
	FramesTx = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fpsensor_frames_tx_total",
		Help: "Total frames written to the sensor link.",
	})
	ChecksumFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fpsensor_checksum_failures_total",
		Help: "Total frames rejected by the codec (bad header, bad pid, length/checksum mismatch).",
	})
	CommandTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fpsensor_command_total",
		Help: "Total command_get/command_set calls by command name and outcome.",
	}, []string{"command", "outcome"})
	ReceptionTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fpsensor_reception_timeouts_total",
		Help: "Total commands that received no ACK within the response timeout.",
	})
	BulkTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fpsensor_bulk_timeouts_total",
		Help: "Total bulk transfers that never saw END_OF_DATA before going quiet.",
	})
	BulkBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fpsensor_bulk_bytes_total",
		Help: "Total bytes moved across completed bulk transfers (image/template downloads).",
	})
	LastBulkTransferBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fpsensor_last_bulk_transfer_bytes",
		Help: "Size in bytes of the most recently completed bulk transfer.",
	})
	FingerDetections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fpsensor_finger_detections_total",
		Help: "Total low-to-high CTS transitions observed by the finger watchdog.",
	})
	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fpsensor_reconnects_total",
		Help: "Total times the driver transitioned back to connected after a disconnect.",
	})
	Connected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fpsensor_connected",
		Help: "1 if the driver currently considers the sensor connected, 0 otherwise.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fpsensor_build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fpsensor_errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})

	readinessMu sync.RWMutex
	readinessFn func() bool

	localConnected atomic.Bool
)

// Error label constants (stable label values to bound cardinality).
const (
	ErrReception      = "reception"
	ErrBulkTimeout    = "bulk_timeout"
	ErrCommunication  = "communication"
	ErrWrongAddress   = "wrong_address"
	ErrPasswordNeeded = "password_required"
	ErrTransaction    = "transaction"
	ErrPortRead       = "port_read"
	ErrPortWrite      = "port_write"
)

// healthBody is the JSON body served at /ready.
type healthBody struct {
	Ready     bool `json:"ready"`
	Connected bool `json:"connected"`
}

// StartHTTP serves Prometheus metrics at /metrics and a JSON readiness
// probe at /ready.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		body := healthBody{Ready: IsReady(), Connected: localConnected.Load()}
		w.Header().Set("Content-Type", "application/json")
		if !body.Ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(body)
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters, cheap to read without scraping Prometheus
// in-process (used by the periodic metrics-to-log bridge).
var (
	localFramesRx    uint64
	localFramesTx    uint64
	localChecksumErr uint64
	localTimeouts    uint64
	localBulkTO      uint64
	localBulkBytes   uint64
	localFingerDet   uint64
	localReconnects  uint64
	localErrors      uint64
)

// Snapshot is a cheap copy of local counters.
type Snapshot struct {
	FramesRx      uint64
	FramesTx      uint64
	ChecksumFails uint64
	Timeouts      uint64
	BulkTimeouts  uint64
	BulkBytes     uint64
	FingerDet     uint64
	Reconnects    uint64
	Errors        uint64
}

func Snap() Snapshot {
	return Snapshot{
		FramesRx:      atomic.LoadUint64(&localFramesRx),
		FramesTx:      atomic.LoadUint64(&localFramesTx),
		ChecksumFails: atomic.LoadUint64(&localChecksumErr),
		Timeouts:      atomic.LoadUint64(&localTimeouts),
		BulkTimeouts:  atomic.LoadUint64(&localBulkTO),
		BulkBytes:     atomic.LoadUint64(&localBulkBytes),
		FingerDet:     atomic.LoadUint64(&localFingerDet),
		Reconnects:    atomic.LoadUint64(&localReconnects),
		Errors:        atomic.LoadUint64(&localErrors),
	}
}

func IncFramesRx() {
	FramesRx.Inc()
	atomic.AddUint64(&localFramesRx, 1)
}

func IncFramesTx() {
	FramesTx.Inc()
	atomic.AddUint64(&localFramesTx, 1)
}

func IncChecksumFailure() {
	ChecksumFailures.Inc()
	atomic.AddUint64(&localChecksumErr, 1)
}

// ObserveCommand records one command_get/command_set call outcome.
func ObserveCommand(command, outcome string) {
	CommandTotal.WithLabelValues(command, outcome).Inc()
}

func IncReceptionTimeout() {
	ReceptionTimeouts.Inc()
	atomic.AddUint64(&localTimeouts, 1)
}

func IncBulkTimeout() {
	BulkTimeouts.Inc()
	atomic.AddUint64(&localBulkTO, 1)
}

// ObserveBulkTransfer records a completed bulk transfer's size.
func ObserveBulkTransfer(n int) {
	BulkBytes.Add(float64(n))
	LastBulkTransferBytes.Set(float64(n))
	atomic.AddUint64(&localBulkBytes, uint64(n))
}

func IncFingerDetection() {
	FingerDetections.Inc()
	atomic.AddUint64(&localFingerDet, 1)
}

func IncReconnect() {
	Reconnects.Inc()
	atomic.AddUint64(&localReconnects, 1)
}

func SetConnected(v bool) {
	localConnected.Store(v)
	if v {
		Connected.Set(1)
		return
	}
	Connected.Set(0)
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// InitBuildInfo sets the build info gauge and pre-registers common error
// label series so the first error does not pay registration latency.
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{
		ErrReception, ErrBulkTimeout, ErrCommunication,
		ErrWrongAddress, ErrPasswordNeeded, ErrTransaction,
		ErrPortRead, ErrPortWrite,
	} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}

// Ready is a concise alias of IsReady.
func Ready() bool { return IsReady() }
