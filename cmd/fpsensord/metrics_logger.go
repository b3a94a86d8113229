package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/r30x/fpdriver/internal/metrics"
)

func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"frames_rx", snap.FramesRx,
					"frames_tx", snap.FramesTx,
					"checksum_fails", snap.ChecksumFails,
					"reception_timeouts", snap.Timeouts,
					"bulk_timeouts", snap.BulkTimeouts,
					"bulk_bytes", snap.BulkBytes,
					"finger_detections", snap.FingerDet,
					"reconnects", snap.Reconnects,
					"errors", snap.Errors,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
