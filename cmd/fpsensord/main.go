package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/r30x/fpdriver/internal/driver"
	"github.com/r30x/fpdriver/internal/fpserial"
	"github.com/r30x/fpdriver/internal/metrics"
)

// Helper implementations moved to dedicated files: version.go, config.go, logger.go, metrics_logger.go, mdns.go.

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("fpsensord %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	l := setupLogger(cfg.logFormat, cfg.logLevel)

	port, err := fpserial.Open(cfg.serialDev, cfg.baud)
	if err != nil {
		l.Error("serial_open_error", "error", err)
		os.Exit(1)
	}

	drv := driver.New(port,
		driver.WithAddress(cfg.address),
		driver.WithPassword(cfg.password),
		driver.WithDetectionPeriod(cfg.detectionPeriod),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	startMetricsLogger(ctx, cfg.logMetricsEvery, l, &wg)

	if ok, err := drv.Handshake(); err != nil || !ok {
		l.Warn("initial_handshake_failed", "error", err)
	} else {
		l.Info("sensor_handshake_ok")
	}

	drv.OnFingerDetected().Subscribe(func(struct{}) {
		l.Info("finger_detected")
	})

	metrics.SetReadinessFunc(drv.Connected)

	var metricsPort int
	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		srvHTTP := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = srvHTTP.Shutdown(context.Background()) }()
		metricsPort = portOf(cfg.metricsAddr)
	}

	if cfg.mdnsEnable {
		cleanupMDNS, err := startMDNS(ctx, cfg, metricsPort)
		if err != nil {
			l.Warn("mdns_start_failed", "error", err)
		} else {
			l.Info("mdns_started", "service", mdnsServiceType, "name", cfg.mdnsName, "port", metricsPort)
			defer cleanupMDNS()
		}
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigCh
	l.Info("shutdown_signal", "signal", s.String())
	cancel()
	if err := drv.Close(); err != nil {
		l.Warn("driver_close_error", "error", err)
	}
	wg.Wait()
}

func portOf(addr string) int {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		if idx := strings.LastIndex(addr, ":"); idx >= 0 {
			p = addr[idx+1:]
		}
	}
	n, _ := strconv.Atoi(p)
	return n
}
