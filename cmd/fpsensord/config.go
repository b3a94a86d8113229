package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type appConfig struct {
	serialDev       string
	baud            int
	address         uint32
	password        uint32
	detectionPeriod time.Duration
	logFormat       string
	logLevel        string
	metricsAddr     string
	logMetricsEvery time.Duration
	mdnsEnable      bool
	mdnsName        string
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	serialDev := flag.String("serial", "/dev/ttyUSB0", "Serial device path")
	baud := flag.Int("baud", 57600, "Serial baud rate")
	address := flag.String("address", "ffffffff", "Sensor address, hex (default broadcast)")
	password := flag.String("password", "00000000", "Sensor password, hex")
	detectionPeriod := flag.Duration("detection-period", 300*time.Millisecond, "Finger presence poll interval")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	logMetricsEvery := flag.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters (for non-Prometheus setups)")
	mdnsEnable := flag.Bool("mdns-enable", false, "Enable mDNS/Avahi advertisement")
	mdnsName := flag.String("mdns-name", "", "mDNS instance name (default fpsensord-<hostname>)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })

	cfg.serialDev = *serialDev
	cfg.baud = *baud
	cfg.detectionPeriod = *detectionPeriod
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.metricsAddr = *metricsAddr
	cfg.logMetricsEvery = *logMetricsEvery
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName

	var err error
	if cfg.address, err = parseHex32(*address); err != nil {
		fmt.Printf("invalid --address: %v\n", err)
		return nil, *showVersion
	}
	if cfg.password, err = parseHex32(*password); err != nil {
		fmt.Printf("invalid --password: %v\n", err)
		return nil, *showVersion
	}

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

func parseHex32(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// validate performs basic semantic validation of the parsed
// configuration. It does not attempt to open devices or listeners –
// only checks values/ranges.
func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	if c.baud <= 0 {
		return fmt.Errorf("baud must be > 0 (got %d)", c.baud)
	}
	if c.detectionPeriod <= 0 {
		return fmt.Errorf("detection-period must be > 0")
	}
	return nil
}

// applyEnvOverrides maps FPSENSOR_* environment variables to config
// fields unless a corresponding flag was explicitly set. Boolean &
// numeric parsing is lax: empty values ignored. Duration accepts Go
// time.ParseDuration format.
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }
	if _, ok := set["serial"]; !ok {
		if v, ok := get("FPSENSOR_SERIAL"); ok && v != "" {
			c.serialDev = v
		}
	}
	if _, ok := set["baud"]; !ok {
		if v, ok := get("FPSENSOR_BAUD"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.baud = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid FPSENSOR_BAUD: %w", err)
			}
		}
	}
	if _, ok := set["address"]; !ok {
		if v, ok := get("FPSENSOR_ADDRESS"); ok && v != "" {
			if n, err := parseHex32(v); err == nil {
				c.address = n
			} else if firstErr == nil {
				firstErr = fmt.Errorf("invalid FPSENSOR_ADDRESS: %w", err)
			}
		}
	}
	if _, ok := set["password"]; !ok {
		if v, ok := get("FPSENSOR_PASSWORD"); ok && v != "" {
			if n, err := parseHex32(v); err == nil {
				c.password = n
			} else if firstErr == nil {
				firstErr = fmt.Errorf("invalid FPSENSOR_PASSWORD: %w", err)
			}
		}
	}
	if _, ok := set["detection-period"]; !ok {
		if v, ok := get("FPSENSOR_DETECTION_PERIOD"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.detectionPeriod = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid FPSENSOR_DETECTION_PERIOD: %w", err)
			}
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := get("FPSENSOR_LOG_FORMAT"); ok && v != "" {
			c.logFormat = v
		}
	}
	if _, ok := set["log-level"]; !ok {
		if v, ok := get("FPSENSOR_LOG_LEVEL"); ok && v != "" {
			c.logLevel = v
		}
	}
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := get("FPSENSOR_METRICS"); ok {
			c.metricsAddr = v
		}
	}
	if _, ok := set["log-metrics-interval"]; !ok {
		if v, ok := get("FPSENSOR_LOG_METRICS_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d >= 0 {
				c.logMetricsEvery = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid FPSENSOR_LOG_METRICS_INTERVAL: %w", err)
			}
		}
	}
	if _, ok := set["mdns-enable"]; !ok {
		if v, ok := get("FPSENSOR_MDNS_ENABLE"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.mdnsEnable = true
			case "0", "false", "no", "off":
				c.mdnsEnable = false
			}
		}
	}
	if _, ok := set["mdns-name"]; !ok {
		if v, ok := get("FPSENSOR_MDNS_NAME"); ok && v != "" {
			c.mdnsName = v
		}
	}
	return firstErr
}
