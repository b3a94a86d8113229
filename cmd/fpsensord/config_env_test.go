package main

import (
	"os"
	"testing"
	"time"
)

func TestApplyEnvOverrides_Basic(t *testing.T) {
	base := &appConfig{
		serialDev:       "/dev/null",
		baud:            57600,
		address:         0xFFFFFFFF,
		password:        0,
		detectionPeriod: 300 * time.Millisecond,
		logFormat:       "text",
		logLevel:        "info",
	}

	os.Setenv("FPSENSOR_BAUD", "115200")
	os.Setenv("FPSENSOR_MDNS_ENABLE", "true")
	os.Setenv("FPSENSOR_DETECTION_PERIOD", "50ms")
	os.Setenv("FPSENSOR_ADDRESS", "12345678")
	t.Cleanup(func() {
		os.Unsetenv("FPSENSOR_BAUD")
		os.Unsetenv("FPSENSOR_MDNS_ENABLE")
		os.Unsetenv("FPSENSOR_DETECTION_PERIOD")
		os.Unsetenv("FPSENSOR_ADDRESS")
	})
	if err := applyEnvOverrides(base, map[string]struct{}{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base.baud != 115200 {
		t.Fatalf("expected baud override, got %d", base.baud)
	}
	if !base.mdnsEnable {
		t.Fatal("expected mdnsEnable true")
	}
	if base.detectionPeriod != 50*time.Millisecond {
		t.Fatalf("expected detectionPeriod 50ms got %v", base.detectionPeriod)
	}
	if base.address != 0x12345678 {
		t.Fatalf("expected address override, got %x", base.address)
	}
}

func TestApplyEnvOverrides_FlagPrecedence(t *testing.T) {
	base := &appConfig{baud: 57600}
	os.Setenv("FPSENSOR_BAUD", "115200")
	t.Cleanup(func() { os.Unsetenv("FPSENSOR_BAUD") })
	if err := applyEnvOverrides(base, map[string]struct{}{"baud": {}}); err != nil {
		t.Fatalf("err: %v", err)
	}
	if base.baud != 57600 {
		t.Fatalf("expected baud unchanged 57600 got %d", base.baud)
	}
}

func TestApplyEnvOverrides_BadInt(t *testing.T) {
	base := &appConfig{baud: 57600}
	os.Setenv("FPSENSOR_BAUD", "notint")
	t.Cleanup(func() { os.Unsetenv("FPSENSOR_BAUD") })
	if err := applyEnvOverrides(base, map[string]struct{}{}); err == nil {
		t.Fatal("expected error for bad integer")
	}
}
