package main

import (
	"testing"
	"time"
)

func TestConfigValidate_OK(t *testing.T) {
	c := &appConfig{
		serialDev:       "/dev/null",
		baud:            57600,
		detectionPeriod: 300 * time.Millisecond,
		logFormat:       "text",
		logLevel:        "info",
	}
	if err := c.validate(); err != nil {
		t.Fatalf("expected ok got %v", err)
	}
}

func TestConfigValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*appConfig)
	}{
		{"badFormat", func(c *appConfig) { c.logFormat = "xx" }},
		{"badLevel", func(c *appConfig) { c.logLevel = "nope" }},
		{"badBaud", func(c *appConfig) { c.baud = 0 }},
		{"badDetectionPeriod", func(c *appConfig) { c.detectionPeriod = 0 }},
	}
	for _, tc := range tests {
		base := &appConfig{
			serialDev: "/dev/null", baud: 57600, detectionPeriod: 300 * time.Millisecond,
			logFormat: "text", logLevel: "info",
		}
		tc.mod(base)
		if err := base.validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestParseHex32(t *testing.T) {
	v, err := parseHex32("0xFFFFFFFF")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 0xFFFFFFFF {
		t.Fatalf("got %x, want ffffffff", v)
	}
	if _, err := parseHex32("not-hex"); err == nil {
		t.Fatal("expected error for invalid hex")
	}
}
