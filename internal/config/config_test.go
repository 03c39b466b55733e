package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/OpenTraceLab/OpenTraceAVR/pkg/jtag"
)

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "avrjtag.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.JTAGPins() != jtag.DefaultPins {
		t.Fatalf("default pins %s, want %s", cfg.JTAGPins(), jtag.DefaultPins)
	}
	if !cfg.Verify {
		t.Fatalf("verify should default to true")
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeProfile(t, `
adapter:
  serial: A50285BI
  baud: 62500
  timeout_ms: 250
pins:
  tms: 0
  tdi: 1
  tdo: 2
  tck: 3
verify: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if cfg.Adapter.Serial != "A50285BI" || cfg.Adapter.Baud != 62500 {
		t.Fatalf("adapter = %+v", cfg.Adapter)
	}
	if cfg.Adapter.VID != 0x0403 || cfg.Adapter.ChunkSize != jtag.DefaultChunkSize {
		t.Fatalf("defaults lost: %+v", cfg.Adapter)
	}
	if cfg.Verify {
		t.Fatalf("verify not overridden")
	}
	want := jtag.Pins{TMS: 0x01, TDI: 0x02, TDO: 0x04, TCK: 0x08}
	if cfg.JTAGPins() != want {
		t.Fatalf("pins = %s, want %s", cfg.JTAGPins(), want)
	}
	if got := cfg.FTDI(); got.Timeout != 250*time.Millisecond || got.Serial != "A50285BI" {
		t.Fatalf("FTDI() = %+v", got)
	}
}

func TestLoadEmptyFileAndPath(t *testing.T) {
	cfg, err := Load(writeProfile(t, ""))
	if err != nil {
		t.Fatalf("Load(empty file) returned error: %v", err)
	}
	if *cfg != *Default() {
		t.Fatalf("empty profile changed defaults: %+v", cfg)
	}
	if _, err := Load(""); err != nil {
		t.Fatalf("Load(\"\") returned error: %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeProfile(t, "adapter:\n  speed: 10\n"))
	if err == nil || !strings.Contains(err.Error(), "speed") {
		t.Fatalf("error = %v, want unknown field speed", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("error = %v, want not-exist", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero vid", func(c *Config) { c.Adapter.VID = 0 }, "vid and pid"},
		{"zero baud", func(c *Config) { c.Adapter.Baud = 0 }, "baud"},
		{"latency too high", func(c *Config) { c.Adapter.LatencyMs = 300 }, "latency_ms"},
		{"chunk too small", func(c *Config) { c.Adapter.ChunkSize = 1 }, "chunk_size"},
		{"no timeout", func(c *Config) { c.Adapter.TimeoutMs = 0 }, "timeout_ms"},
		{"pin out of range", func(c *Config) { c.Pins.TCK = 8 }, "tck"},
		{"shared pin", func(c *Config) { c.Pins.TDI = c.Pins.TMS }, "overlaps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
