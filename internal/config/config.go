package config

import (
	"time"

	"github.com/OpenTraceLab/OpenTraceAVR/pkg/ftdi"
	"github.com/OpenTraceLab/OpenTraceAVR/pkg/jtag"
)

type Config struct {
	Adapter AdapterConfig `yaml:"adapter"`
	Pins    PinConfig     `yaml:"pins"`

	// Verify reads flash back after programming.
	Verify bool `yaml:"verify"`
}

// ---- ADAPTER ----

type AdapterConfig struct {
	VID       uint16 `yaml:"vid"`
	PID       uint16 `yaml:"pid"`
	Serial    string `yaml:"serial"`
	Baud      int    `yaml:"baud"`
	LatencyMs int    `yaml:"latency_ms"`
	ChunkSize int    `yaml:"chunk_size"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ---- PINS ----

// PinConfig holds the bit-bang data line number (0-7) of each JTAG signal.
type PinConfig struct {
	TMS uint `yaml:"tms"`
	TDI uint `yaml:"tdi"`
	TDO uint `yaml:"tdo"`
	TCK uint `yaml:"tck"`
}

// Default returns the profile for an FT232R wired TMS=D4 TDI=D2 TDO=D3
// TCK=D5.
func Default() *Config {
	return &Config{
		Adapter: AdapterConfig{
			VID:       ftdi.VendorIDFTDI,
			PID:       ftdi.ProductFT232R,
			Baud:      ftdi.DefaultBaud,
			LatencyMs: int(ftdi.DefaultLatency / time.Millisecond),
			ChunkSize: jtag.DefaultChunkSize,
			TimeoutMs: int(ftdi.DefaultTimeout / time.Millisecond),
		},
		Pins:   PinConfig{TMS: 4, TDI: 2, TDO: 3, TCK: 5},
		Verify: true,
	}
}

// JTAGPins converts the pin numbers to line masks.
func (c *Config) JTAGPins() jtag.Pins {
	return jtag.PinsFromBits(c.Pins.TMS, c.Pins.TDI, c.Pins.TDO, c.Pins.TCK)
}

// FTDI returns the transport settings.
func (c *Config) FTDI() ftdi.Config {
	return ftdi.Config{
		VendorID:  c.Adapter.VID,
		ProductID: c.Adapter.PID,
		Serial:    c.Adapter.Serial,
		Baud:      c.Adapter.Baud,
		Latency:   time.Duration(c.Adapter.LatencyMs) * time.Millisecond,
		Timeout:   time.Duration(c.Adapter.TimeoutMs) * time.Millisecond,
	}
}
