package config

import "fmt"

// Validate checks configuration correctness.
// It performs declarative validation only and does not mutate cfg.
func Validate(cfg *Config) error {
	a := cfg.Adapter
	if a.VID == 0 || a.PID == 0 {
		return fmt.Errorf("adapter: vid and pid must be set (got %04X:%04X)", a.VID, a.PID)
	}
	if a.Baud <= 0 {
		return fmt.Errorf("adapter: baud must be positive, got %d", a.Baud)
	}
	if a.LatencyMs < 1 || a.LatencyMs > 255 {
		return fmt.Errorf("adapter: latency_ms must be 1-255, got %d", a.LatencyMs)
	}
	if a.ChunkSize < 2 {
		return fmt.Errorf("adapter: chunk_size must be at least 2, got %d", a.ChunkSize)
	}
	if a.TimeoutMs <= 0 {
		return fmt.Errorf("adapter: timeout_ms must be positive, got %d", a.TimeoutMs)
	}

	pins := []struct {
		name string
		line uint
	}{
		{"tms", cfg.Pins.TMS}, {"tdi", cfg.Pins.TDI}, {"tdo", cfg.Pins.TDO}, {"tck", cfg.Pins.TCK},
	}
	for _, p := range pins {
		if p.line > 7 {
			return fmt.Errorf("pins: %s must be a data line 0-7, got %d", p.name, p.line)
		}
	}
	if err := cfg.JTAGPins().Validate(); err != nil {
		return fmt.Errorf("pins: %w", err)
	}
	return nil
}
