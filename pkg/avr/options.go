package avr

import "time"

// Phase names the step a long-running operation is in.
type Phase string

const (
	PhaseErasing   Phase = "erasing"
	PhaseWriting   Phase = "writing"
	PhaseVerifying Phase = "verifying"
	PhaseReading   Phase = "reading"
	PhaseFuses     Phase = "fuses"
	PhaseComplete  Phase = "complete"
)

// Progress is passed to the progress callback after every flash page and at
// phase boundaries.
type Progress struct {
	Phase Phase
	Page  int // pages finished in this phase
	Pages int // pages in this phase
	Bytes int // image bytes covered by the finished pages
}

// ProgressCallback receives progress reports. It runs on the programming
// goroutine and should return quickly.
type ProgressCallback func(Progress)

// Config holds the programmer configuration.
type Config struct {
	ProgressCallback ProgressCallback

	// EraseDelay and PageWriteDelay are the settle times after chip erase
	// and after each page write.
	EraseDelay     time.Duration
	PageWriteDelay time.Duration

	// PollLimit bounds the number of write-complete polls after each fuse or
	// lock byte. Zero polls until the device reports completion or the
	// context is cancelled.
	PollLimit int

	// Sleep replaces the context-aware timer used for settle times.
	Sleep func(time.Duration)
}

func defaultConfig() Config {
	return Config{
		EraseDelay:     EraseDelay,
		PageWriteDelay: PageWriteDelay,
	}
}

// Option is a functional option for configuring the Programmer.
type Option func(*Config)

// WithProgressCallback sets a callback to track flash programming progress.
func WithProgressCallback(cb ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = cb
	}
}

// WithEraseDelay overrides the settle time after chip erase.
func WithEraseDelay(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.EraseDelay = d
		}
	}
}

// WithPageWriteDelay overrides the settle time after each page write.
func WithPageWriteDelay(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.PageWriteDelay = d
		}
	}
}

// WithPollLimit bounds fuse and lock write-complete polling to n attempts per
// byte. The default of zero polls without a bound.
func WithPollLimit(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.PollLimit = n
		}
	}
}

// WithSleep replaces the function used to wait out settle times. Tests use it
// to record delays instead of sleeping.
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Config) {
		c.Sleep = sleep
	}
}
