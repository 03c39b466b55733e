package avr

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/OpenTraceLab/OpenTraceAVR/pkg/jtag"
)

// Executor runs one JTAG transaction. *jtag.Codec implements it.
type Executor interface {
	Execute(instr jtag.Instruction, data []byte) ([]byte, error)
}

// State tracks where the programmer is in a top-level operation.
type State int

const (
	StateIdle State = iota
	StateResetAsserted
	StateProgEnabled
	StateErasing
	StateWritingFlash
	StateReadingFlash
	StateWritingFuses
	StateReadingFusesLocks
	StateProgDisabled
)

var stateNames = [...]string{
	StateIdle:              "Idle",
	StateResetAsserted:     "ResetAsserted",
	StateProgEnabled:       "ProgEnabled",
	StateErasing:           "Erasing",
	StateWritingFlash:      "WritingFlash",
	StateReadingFlash:      "ReadingFlash",
	StateWritingFuses:      "WritingFuses",
	StateReadingFusesLocks: "ReadingFusesLocks",
	StateProgDisabled:      "ProgDisabled",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Programmer drives the AVR JTAG programming interface: chip erase, paged
// flash write and read-back, fuse and lock bit access. It owns the executor
// exclusively and is not safe for concurrent use.
type Programmer struct {
	ex     Executor
	config Config
	state  State
}

// New creates a Programmer on top of ex.
func New(ex Executor, opts ...Option) *Programmer {
	if ex == nil {
		panic("avr: executor cannot be nil")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Programmer{ex: ex, config: cfg}
}

// State reports the programmer's current state.
func (p *Programmer) State() State {
	return p.state
}

func (p *Programmer) command(op uint16) ([]byte, error) {
	out, err := p.ex.Execute(jtag.ProgCommands, jtag.Uint(uint64(op), jtag.ProgCommands.Bits()))
	if err != nil {
		return nil, fmt.Errorf("avr: command 0x%04X: %w", op, err)
	}
	return out, nil
}

func (p *Programmer) commands(ops []uint16) error {
	for _, op := range ops {
		if _, err := p.command(op); err != nil {
			return err
		}
	}
	return nil
}

func (p *Programmer) reset(assert bool) error {
	var v uint64
	if assert {
		v = 1
	}
	if _, err := p.ex.Execute(jtag.AVRReset, jtag.Uint(v, 1)); err != nil {
		return fmt.Errorf("avr: reset %v: %w", assert, err)
	}
	return nil
}

func (p *Programmer) progEnable(key uint16) error {
	if _, err := p.ex.Execute(jtag.ProgEnable, jtag.Uint(uint64(key), 16)); err != nil {
		return fmt.Errorf("avr: programming enable 0x%04X: %w", key, err)
	}
	return nil
}

// enter holds the core in reset and unlocks programming mode.
func (p *Programmer) enter() error {
	if err := p.reset(true); err != nil {
		return err
	}
	p.state = StateResetAsserted
	if err := p.progEnable(progEnableKey); err != nil {
		return err
	}
	p.state = StateProgEnabled
	glog.V(1).Info("avr: programming mode enabled")
	return nil
}

// ExitProgramming leaves programming mode and releases reset. ReadFusesLocks
// does not do this on its own.
func (p *Programmer) ExitProgramming(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.commands(exitProgSeq); err != nil {
		return err
	}
	if err := p.progEnable(0); err != nil {
		return err
	}
	p.state = StateProgDisabled
	if err := p.reset(false); err != nil {
		return err
	}
	p.state = StateIdle
	glog.V(1).Info("avr: programming mode disabled")
	return nil
}

func (p *Programmer) loadAddress(word uint16) error {
	if _, err := p.command(cmdLoadAddrHigh | word>>8&0xFF); err != nil {
		return err
	}
	_, err := p.command(cmdLoadAddrLow | word&0xFF)
	return err
}

func (p *Programmer) wait(ctx context.Context, d time.Duration) error {
	if p.config.Sleep != nil {
		p.config.Sleep(d)
		return ctx.Err()
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Programmer) report(pr Progress) {
	if p.config.ProgressCallback != nil {
		p.config.ProgressCallback(pr)
	}
}

// ReadIDCode returns the 32-bit JTAG IDCODE of the target. It does not enter
// programming mode.
func (p *Programmer) ReadIDCode(ctx context.Context) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	out, err := p.ex.Execute(jtag.IDCODE, nil)
	if err != nil {
		return 0, fmt.Errorf("avr: read IDCODE: %w", err)
	}
	return uint32(jtag.ToUint(out)), nil
}
