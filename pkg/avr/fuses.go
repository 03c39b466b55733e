package avr

import (
	"context"
	"fmt"

	"github.com/golang/glog"
)

// FuseSet holds the fuse and lock bytes of the device.
type FuseSet struct {
	Extended uint8
	Fuses    uint16 // high byte << 8 | low byte
	Lock     uint8
}

// Low returns the low fuse byte.
func (f FuseSet) Low() uint8 { return uint8(f.Fuses) }

// High returns the high fuse byte.
func (f FuseSet) High() uint8 { return uint8(f.Fuses >> 8) }

func (f FuseSet) String() string {
	return fmt.Sprintf("extended=0x%02X high=0x%02X low=0x%02X lock=0x%02X",
		f.Extended, f.High(), f.Low(), f.Lock)
}

type fuseByte struct {
	name  string
	value uint8
	write []uint16
}

// ProgramFuses writes the extended, high and low fuse bytes in that order,
// waiting for each write to complete before loading the next byte. fuses
// carries the high byte in bits 15:8 and the low byte in bits 7:0.
//
// Both values are range checked before the device is touched.
func (p *Programmer) ProgramFuses(ctx context.Context, fuses, extended int) error {
	if fuses < 0 || fuses > 0xFFFF {
		return &FuseValueError{Field: "fuses", Value: fuses, Bits: 16}
	}
	if extended < 0 || extended > 0xFF {
		return &FuseValueError{Field: "extended fuses", Value: extended, Bits: 8}
	}

	if err := p.enter(); err != nil {
		return err
	}
	if _, err := p.command(cmdEnterFuseWrite); err != nil {
		return err
	}
	p.state = StateWritingFuses

	order := []fuseByte{
		{name: "extended", value: uint8(extended), write: extFuseWriteSeq},
		{name: "high", value: uint8(fuses >> 8), write: highFuseWriteSeq},
		{name: "low", value: uint8(fuses), write: lowFuseWriteSeq},
	}
	for i, fb := range order {
		glog.V(1).Infof("avr: write %s fuse 0x%02X", fb.name, fb.value)
		if err := p.writeByte(ctx, fb.value, fb.write, p.pollFuseWriteComplete); err != nil {
			return fmt.Errorf("avr: write %s fuse: %w", fb.name, err)
		}
		p.report(Progress{Phase: PhaseFuses, Page: i + 1, Pages: len(order)})
	}
	return p.ExitProgramming(ctx)
}

// ProgramLockBits writes the lock byte. Only the six low bits are
// significant; lock bits can only be cleared again by a chip erase.
func (p *Programmer) ProgramLockBits(ctx context.Context, lock uint8) error {
	if err := p.enter(); err != nil {
		return err
	}
	if _, err := p.command(cmdEnterLockWrite); err != nil {
		return err
	}
	p.state = StateWritingFuses
	glog.V(1).Infof("avr: write lock bits 0x%02X", lock)
	if err := p.writeByte(ctx, lockUnusedBits|lock, lockWriteSeq, p.pollLockWriteComplete); err != nil {
		return fmt.Errorf("avr: write lock bits: %w", err)
	}
	return p.ExitProgramming(ctx)
}

func (p *Programmer) writeByte(ctx context.Context, value uint8, write []uint16, poll func(context.Context) error) error {
	if _, err := p.command(cmdLoadDataLow | uint16(value)); err != nil {
		return err
	}
	if err := p.commands(write); err != nil {
		return err
	}
	return poll(ctx)
}

// pollFuseWriteComplete polls until the device reports the fuse write done.
func (p *Programmer) pollFuseWriteComplete(ctx context.Context) error {
	return p.pollWriteComplete(ctx, cmdFusePoll)
}

func (p *Programmer) pollLockWriteComplete(ctx context.Context) error {
	return p.pollWriteComplete(ctx, cmdLockPoll)
}

// pollWriteComplete reissues the poll command until bit 9 of the returned
// register is set. Without a poll limit it only stops on completion or
// context cancellation.
func (p *Programmer) pollWriteComplete(ctx context.Context, op uint16) error {
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, err := p.command(op)
		if err != nil {
			return err
		}
		if len(out) > 1 && out[1]&pollDoneMask != 0 {
			glog.V(2).Infof("avr: write complete after %d polls", n)
			return nil
		}
		if p.config.PollLimit > 0 && n >= p.config.PollLimit {
			return fmt.Errorf("%w (%d polls)", ErrPollLimit, n)
		}
	}
}

// ReadFusesLocks reads the extended, high and low fuse bytes and the lock
// byte. The device is left in programming mode; call ExitProgramming when
// done with it.
func (p *Programmer) ReadFusesLocks(ctx context.Context) (FuseSet, error) {
	if err := ctx.Err(); err != nil {
		return FuseSet{}, err
	}
	if err := p.enter(); err != nil {
		return FuseSet{}, err
	}
	if _, err := p.command(cmdEnterFuseLockRead); err != nil {
		return FuseSet{}, err
	}
	p.state = StateReadingFusesLocks

	if _, err := p.command(cmdReadArm); err != nil {
		return FuseSet{}, err
	}
	var vals [4]uint8
	for i, op := range []uint16{cmdReadExtended, cmdReadHigh, cmdReadLow, cmdReadLock} {
		out, err := p.command(op)
		if err != nil {
			return FuseSet{}, err
		}
		vals[i] = out[0]
	}
	p.state = StateProgEnabled

	fs := FuseSet{
		Extended: vals[0],
		Fuses:    uint16(vals[1])<<8 | uint16(vals[2]),
		Lock:     vals[3],
	}
	glog.V(1).Infof("avr: read %s", fs)
	return fs, nil
}
