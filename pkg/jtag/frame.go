package jtag

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceAVR/pkg/tap"
)

// idleCells TMS-low clocks lead every transaction so the controller settles
// in Run-Test/Idle whether it started there or in Test-Logic-Reset.
const idleCells = 2

// TMS walks used by every transaction.
var (
	enterShiftIR = []bool{true, true, false, false}
	enterShiftDR = []bool{true, false, true, false, false} // Exit1-IR → Update-IR → Idle → Shift-DR
	exitShiftDR  = []bool{true, false}                     // Exit1-DR → Update-DR → Idle
)

// Frame is the line-state stream for one transaction.
type Frame struct {
	// Stream holds one byte per line state. Every TCK cycle occupies two
	// bytes: the data setup state and the same state with TCK raised.
	Stream []byte
	// Start is the index in the response of the sample holding TDO after the
	// rising edge that shifted data register bit 0. Bit i is at Start+2*i.
	Start int
	// Bits is the number of data register bits shifted.
	Bits int
}

// FrameCells returns the number of TCK cycles in a transaction shifting n
// data register bits.
func FrameCells(n int) int {
	return idleCells + len(enterShiftIR) + IRLength + len(enterShiftDR) + n + len(exitShiftDR) + 1
}

// FrameLen returns the byte length of a transaction stream shifting n data
// register bits, including the single idle byte that leads every stream.
func FrameLen(n int) int {
	return 1 + 2*FrameCells(n)
}

type frameBuilder struct {
	pins   Pins
	stream []byte
	tap    *tap.StateMachine
}

// clock emits one TCK cycle and returns the index of the sample that follows
// the rising edge.
func (b *frameBuilder) clock(lines byte) int {
	b.stream = append(b.stream, lines, lines|b.pins.TCK)
	b.tap.Clock(lines&b.pins.TMS != 0)
	return len(b.stream)
}

func (b *frameBuilder) walk(tms []bool) {
	for _, bit := range tms {
		if bit {
			b.clock(b.pins.TMS)
		} else {
			b.clock(0)
		}
	}
}

// EncodeFrame builds the stream that loads instr into the instruction register
// and shifts data through the selected data register. Data shorter than the
// register is padded with zeros; extra data is ignored.
func EncodeFrame(pins Pins, instr Instruction, data []byte) (Frame, error) {
	if err := checkInstruction(instr); err != nil {
		return Frame{}, err
	}
	nbits := instr.Bits()
	b := &frameBuilder{
		pins:   pins,
		stream: make([]byte, 1, FrameLen(nbits)),
		tap:    tap.NewStateMachine(),
	}

	for i := 0; i < idleCells; i++ {
		b.clock(0)
	}
	b.walk(enterShiftIR)
	if err := b.tap.Expect(tap.StateShiftIR); err != nil {
		return Frame{}, fmt.Errorf("jtag: encode %s: %w", instr, err)
	}

	ir := instr.Code()
	for i := 0; i < IRLength; i++ {
		lines := byte(0)
		if ir>>uint(i)&1 == 1 {
			lines |= pins.TDI
		}
		if i == IRLength-1 {
			lines |= pins.TMS
		}
		b.clock(lines)
	}

	b.walk(enterShiftDR)
	if err := b.tap.Expect(tap.StateShiftDR); err != nil {
		return Frame{}, fmt.Errorf("jtag: encode %s: %w", instr, err)
	}

	start := 0
	for i := 0; i < nbits; i++ {
		lines := byte(0)
		if Bit(data, i) {
			lines |= pins.TDI
		}
		if i == nbits-1 {
			lines |= pins.TMS
		}
		idx := b.clock(lines)
		if i == 0 {
			start = idx
		}
	}

	b.walk(exitShiftDR)
	b.clock(0)
	if err := b.tap.Expect(tap.StateRunTestIdle); err != nil {
		return Frame{}, fmt.Errorf("jtag: encode %s: %w", instr, err)
	}

	return Frame{Stream: b.stream, Start: start, Bits: nbits}, nil
}

// Decode extracts the data register contents from the samples read back
// while the frame was clocked out.
func (f Frame) Decode(pins Pins, response []byte) ([]byte, error) {
	if len(response) < len(f.Stream) {
		return nil, fmt.Errorf("%w: got %d samples, want %d", ErrShortResponse, len(response), len(f.Stream))
	}
	out := make([]byte, (f.Bits+7)/8)
	for i := 0; i < f.Bits; i++ {
		if response[f.Start+2*i]&pins.TDO != 0 {
			SetBit(out, i)
		}
	}
	return out, nil
}
