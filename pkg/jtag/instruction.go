package jtag

import (
	"errors"
	"fmt"
)

// IRLength is the width of the AVR JTAG instruction register.
const IRLength = 4

// Instruction is one of the AVR JTAG instructions the programmer uses. The set
// is closed: every value has a fixed instruction register code and a fixed
// width for the data register it selects.
type Instruction uint8

const (
	IDCODE Instruction = iota + 1
	ProgEnable
	ProgCommands
	ProgPageLoad
	ProgPageRead
	AVRReset
	Bypass
)

// ErrInvalidInstruction is returned when a transaction is requested for an
// instruction outside the fixed set.
var ErrInvalidInstruction = errors.New("jtag: invalid instruction")

type instructionDef struct {
	name string
	code uint8 // instruction register value
	bits int   // length of the selected data register
}

var instructions = map[Instruction]instructionDef{
	IDCODE:       {name: "IDCODE", code: 0x1, bits: 32},
	ProgEnable:   {name: "PROG_ENABLE", code: 0x4, bits: 16},
	ProgCommands: {name: "PROG_COMMANDS", code: 0x5, bits: 15},
	ProgPageLoad: {name: "PROG_PAGELOAD", code: 0x6, bits: 1024},
	ProgPageRead: {name: "PROG_PAGEREAD", code: 0x7, bits: 1032},
	AVRReset:     {name: "AVR_RESET", code: 0xC, bits: 1},
	Bypass:       {name: "BYPASS", code: 0xF, bits: 1},
}

// Instructions returns the fixed instruction set in declaration order.
func Instructions() []Instruction {
	return []Instruction{IDCODE, ProgEnable, ProgCommands, ProgPageLoad, ProgPageRead, AVRReset, Bypass}
}

// Valid reports whether i is a member of the instruction set.
func (i Instruction) Valid() bool {
	_, ok := instructions[i]
	return ok
}

// Code returns the 4-bit instruction register value.
func (i Instruction) Code() uint8 {
	return instructions[i].code
}

// Bits returns the length of the data register selected by the instruction.
func (i Instruction) Bits() int {
	return instructions[i].bits
}

// Bytes returns the number of bytes needed to hold the data register.
func (i Instruction) Bytes() int {
	return (i.Bits() + 7) / 8
}

func (i Instruction) String() string {
	if def, ok := instructions[i]; ok {
		return def.name
	}
	return fmt.Sprintf("Instruction(%d)", uint8(i))
}

// InstructionForCode looks up an instruction by its instruction register
// value.
func InstructionForCode(code uint8) (Instruction, bool) {
	for instr, def := range instructions {
		if def.code == code {
			return instr, true
		}
	}
	return 0, false
}

func checkInstruction(i Instruction) error {
	if !i.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidInstruction, uint8(i))
	}
	return nil
}
