// Package avrsim models the JTAG programming interface of an AVR part so the
// programmer can be exercised without hardware. A Target attaches to a
// jtag.SimTransport and answers its capture and update hooks.
package avrsim

import (
	"github.com/OpenTraceLab/OpenTraceAVR/pkg/jtag"
)

const (
	progEnableKey = 0xA370
	pollDoneBit   = 1 << 9
)

// Programming modes selected by the 0x23xx "enter" commands.
const (
	modeNone       = 0x00
	modeErase      = 0x80
	modeFlashWrite = 0x10
	modeFlashRead  = 0x02
	modeFuseWrite  = 0x40
	modeLockWrite  = 0x20
	modeFuseRead   = 0x04
)

// Target is an in-memory AVR with flash, fuse and lock bytes. Programming
// follows the device rules closely enough for round trips: flash writes can
// only clear bits, chip erase sets flash and lock bits back to 0xFF, and
// fuse or lock writes report busy for PollDelay commands.
type Target struct {
	IDCode    uint32
	PageBytes int
	Flash     []byte

	Extended uint8
	High     uint8
	Low      uint8
	Lock     uint8

	// PollDelay is the number of commands after a fuse or lock write pulse
	// before the write-complete bit reads back as set.
	PollDelay int

	// Stuck maps flash offsets to the value they always read back as.
	Stuck map[int]byte

	InReset     bool
	ProgEnabled bool

	// Commands records every PROG_COMMANDS value accepted while enabled.
	Commands []uint16

	mode    uint16
	addr    uint16
	data    uint8
	out     uint16
	busy    int
	pageBuf []byte
}

// New returns an erased part with flashBytes of flash and the IDCODE and
// factory fuse values of an ATmega162.
func New(flashBytes int) *Target {
	t := &Target{
		IDCode:    0x8940403F,
		PageBytes: 128,
		Flash:     make([]byte, flashBytes),
		Extended:  0xFF,
		High:      0x99,
		Low:       0x62,
		Lock:      0xFF,
	}
	for i := range t.Flash {
		t.Flash[i] = 0xFF
	}
	t.pageBuf = make([]byte, t.PageBytes)
	return t
}

// Attach installs the target's hooks on sim.
func (t *Target) Attach(sim *jtag.SimTransport) {
	sim.OnCapture = t.capture
	sim.OnUpdate = t.update
}

func (t *Target) capture(ir uint8, bits int) []byte {
	switch instr, _ := jtag.InstructionForCode(ir); instr {
	case jtag.IDCODE:
		return jtag.Uint(uint64(t.IDCode), 32)
	case jtag.ProgCommands:
		return jtag.Uint(uint64(t.out), bits)
	case jtag.ProgPageRead:
		if !t.ProgEnabled || t.mode != modeFlashRead {
			return nil
		}
		// One byte of padding precedes the page.
		buf := make([]byte, 1+t.PageBytes)
		base := t.pageBase()
		for i := 0; i < t.PageBytes; i++ {
			buf[1+i] = t.read(base + i)
		}
		return buf
	}
	return nil
}

func (t *Target) update(ir uint8, tdi []byte, bits int) {
	instr, ok := jtag.InstructionForCode(ir)
	if !ok {
		return
	}
	switch instr {
	case jtag.AVRReset:
		t.InReset = jtag.Bit(tdi, 0)
		if !t.InReset {
			t.ProgEnabled = false
		}
	case jtag.ProgEnable:
		t.ProgEnabled = t.InReset && jtag.ToUint(tdi) == progEnableKey
		if !t.ProgEnabled {
			t.mode = modeNone
		}
	case jtag.ProgCommands:
		if t.ProgEnabled {
			t.command(uint16(jtag.ToUint(tdi)))
		}
	case jtag.ProgPageLoad:
		if t.ProgEnabled && t.mode == modeFlashWrite {
			copy(t.pageBuf, tdi)
		}
	}
}

func (t *Target) command(op uint16) {
	t.Commands = append(t.Commands, op)
	if t.busy > 0 {
		t.busy--
	}
	hi, lo := op>>8, op&0xFF

	switch hi {
	case 0x23:
		t.mode = lo
		t.out = 0
		return
	case 0x07:
		t.addr = t.addr&0x00FF | lo<<8
		return
	case 0x03:
		t.addr = t.addr&0xFF00 | lo
		return
	case 0x13:
		t.data = uint8(lo)
		return
	}

	switch t.mode {
	case modeErase:
		if op == 0x3180 {
			t.erase()
		}
	case modeFlashWrite:
		if op == 0x3500 {
			t.commitPage()
		}
	case modeFuseWrite:
		switch op {
		case 0x3900:
			t.Extended = t.data
			t.busy = t.PollDelay
		case 0x3500:
			t.High = t.data
			t.busy = t.PollDelay
		case 0x3100:
			t.Low = t.data
			t.busy = t.PollDelay
		}
	case modeLockWrite:
		if op == 0x3100 {
			t.Lock = t.data
			t.busy = t.PollDelay
		}
	case modeFuseRead:
		switch op {
		case 0x3a00:
			t.out = uint16(t.Extended)
		case 0x3e00:
			t.out = uint16(t.High)
		case 0x3200:
			t.out = uint16(t.Low)
		case 0x3600:
			t.out = uint16(t.Lock)
		}
		return
	}

	t.out = 0
	if t.busy == 0 {
		t.out = pollDoneBit
	}
}

func (t *Target) erase() {
	for i := range t.Flash {
		t.Flash[i] = 0xFF
	}
	t.Lock = 0xFF
}

func (t *Target) commitPage() {
	base := t.pageBase()
	for i, b := range t.pageBuf {
		if base+i < len(t.Flash) {
			t.Flash[base+i] &= b
		}
	}
}

func (t *Target) pageBase() int {
	return int(t.addr) * 2 &^ (t.PageBytes - 1)
}

func (t *Target) read(off int) byte {
	if v, ok := t.Stuck[off]; ok {
		return v
	}
	if off < len(t.Flash) {
		return t.Flash[off]
	}
	return 0xFF
}
