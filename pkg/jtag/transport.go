package jtag

import (
	"errors"
	"fmt"
	"math/bits"
)

// Transport abstracts a synchronous bit-bang device. Every byte written drives
// the output lines for one clock of the device's baud generator, and the
// device samples its input lines at the same instant and queues the sample for
// reading. Reading back exactly as many bytes as were written therefore yields
// one sample per emitted line state.
type Transport interface {
	// SetDirection configures which bits of the line byte are outputs.
	SetDirection(mask byte) error
	// Write queues line states and reports how many were accepted.
	Write(p []byte) (int, error)
	// Read blocks until n samples are available and returns them.
	Read(n int) ([]byte, error)
	// Flush discards anything pending in the device's buffers.
	Flush() error
}

// ErrShortResponse is returned when the transport yields fewer samples than
// line states were written.
var ErrShortResponse = errors.New("jtag: short response from transport")

// Pins assigns the four JTAG signals to bit positions of the line byte. The
// assignment is fixed for the whole session.
type Pins struct {
	TMS byte
	TDI byte
	TDO byte
	TCK byte
}

// DefaultPins matches an FT232R wired with TDI on D2 (RTS), TDO on D3 (CTS),
// TMS on D4 (DTR) and TCK on D5 (DSR).
var DefaultPins = Pins{
	TMS: 1 << 4,
	TDI: 1 << 2,
	TDO: 1 << 3,
	TCK: 1 << 5,
}

// PinsFromBits builds an assignment from bit numbers (0-7).
func PinsFromBits(tms, tdi, tdo, tck uint) Pins {
	return Pins{
		TMS: 1 << tms,
		TDI: 1 << tdi,
		TDO: 1 << tdo,
		TCK: 1 << tck,
	}
}

// Direction returns the output mask: TMS, TDI and TCK driven, TDO sampled.
func (p Pins) Direction() byte {
	return p.TMS | p.TDI | p.TCK
}

// Validate checks that every signal occupies exactly one bit and that no two
// signals share a bit.
func (p Pins) Validate() error {
	named := []struct {
		name string
		mask byte
	}{
		{"TMS", p.TMS}, {"TDI", p.TDI}, {"TDO", p.TDO}, {"TCK", p.TCK},
	}
	var seen byte
	for _, n := range named {
		if bits.OnesCount8(n.mask) != 1 {
			return fmt.Errorf("jtag: %s mask 0x%02X must have exactly one bit set", n.name, n.mask)
		}
		if seen&n.mask != 0 {
			return fmt.Errorf("jtag: %s mask 0x%02X overlaps another signal", n.name, n.mask)
		}
		seen |= n.mask
	}
	return nil
}

func (p Pins) String() string {
	return fmt.Sprintf("TMS=D%d TDI=D%d TDO=D%d TCK=D%d",
		bits.TrailingZeros8(p.TMS), bits.TrailingZeros8(p.TDI),
		bits.TrailingZeros8(p.TDO), bits.TrailingZeros8(p.TCK))
}
