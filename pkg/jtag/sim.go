package jtag

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceAVR/pkg/tap"
)

// CaptureHook supplies the contents loaded into the data register selected by
// ir when the TAP passes through Capture-DR. Those bits are shifted out on TDO
// least significant bit first.
type CaptureHook func(ir uint8, bits int) []byte

// UpdateHook receives the bits shifted into the data register when the TAP
// passes through Update-DR.
type UpdateHook func(ir uint8, tdi []byte, bits int)

// SimShift records one completed data register scan.
type SimShift struct {
	IR   uint8
	TDI  []byte
	TDO  []byte
	Bits int
}

// SimTransport is an in-memory synchronous bit-bang device with a single JTAG
// target attached. It decodes the written line states the way a TAP
// controller would, clocking on rising TCK edges and changing TDO on falling
// edges, and samples the lines before applying each written byte just like a
// synchronous bit-bang FTDI part.
type SimTransport struct {
	Pins Pins

	OnCapture CaptureHook
	OnUpdate  UpdateHook

	// MaxWrite limits how many bytes a single Write accepts (0 = unlimited).
	MaxWrite int
	// WriteErr and ReadErr are returned by Write and Read when non-nil.
	WriteErr error
	ReadErr  error

	direction byte
	flushes   int
	writes    []int

	lines   byte
	tdo     bool
	tap     *tap.StateMachine
	ir      uint8
	irShift []bool
	drShift []bool
	drIn    []bool
	drCap   []byte
	pending []byte
	history []SimShift
}

// NewSimTransport returns a simulated device wired with the given pins. The
// target starts in Test-Logic-Reset with IDCODE selected.
func NewSimTransport(pins Pins) *SimTransport {
	return &SimTransport{
		Pins: pins,
		tap:  tap.NewStateMachine(),
		ir:   IDCODE.Code(),
	}
}

func (s *SimTransport) SetDirection(mask byte) error {
	s.direction = mask
	return nil
}

func (s *SimTransport) Flush() error {
	s.flushes++
	s.pending = s.pending[:0]
	return nil
}

func (s *SimTransport) Write(p []byte) (int, error) {
	if s.WriteErr != nil {
		return 0, s.WriteErr
	}
	n := len(p)
	if s.MaxWrite > 0 && n > s.MaxWrite {
		n = s.MaxWrite
	}
	s.writes = append(s.writes, n)
	for _, b := range p[:n] {
		s.pending = append(s.pending, s.sample())
		s.apply(b & s.direction)
	}
	return n, nil
}

func (s *SimTransport) Read(n int) ([]byte, error) {
	if s.ReadErr != nil {
		return nil, s.ReadErr
	}
	if n > len(s.pending) {
		return nil, fmt.Errorf("%w: %d samples pending, %d requested", ErrShortResponse, len(s.pending), n)
	}
	out := append([]byte(nil), s.pending[:n]...)
	s.pending = s.pending[n:]
	return out, nil
}

// Direction returns the mask last passed to SetDirection.
func (s *SimTransport) Direction() byte {
	return s.direction
}

// Flushes reports how many times Flush was called.
func (s *SimTransport) Flushes() int {
	return s.flushes
}

// Writes returns the number of bytes accepted by each Write call.
func (s *SimTransport) Writes() []int {
	return append([]int(nil), s.writes...)
}

// State returns the simulated TAP controller state.
func (s *SimTransport) State() tap.State {
	return s.tap.State()
}

// IR returns the instruction currently latched in the instruction register.
func (s *SimTransport) IR() uint8 {
	return s.ir
}

// History returns every completed data register scan in order.
func (s *SimTransport) History() []SimShift {
	return append([]SimShift(nil), s.history...)
}

// LastShift returns the most recent data register scan.
func (s *SimTransport) LastShift() (SimShift, bool) {
	if len(s.history) == 0 {
		return SimShift{}, false
	}
	return s.history[len(s.history)-1], true
}

func (s *SimTransport) sample() byte {
	v := s.lines
	if s.tdo {
		v |= s.Pins.TDO
	}
	return v
}

func (s *SimTransport) apply(next byte) {
	prev := s.lines
	s.lines = next
	rising := prev&s.Pins.TCK == 0 && next&s.Pins.TCK != 0
	falling := prev&s.Pins.TCK != 0 && next&s.Pins.TCK == 0

	switch {
	case rising:
		s.risingEdge(next&s.Pins.TMS != 0, next&s.Pins.TDI != 0)
	case falling:
		switch s.tap.State() {
		case tap.StateShiftDR:
			s.tdo = len(s.drShift) > 0 && s.drShift[0]
		case tap.StateShiftIR:
			s.tdo = len(s.irShift) > 0 && s.irShift[0]
		}
	}
}

func (s *SimTransport) risingEdge(tms, tdi bool) {
	switch s.tap.State() {
	case tap.StateTestLogicReset:
		s.ir = IDCODE.Code()
	case tap.StateCaptureIR:
		// IEEE 1149.1 requires the two least significant captured bits to be 01.
		s.irShift = []bool{true, false, false, false}
	case tap.StateShiftIR:
		s.irShift = append(s.irShift[1:], tdi)
	case tap.StateCaptureDR:
		bits := s.drBits()
		var captured []byte
		if s.OnCapture != nil {
			captured = s.OnCapture(s.ir, bits)
		}
		s.drShift = make([]bool, bits)
		for i := range s.drShift {
			s.drShift[i] = Bit(captured, i)
		}
		s.drCap = captured
		s.drIn = s.drIn[:0]
	case tap.StateShiftDR:
		s.drIn = append(s.drIn, tdi)
		if len(s.drShift) > 0 {
			s.drShift = append(s.drShift[1:], tdi)
		}
	}

	next := s.tap.Clock(tms)

	switch next {
	case tap.StateUpdateIR:
		var code uint8
		for i, bit := range s.irShift {
			if bit {
				code |= 1 << uint(i)
			}
		}
		s.ir = code
	case tap.StateUpdateDR:
		s.finishDR()
	}
}

func (s *SimTransport) finishDR() {
	bits := len(s.drIn)
	tdi := make([]byte, (bits+7)/8)
	for i, bit := range s.drIn {
		if bit {
			SetBit(tdi, i)
		}
	}
	tdo := make([]byte, len(tdi))
	copy(tdo, s.drCap)
	s.history = append(s.history, SimShift{
		IR:   s.ir,
		TDI:  tdi,
		TDO:  tdo,
		Bits: bits,
	})
	if s.OnUpdate != nil {
		s.OnUpdate(s.ir, tdi, bits)
	}
}

func (s *SimTransport) drBits() int {
	if instr, ok := InstructionForCode(s.ir); ok {
		return instr.Bits()
	}
	return 1
}
