package jtag

import (
	"bytes"
	"errors"
	"testing"

	"github.com/OpenTraceLab/OpenTraceAVR/pkg/tap"
)

func newTestCodec(t *testing.T, opts ...CodecOption) (*Codec, *SimTransport) {
	t.Helper()
	sim := NewSimTransport(DefaultPins)
	codec, err := NewCodec(sim, opts...)
	if err != nil {
		t.Fatalf("NewCodec returned error: %v", err)
	}
	return codec, sim
}

func TestNewCodecConfiguresDirection(t *testing.T) {
	_, sim := newTestCodec(t)
	if got, want := sim.Direction(), byte(0x34); got != want {
		t.Fatalf("direction = 0x%02X, want 0x%02X", got, want)
	}
}

func TestNewCodecRejectsBadPins(t *testing.T) {
	sim := NewSimTransport(DefaultPins)
	bad := Pins{TMS: 1, TDI: 1, TDO: 2, TCK: 4}
	if _, err := NewCodec(sim, WithPins(bad)); err == nil {
		t.Fatalf("expected error for overlapping pins")
	}
	if _, err := NewCodec(nil); err == nil {
		t.Fatalf("expected error for nil transport")
	}
}

func TestExecuteDecodesCapturedPattern(t *testing.T) {
	codec, sim := newTestCodec(t)
	pattern := []byte{0x3F, 0x40, 0x94, 0x89}
	sim.OnCapture = func(ir uint8, bits int) []byte {
		if ir != IDCODE.Code() || bits != 32 {
			t.Fatalf("capture ir=0x%X bits=%d, want IDCODE/32", ir, bits)
		}
		return pattern
	}

	out, err := codec.Execute(IDCODE, nil)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !bytes.Equal(out, pattern) {
		t.Fatalf("out = % X, want % X", out, pattern)
	}
	if sim.State() != tap.StateRunTestIdle {
		t.Fatalf("target state = %s, want RunTestIdle", sim.State())
	}
}

func TestExecuteShiftsPayloadIntoTarget(t *testing.T) {
	codec, sim := newTestCodec(t)

	if _, err := codec.ExecuteUint(ProgCommands, 0x2380); err != nil {
		t.Fatalf("ExecuteUint returned error: %v", err)
	}

	last, ok := sim.LastShift()
	if !ok {
		t.Fatalf("no shift recorded")
	}
	if last.IR != ProgCommands.Code() || last.Bits != 15 {
		t.Fatalf("last shift ir=0x%X bits=%d, want 0x5/15", last.IR, last.Bits)
	}
	if got := ToUint(last.TDI); got != 0x2380 {
		t.Fatalf("tdi = 0x%04X, want 0x2380", got)
	}
}

func TestExecutePadsAndTruncatesPayload(t *testing.T) {
	codec, sim := newTestCodec(t)

	// One byte into a 16-bit register: upper byte padded with zero.
	if _, err := codec.Execute(ProgEnable, []byte{0x70}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	last, _ := sim.LastShift()
	if !bytes.Equal(last.TDI, []byte{0x70, 0x00}) {
		t.Fatalf("padded tdi = % X, want 70 00", last.TDI)
	}

	// Three bytes into a 1-bit register: everything past bit 0 dropped.
	if _, err := codec.Execute(AVRReset, []byte{0xFF, 0xFF, 0xFF}); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	last, _ = sim.LastShift()
	if last.Bits != 1 || !bytes.Equal(last.TDI, []byte{0x01}) {
		t.Fatalf("truncated shift = %+v, want 1 bit of 01", last)
	}
}

func TestExecuteEveryInstruction(t *testing.T) {
	for _, instr := range Instructions() {
		t.Run(instr.String(), func(t *testing.T) {
			codec, sim := newTestCodec(t)
			var want []byte
			sim.OnCapture = func(ir uint8, bits int) []byte {
				want = make([]byte, (bits+7)/8)
				for i := range want {
					want[i] = byte(0xA5 ^ i)
				}
				// Clear bits beyond the register width.
				if rem := bits % 8; rem != 0 {
					want[len(want)-1] &= byte(1<<uint(rem)) - 1
				}
				return want
			}
			out, err := codec.Execute(instr, nil)
			if err != nil {
				t.Fatalf("Execute returned error: %v", err)
			}
			if len(out) != instr.Bytes() {
				t.Fatalf("len(out) = %d, want %d", len(out), instr.Bytes())
			}
			if !bytes.Equal(out, want) {
				t.Fatalf("out = % X, want % X", out, want)
			}
			if sim.IR() != instr.Code() {
				t.Fatalf("latched IR = 0x%X, want 0x%X", sim.IR(), instr.Code())
			}
		})
	}
}

func TestExecuteChunksLargeTransactions(t *testing.T) {
	codec, sim := newTestCodec(t)
	page := make([]byte, 128)
	for i := range page {
		page[i] = byte(i * 7)
	}

	if _, err := codec.Execute(ProgPageLoad, page); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	writes := sim.Writes()
	total := 0
	for _, n := range writes {
		if n > DefaultChunkSize {
			t.Fatalf("write of %d bytes exceeds chunk size", n)
		}
		total += n
	}
	if total != FrameLen(1024) {
		t.Fatalf("total written = %d, want %d", total, FrameLen(1024))
	}
	if len(writes) != (FrameLen(1024)+DefaultChunkSize-1)/DefaultChunkSize {
		t.Fatalf("write calls = %d", len(writes))
	}
	last, _ := sim.LastShift()
	if !bytes.Equal(last.TDI, page) {
		t.Fatalf("page shifted incorrectly")
	}
	if sim.Flushes() != 1 {
		t.Fatalf("flushes = %d, want 1", sim.Flushes())
	}
}

func TestExecuteChunkBoundariesDoNotChangeResult(t *testing.T) {
	capture := func(ir uint8, bits int) []byte {
		out := make([]byte, (bits+7)/8)
		for i := range out {
			out[i] = byte(i*13 + 1)
		}
		return out
	}

	var results [][]byte
	for _, chunk := range []int{2, 3, 64, 256, 4096} {
		codec, sim := newTestCodec(t, WithChunkSize(chunk))
		sim.OnCapture = capture
		out, err := codec.Execute(ProgPageRead, nil)
		if err != nil {
			t.Fatalf("chunk %d: Execute returned error: %v", chunk, err)
		}
		results = append(results, out)
	}
	for i := 1; i < len(results); i++ {
		if !bytes.Equal(results[i], results[0]) {
			t.Fatalf("result %d differs from result 0", i)
		}
	}
}

func TestExecuteHandlesPartialWrites(t *testing.T) {
	codec, sim := newTestCodec(t)
	sim.MaxWrite = 50
	sim.OnCapture = func(ir uint8, bits int) []byte { return []byte{0x21, 0x43} }

	out, err := codec.Execute(ProgEnable, []byte{0x70, 0xA3})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !bytes.Equal(out, []byte{0x21, 0x43}) {
		t.Fatalf("out = % X, want 21 43", out)
	}
	last, _ := sim.LastShift()
	if !bytes.Equal(last.TDI, []byte{0x70, 0xA3}) {
		t.Fatalf("tdi = % X, want 70 A3", last.TDI)
	}
}

func TestExecuteInvalidInstruction(t *testing.T) {
	codec, sim := newTestCodec(t)
	_, err := codec.Execute(Instruction(0), nil)
	if !errors.Is(err, ErrInvalidInstruction) {
		t.Fatalf("err = %v, want ErrInvalidInstruction", err)
	}
	if _, err := codec.ExecuteUint(Instruction(99), 1); !errors.Is(err, ErrInvalidInstruction) {
		t.Fatalf("ExecuteUint err = %v, want ErrInvalidInstruction", err)
	}
	if len(sim.Writes()) != 0 || sim.Flushes() != 0 {
		t.Fatalf("transport touched for invalid instruction")
	}
}

func TestExecuteTransportErrorsPropagate(t *testing.T) {
	writeErr := errors.New("usb write stalled")
	codec, sim := newTestCodec(t)
	sim.WriteErr = writeErr
	if _, err := codec.Execute(Bypass, nil); err != writeErr {
		t.Fatalf("err = %v, want %v", err, writeErr)
	}

	readErr := errors.New("usb read timeout")
	codec, sim = newTestCodec(t)
	sim.ReadErr = readErr
	if _, err := codec.Execute(Bypass, nil); err != readErr {
		t.Fatalf("err = %v, want %v", err, readErr)
	}
	if codec.Transactions() != 0 {
		t.Fatalf("failed transaction counted")
	}
}

func TestExecuteCountsTransactions(t *testing.T) {
	codec, _ := newTestCodec(t)
	for i := 0; i < 3; i++ {
		if _, err := codec.ExecuteUint(AVRReset, 1); err != nil {
			t.Fatalf("ExecuteUint returned error: %v", err)
		}
	}
	if codec.Transactions() != 3 {
		t.Fatalf("Transactions() = %d, want 3", codec.Transactions())
	}
}
