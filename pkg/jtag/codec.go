package jtag

import (
	"fmt"

	"github.com/golang/glog"
)

// DefaultChunkSize bounds each write/read round trip to what an FT232R can
// buffer in both directions.
const DefaultChunkSize = 256

// Codec runs complete JTAG transactions over a bit-bang transport. It owns the
// transport for its lifetime; transactions never overlap.
type Codec struct {
	transport Transport
	pins      Pins
	chunkSize int

	transactions int
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithPins overrides DefaultPins.
func WithPins(p Pins) CodecOption {
	return func(c *Codec) {
		c.pins = p
	}
}

// WithChunkSize sets the maximum number of line states written per round
// trip. Values below 2 are ignored.
func WithChunkSize(n int) CodecOption {
	return func(c *Codec) {
		if n >= 2 {
			c.chunkSize = n
		}
	}
}

// NewCodec validates the pin assignment and configures the transport's line
// directions once for the session.
func NewCodec(t Transport, opts ...CodecOption) (*Codec, error) {
	if t == nil {
		return nil, fmt.Errorf("jtag: transport is nil")
	}
	c := &Codec{
		transport: t,
		pins:      DefaultPins,
		chunkSize: DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.pins.Validate(); err != nil {
		return nil, err
	}
	if err := t.SetDirection(c.pins.Direction()); err != nil {
		return nil, err
	}
	return c, nil
}

// Pins returns the signal assignment in use.
func (c *Codec) Pins() Pins {
	return c.pins
}

// Transactions reports how many transactions have completed.
func (c *Codec) Transactions() int {
	return c.transactions
}

// Execute loads instr into the instruction register, shifts data through the
// selected data register and returns the bits shifted out, packed least
// significant bit first into ceil(instr.Bits()/8) bytes.
//
// Transport errors are returned as-is.
func (c *Codec) Execute(instr Instruction, data []byte) ([]byte, error) {
	frame, err := EncodeFrame(c.pins, instr, data)
	if err != nil {
		return nil, err
	}

	if err := c.transport.Flush(); err != nil {
		return nil, err
	}

	response := make([]byte, 0, len(frame.Stream))
	for off := 0; off < len(frame.Stream); {
		end := off + c.chunkSize
		if end > len(frame.Stream) {
			end = len(frame.Stream)
		}
		n, err := c.transport.Write(frame.Stream[off:end])
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fmt.Errorf("jtag: %s: transport accepted no data at offset %d", instr, off)
		}
		samples, err := c.transport.Read(n)
		if err != nil {
			return nil, err
		}
		response = append(response, samples...)
		off += n
	}

	out, err := frame.Decode(c.pins, response)
	if err != nil {
		return nil, err
	}
	c.transactions++
	if glog.V(3) {
		glog.Infof("jtag: %s in=% X out=% X", instr, truncate(data, instr.Bytes()), out)
	}
	return out, nil
}

// ExecuteUint is Execute with the payload given as an integer.
func (c *Codec) ExecuteUint(instr Instruction, v uint64) ([]byte, error) {
	if err := checkInstruction(instr); err != nil {
		return nil, err
	}
	return c.Execute(instr, Uint(v, instr.Bits()))
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
