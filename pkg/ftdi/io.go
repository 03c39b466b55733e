package ftdi

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang/glog"
	"github.com/google/gousb"
)

// SetDirection enters synchronous bit-bang mode with mask selecting the
// output lines. Lines whose bit is clear are inputs.
func (d *Device) SetDirection(mask byte) error {
	if err := d.control(sioSetBitmode, bitmodeSyncBB<<8|uint16(mask), portIndex); err != nil {
		return fmt.Errorf("ftdi: set bitmode 0x%02X: %w", mask, err)
	}
	d.direction = mask
	glog.V(2).Infof("ftdi: sync bit-bang, direction 0x%02X", mask)
	return nil
}

// Write sends line states to the device. Every byte accepted produces one
// sample to be collected with Read.
func (d *Device) Write(p []byte) (int, error) {
	n, err := d.epOut.Write(p)
	glog.V(2).Infof("ftdi: wrote %d/%d bytes", n, len(p))
	if err != nil {
		return n, fmt.Errorf("ftdi: write: %w", err)
	}
	return n, nil
}

// Read returns exactly n samples, waiting up to the configured timeout for
// them to arrive.
func (d *Device) Read(n int) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
	defer cancel()

	packets := (n + d.packetSize - statusBytes - 1) / (d.packetSize - statusBytes)
	if packets < 1 {
		packets = 1
	}
	if packets > maxReadPackets {
		packets = maxReadPackets
	}
	buf := make([]byte, packets*d.packetSize)

	for len(d.rx) < n {
		got, err := d.epIn.ReadContext(ctx, buf)
		if err != nil {
			if isTimeout(err) {
				return nil, fmt.Errorf("%w: %d of %d samples", ErrReadTimeout, len(d.rx), n)
			}
			return nil, fmt.Errorf("ftdi: read: %w", err)
		}
		d.rx = append(d.rx, stripStatus(buf[:got], d.packetSize)...)
	}
	out := make([]byte, n)
	copy(out, d.rx)
	d.rx = d.rx[:copy(d.rx, d.rx[n:])]
	glog.V(2).Infof("ftdi: read %d samples", n)
	return out, nil
}

// Flush purges the device receive and transmit buffers and drops samples
// already read from USB but not yet consumed.
func (d *Device) Flush() error {
	if err := d.control(sioReset, resetPurgeRX, portIndex); err != nil {
		return fmt.Errorf("ftdi: purge rx: %w", err)
	}
	if err := d.control(sioReset, resetPurgeTX, portIndex); err != nil {
		return fmt.Errorf("ftdi: purge tx: %w", err)
	}
	d.rx = d.rx[:0]
	return nil
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, gousb.TransferTimedOut)
}

// stripStatus removes the two modem status bytes the device puts at the
// start of every IN packet.
func stripStatus(buf []byte, packetSize int) []byte {
	out := make([]byte, 0, len(buf))
	for off := 0; off < len(buf); off += packetSize {
		end := off + packetSize
		if end > len(buf) {
			end = len(buf)
		}
		if end-off > statusBytes {
			out = append(out, buf[off+statusBytes:end]...)
		}
	}
	return out
}
