// Package ftdi drives an FTDI FT232R (or a compatible single-channel FTDI
// bridge) in synchronous bit-bang mode through libusb. A Device implements
// jtag.Transport: each byte written sets the eight data lines and produces
// one sampled byte, taken before the write is applied.
package ftdi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/google/gousb"
)

const (
	VendorIDFTDI   = 0x0403
	ProductFT232R  = 0x6001
	ProductFT231X  = 0x6015
	DefaultBaud    = 9600
	DefaultLatency = 2 * time.Millisecond
	DefaultTimeout = 5 * time.Second

	// Interface A bulk endpoints 0x02 (OUT) and 0x81 (IN).
	endpointOut = 0x02
	endpointIn  = 0x01
	portIndex   = 1
)

// Vendor control requests.
const (
	requestTypeOut = 0x40

	sioReset      = 0x00
	sioSetBaud    = 0x03
	sioSetLatency = 0x09
	sioSetBitmode = 0x0B

	resetSIO     = 0
	resetPurgeRX = 1
	resetPurgeTX = 2

	bitmodeReset   = 0x00
	bitmodeSyncBB  = 0x04
	statusBytes    = 2
	bitbangFactor  = 4
	defaultPacket  = 64
	maxReadPackets = 64
)

// ErrReadTimeout is returned when the device does not deliver the requested
// number of samples before the read timeout expires.
var ErrReadTimeout = errors.New("ftdi: read timed out")

// Config selects the device and its line settings.
type Config struct {
	VendorID  uint16
	ProductID uint16
	Serial    string // empty matches any device

	// Baud sets the bit-bang clock; the line state changes at 4 x Baud
	// bytes per second.
	Baud    int
	Latency time.Duration
	Timeout time.Duration
}

// DefaultConfig returns the settings for an FT232R at 9600 baud.
func DefaultConfig() Config {
	return Config{
		VendorID:  VendorIDFTDI,
		ProductID: ProductFT232R,
		Baud:      DefaultBaud,
		Latency:   DefaultLatency,
		Timeout:   DefaultTimeout,
	}
}

// The USB handles Device needs beyond open and close. gousb provides them;
// tests substitute canned packets.
type (
	controller interface {
		Control(rType, request uint8, val, idx uint16, data []byte) (int, error)
	}
	inEndpoint interface {
		ReadContext(ctx context.Context, buf []byte) (int, error)
	}
	outEndpoint interface {
		Write(buf []byte) (int, error)
	}
)

// Device is an open FTDI bridge in synchronous bit-bang mode.
type Device struct {
	cfg Config

	ctx  *gousb.Context
	dev  *gousb.Device
	intf *gousb.Interface
	done func()

	ctrl  controller
	epOut outEndpoint
	epIn  inEndpoint

	packetSize int
	direction  byte
	rx         []byte
}

// Open finds the device described by cfg, resets it and applies the latency
// timer and baud rate. Bit-bang mode is entered by SetDirection.
func Open(cfg Config) (*Device, error) {
	if cfg.Baud <= 0 {
		cfg.Baud = DefaultBaud
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	ctx, dev, err := openUSBDevice(gousb.ID(cfg.VendorID), gousb.ID(cfg.ProductID), cfg.Serial)
	if err != nil {
		return nil, err
	}
	if err := dev.SetAutoDetach(true); err != nil {
		glog.V(1).Infof("ftdi: auto detach: %v", err)
	}
	dev.ControlTimeout = cfg.Timeout

	d := &Device{cfg: cfg, ctx: ctx, dev: dev, ctrl: dev, packetSize: defaultPacket}
	if err := d.claim(); err != nil {
		d.Close()
		return nil, err
	}
	if err := d.setup(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// openUSBDevice opens the first device matching vid, pid and, when set,
// serial.
func openUSBDevice(vid, pid gousb.ID, serial string) (*gousb.Context, *gousb.Device, error) {
	uctx := gousb.NewContext()
	devs, err := uctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == vid && desc.Product == pid
	})
	// OpenDevices can fail on one device and still return the others.
	if err != nil && len(devs) == 0 {
		uctx.Close()
		return nil, nil, fmt.Errorf("ftdi: enumerate USB devices: %w", err)
	}
	var found *gousb.Device
	for _, dev := range devs {
		if found != nil {
			dev.Close()
			continue
		}
		sn, _ := dev.SerialNumber()
		glog.V(1).Infof("ftdi: candidate %s:%s serial %q", vid, pid, sn)
		if serial == "" || sn == serial {
			found = dev
		} else {
			dev.Close()
		}
	}
	if found == nil {
		uctx.Close()
		if serial != "" {
			return nil, nil, fmt.Errorf("ftdi: no device %s:%s with serial %q", vid, pid, serial)
		}
		return nil, nil, fmt.Errorf("ftdi: no device %s:%s found", vid, pid)
	}
	return uctx, found, nil
}

func (d *Device) claim() error {
	intf, done, err := d.dev.DefaultInterface()
	if err != nil {
		return fmt.Errorf("ftdi: claim interface: %w", err)
	}
	d.intf, d.done = intf, done

	out, err := intf.OutEndpoint(endpointOut)
	if err != nil {
		return fmt.Errorf("ftdi: open OUT endpoint: %w", err)
	}
	in, err := intf.InEndpoint(endpointIn)
	if err != nil {
		return fmt.Errorf("ftdi: open IN endpoint: %w", err)
	}
	if mps := in.Desc.MaxPacketSize; mps > statusBytes {
		d.packetSize = mps
	}
	d.epOut, d.epIn = out, in
	return nil
}

func (d *Device) setup() error {
	if err := d.control(sioReset, resetSIO, portIndex); err != nil {
		return fmt.Errorf("ftdi: reset: %w", err)
	}
	ms := int(d.cfg.Latency / time.Millisecond)
	if ms < 1 {
		ms = 1
	}
	if ms > 255 {
		ms = 255
	}
	if err := d.control(sioSetLatency, uint16(ms), portIndex); err != nil {
		return fmt.Errorf("ftdi: set latency timer: %w", err)
	}
	value, index, actual, err := baudDivisor(d.cfg.Baud * bitbangFactor)
	if err != nil {
		return err
	}
	if err := d.control(sioSetBaud, value, index); err != nil {
		return fmt.Errorf("ftdi: set baud rate: %w", err)
	}
	glog.V(1).Infof("ftdi: baud %d (clock %d Hz), latency %d ms", d.cfg.Baud, actual, ms)
	return d.Flush()
}

func (d *Device) control(request uint8, value, index uint16) error {
	_, err := d.ctrl.Control(requestTypeOut, request, value, index, nil)
	return err
}

// Close leaves bit-bang mode and releases the USB handles.
func (d *Device) Close() error {
	if d.ctrl != nil && d.direction != 0 {
		if err := d.control(sioSetBitmode, bitmodeReset<<8, portIndex); err != nil {
			glog.V(1).Infof("ftdi: reset bitmode: %v", err)
		}
	}
	if d.done != nil {
		d.done()
		d.done = nil
		d.intf = nil
	}
	if d.dev != nil {
		d.dev.Close()
		d.dev = nil
	}
	d.ctrl = nil
	if d.ctx != nil {
		d.ctx.Close()
		d.ctx = nil
	}
	return nil
}
