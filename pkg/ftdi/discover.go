package ftdi

import (
	"context"
	"fmt"

	"github.com/google/gousb"
)

// DeviceInfo describes an attached FTDI bridge.
type DeviceInfo struct {
	Description string
	VendorID    uint16
	ProductID   uint16
	Serial      string
	Bus         int
	Address     int
}

// Label returns a user-friendly description for the device.
func (i DeviceInfo) Label() string {
	s := fmt.Sprintf("%s (%04X:%04X)", i.Description, i.VendorID, i.ProductID)
	if i.Serial != "" {
		s += " serial " + i.Serial
	}
	return s
}

type knownUSBDevice struct {
	VendorID    uint16
	ProductID   uint16
	Description string
}

var knownBridges = []knownUSBDevice{
	{VendorID: VendorIDFTDI, ProductID: ProductFT232R, Description: "FTDI FT232R"},
	{VendorID: VendorIDFTDI, ProductID: ProductFT231X, Description: "FTDI FT230X/FT231X"},
}

func classify(vid, pid uint16) (knownUSBDevice, bool) {
	for _, known := range knownBridges {
		if known.VendorID == vid && known.ProductID == pid {
			return known, true
		}
	}
	return knownUSBDevice{}, false
}

// Discover lists attached FTDI bridges that can drive the JTAG lines.
// Devices that cannot be opened for lack of permission are still listed
// without a serial number.
func Discover(ctx context.Context) ([]DeviceInfo, error) {
	usb := gousb.NewContext()
	defer usb.Close()

	var results []DeviceInfo
	devs, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		known, ok := classify(uint16(desc.Vendor), uint16(desc.Product))
		if !ok {
			return false
		}
		results = append(results, DeviceInfo{
			Description: known.Description,
			VendorID:    known.VendorID,
			ProductID:   known.ProductID,
			Bus:         desc.Bus,
			Address:     desc.Address,
		})
		return true
	})
	for _, dev := range devs {
		sn, _ := dev.SerialNumber()
		for i := range results {
			if results[i].Bus == dev.Desc.Bus && results[i].Address == dev.Desc.Address {
				results[i].Serial = sn
			}
		}
		dev.Close()
	}
	if err != nil && err != gousb.ErrorAccess {
		return results, fmt.Errorf("ftdi: enumerate USB devices: %w", err)
	}
	return results, ctx.Err()
}
