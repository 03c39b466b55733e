package deviceinfo

import "github.com/OpenTraceLab/OpenTraceAVR/pkg/idcode"

// DeviceInfo describes a JTAG-programmable part.
type DeviceInfo struct {
	IDCode       idcode.IDCode
	Manufacturer idcode.Manufacturer

	Name        string // "ATmega162"
	Family      string // "megaAVR"
	Description string

	// Memory layout, zero when unknown.
	FlashBytes  int
	PageBytes   int
	EEPROMBytes int

	// FuseBytes is 3 for parts with an extended fuse byte read and written
	// in the ATmega162 order, 2 for parts with only high and low fuses.
	FuseBytes int

	Known bool
}

// FitsImage reports whether an image of n bytes fits in flash. Unknown parts
// accept any size.
func (d DeviceInfo) FitsImage(n int) bool {
	return d.FlashBytes == 0 || n <= d.FlashBytes
}

// HasExtendedFuse reports whether the part uses the extended, high, low fuse
// layout. Unknown parts are assumed to.
func (d DeviceInfo) HasExtendedFuse() bool {
	return d.FuseBytes == 0 || d.FuseBytes == 3
}
