package idcode

import "fmt"

// IDCode is a parsed IEEE 1149.1 device identification register.
type IDCode struct {
	Raw              uint32
	Version          uint8  // [31:28]
	PartNumber       uint16 // [27:12]
	ManufacturerCode uint16 // [11:1] JEP106, bank in the upper bits
	HasIDCode        bool   // bit 0 == 1
}

func (id IDCode) String() string {
	return fmt.Sprintf("0x%08X (version %d, part 0x%04X, manufacturer 0x%03X)",
		id.Raw, id.Version, id.PartNumber, id.ManufacturerCode)
}

// Manufacturer is a JEP106 manufacturer entry.
type Manufacturer struct {
	Code uint16
	Name string
}
