package idcode

import (
	"errors"
	"fmt"
)

// ErrNoDevice is returned for register values that cannot come from a device
// implementing IDCODE: all zeros or all ones usually mean TDO is not connected
// or the target is unpowered.
var ErrNoDevice = errors.New("idcode: no device responding")

// ParseIDCode splits a raw 32-bit IDCODE into its fields.
func ParseIDCode(raw uint32) IDCode {
	return IDCode{
		Raw:              raw,
		Version:          uint8(raw >> 28),
		PartNumber:       uint16(raw >> 12),
		ManufacturerCode: uint16(raw>>1) & 0x7FF,
		HasIDCode:        raw&1 == 1,
	}
}

// Validate rejects values a real device never returns. The manufacturer
// code 0x7F is reserved by JEP106 for the continuation marker.
func (id IDCode) Validate() error {
	switch {
	case id.Raw == 0, id.Raw == 0xFFFFFFFF:
		return fmt.Errorf("%w: read 0x%08X", ErrNoDevice, id.Raw)
	case !id.HasIDCode:
		return fmt.Errorf("idcode: 0x%08X has bit 0 clear", id.Raw)
	case id.ManufacturerCode&0x7F == 0x7F:
		return fmt.Errorf("idcode: 0x%08X has an invalid manufacturer code", id.Raw)
	}
	return nil
}
