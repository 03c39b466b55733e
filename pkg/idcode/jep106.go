package idcode

import "fmt"

// Atmel is the JEP106 code of Atmel (now Microchip), the vendor of every AVR
// part with a JTAG interface.
const Atmel = 0x01F

// manufacturers holds the JEP106 entries likely to show up on a bench next
// to an AVR.
var manufacturers = map[uint16]Manufacturer{
	0x01F: {Code: 0x01F, Name: "Atmel"},
	0x029: {Code: 0x029, Name: "Microchip"},
	0x020: {Code: 0x020, Name: "STMicroelectronics"},
	0x017: {Code: 0x017, Name: "Texas Instruments"},
	0x015: {Code: 0x015, Name: "NXP (Philips)"},
	0x00E: {Code: 0x00E, Name: "Freescale (Motorola)"},
	0x049: {Code: 0x049, Name: "Xilinx"},
	0x06E: {Code: 0x06E, Name: "Altera"},
	0x23B: {Code: 0x23B, Name: "ARM"},
}

// LookupManufacturer returns the manufacturer for a JEP106 code. Unknown
// codes get a placeholder name and ok == false.
func LookupManufacturer(code uint16) (m Manufacturer, ok bool) {
	if m, ok = manufacturers[code]; ok {
		return m, true
	}
	return Manufacturer{Code: code, Name: fmt.Sprintf("Unknown (0x%03X)", code)}, false
}
