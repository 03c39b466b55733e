package deviceinfo

import "github.com/OpenTraceLab/OpenTraceAVR/pkg/idcode"

// AVR parts with a JTAG programming interface. The part number is the second
// and third signature byte.
func init() {
	mega := func(part uint16, name string, flashKB, pageBytes, eepromBytes, fuseBytes int) {
		register(key{ManufacturerCode: idcode.Atmel, PartNumber: part}, DeviceInfo{
			Name:        name,
			Family:      "megaAVR",
			Description: "8-bit AVR MCU",
			FlashBytes:  flashKB * 1024,
			PageBytes:   pageBytes,
			EEPROMBytes: eepromBytes,
			FuseBytes:   fuseBytes,
		})
	}

	mega(0x9403, "ATmega16", 16, 128, 512, 2)
	mega(0x9404, "ATmega162", 16, 128, 512, 3)
	mega(0x9405, "ATmega169", 16, 128, 512, 3)
	mega(0x9407, "ATmega165", 16, 128, 512, 3)
	mega(0x940A, "ATmega164P", 16, 128, 512, 3)
	mega(0x9501, "ATmega323", 32, 128, 1024, 2)
	mega(0x9502, "ATmega32", 32, 128, 1024, 2)
	mega(0x9503, "ATmega329", 32, 128, 1024, 3)
	mega(0x9508, "ATmega324P", 32, 128, 1024, 3)
	mega(0x9602, "ATmega64", 64, 256, 2048, 3)
	mega(0x9609, "ATmega644", 64, 256, 2048, 3)
	mega(0x9702, "ATmega128", 128, 256, 4096, 3)
	mega(0x9704, "ATmega1281", 128, 256, 4096, 3)

	register(key{ManufacturerCode: idcode.Atmel, PartNumber: 0x9781}, DeviceInfo{
		Name:        "AT90CAN128",
		Family:      "AT90CAN",
		Description: "8-bit AVR MCU with CAN controller",
		FlashBytes:  128 * 1024,
		PageBytes:   256,
		EEPROMBytes: 4096,
		FuseBytes:   3,
	})
}
