package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceAVR/pkg/idcode"
	"github.com/OpenTraceLab/OpenTraceAVR/pkg/idcode/deviceinfo"
)

var idcodeCmd = &cobra.Command{
	Use:   "idcode",
	Short: "Read and decode the target IDCODE",
	Args:  cobra.NoArgs,
	RunE:  runIDCode,
}

func init() {
	rootCmd.AddCommand(idcodeCmd)
}

func runIDCode(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	raw, err := s.programmer.ReadIDCode(ctx)
	if err != nil {
		return err
	}
	if err := idcode.ParseIDCode(raw).Validate(); err != nil {
		printFail("IDCODE 0x%08X", raw)
		return err
	}

	info := deviceinfo.Lookup(raw)
	fmt.Printf("IDCODE:       0x%08X\n", raw)
	fmt.Printf("Manufacturer: %s (0x%03X)\n", info.Manufacturer.Name, info.IDCode.ManufacturerCode)
	fmt.Printf("Part:         0x%04X  version %d\n", info.IDCode.PartNumber, info.IDCode.Version)
	fmt.Printf("Device:       %s\n", info.Name)
	if info.Known {
		fmt.Printf("Flash:        %d KiB, %d-byte pages\n", info.FlashBytes/1024, info.PageBytes)
		fmt.Printf("EEPROM:       %d bytes\n", info.EEPROMBytes)
	}
	return nil
}
