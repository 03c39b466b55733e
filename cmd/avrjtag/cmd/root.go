package cmd

import (
	goflag "flag"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbosity  int
	configPath string
	serial     string
	vid        uint16
	pid        uint16
	useSim     bool
	simIDCode  uint32

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "avrjtag",
	Short: "AVR JTAG programmer for FT232R bit-bang adapters",
	Long: `Program the flash, fuses and lock bits of JTAG-capable AVR parts
(ATmega162/165/169/324P/...) through an FTDI FT232R driven in synchronous
bit-bang mode.

Examples:
  avrjtag idcode                              # Identify the target
  avrjtag flash firmware.elf                  # Erase, program and verify flash
  avrjtag flash --noverify firmware.bin       # Program a raw binary without read-back
  avrjtag fuses read                          # Show fuse and lock bytes
  avrjtag fuses write --fuses 0x99E2 --extended 0xFB
  avrjtag --sim flash firmware.elf            # Dry run against a simulated ATmega162

Fuse commands need the ATmega162 fuse layout with an extended fuse byte;
parts without one (ATmega16, ATmega32, ATmega323) are refused.`,
	Version:           "0.9.0",
	SilenceUsage:      true,
	PersistentPreRunE: configureLogging,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.CountVarP(&verbosity, "verbose", "v", "verbose output; repeat for transfer traces")
	pf.StringVar(&configPath, "config", "", "YAML adapter profile")
	pf.StringVar(&serial, "serial", "", "adapter serial number (if multiple adapters)")
	pf.Uint16Var(&vid, "vid", 0, "adapter USB vendor ID (default from profile, 0x0403)")
	pf.Uint16Var(&pid, "pid", 0, "adapter USB product ID (default from profile, 0x6001)")
	pf.BoolVar(&useSim, "sim", false, "use a simulated target instead of hardware")
	pf.Uint32Var(&simIDCode, "sim-idcode", 0x8940403F, "IDCODE reported by the simulated target")
}

// configureLogging maps -v levels onto glog verbosity and sends glog output
// to stderr.
func configureLogging(cmd *cobra.Command, args []string) error {
	verbose = verbosity > 0
	if err := goflag.Set("logtostderr", "true"); err != nil {
		return err
	}
	return goflag.Set("v", strconv.Itoa(verbosity))
}
