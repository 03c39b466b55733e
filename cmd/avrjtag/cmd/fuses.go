package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceAVR/pkg/avr"
)

var (
	fuseValue     string
	extendedValue string
)

var fusesCmd = &cobra.Command{
	Use:   "fuses",
	Short: "Read or write the fuse bytes",
}

var fusesReadCmd = &cobra.Command{
	Use:   "read",
	Short: "Show the fuse and lock bytes",
	Args:  cobra.NoArgs,
	RunE:  runFusesRead,
}

var fusesWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Program the extended, high and low fuse bytes",
	Long: `Program the fuse bytes. --fuses carries the high byte in bits 15:8 and the
low byte in bits 7:0. Bytes are written extended first, then high, then low.

Example:
  avrjtag fuses write --fuses 0x99E2 --extended 0xFB`,
	Args: cobra.NoArgs,
	RunE: runFusesWrite,
}

func init() {
	rootCmd.AddCommand(fusesCmd)
	fusesCmd.AddCommand(fusesReadCmd)
	fusesCmd.AddCommand(fusesWriteCmd)

	fusesWriteCmd.Flags().StringVar(&fuseValue, "fuses", "", "high and low fuse bytes as one 16-bit value")
	fusesWriteCmd.Flags().StringVar(&extendedValue, "extended", "", "extended fuse byte")
	fusesWriteCmd.MarkFlagRequired("fuses")
	fusesWriteCmd.MarkFlagRequired("extended")
}

// parseNumber accepts decimal, 0x hex, 0o octal and 0b binary. Range checks
// are left to the programmer.
func parseNumber(name, s string) (int, error) {
	v, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("--%s: %q is not a number", name, s)
	}
	return int(v), nil
}

func printFuses(fs avr.FuseSet) {
	fmt.Printf("Extended fuse: 0x%02X\n", fs.Extended)
	fmt.Printf("High fuse:     0x%02X\n", fs.High())
	fmt.Printf("Low fuse:      0x%02X\n", fs.Low())
	fmt.Printf("Lock bits:     0x%02X\n", fs.Lock)
}

func runFusesRead(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	info, err := identify(ctx, s, -1)
	if err != nil {
		return err
	}
	if err := checkFuseLayout(info); err != nil {
		return err
	}
	fs, err := s.programmer.ReadFusesLocks(ctx)
	if err != nil {
		return err
	}
	if err := s.programmer.ExitProgramming(ctx); err != nil {
		return err
	}
	printFuses(fs)
	return nil
}

func runFusesWrite(cmd *cobra.Command, args []string) error {
	fuses, err := parseNumber("fuses", fuseValue)
	if err != nil {
		return err
	}
	extended, err := parseNumber("extended", extendedValue)
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	info, err := identify(ctx, s, -1)
	if err != nil {
		return err
	}
	if err := checkFuseLayout(info); err != nil {
		return err
	}
	if err := s.programmer.ProgramFuses(ctx, fuses, extended); err != nil {
		return err
	}
	s.progress.Done()

	if !s.cfg.Verify {
		printOK("fuses written")
		return nil
	}
	fs, err := s.programmer.ReadFusesLocks(ctx)
	if err != nil {
		return err
	}
	if err := s.programmer.ExitProgramming(ctx); err != nil {
		return err
	}
	if int(fs.Fuses) != fuses || int(fs.Extended) != extended {
		printFail("read back fuses 0x%04X extended 0x%02X", fs.Fuses, fs.Extended)
		return fmt.Errorf("fuse verification failed")
	}
	printOK("fuses 0x%04X extended 0x%02X written and verified", fuses, extended)
	return nil
}
