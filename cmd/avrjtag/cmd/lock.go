package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Write the lock bits",
}

var lockWriteCmd = &cobra.Command{
	Use:   "write <value>",
	Short: "Program the lock byte",
	Long: `Program the lock bits. Only bits 5:0 are used; a cleared bit enables the
corresponding protection. Lock bits can only be set again by a chip erase.`,
	Args: cobra.ExactArgs(1),
	RunE: runLockWrite,
}

func init() {
	rootCmd.AddCommand(lockCmd)
	lockCmd.AddCommand(lockWriteCmd)
}

func runLockWrite(cmd *cobra.Command, args []string) error {
	v, err := parseNumber("lock", args[0])
	if err != nil {
		return err
	}
	if v < 0 || v > 0xFF {
		return fmt.Errorf("lock value 0x%X does not fit in 8 bits", v)
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	if _, err := identify(ctx, s, -1); err != nil {
		return err
	}
	if err := s.programmer.ProgramLockBits(ctx, uint8(v)); err != nil {
		return err
	}
	printOK("lock bits 0x%02X written", 0xC0|v)
	return nil
}
