package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var readSize int

var readCmd = &cobra.Command{
	Use:   "read <output>",
	Short: "Read flash into a raw binary file",
	Long: `Read flash from address 0 and write it to a raw binary file. Without --size
the whole flash of a recognised part is read.`,
	Args: cobra.ExactArgs(1),
	RunE: runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)
	readCmd.Flags().IntVar(&readSize, "size", 0, "number of bytes to read (default: whole flash)")
}

func runRead(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	info, err := identify(ctx, s, readSize)
	if err != nil {
		return err
	}
	size := readSize
	if size == 0 {
		if info.FlashBytes == 0 {
			return fmt.Errorf("unknown device: use --size")
		}
		size = info.FlashBytes
	}

	data, err := s.programmer.ReadFlash(ctx, size)
	s.progress.Done()
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[0], data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", args[0], err)
	}
	printOK("read %d bytes into %s", len(data), args[0])
	return nil
}
