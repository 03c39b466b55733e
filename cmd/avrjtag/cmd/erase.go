package cmd

import "github.com/spf13/cobra"

var eraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Chip erase: clear flash and lock bits",
	Args:  cobra.NoArgs,
	RunE:  runErase,
}

func init() {
	rootCmd.AddCommand(eraseCmd)
}

func runErase(cmd *cobra.Command, args []string) error {
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
	if err := s.programmer.ChipErase(ctx); err != nil {
		return err
	}
	s.progress.Done()
	printOK("chip erased")
	return nil
}
