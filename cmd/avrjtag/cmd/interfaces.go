package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceAVR/pkg/ftdi"
)

var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "List attached FTDI adapters",
	Long: `Scan the host for FTDI USB bridges that can drive the JTAG lines in bit-bang
mode and print their IDs and serial numbers. Use this to verify connectivity or
pick a --serial when several adapters are attached.`,
	Args: cobra.NoArgs,
	RunE: runInterfaces,
}

func init() {
	rootCmd.AddCommand(interfacesCmd)
}

func runInterfaces(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	infos, err := ftdi.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discover interfaces: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No FTDI adapters found.")
	} else {
		fmt.Println("Detected FTDI adapters:")
		for _, info := range infos {
			fmt.Printf("  - %s (bus %d, address %d)\n", info.Label(), info.Bus, info.Address)
		}
	}
	fmt.Println("  - Simulated ATmega162 (--sim)")
	return nil
}
