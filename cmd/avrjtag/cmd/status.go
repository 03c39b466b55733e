package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	okLabel   = color.New(color.FgGreen, color.Bold)
	failLabel = color.New(color.FgRed, color.Bold)
	warnLabel = color.New(color.FgYellow)
)

func printOK(format string, args ...interface{}) {
	okLabel.Fprint(os.Stdout, "OK")
	fmt.Printf("   "+format+"\n", args...)
}

func printFail(format string, args ...interface{}) {
	failLabel.Fprint(os.Stdout, "FAIL")
	fmt.Printf(" "+format+"\n", args...)
}

func printWarn(format string, args ...interface{}) {
	warnLabel.Fprintf(os.Stdout, "warning: "+format+"\n", args...)
}

// commandContext is cancelled on interrupt so an unbounded poll can be
// stopped from the keyboard.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt)
}
