package main

import "github.com/OpenTraceLab/OpenTraceAVR/cmd/avrjtag/cmd"

func main() {
	cmd.Execute()
}
