package cmd

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/OpenTraceLab/OpenTraceAVR/pkg/avr"
)

// progressLine redraws a single status line while a terminal is attached and
// falls back to one line per phase (with -v) otherwise.
type progressLine struct {
	w      io.Writer
	tty    bool
	phase  avr.Phase
	active bool
}

func newProgressLine(w io.Writer) *progressLine {
	p := &progressLine{w: w}
	if f, ok := w.(*os.File); ok {
		p.tty = term.IsTerminal(int(f.Fd()))
	}
	return p
}

func (p *progressLine) Update(pr avr.Progress) {
	if pr.Phase == avr.PhaseComplete {
		p.Done()
		return
	}
	if p.tty {
		if pr.Pages == 0 {
			fmt.Fprintf(p.w, "\r%-10s", pr.Phase)
		} else {
			fmt.Fprintf(p.w, "\r%-10s %4d/%-4d pages %7d bytes", pr.Phase, pr.Page, pr.Pages, pr.Bytes)
		}
		p.active = true
		return
	}
	if pr.Phase != p.phase && verbose {
		fmt.Fprintf(p.w, "%s...\n", pr.Phase)
	}
	p.phase = pr.Phase
}

// Done terminates a partially drawn line.
func (p *progressLine) Done() {
	if p.active {
		fmt.Fprintln(p.w)
		p.active = false
	}
}
