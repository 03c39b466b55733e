package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	// Read in background to prevent pipe buffer from blocking
	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		buf.ReadFrom(r)
		close(done)
	}()

	// Reset flags to prevent accumulation between tests
	resetFlags(rootCmd)

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	w.Close()
	os.Stdout = old
	<-done
	return buf.String(), err
}

// resetFlags restores every flag to its default and clears Changed so that
// required-flag checks see each run fresh.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i * 13)
	}
	return b
}

func TestCommandsE2E(t *testing.T) {
	firmware := writeTemp(t, "fw.bin", pattern(300))
	erased := writeTemp(t, "erased.bin", bytes.Repeat([]byte{0xFF}, 256))
	tooBig := writeTemp(t, "big.bin", pattern(16*1024+1))
	badProfile := writeTemp(t, "bad.yaml", []byte("adapter:\n  baud: -1\n"))

	tests := []struct {
		name        string
		args        []string
		wantErr     bool
		wantContain []string
	}{
		{
			name:        "idcode",
			args:        []string{"--sim", "idcode"},
			wantContain: []string{"0x8940403F", "Atmel", "ATmega162", "16 KiB, 128-byte pages"},
		},
		{
			name:        "flash and verify",
			args:        []string{"--sim", "flash", firmware},
			wantContain: []string{"OK", "programmed and verified 300 bytes (3 pages)"},
		},
		{
			name:        "flash without verify",
			args:        []string{"--sim", "flash", "--noverify", "--format", "bin", firmware},
			wantContain: []string{"programmed 300 bytes (3 pages)"},
		},
		{
			name:    "image larger than flash",
			args:    []string{"--sim", "flash", tooBig},
			wantErr: true,
		},
		{
			name:    "missing image",
			args:    []string{"--sim", "flash", filepath.Join(t.TempDir(), "none.bin")},
			wantErr: true,
		},
		{
			name:        "verify erased part",
			args:        []string{"--sim", "verify", erased},
			wantContain: []string{"flash matches"},
		},
		{
			name:        "verify mismatch",
			args:        []string{"--sim", "verify", firmware},
			wantErr:     true,
			wantContain: []string{"FAIL", "byte 0x00000"},
		},
		{
			name:        "erase",
			args:        []string{"--sim", "erase"},
			wantContain: []string{"chip erased"},
		},
		{
			name:        "fuses read",
			args:        []string{"--sim", "fuses", "read"},
			wantContain: []string{"Extended fuse: 0xFF", "High fuse:     0x99", "Low fuse:      0x62", "Lock bits:     0xFF"},
		},
		{
			name:        "fuses write",
			args:        []string{"--sim", "fuses", "write", "--fuses", "0x19DC", "--extended", "0xF9"},
			wantContain: []string{"fuses 0x19DC extended 0xF9 written and verified"},
		},
		{
			name:    "fuses out of range",
			args:    []string{"--sim", "fuses", "write", "--fuses", "0x10000", "--extended", "0xFF"},
			wantErr: true,
		},
		{
			name:    "fuses not a number",
			args:    []string{"--sim", "fuses", "write", "--fuses", "high", "--extended", "0xFF"},
			wantErr: true,
		},
		{
			name:    "fuses flag required",
			args:    []string{"--sim", "fuses", "write", "--extended", "0xFF"},
			wantErr: true,
		},
		{
			name:    "extended flag required",
			args:    []string{"--sim", "fuses", "write", "--fuses", "0x99E2"},
			wantErr: true,
		},
		{
			name:        "idcode ATmega16",
			args:        []string{"--sim", "--sim-idcode", "0x8940303F", "idcode"},
			wantContain: []string{"0x8940303F", "ATmega16"},
		},
		{
			name:        "flash ATmega16",
			args:        []string{"--sim", "--sim-idcode", "0x8940303F", "flash", firmware},
			wantContain: []string{"programmed and verified 300 bytes (3 pages)"},
		},
		{
			name:    "fuses read refused on ATmega16",
			args:    []string{"--sim", "--sim-idcode", "0x8940303F", "fuses", "read"},
			wantErr: true,
		},
		{
			name:    "fuses write refused on ATmega32",
			args:    []string{"--sim", "--sim-idcode", "0x8950203F", "fuses", "write", "--fuses", "0x99E2", "--extended", "0xFF"},
			wantErr: true,
		},
		{
			name:        "lock write",
			args:        []string{"--sim", "lock", "write", "0x3C"},
			wantContain: []string{"lock bits 0xFC written"},
		},
		{
			name:    "invalid profile",
			args:    []string{"--sim", "--config", badProfile, "idcode"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := execute(t, tt.args...)
			if tt.wantErr && err == nil {
				t.Errorf("Expected error but got none\nOutput: %s", output)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected error: %v\nOutput: %s", err, output)
				return
			}
			for _, want := range tt.wantContain {
				if !strings.Contains(output, want) {
					t.Errorf("Output missing expected string: %q\nGot:\n%s", want, output)
				}
			}
		})
	}
}

func TestReadE2E(t *testing.T) {
	out := filepath.Join(t.TempDir(), "dump.bin")

	output, err := execute(t, "--sim", "read", "--size", "200", out)
	if err != nil {
		t.Fatalf("read failed: %v\nOutput: %s", err, output)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.Equal(data, bytes.Repeat([]byte{0xFF}, 200)) {
		t.Fatalf("dump of an erased part is not all 0xFF")
	}

	if _, err := execute(t, "--sim", "read", out); err != nil {
		t.Fatalf("read whole flash failed: %v", err)
	}
	if fi, err := os.Stat(out); err != nil || fi.Size() != 16*1024 {
		t.Fatalf("whole flash dump size = %v, %v", fi, err)
	}
}

func TestFusesRefusedWithoutExtendedFuse(t *testing.T) {
	output, err := execute(t, "--sim", "--sim-idcode", "0x8940303F", "fuses", "read")
	if err == nil {
		t.Fatalf("fuses read on ATmega16 succeeded\nOutput: %s", output)
	}
	if !strings.Contains(err.Error(), "ATmega16 has no extended fuse byte") {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(output, "Extended fuse:") {
		t.Fatalf("fuse values printed for a refused part:\n%s", output)
	}
}
