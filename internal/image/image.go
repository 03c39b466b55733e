// Package image loads the flash contents to program from an ELF executable
// or a raw binary file.
package image

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/golang/glog"
)

// Format selects how an image file is interpreted.
type Format string

const (
	FormatAuto   Format = "auto"
	FormatELF    Format = "elf"
	FormatBinary Format = "bin"
)

// ErrNoText is returned for ELF files without a .text section.
var ErrNoText = errors.New("image: ELF file has no .text section")

// ParseFormat accepts the names used on the command line.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "elf":
		return FormatELF, nil
	case "bin", "binary", "raw":
		return FormatBinary, nil
	}
	return "", fmt.Errorf("image: unknown format %q (want auto, elf or bin)", s)
}

// Options control Load.
type Options struct {
	Format Format
	// WithData appends the .data section, whose initial values avr-gcc
	// stores in flash directly after .text.
	WithData bool
}

// Load reads path and returns the bytes to write to flash starting at
// address 0.
func Load(path string, opts Options) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	format := opts.Format
	if format == FormatAuto || format == "" {
		format = FormatBinary
		if bytes.HasPrefix(raw, []byte(elf.ELFMAG)) {
			format = FormatELF
		}
	}
	glog.V(1).Infof("image: loading %s as %s", path, format)

	if format == FormatBinary {
		return raw, nil
	}
	img, err := FromELF(bytes.NewReader(raw), opts.WithData)
	if err != nil {
		return nil, fmt.Errorf("image: %s: %w", path, err)
	}
	return img, nil
}

// FromELF extracts the .text section and, when withData is set, the .data
// section from an ELF file.
func FromELF(r io.ReaderAt, withData bool) ([]byte, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if f.Machine != elf.EM_AVR {
		glog.Warningf("image: ELF machine is %s, not AVR", f.Machine)
	}
	text := f.Section(".text")
	if text == nil {
		return nil, ErrNoText
	}
	img, err := text.Data()
	if err != nil {
		return nil, fmt.Errorf("read .text: %w", err)
	}
	glog.V(2).Infof("image: .text %d bytes at 0x%X", len(img), text.Addr)

	if withData {
		if data := f.Section(".data"); data != nil && data.Type == elf.SHT_PROGBITS {
			b, err := data.Data()
			if err != nil {
				return nil, fmt.Errorf("read .data: %w", err)
			}
			glog.V(2).Infof("image: .data %d bytes", len(b))
			img = append(img, b...)
		}
	}
	return img, nil
}
