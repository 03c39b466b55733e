package avr

import (
	"bytes"
	"context"
	"fmt"

	"github.com/golang/glog"

	"github.com/OpenTraceLab/OpenTraceAVR/pkg/jtag"
)

// MaxFlashBytes is the largest flash reachable with 16-bit word addresses.
const MaxFlashBytes = 1 << 17

func checkSize(n int) error {
	if n < 0 || n > MaxFlashBytes {
		return fmt.Errorf("avr: %d bytes does not fit in %d bytes of flash", n, MaxFlashBytes)
	}
	return nil
}

// Page is one flash page worth of an image.
type Page struct {
	Offset  int    // byte offset in the image
	Address uint16 // flash word address
	Data    []byte // PageBytes long, zero padded
	Len     int    // image bytes in the page
}

// Pages splits image into flash pages in ascending address order. The last
// page is padded with zeros.
func Pages(image []byte) []Page {
	pages := make([]Page, 0, (len(image)+PageBytes-1)/PageBytes)
	for off := 0; off < len(image); off += PageBytes {
		end := off + PageBytes
		if end > len(image) {
			end = len(image)
		}
		data := make([]byte, PageBytes)
		copy(data, image[off:end])
		pages = append(pages, Page{
			Offset:  off,
			Address: uint16(off >> 1),
			Data:    data,
			Len:     end - off,
		})
	}
	return pages
}

// ProgramFlash erases the chip, writes image to flash page by page and, when
// verify is set, reads every page back and compares it. A mismatch aborts
// immediately with a *VerificationError and leaves the device in programming
// mode; there is no rollback.
func (p *Programmer) ProgramFlash(ctx context.Context, image []byte, verify bool) error {
	if err := checkSize(len(image)); err != nil {
		return err
	}
	if err := p.enter(); err != nil {
		return err
	}
	if err := p.chipErase(ctx); err != nil {
		return err
	}
	if err := p.writeFlash(ctx, image); err != nil {
		return err
	}
	if verify {
		if err := p.verifyFlash(ctx, image); err != nil {
			return err
		}
	}
	if err := p.ExitProgramming(ctx); err != nil {
		return err
	}
	p.report(Progress{Phase: PhaseComplete, Bytes: len(image)})
	return nil
}

// ChipErase clears flash (and EEPROM unless preserved by fuses) and leaves
// programming mode.
func (p *Programmer) ChipErase(ctx context.Context) error {
	if err := p.enter(); err != nil {
		return err
	}
	if err := p.chipErase(ctx); err != nil {
		return err
	}
	return p.ExitProgramming(ctx)
}

// VerifyFlash compares flash contents with image without programming.
func (p *Programmer) VerifyFlash(ctx context.Context, image []byte) error {
	if err := checkSize(len(image)); err != nil {
		return err
	}
	if err := p.enter(); err != nil {
		return err
	}
	if err := p.verifyFlash(ctx, image); err != nil {
		return err
	}
	return p.ExitProgramming(ctx)
}

// ReadFlash returns the first size bytes of flash.
func (p *Programmer) ReadFlash(ctx context.Context, size int) ([]byte, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}
	if err := p.enter(); err != nil {
		return nil, err
	}
	if _, err := p.command(cmdEnterFlashRead); err != nil {
		return nil, err
	}
	p.state = StateReadingFlash

	pages := (size + PageBytes - 1) / PageBytes
	out := make([]byte, 0, pages*PageBytes)
	for i := 0; i < pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := p.readPage(uint16(i * PageBytes >> 1))
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
		p.report(Progress{Phase: PhaseReading, Page: i + 1, Pages: pages, Bytes: len(out)})
	}
	if err := p.ExitProgramming(ctx); err != nil {
		return nil, err
	}
	return out[:size], nil
}

func (p *Programmer) chipErase(ctx context.Context) error {
	p.state = StateErasing
	p.report(Progress{Phase: PhaseErasing})
	glog.V(1).Info("avr: chip erase")
	if err := p.commands(chipEraseSeq); err != nil {
		return fmt.Errorf("avr: chip erase: %w", err)
	}
	return p.wait(ctx, p.config.EraseDelay)
}

func (p *Programmer) writeFlash(ctx context.Context, image []byte) error {
	if _, err := p.command(cmdEnterFlashWrite); err != nil {
		return err
	}
	p.state = StateWritingFlash

	pages := Pages(image)
	written := 0
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		glog.V(2).Infof("avr: write page %d/%d at word 0x%04X", i+1, len(pages), page.Address)
		if err := p.loadAddress(page.Address); err != nil {
			return err
		}
		if _, err := p.ex.Execute(jtag.ProgPageLoad, page.Data); err != nil {
			return fmt.Errorf("avr: load page at offset %d: %w", page.Offset, err)
		}
		if err := p.commands(pageWriteSeq); err != nil {
			return fmt.Errorf("avr: write page at offset %d: %w", page.Offset, err)
		}
		if err := p.wait(ctx, p.config.PageWriteDelay); err != nil {
			return err
		}
		written += page.Len
		p.report(Progress{Phase: PhaseWriting, Page: i + 1, Pages: len(pages), Bytes: written})
	}
	return nil
}

func (p *Programmer) verifyFlash(ctx context.Context, image []byte) error {
	if _, err := p.command(cmdEnterFlashRead); err != nil {
		return err
	}
	p.state = StateReadingFlash

	pages := Pages(image)
	checked := 0
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		read, err := p.readPage(page.Address)
		if err != nil {
			return err
		}
		want, got := page.Data[:page.Len], read[:page.Len]
		if !bytes.Equal(got, want) {
			return &VerificationError{
				Offset:   page.Offset,
				Mismatch: page.Offset + firstDifference(want, got),
				Expected: append([]byte(nil), want...),
				Actual:   append([]byte(nil), got...),
			}
		}
		checked += page.Len
		p.report(Progress{Phase: PhaseVerifying, Page: i + 1, Pages: len(pages), Bytes: checked})
	}
	return nil
}

// readPage loads the word address and shifts out one page. The first byte of
// the PROG_PAGEREAD register precedes the page data and is dropped.
func (p *Programmer) readPage(word uint16) ([]byte, error) {
	if err := p.loadAddress(word); err != nil {
		return nil, err
	}
	out, err := p.ex.Execute(jtag.ProgPageRead, jtag.Uint(0, jtag.ProgPageRead.Bits()))
	if err != nil {
		return nil, fmt.Errorf("avr: read page at word 0x%04X: %w", word, err)
	}
	if len(out) < PageBytes+1 {
		return nil, fmt.Errorf("avr: read page at word 0x%04X: got %d bytes", word, len(out))
	}
	return out[1 : PageBytes+1], nil
}
