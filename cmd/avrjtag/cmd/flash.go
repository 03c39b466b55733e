package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceAVR/internal/image"
	"github.com/OpenTraceLab/OpenTraceAVR/pkg/avr"
)

var (
	noVerify    bool
	imageFormat string
	withData    bool
)

var flashCmd = &cobra.Command{
	Use:   "flash <image>",
	Short: "Erase the chip and program flash",
	Long: `Erase the whole chip, write the image to flash page by page and read every
page back to compare it with the image. The image is the .text section of an
ELF file or a raw binary loaded at address 0.

A verification failure stops immediately and leaves the part in programming
mode; nothing is rolled back.`,
	Args: cobra.ExactArgs(1),
	RunE: runFlash,
}

var verifyCmd = &cobra.Command{
	Use:   "verify <image>",
	Short: "Compare flash with an image",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func init() {
	rootCmd.AddCommand(flashCmd)
	rootCmd.AddCommand(verifyCmd)

	flashCmd.Flags().BoolVar(&noVerify, "noverify", false, "do not verify after programming")
	for _, c := range []*cobra.Command{flashCmd, verifyCmd} {
		c.Flags().StringVar(&imageFormat, "format", "auto", "image format (auto, elf, bin)")
		c.Flags().BoolVar(&withData, "data", false, "append the ELF .data section to .text")
	}
}

func loadImage(path string) ([]byte, error) {
	format, err := image.ParseFormat(imageFormat)
	if err != nil {
		return nil, err
	}
	img, err := image.Load(path, image.Options{Format: format, WithData: withData})
	if err != nil {
		return nil, err
	}
	if len(img) == 0 {
		return nil, fmt.Errorf("%s: image is empty", path)
	}
	return img, nil
}

func runFlash(cmd *cobra.Command, args []string) error {
	img, err := loadImage(args[0])
	if err != nil {
		return err
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	if _, err := identify(ctx, s, len(img)); err != nil {
		return err
	}
	verify := s.cfg.Verify && !noVerify
	start := time.Now()
	err = s.programmer.ProgramFlash(ctx, img, verify)
	s.progress.Done()
	if err != nil {
		reportVerifyError(err)
		return err
	}

	what := "programmed"
	if verify {
		what = "programmed and verified"
	}
	printOK("%s %d bytes (%d pages) in %s", what, len(img), len(avr.Pages(img)), time.Since(start).Round(time.Millisecond))
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	img, err := loadImage(args[0])
	if err != nil {
		return err
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	if _, err := identify(ctx, s, len(img)); err != nil {
		return err
	}
	err = s.programmer.VerifyFlash(ctx, img)
	s.progress.Done()
	if err != nil {
		reportVerifyError(err)
		return err
	}
	printOK("flash matches %s (%d bytes)", args[0], len(img))
	return nil
}

func reportVerifyError(err error) {
	var verr *avr.VerificationError
	if errors.As(err, &verr) {
		printFail("flash differs from image at byte 0x%05X (page at 0x%05X)", verr.Mismatch, verr.Offset)
	}
}
