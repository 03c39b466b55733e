package cmd

import (
	"context"
	"fmt"

	"github.com/OpenTraceLab/OpenTraceAVR/pkg/avr"
	"github.com/OpenTraceLab/OpenTraceAVR/pkg/idcode"
	"github.com/OpenTraceLab/OpenTraceAVR/pkg/idcode/deviceinfo"
)

// identify reads the IDCODE and refuses parts the programmer cannot handle:
// no response, flash pages other than 128 bytes, or an image that does not
// fit. imageSize < 0 skips the size check.
func identify(ctx context.Context, s *session, imageSize int) (deviceinfo.DeviceInfo, error) {
	raw, err := s.programmer.ReadIDCode(ctx)
	if err != nil {
		return deviceinfo.DeviceInfo{}, err
	}
	if err := idcode.ParseIDCode(raw).Validate(); err != nil {
		return deviceinfo.DeviceInfo{}, fmt.Errorf("check JTAG wiring and target power: %w", err)
	}
	info := deviceinfo.Lookup(raw)
	if !info.Known {
		printWarn("unknown device %s, assuming %d-byte flash pages", info.IDCode, avr.PageBytes)
		return info, nil
	}
	if verbose {
		fmt.Printf("Target: %s (%s, %d KiB flash)\n", info.Name, info.IDCode, info.FlashBytes/1024)
	}
	if info.PageBytes != avr.PageBytes {
		return info, fmt.Errorf("%s uses %d-byte flash pages; only %d-byte pages are supported",
			info.Name, info.PageBytes, avr.PageBytes)
	}
	if imageSize >= 0 && !info.FitsImage(imageSize) {
		return info, fmt.Errorf("image is %d bytes but %s has %d bytes of flash", imageSize, info.Name, info.FlashBytes)
	}
	return info, nil
}

// checkFuseLayout refuses parts whose fuse bytes are not read and written in
// the extended, high, low order the programmer uses.
func checkFuseLayout(info deviceinfo.DeviceInfo) error {
	if !info.HasExtendedFuse() {
		return fmt.Errorf("%s has no extended fuse byte; its fuse layout is not supported", info.Name)
	}
	return nil
}
