package cmd

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceAVR/internal/config"
	"github.com/OpenTraceLab/OpenTraceAVR/pkg/avr"
	"github.com/OpenTraceLab/OpenTraceAVR/pkg/avr/avrsim"
	"github.com/OpenTraceLab/OpenTraceAVR/pkg/ftdi"
	"github.com/OpenTraceLab/OpenTraceAVR/pkg/idcode/deviceinfo"
	"github.com/OpenTraceLab/OpenTraceAVR/pkg/jtag"
)

// session owns the transport and the programmer for one command.
type session struct {
	cfg        *config.Config
	codec      *jtag.Codec
	programmer *avr.Programmer
	progress   *progressLine
	sim        *jtag.SimTransport
	close      func() error
}

func (s *session) Close() error {
	s.progress.Done()
	glog.V(1).Infof("session: %d JTAG transactions", s.codec.Transactions())
	if s.sim != nil && glog.V(2) {
		for _, shift := range s.sim.History() {
			glog.Infof("sim: IR 0x%X, %d bits in, TDI %X", shift.IR, shift.Bits, shift.TDI[:min(len(shift.TDI), 4)])
		}
	}
	if s.close == nil {
		return nil
	}
	return s.close()
}

// loadConfig reads the profile and applies command line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("serial") {
		cfg.Adapter.Serial = serial
	}
	if flags.Changed("vid") {
		cfg.Adapter.VID = vid
	}
	if flags.Changed("pid") {
		cfg.Adapter.PID = pid
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// simTarget builds the simulated part selected by --sim-idcode. Parts in the
// device database get their flash size; others get 16 KiB.
func simTarget() *avrsim.Target {
	flash := 16 * 1024
	if info := deviceinfo.Lookup(simIDCode); info.Known && info.FlashBytes > 0 {
		flash = info.FlashBytes
	}
	target := avrsim.New(flash)
	target.IDCode = simIDCode
	return target
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	pins := cfg.JTAGPins()

	var (
		transport jtag.Transport
		sim       *jtag.SimTransport
		closer    func() error
	)
	if useSim {
		sim = jtag.NewSimTransport(pins)
		target := simTarget()
		target.Attach(sim)
		transport = sim
		if verbose {
			fmt.Printf("Using simulated target %s\n", deviceinfo.Lookup(target.IDCode).Name)
		}
	} else {
		dev, err := ftdi.Open(cfg.FTDI())
		if err != nil {
			return nil, fmt.Errorf("failed to open adapter: %w", err)
		}
		transport, closer = dev, dev.Close
		if verbose {
			fmt.Printf("Opened adapter %04X:%04X (%s, %d baud)\n",
				cfg.Adapter.VID, cfg.Adapter.PID, pins, cfg.Adapter.Baud)
		}
	}

	codec, err := jtag.NewCodec(transport, jtag.WithPins(pins), jtag.WithChunkSize(cfg.Adapter.ChunkSize))
	if err != nil {
		if closer != nil {
			closer()
		}
		return nil, err
	}
	glog.V(1).Infof("session: pins %s, chunk %d", codec.Pins(), cfg.Adapter.ChunkSize)

	progress := newProgressLine(cmd.OutOrStdout())
	opts := []avr.Option{avr.WithProgressCallback(progress.Update)}
	if useSim {
		opts = append(opts, avr.WithEraseDelay(0), avr.WithPageWriteDelay(0))
	}
	return &session{
		cfg:        cfg,
		codec:      codec,
		programmer: avr.New(codec, opts...),
		progress:   progress,
		sim:        sim,
		close:      closer,
	}, nil
}
