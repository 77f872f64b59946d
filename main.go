package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli"
	"github.com/user-none/emmdvdp/emu"
	"github.com/user-none/emmdvdp/runner"
)

func main() {
	app := cli.NewApp()
	app.Name = "emmdvdp"
	app.Description = "Genesis VDP timing, DMA and interrupt core"
	app.Usage = "emmdvdp [options] <ROM file>"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.StringFlag{
			Name:  "region",
			Usage: "Console region: auto, ntsc-j, ntsc-u or pal",
			Value: "auto",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run (0 = until interrupted)",
			Value: 60,
		},
		cli.IntFlag{
			Name:  "fps",
			Usage: "Pace to real time at this rate (0 = unthrottled)",
		},
		cli.IntFlag{
			Name:  "fifo-capacity",
			Usage: "Physical VDP FIFO slots",
			Value: emu.DefaultFIFOCapacity,
		},
		cli.IntFlag{
			Name:  "fifo-threshold",
			Usage: "FIFO occupancy reported as full",
			Value: emu.DefaultFIFOFullThreshold,
		},
		cli.IntFlag{
			Name:  "report-interval",
			Usage: "Log a VDP snapshot every N frames (0 = disabled)",
		},
		cli.BoolFlag{
			Name:  "strict",
			Usage: "Refuse ROMs whose header fails validation",
		},
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug logging",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	level := slog.LevelInfo
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() > 0 {
			romPath = c.Args().Get(0)
		} else {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
	}
	rom, err := os.ReadFile(romPath)
	if err != nil {
		return fmt.Errorf("load rom: %w", err)
	}
	header, err := emu.ReadROMHeader(rom)
	if err != nil {
		return err
	}
	logger.Info("rom", "title", header.Title, "system", header.SystemType, "regions", header.Regions)
	if err := header.Check(); err != nil {
		if c.Bool("strict") {
			return err
		}
		logger.Warn("rom header", "error", err)
	}

	cfg := emu.DefaultConfig()
	cfg.Logger = logger
	cfg.FIFOCapacity = c.Int("fifo-capacity")
	cfg.FIFOFullThreshold = c.Int("fifo-threshold")
	if r := c.String("region"); strings.EqualFold(r, "auto") {
		cfg.Region = emu.DetectConsoleRegion(rom)
	} else if cfg.Region, err = emu.ParseConsoleRegion(r); err != nil {
		return err
	}

	system, err := emu.NewEmulator(rom, cfg)
	if err != nil {
		return err
	}

	frames := c.Int("frames")
	if frames < 0 {
		return errors.New("--frames must not be negative")
	}
	interval := uint64(max(c.Int("report-interval"), 0))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := runner.New(system, runner.Options{
		MaxFrames: uint64(frames),
		FPS:       c.Int("fps"),
		Logger:    logger,
		OnFrame: func(n uint64) {
			if interval > 0 && n%interval == 0 {
				logSnapshot(logger, system.Snapshot())
			}
		},
	})
	err = r.Run(ctx)
	logStats(logger, system.Stats())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func logSnapshot(logger *slog.Logger, s *emu.Snapshot) {
	if s == nil {
		return
	}
	logger.Info("vdp",
		"frame", s.Frame,
		"mode", s.Mode,
		"status", fmt.Sprintf("0x%04X", s.Status),
		"fifo", s.FIFOLen,
		"dma", s.DMAMode,
		"dmaLength", s.DMALength,
		"vip", s.Counters.VIntPending,
		"hip", s.Counters.HIntPending,
	)
}

func logStats(logger *slog.Logger, s emu.Stats) {
	logger.Info("run stats",
		"frames", s.Frames,
		"ticks", s.Ticks,
		"m68kInstructions", s.M68KStepped,
		"m68kStalledTicks", s.M68KStalled,
		"z80Instructions", s.Z80Stepped,
		"dmaTicks", s.DMATicks,
		"fifoHighWater", s.FIFOHighWater,
		"vint", s.Interrupts.Raised68k[emu.LevelVBlank],
		"hint", s.Interrupts.Raised68k[emu.LevelHBlank],
		"z80Int", s.Interrupts.RaisedZ80,
		"z80IntExpired", s.Interrupts.ExpiredZ80,
		"m68kStops", s.Interrupts.Stops68k,
	)
}
