package emu

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

var (
	ErrUnknownRegion  = errors.New("unknown console region")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrStateMismatch  = errors.New("state does not match VDP layout")
	ErrFIFOFull       = errors.New("vdp fifo full")
	ErrNoTimingParams = errors.New("no timing parameters for video mode")
)

const (
	// DefaultFIFOCapacity is the number of physical FIFO slots.
	DefaultFIFOCapacity = 4
	// DefaultFIFOFullThreshold is the occupancy at which the status
	// register reports full and the 68000 is stalled.
	DefaultFIFOFullThreshold = 4
)

// Config holds construction-time settings for the VDP and the system loop.
type Config struct {
	Region ConsoleRegion

	// FIFOCapacity is the physical slot count; a push beyond it fails.
	FIFOCapacity int
	// FIFOFullThreshold is the logical full level used for stall decisions.
	// It may be lower than FIFOCapacity.
	FIFOFullThreshold int

	// Logger receives component logs. Nil discards everything.
	Logger *slog.Logger
}

// DefaultConfig returns an NTSC-U configuration with a four slot FIFO.
func DefaultConfig() Config {
	return Config{
		Region:            ConsoleUSA,
		FIFOCapacity:      DefaultFIFOCapacity,
		FIFOFullThreshold: DefaultFIFOFullThreshold,
	}
}

// Validate checks the configuration for values the hardware model cannot use.
func (c Config) Validate() error {
	if !c.Region.Valid() {
		return fmt.Errorf("%w: region %d", ErrUnknownRegion, int(c.Region))
	}
	if c.FIFOCapacity < 1 {
		return fmt.Errorf("%w: fifo capacity %d", ErrInvalidConfig, c.FIFOCapacity)
	}
	if c.FIFOFullThreshold < 1 || c.FIFOFullThreshold > c.FIFOCapacity {
		return fmt.Errorf("%w: fifo threshold %d outside 1..%d", ErrInvalidConfig,
			c.FIFOFullThreshold, c.FIFOCapacity)
	}
	return nil
}

// logger returns the configured logger, or a discarding one.
func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return discardLogger()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// componentLogger scopes l to a named component, tolerating nil.
func componentLogger(l *slog.Logger, name string) *slog.Logger {
	if l == nil {
		l = discardLogger()
	}
	return l.With("component", name)
}
