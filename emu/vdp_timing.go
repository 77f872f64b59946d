package emu

import (
	"fmt"
	"log/slog"
)

// counterLimit is the mask of the 9-bit internal H and V counters.
const counterLimit = 0x1FF

const (
	h32Pixels     = 342
	h40Pixels     = 422
	palScanlines  = 313
	ntscScanlines = 262

	// V28VBlankSet and V30VBlankSet are the V counter values at which
	// vertical blanking starts (and the V-int line).
	V28VBlankSet = 0xE0
	V30VBlankSet = 0xF0

	// noJump disables the V counter jump (NTSC V30 rolls over linearly).
	noJump = -1
)

// TimingParams is the raster geometry of one video mode. The internal
// H counter counts half pixels of the external readout; the jump fields
// fold a 9-bit counter back early so one line (or frame) spans exactly
// HTotal (or VTotal) steps.
type TimingParams struct {
	HTotal              int
	HJumpTrigger        int
	HBlankSet           int
	HBlankClear         int
	VTotal              int
	VJumpTrigger        int
	VBlankSet           int
	VCounterIncrementOn int
}

var (
	h32PAL = TimingParams{HTotal: h32Pixels, HJumpTrigger: 296, HBlankSet: 0x93 << 1, HBlankClear: 0x05 << 1,
		VTotal: palScanlines, VCounterIncrementOn: 0x85 << 1}
	h40PAL = TimingParams{HTotal: h40Pixels, HJumpTrigger: 366, HBlankSet: 0xB3 << 1, HBlankClear: 0x06 << 1,
		VTotal: palScanlines, VCounterIncrementOn: 0xA5 << 1}
	h32NTSC = TimingParams{HTotal: h32Pixels, HJumpTrigger: 296, HBlankSet: 0x93 << 1, HBlankClear: 0x05 << 1,
		VTotal: ntscScanlines, VCounterIncrementOn: 0x85 << 1}
	h40NTSC = TimingParams{HTotal: h40Pixels, HJumpTrigger: 366, HBlankSet: 0xB3 << 1, HBlankClear: 0x06 << 1,
		VTotal: ntscScanlines, VCounterIncrementOn: 0xA5 << 1}
)

// TimingFor returns the hardware-measured geometry of mode.
func TimingFor(mode VideoMode) (TimingParams, error) {
	if !mode.Valid() {
		return TimingParams{}, fmt.Errorf("%w: %v", ErrNoTimingParams, mode)
	}
	var p TimingParams
	switch {
	case mode.IsPAL() && mode.IsH32():
		p = h32PAL
	case mode.IsPAL():
		p = h40PAL
	case mode.IsH32():
		p = h32NTSC
	default:
		p = h40NTSC
	}
	switch {
	case mode.IsPAL() && mode.IsV28():
		p.VJumpTrigger, p.VBlankSet = 259, V28VBlankSet
	case mode.IsPAL():
		p.VJumpTrigger, p.VBlankSet = 267, V30VBlankSet
	case mode.IsV28():
		p.VJumpTrigger, p.VBlankSet = 235, V28VBlankSet
	default:
		p.VJumpTrigger, p.VBlankSet = noJump, V30VBlankSet
	}
	return p, nil
}

// LinesPerFrame returns the number of V counter steps in one frame.
// Without a jump the counter walks all 512 values.
func (p TimingParams) LinesPerFrame() int {
	if p.VJumpTrigger == noJump {
		return counterLimit + 1
	}
	return p.VTotal
}

// CounterState is the mutable raster position and interrupt latch state.
type CounterState struct {
	HCounter    int
	VCounter    int
	HBlankSet   bool
	VBlankSet   bool
	VIntPending bool
	HIntPending bool
	HLinePassed int32
}

// LineCounterSource supplies the H-int reload value (reg 10).
type LineCounterSource interface {
	HLineCounter() int
}

// VideoTiming advances the H/V counters one pixel clock at a time and
// raises the blanking and interrupt-pending flags.
type VideoTiming struct {
	CounterState

	mode    VideoMode
	hasMode bool
	params  TimingParams
	lines   LineCounterSource
	log     *slog.Logger
}

// NewVideoTiming creates a timing model reading its H-int reload value from
// lines. SetMode must be called before AdvanceH.
func NewVideoTiming(lines LineCounterSource, logger *slog.Logger) *VideoTiming {
	return &VideoTiming{
		lines: lines,
		log:   componentLogger(logger, "timing"),
	}
}

// SetMode switches to mode, reloading the geometry and resetting the
// counters when the mode actually changes. An invalid mode is a
// programming error and panics.
func (t *VideoTiming) SetMode(mode VideoMode) {
	if t.hasMode && t.mode == mode {
		return
	}
	p, err := TimingFor(mode)
	if err != nil {
		t.log.Error("unable to find counter mode", "mode", mode)
		panic(err)
	}
	t.mode = mode
	t.params = p
	t.hasMode = true
	t.Reset()
	t.log.Debug("video mode set", "mode", mode)
}

// Reset returns the counters to the top-left of the frame.
func (t *VideoTiming) Reset() {
	t.HCounter = 0
	t.VCounter = 0
	t.HBlankSet = false
	t.VBlankSet = false
	t.VIntPending = false
}

// Mode returns the current video mode.
func (t *VideoTiming) Mode() VideoMode { return t.mode }

// Params returns the geometry of the current mode.
func (t *VideoTiming) Params() TimingParams { return t.params }

func stepCounter(counter, jumpTrigger, total int) int {
	counter = (counter + 1) & counterLimit
	if counter == jumpTrigger {
		counter = 1 + counterLimit + jumpTrigger - total
	}
	return counter
}

// AdvanceH moves the raster one pixel clock forward and returns the new
// internal H counter.
func (t *VideoTiming) AdvanceH() int {
	p := &t.params
	t.HCounter = stepCounter(t.HCounter, p.HJumpTrigger, p.HTotal)
	t.handleLineCounter()

	if t.HCounter == p.HBlankSet {
		t.HBlankSet = true
	}
	if t.HCounter == p.HBlankClear {
		t.HBlankSet = false
	}
	if t.HCounter == p.VCounterIncrementOn {
		t.advanceV()
	}
	if t.HCounter == 0x02 && t.VCounter == p.VBlankSet {
		t.VIntPending = true
		t.log.Debug("vint pending", "h", t.HCounter, "v", t.VCounter)
	}
	return t.HCounter
}

func (t *VideoTiming) advanceV() {
	p := &t.params
	t.VCounter = stepCounter(t.VCounter, p.VJumpTrigger, p.VTotal)
	if t.VCounter == p.VBlankSet {
		t.VBlankSet = true
	}
	if t.VCounter == counterLimit {
		t.VBlankSet = false
	}
}

// handleLineCounter runs two steps after the V counter moves. The H-int
// decision is taken before the reload, and line 0 never fires.
func (t *VideoTiming) handleLineCounter() {
	p := &t.params
	if t.HCounter != p.VCounterIncrementOn+2 {
		return
	}
	if t.VCounter <= p.VBlankSet {
		t.HLinePassed--
	}
	trigger := t.VCounter > 0 && t.HLinePassed == -1
	if trigger {
		t.HIntPending = true
		t.log.Debug("hint pending", "v", t.VCounter)
	}
	if t.VCounter == 0 || t.VCounter > p.VBlankSet || trigger {
		t.ResetLineCounter(t.reload())
	}
}

func (t *VideoTiming) reload() int {
	if t.lines == nil {
		return 0
	}
	return t.lines.HLineCounter()
}

// ResetLineCounter reloads the H-int countdown.
func (t *VideoTiming) ResetLineCounter(value int) {
	t.HLinePassed = int32(value)
}

// HCounterExternal is the H counter as seen through the HV port.
func (t *VideoTiming) HCounterExternal() uint8 {
	return uint8(t.HCounter >> 1)
}

// VCounterExternal is the V counter as seen through the HV port.
func (t *VideoTiming) VCounterExternal() uint8 {
	return uint8(t.VCounter)
}

// IsLastHCounter reports whether the raster is at the last step of a line.
func (t *VideoTiming) IsLastHCounter() bool {
	return t.HCounter == counterLimit
}

// IsFrameEnd reports whether the raster is at the last step of a frame.
func (t *VideoTiming) IsFrameEnd() bool {
	return t.IsLastHCounter() && t.VCounter == counterLimit
}

// IsLineStart reports whether the V counter has just advanced.
func (t *VideoTiming) IsLineStart() bool {
	return t.HCounter == t.params.VCounterIncrementOn
}
