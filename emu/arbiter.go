package emu

import (
	"fmt"
	"log/slog"
)

// IntState is the state of one CPU interrupt channel.
type IntState uint8

const (
	IntNone IntState = iota
	IntPending
	IntAsserted
	IntAcked
)

func (s IntState) String() string {
	switch s {
	case IntNone:
		return "NONE"
	case IntPending:
		return "PENDING"
	case IntAsserted:
		return "ASSERTED"
	case IntAcked:
		return "ACKED"
	}
	return fmt.Sprintf("IntState(%d)", uint8(s))
}

// 68000 autovector levels used by the VDP. LevelNone means no interrupt.
const (
	LevelNone   = 0
	LevelHBlank = 4
	LevelVBlank = 6
)

// InterruptSource is the VDP side of the arbiter: pending latches,
// enable bits and the raster position.
type InterruptSource interface {
	VIntPending() bool
	HIntPending() bool
	SetVIntPending(bool)
	SetHIntPending(bool)
	VIntEnabled() bool
	HIntEnabled() bool
	VCounter() int
	VideoMode() VideoMode
}

// M68kInterrupter accepts 68000 interrupt requests. RaiseInterrupt
// returns false when the level is masked.
type M68kInterrupter interface {
	RaiseInterrupt(level int) bool
}

// Z80Interrupter drives the Z80 INT line. Interrupt returns false when
// the Z80 has interrupts disabled.
type Z80Interrupter interface {
	Interrupt(assert bool) bool
}

// ArbiterStats counts interrupt traffic.
type ArbiterStats struct {
	Raised68k  [8]uint64 // accepted requests per level
	Acked68k   [8]uint64
	RaisedZ80  uint64
	ExpiredZ80 uint64
	Stops68k   uint64 // running -> halted transitions
}

// Arbiter couples the VDP interrupt latches to the 68000 and Z80. Both
// channels are polled by the owning loop after every CPU step.
type Arbiter struct {
	vdp  InterruptSource
	m68k M68kInterrupter
	z80  Z80Interrupter
	log  *slog.Logger

	int68k      IntState
	level68k    int // level raised while ASSERTED
	intZ80      IntState
	frameExpire bool
	vIntOnLine  int
	stopMask    int

	stats ArbiterStats
}

// NewArbiter creates an arbiter. Either CPU may be nil, which leaves
// that channel permanently pending once triggered.
func NewArbiter(vdp InterruptSource, m68k M68kInterrupter, z80 Z80Interrupter, logger *slog.Logger) *Arbiter {
	a := &Arbiter{
		vdp:    vdp,
		m68k:   m68k,
		z80:    z80,
		log:    componentLogger(logger, "arbiter"),
		int68k: IntAcked,
		intZ80: IntAcked,
	}
	a.NewFrame()
	return a
}

// State68k returns the 68000 channel state.
func (a *Arbiter) State68k() IntState { return a.int68k }

// StateZ80 returns the Z80 channel state.
func (a *Arbiter) StateZ80() IntState { return a.intZ80 }

// Stats returns the interrupt counters.
func (a *Arbiter) Stats() ArbiterStats { return a.stats }

// Handle68k advances the 68000 channel by one poll.
func (a *Arbiter) Handle68k() {
	switch a.int68k {
	case IntNone:
		if a.Level68k() != LevelNone {
			a.int68k = IntPending
			a.log.Debug("68k int", "level", a.Level68k(), "state", a.int68k, "v", a.vdp.VCounter())
		}
	case IntPending:
		a.raise68k()
	case IntAsserted:
		// The CPU core takes the request at its next instruction
		// boundary, so by the following poll it has been serviced.
		a.Ack68k(a.level68k)
	case IntAcked:
		a.int68k = IntNone
	}
}

func (a *Arbiter) raise68k() {
	level := a.Level68k()
	if level == LevelNone {
		// Latch cleared before the CPU took it.
		a.int68k = IntNone
		return
	}
	if a.m68k == nil || !a.m68k.RaiseInterrupt(level) {
		return
	}
	a.int68k = IntAsserted
	a.level68k = level
	a.stats.Raised68k[level]++
	a.log.Debug("68k int", "level", level, "state", a.int68k, "v", a.vdp.VCounter())
}

// Ack68k acknowledges an accepted 68000 interrupt. Level 6 clears the
// VDP V-int latch and level 4 the H-int latch. LevelNone is ignored.
func (a *Arbiter) Ack68k(level int) {
	if level == LevelNone {
		return
	}
	switch level {
	case LevelVBlank:
		a.vdp.SetVIntPending(false)
	case LevelHBlank:
		a.vdp.SetHIntPending(false)
	}
	a.int68k = IntAcked
	a.stats.Acked68k[level&7]++
	a.log.Debug("68k int", "level", level, "state", a.int68k)
}

// Level68k returns the level the VDP is requesting, VBLANK first.
func (a *Arbiter) Level68k() int {
	switch {
	case a.vdpVInt():
		return LevelVBlank
	case a.vdpHInt():
		return LevelHBlank
	}
	return LevelNone
}

func (a *Arbiter) vdpVInt() bool { return a.vdp.VIntPending() && a.vdp.VIntEnabled() }
func (a *Arbiter) vdpHInt() bool { return a.vdp.HIntPending() && a.vdp.HIntEnabled() }

// HandleZ80 advances the Z80 channel by one poll.
//
// The Z80 interrupt fires once per frame on the V-int line and is only
// valid for that line. A request the Z80 does not take before the line
// ends expires until the next frame.
func (a *Arbiter) HandleZ80() {
	a.checkZ80()
	switch a.intZ80 {
	case IntPending:
		if a.z80 != nil && a.z80.Interrupt(true) {
			a.intZ80 = IntAsserted
			a.stats.RaisedZ80++
			a.log.Debug("z80 int", "state", a.intZ80, "v", a.vdp.VCounter())
		}
	case IntAsserted, IntAcked:
		a.intZ80 = IntNone
	}
}

func (a *Arbiter) checkZ80() {
	vc := a.vdp.VCounter()
	switch {
	case a.intZ80 == IntNone && a.vdpVInt() && !a.frameExpire && vc == a.vIntOnLine:
		a.intZ80 = IntPending
		a.log.Debug("z80 int triggered", "v", vc)
	case a.intZ80 == IntPending && vc != a.vIntOnLine:
		a.frameExpire = true
		a.intZ80 = IntNone
		a.stats.ExpiredZ80++
		a.log.Debug("z80 int expired", "v", vc)
	}
}

// NewFrame clears the per-frame Z80 latch and picks the trigger line for
// the current active height.
func (a *Arbiter) NewFrame() {
	a.frameExpire = false
	a.vIntOnLine = V30VBlankSet
	if a.vdp.VideoMode().IsV28() {
		a.vIntOnLine = V28VBlankSet
	}
}

// VIntOnLine returns the Z80 trigger line for this frame.
func (a *Arbiter) VIntOnLine() int { return a.vIntOnLine }

// SetStop68k records why the 68000 is halted. Zero means running.
func (a *Arbiter) SetStop68k(mask int) {
	if mask == a.stopMask {
		return
	}
	if a.stopMask == 0 {
		a.stats.Stops68k++
	}
	a.stopMask = mask
	a.log.Debug("68k stop", "mask", mask)
}

// ShouldStop68k reports whether the 68000 must not execute.
func (a *Arbiter) ShouldStop68k() bool { return a.stopMask != 0 }
