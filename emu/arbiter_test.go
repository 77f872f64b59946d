package emu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIntSource struct {
	vip, hip bool
	vie, hie bool
	v        int
	mode     VideoMode
}

func (f *fakeIntSource) VIntPending() bool { return f.vip }
func (f *fakeIntSource) HIntPending() bool { return f.hip }
func (f *fakeIntSource) SetVIntPending(b bool) { f.vip = b }
func (f *fakeIntSource) SetHIntPending(b bool) { f.hip = b }
func (f *fakeIntSource) VIntEnabled() bool { return f.vie }
func (f *fakeIntSource) HIntEnabled() bool { return f.hie }
func (f *fakeIntSource) VCounter() int { return f.v }
func (f *fakeIntSource) VideoMode() VideoMode { return f.mode }

type fake68k struct {
	mask   int
	raised []int
}

func (c *fake68k) RaiseInterrupt(level int) bool {
	if level != 7 && level <= c.mask {
		return false
	}
	c.raised = append(c.raised, level)
	return true
}

type fakeZ80 struct {
	iff1     bool
	asserted int
}

func (c *fakeZ80) Interrupt(on bool) bool {
	if on && !c.iff1 {
		return false
	}
	if on {
		c.asserted++
	}
	return true
}

func newTestArbiter() (*Arbiter, *fakeIntSource, *fake68k, *fakeZ80) {
	src := &fakeIntSource{vie: true, hie: true, mode: ntscH40}
	cpu := &fake68k{}
	z := &fakeZ80{iff1: true}
	return NewArbiter(src, cpu, z, nil), src, cpu, z
}

func TestArbiter_InitialState(t *testing.T) {
	a, _, _, _ := newTestArbiter()
	assert.Equal(t, IntAcked, a.State68k())
	assert.Equal(t, IntAcked, a.StateZ80())
	assert.Equal(t, V28VBlankSet, a.VIntOnLine())
	assert.False(t, a.ShouldStop68k())

	a.Handle68k()
	assert.Equal(t, IntNone, a.State68k())
}

func TestArbiter_68kVIntLifecycle(t *testing.T) {
	a, src, cpu, _ := newTestArbiter()
	a.Handle68k() // ACKED -> NONE

	src.vip = true
	a.Handle68k()
	assert.Equal(t, IntPending, a.State68k())
	assert.Empty(t, cpu.raised)

	a.Handle68k()
	assert.Equal(t, IntAsserted, a.State68k())
	assert.Equal(t, []int{LevelVBlank}, cpu.raised)
	assert.True(t, src.vip, "latch held until acknowledged")

	a.Handle68k()
	assert.Equal(t, IntAcked, a.State68k())
	assert.False(t, src.vip)

	a.Handle68k()
	assert.Equal(t, IntNone, a.State68k())
	a.Handle68k()
	assert.Equal(t, IntNone, a.State68k())

	st := a.Stats()
	assert.Equal(t, uint64(1), st.Raised68k[LevelVBlank])
	assert.Equal(t, uint64(1), st.Acked68k[LevelVBlank])
}

func TestArbiter_MaskedLevelStaysPending(t *testing.T) {
	a, src, cpu, _ := newTestArbiter()
	a.Handle68k()
	cpu.mask = 6
	src.vip = true

	for i := 0; i < 5; i++ {
		a.Handle68k()
		assert.Equal(t, IntPending, a.State68k())
	}
	assert.Empty(t, cpu.raised)

	cpu.mask = 3
	a.Handle68k()
	assert.Equal(t, IntAsserted, a.State68k())
	assert.Equal(t, []int{LevelVBlank}, cpu.raised)
}

func TestArbiter_PendingDropsWhenLatchClears(t *testing.T) {
	a, src, cpu, _ := newTestArbiter()
	a.Handle68k()
	cpu.mask = 7
	src.hip = true
	a.Handle68k()
	require.Equal(t, IntPending, a.State68k())

	src.hip = false
	a.Handle68k()
	assert.Equal(t, IntNone, a.State68k())
}

func TestArbiter_VBlankBeatsHBlank(t *testing.T) {
	a, src, cpu, _ := newTestArbiter()
	src.vip = true
	src.hip = true
	assert.Equal(t, LevelVBlank, a.Level68k())

	a.Handle68k() // ACKED -> NONE
	a.Handle68k()
	a.Handle68k()
	a.Handle68k() // ASSERTED -> ACKED clears vip only
	assert.Equal(t, []int{LevelVBlank}, cpu.raised)
	assert.False(t, src.vip)
	assert.True(t, src.hip)

	for i := 0; i < 4; i++ {
		a.Handle68k()
	}
	assert.Equal(t, []int{LevelVBlank, LevelHBlank}, cpu.raised)
	assert.False(t, src.hip)
}

func TestArbiter_DisabledSourcesIgnored(t *testing.T) {
	a, src, _, _ := newTestArbiter()
	src.vie = false
	src.hie = false
	src.vip = true
	src.hip = true
	assert.Equal(t, LevelNone, a.Level68k())

	src.hie = true
	assert.Equal(t, LevelHBlank, a.Level68k())
}

func TestArbiter_Ack68kLevelNoneIgnored(t *testing.T) {
	a, src, _, _ := newTestArbiter()
	a.Handle68k()
	src.vip = true
	a.Ack68k(LevelNone)
	assert.Equal(t, IntNone, a.State68k())
	assert.True(t, src.vip)

	a.Ack68k(LevelHBlank)
	assert.Equal(t, IntAcked, a.State68k())
	assert.True(t, src.vip)
}

func TestArbiter_NilM68kStaysPending(t *testing.T) {
	src := &fakeIntSource{vie: true, vip: true, mode: ntscH32}
	a := NewArbiter(src, nil, nil, nil)
	a.Handle68k()
	a.Handle68k()
	a.Handle68k()
	assert.Equal(t, IntPending, a.State68k())
}

func TestArbiter_Z80FiresOnVIntLine(t *testing.T) {
	a, src, _, z := newTestArbiter()
	a.HandleZ80() // ACKED -> NONE

	src.vip = true
	src.v = V28VBlankSet - 1
	a.HandleZ80()
	assert.Equal(t, IntNone, a.StateZ80())

	src.v = V28VBlankSet
	a.HandleZ80()
	assert.Equal(t, IntAsserted, a.StateZ80())
	assert.Equal(t, 1, z.asserted)

	a.HandleZ80()
	assert.Equal(t, IntNone, a.StateZ80())

	// Same line, same frame: triggers again while the latch is up.
	a.HandleZ80()
	assert.Equal(t, IntAsserted, a.StateZ80())
	assert.Equal(t, uint64(2), a.Stats().RaisedZ80)
}

func TestArbiter_Z80ExpiresForFrame(t *testing.T) {
	a, src, _, z := newTestArbiter()
	a.HandleZ80()
	z.iff1 = false

	src.vip = true
	src.v = V28VBlankSet
	a.HandleZ80()
	assert.Equal(t, IntPending, a.StateZ80())
	a.HandleZ80()
	assert.Equal(t, IntPending, a.StateZ80())

	// Line ends before the Z80 enables interrupts.
	src.v = V28VBlankSet + 1
	z.iff1 = true
	a.HandleZ80()
	assert.Equal(t, IntNone, a.StateZ80())
	assert.Equal(t, uint64(1), a.Stats().ExpiredZ80)

	// Back on the trigger line the expiry latch holds for the frame.
	src.v = V28VBlankSet
	a.HandleZ80()
	assert.Equal(t, IntNone, a.StateZ80())
	assert.Equal(t, 0, z.asserted)

	a.NewFrame()
	a.HandleZ80()
	assert.Equal(t, IntAsserted, a.StateZ80())
	assert.Equal(t, 1, z.asserted)
}

func TestArbiter_Z80NeedsEnabledVInt(t *testing.T) {
	a, src, _, z := newTestArbiter()
	a.HandleZ80()
	src.vie = false
	src.vip = true
	src.v = V28VBlankSet
	a.HandleZ80()
	assert.Equal(t, IntNone, a.StateZ80())
	assert.Equal(t, 0, z.asserted)
}

func TestArbiter_NewFrameTracksHeight(t *testing.T) {
	a, src, _, _ := newTestArbiter()
	src.mode = VideoMode{Width: H40, Height: V30, Region: ConsoleEurope}
	a.NewFrame()
	assert.Equal(t, V30VBlankSet, a.VIntOnLine())

	src.mode = ntscH32
	a.NewFrame()
	assert.Equal(t, V28VBlankSet, a.VIntOnLine())
}

// Both CPUs take the V-int raised on the trigger line.
func TestArbiter_BothChannelsOnSameLine(t *testing.T) {
	a, src, cpu, z := newTestArbiter()
	a.Handle68k()
	a.HandleZ80()

	src.vip = true
	src.v = V28VBlankSet
	for i := 0; i < 3; i++ {
		a.Handle68k()
		a.HandleZ80()
	}
	assert.Equal(t, []int{LevelVBlank}, cpu.raised)
	assert.Equal(t, 1, z.asserted)
	assert.False(t, src.vip)
}

func TestArbiter_StopMask(t *testing.T) {
	a, _, _, _ := newTestArbiter()
	a.SetStop68k(StopFIFO)
	assert.True(t, a.ShouldStop68k())
	a.SetStop68k(StopFIFO | StopDMA)
	assert.True(t, a.ShouldStop68k())
	a.SetStop68k(0)
	assert.False(t, a.ShouldStop68k())
	a.SetStop68k(StopDMA)
	assert.Equal(t, uint64(2), a.Stats().Stops68k)
}

func TestIntState_String(t *testing.T) {
	assert.Equal(t, "NONE", IntNone.String())
	assert.Equal(t, "PENDING", IntPending.String())
	assert.Equal(t, "ASSERTED", IntAsserted.String())
	assert.Equal(t, "ACKED", IntAcked.String())
	assert.Equal(t, "IntState(9)", IntState(9).String())
}
