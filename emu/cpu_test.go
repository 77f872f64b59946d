package emu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestM68K(t *testing.T, sr uint16) (*M68K, *GenesisBus) {
	t.Helper()
	bus := makeTestBus()
	c := NewM68K(bus)
	bus.SetCPU(c.CPU())
	regs := c.CPU().Registers()
	regs.PC = 0x200
	regs.SR = sr
	c.CPU().SetState(regs)
	return c, bus
}

func TestM68K_InterruptMask(t *testing.T) {
	c, _ := newTestM68K(t, 0x2500)
	assert.Equal(t, 5, c.InterruptMask())

	assert.False(t, c.RaiseInterrupt(LevelHBlank), "level 4 under mask 5")
	assert.True(t, c.RaiseInterrupt(LevelVBlank))
	assert.True(t, c.RaiseInterrupt(7), "NMI ignores the mask")
}

func TestM68K_RaiseInterruptOutOfRange(t *testing.T) {
	c, _ := newTestM68K(t, 0x2000)
	assert.False(t, c.RaiseInterrupt(LevelNone))
	assert.False(t, c.RaiseInterrupt(8))
	assert.True(t, c.RaiseInterrupt(1))
}

func TestM68K_MaskSevenBlocksAllButNMI(t *testing.T) {
	c, _ := newTestM68K(t, 0x2700)
	for level := 1; level < 7; level++ {
		assert.False(t, c.RaiseInterrupt(level), "level %d", level)
	}
	assert.True(t, c.RaiseInterrupt(7))
}

func TestM68K_StepExecutes(t *testing.T) {
	c, _ := newTestM68K(t, 0x2700)
	assert.Equal(t, 4, c.Step(10), "NOP costs 4 cycles whatever the stall")
	assert.EqualValues(t, 0x202, c.CPU().Registers().PC)
}

func TestM68K_StoppedBurnsStall(t *testing.T) {
	c, _ := newTestM68K(t, 0x2700)
	c.SetStop(StopFIFO)
	require.True(t, c.IsStopped())

	assert.Equal(t, 12, c.Step(12))
	assert.EqualValues(t, 0x200, c.CPU().Registers().PC, "no instruction while stopped")

	c.SetStop(0)
	assert.False(t, c.IsStopped())
	c.Step(1)
	assert.EqualValues(t, 0x202, c.CPU().Registers().PC)
}

// --- Z80 ---

func newTestZ80(program ...uint8) (*Z80, *Z80Memory) {
	mem := makeTestZ80Memory()
	for i, b := range program {
		mem.Write(uint16(i), b)
	}
	return NewZ80(mem), mem
}

func TestZ80_StepReturnsCycles(t *testing.T) {
	c, _ := newTestZ80()
	// Z80 RAM is zero: NOP, 4 T-states.
	assert.Equal(t, 4, c.Step())

	total := 0
	for i := 0; i < 10; i++ {
		total += c.Step()
	}
	assert.Equal(t, 40, total)
	assert.EqualValues(t, 11, c.CPU().Registers().PC)
}

func TestZ80_InitialState(t *testing.T) {
	c, _ := newTestZ80()
	regs := c.CPU().Registers()
	assert.EqualValues(t, 0, regs.PC)
	assert.False(t, regs.IFF1)
	assert.EqualValues(t, 0, regs.IM)
	assert.False(t, c.IntAsserted())
}

func TestZ80_LDImmediate(t *testing.T) {
	c, _ := newTestZ80(0x3E, 0x42) // LD A,0x42
	assert.Equal(t, 7, c.Step())
	assert.Equal(t, uint8(0x42), uint8(c.CPU().Registers().AF>>8))
}

func TestZ80_HaltBurnsCycles(t *testing.T) {
	c, _ := newTestZ80(0x76)
	assert.Equal(t, 4, c.Step())
	assert.Equal(t, 4, c.Step())
	assert.True(t, c.CPU().Halted())
}

func TestZ80_InterruptRefusedWithIFF1Clear(t *testing.T) {
	c, _ := newTestZ80()
	assert.False(t, c.Interrupt(true))
	assert.False(t, c.IntAsserted())

	c.Step()
	assert.EqualValues(t, 1, c.CPU().Registers().PC, "no interrupt taken")
}

func TestZ80_InterruptReleasedWhenTaken(t *testing.T) {
	// IM 1; EI; NOP...
	c, _ := newTestZ80(0xED, 0x56, 0xFB)
	c.Step()
	c.Step()
	require.True(t, c.CPU().Registers().IFF1)
	assert.EqualValues(t, 1, c.CPU().Registers().IM)

	require.True(t, c.Interrupt(true))
	assert.True(t, c.IntAsserted())

	for i := 0; i < 4 && c.IntAsserted(); i++ {
		c.Step()
	}
	assert.False(t, c.IntAsserted())
	assert.False(t, c.CPU().Registers().IFF1)
}

func TestZ80_DeassertAndReset(t *testing.T) {
	c, _ := newTestZ80(0xFB) // EI
	c.Step()
	require.True(t, c.Interrupt(true))

	assert.True(t, c.Interrupt(false))
	assert.False(t, c.IntAsserted())

	require.True(t, c.Interrupt(true))
	c.Reset()
	assert.False(t, c.IntAsserted())
	assert.EqualValues(t, 0, c.CPU().Registers().PC)
}

func TestZ80_StopMask(t *testing.T) {
	c, _ := newTestZ80()
	assert.False(t, c.IsStopped())
	c.SetStop(2)
	assert.True(t, c.IsStopped())
	c.SetStop(0)
	assert.False(t, c.IsStopped())
}
