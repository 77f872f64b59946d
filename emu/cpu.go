package emu

import (
	"github.com/user-none/go-chip-m68k"
	"github.com/user-none/go-chip-z80"
)

// M68K wraps the 68000 core with the interrupt and halt contract the
// arbiter expects.
type M68K struct {
	cpu      *m68k.CPU
	stopMask int
}

// NewM68K creates a 68000 on bus.
func NewM68K(bus m68k.Bus) *M68K {
	return &M68K{cpu: m68k.New(bus)}
}

// CPU returns the wrapped core.
func (c *M68K) CPU() *m68k.CPU { return c.cpu }

// InterruptMask is the I2-I0 field of SR.
func (c *M68K) InterruptMask() int {
	return int(c.cpu.Registers().SR>>8) & 7
}

// RaiseInterrupt requests an autovectored interrupt. It is refused when
// the level does not beat the current mask; level 7 is never masked.
func (c *M68K) RaiseInterrupt(level int) bool {
	if level <= LevelNone || level > 7 {
		return false
	}
	if level != 7 && level <= c.InterruptMask() {
		return false
	}
	c.cpu.RequestInterrupt(uint8(level), nil)
	return true
}

// SetStop records the arbiter's halt mask. Zero means running.
func (c *M68K) SetStop(mask int) { c.stopMask = mask }

// IsStopped reports whether the 68000 is held off the bus.
func (c *M68K) IsStopped() bool { return c.stopMask != 0 }

// Step runs one whole instruction and returns its cycles, 0 after a
// double bus fault. A stopped CPU burns stall cycles without executing so
// its clock still advances.
func (c *M68K) Step(stall int) int {
	if c.IsStopped() {
		c.cpu.AddCycles(uint64(stall))
		return stall
	}
	return c.cpu.Step()
}

// Z80 wraps the Z80 core. The INT line stays asserted until the CPU
// accepts it, seen as IFF1 going from true to false.
type Z80 struct {
	cpu      *z80.CPU
	intLine  bool
	stopMask int
}

// NewZ80 creates a Z80 on mem.
func NewZ80(mem z80.Bus) *Z80 {
	return &Z80{cpu: z80.New(mem)}
}

// CPU returns the wrapped core.
func (c *Z80) CPU() *z80.CPU { return c.cpu }

// Interrupt drives the INT line. Asserting is refused while the Z80 has
// interrupts disabled.
func (c *Z80) Interrupt(assert bool) bool {
	if !assert {
		c.intLine = false
		c.cpu.INT(false, 0xFF)
		return true
	}
	if !c.cpu.Registers().IFF1 {
		return false
	}
	c.intLine = true
	c.cpu.INT(true, 0xFF)
	return true
}

// IntAsserted reports whether INT is currently held.
func (c *Z80) IntAsserted() bool { return c.intLine }

// SetStop records why the Z80 may not run (bus request or reset).
func (c *Z80) SetStop(mask int) { c.stopMask = mask }

// IsStopped reports whether the Z80 is held.
func (c *Z80) IsStopped() bool { return c.stopMask != 0 }

// Step runs one whole instruction (or interrupt entry) and returns its
// T-states, releasing INT once the CPU has taken it.
func (c *Z80) Step() int {
	prevIFF1 := c.cpu.Registers().IFF1
	cycles := c.cpu.Step()
	if c.intLine && prevIFF1 && !c.cpu.Registers().IFF1 {
		c.Interrupt(false)
	}
	return cycles
}

// Reset resets the core and drops INT.
func (c *Z80) Reset() {
	c.cpu.Reset()
	c.intLine = false
}
