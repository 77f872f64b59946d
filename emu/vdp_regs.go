package emu

// NumRegisters is the number of addressable VDP registers.
const NumRegisters = 24

// Registers is the VDP register bank. DMA reads and writes the source and
// length registers in place while a transfer runs; nothing is cached.
type Registers struct {
	r [NumRegisters]uint8
}

// Get returns register n, or 0 when n is out of range.
func (r *Registers) Get(n int) uint8 {
	if n < 0 || n >= NumRegisters {
		return 0
	}
	return r.r[n]
}

// Set writes register n. Out of range writes are ignored.
func (r *Registers) Set(n int, v uint8) {
	if n < 0 || n >= NumRegisters {
		return
	}
	r.r[n] = v
}

// Array returns a copy of the whole bank.
func (r *Registers) Array() [NumRegisters]uint8 {
	return r.r
}

// Load replaces the whole bank.
func (r *Registers) Load(regs [NumRegisters]uint8) {
	r.r = regs
}

// HIntEnabled is IE1, reg 0 bit 4.
func (r *Registers) HIntEnabled() bool { return r.r[0]&0x10 != 0 }

// HVLatchEnabled is reg 0 bit 1.
func (r *Registers) HVLatchEnabled() bool { return r.r[0]&0x02 != 0 }

// DisplayEnabled is reg 1 bit 6.
func (r *Registers) DisplayEnabled() bool { return r.r[1]&0x40 != 0 }

// VIntEnabled is IE0, reg 1 bit 5.
func (r *Registers) VIntEnabled() bool { return r.r[1]&0x20 != 0 }

// DMAEnabled is M1, reg 1 bit 4.
func (r *Registers) DMAEnabled() bool { return r.r[1]&0x10 != 0 }

// V30 is reg 1 bit 3.
func (r *Registers) V30() bool { return r.r[1]&0x08 != 0 }

// HLineCounter is the H-int reload value in reg 10.
func (r *Registers) HLineCounter() int { return int(r.r[10]) }

// H40 is reg 12 bit 0.
func (r *Registers) H40() bool { return r.r[12]&0x01 != 0 }

// AutoIncrement is reg 15.
func (r *Registers) AutoIncrement() uint16 { return uint16(r.r[15]) }

// DMALength is regs 20:19, counted in DMA units.
func (r *Registers) DMALength() uint16 {
	return uint16(r.r[20])<<8 | uint16(r.r[19])
}

// SetDMALength writes regs 19 and 20.
func (r *Registers) SetDMALength(n uint16) {
	r.r[19] = uint8(n)
	r.r[20] = uint8(n >> 8)
}

// DMASourceLow is regs 22:21.
func (r *Registers) DMASourceLow() uint16 {
	return uint16(r.r[22])<<8 | uint16(r.r[21])
}

// SetDMASourceLow writes regs 21 and 22. Reg 23 is never touched, so a
// 68000 transfer wraps at a 128KB boundary.
func (r *Registers) SetDMASourceLow(src uint16) {
	r.r[21] = uint8(src)
	r.r[22] = uint8(src >> 8)
}

// DMASourceHigh is the low 7 bits of reg 23.
func (r *Registers) DMASourceHigh() uint8 { return r.r[23] & 0x7F }

// DMAType is reg 23 bits 7:6.
func (r *Registers) DMAType() uint8 { return r.r[23] >> 6 }

// VideoMode derives the current mode from regs 1 and 12.
func (r *Registers) VideoMode(region ConsoleRegion) VideoMode {
	m := VideoMode{Width: H32, Height: V28, Region: region}
	if r.H40() {
		m.Width = H40
	}
	if r.V30() {
		m.Height = V30
	}
	return m
}
