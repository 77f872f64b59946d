package emu

import "github.com/user-none/go-chip-m68k"

type z80Window uint8

const (
	z80WinRAM   z80Window = iota // 0x0000-0x3FFF, 8KB mirrored
	z80WinSound                  // 0x4000-0x5FFF, not modelled
	z80WinBank                   // 0x6000 bank shift register
	z80WinVDP                    // 0x7F00-0x7F1F
	z80WinOpen                   // unused and reserved
	z80WinM68K                   // 0x8000-0xFFFF banked 68000 space
)

func z80WindowOf(addr uint16) z80Window {
	switch {
	case addr < 0x4000:
		return z80WinRAM
	case addr < 0x6000:
		return z80WinSound
	case addr == 0x6000:
		return z80WinBank
	case addr >= 0x7F00 && addr < 0x7F20:
		return z80WinVDP
	case addr < 0x8000:
		return z80WinOpen
	default:
		return z80WinM68K
	}
}

// Z80Memory is the Z80's view of the system. VDP ports at 0x7F00 decode
// like 0xC00000 on the 68000 side, and the upper 32KB is a window into
// 68000 space selected by a 9-bit bank register.
type Z80Memory struct {
	bus *GenesisBus
	// bankRegister holds 68000 address bits 23-15, shifted in one bit per
	// write to 0x6000.
	bankRegister uint16
}

func NewZ80Memory(bus *GenesisBus) *Z80Memory {
	return &Z80Memory{bus: bus}
}

func (m *Z80Memory) bankAddr(addr uint16) uint32 {
	return uint32(m.bankRegister)<<15 | uint32(addr&0x7FFF)
}

// vdpAddr maps a 0x7Fxx port to its 68000 alias.
func vdpAddr(addr uint16) uint32 {
	return 0xC00000 | uint32(addr&0x1F)
}

// Fetch implements z80.Bus. M1 cycles have no side effects here.
func (m *Z80Memory) Fetch(addr uint16) uint8 {
	return m.Read(addr)
}

// Read implements z80.Bus.
func (m *Z80Memory) Read(addr uint16) uint8 {
	switch z80WindowOf(addr) {
	case z80WinRAM:
		return m.bus.z80RAM[addr&(z80RAMSize-1)]
	case z80WinSound:
		return 0x00
	case z80WinVDP:
		if addr&0x1F >= 0x10 {
			// PSG and debug registers
			return 0xFF
		}
		return uint8(m.bus.readVDP(m68k.Byte, vdpAddr(addr)))
	case z80WinM68K:
		return uint8(m.bus.ReadCycle(0, m68k.Byte, m.bankAddr(addr)))
	default:
		return 0xFF
	}
}

// Write implements z80.Bus.
func (m *Z80Memory) Write(addr uint16, val uint8) {
	switch z80WindowOf(addr) {
	case z80WinRAM:
		m.bus.z80RAM[addr&(z80RAMSize-1)] = val
	case z80WinBank:
		m.bankRegister = m.bankRegister>>1 | uint16(val&1)<<8
	case z80WinVDP:
		m.bus.writeVDP(m68k.Byte, vdpAddr(addr), uint32(val))
	case z80WinM68K:
		m.bus.WriteCycle(0, m68k.Byte, m.bankAddr(addr), uint32(val))
	}
}

// In implements z80.Bus. Everything on this machine is memory mapped.
func (m *Z80Memory) In(port uint16) uint8 { return 0xFF }

// Out implements z80.Bus.
func (m *Z80Memory) Out(port uint16, val uint8) {}
