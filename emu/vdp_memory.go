package emu

import "fmt"

const (
	VRAMSize  = 0x10000 // 64KB
	CRAMSize  = 128     // 64 colors x 2 bytes
	VSRAMSize = 80      // 40 entries x 2 bytes
)

// RAMType identifies one of the three VDP memories.
type RAMType uint8

const (
	RAMVRAM RAMType = iota
	RAMCRAM
	RAMVSRAM
)

func (t RAMType) String() string {
	switch t {
	case RAMVRAM:
		return "VRAM"
	case RAMCRAM:
		return "CRAM"
	case RAMVSRAM:
		return "VSRAM"
	}
	return fmt.Sprintf("RAMType(%d)", uint8(t))
}

// VRAMMode is the access target encoded in CD3-CD0 of the command code.
type VRAMMode uint8

const (
	VRAMRead   VRAMMode = 0x00
	VRAMWrite  VRAMMode = 0x01
	CRAMWrite  VRAMMode = 0x03
	VSRAMRead  VRAMMode = 0x04
	VSRAMWrite VRAMMode = 0x05
	CRAMRead   VRAMMode = 0x08
	VRAMRead8  VRAMMode = 0x0C
)

// IsWrite reports whether m is one of the three write targets.
func (m VRAMMode) IsWrite() bool {
	return m == VRAMWrite || m == CRAMWrite || m == VSRAMWrite
}

// RAMType returns the memory targeted by m.
func (m VRAMMode) RAMType() RAMType {
	switch m {
	case CRAMWrite, CRAMRead:
		return RAMCRAM
	case VSRAMWrite, VSRAMRead:
		return RAMVSRAM
	}
	return RAMVRAM
}

func (m VRAMMode) String() string {
	switch m {
	case VRAMRead:
		return "vramRead"
	case VRAMWrite:
		return "vramWrite"
	case CRAMWrite:
		return "cramWrite"
	case VSRAMRead:
		return "vsramRead"
	case VSRAMWrite:
		return "vsramWrite"
	case CRAMRead:
		return "cramRead"
	case VRAMRead8:
		return "vramRead8"
	}
	return fmt.Sprintf("VRAMMode(0x%02X)", uint8(m))
}

// VideoMemory holds VRAM, CRAM and VSRAM.
type VideoMemory struct {
	vram  [VRAMSize]uint8
	cram  [CRAMSize]uint8 // 9-bit color, bits masked on write
	vsram [VSRAMSize]uint8
}

// ReadVRAMByte reads one VRAM byte.
func (m *VideoMemory) ReadVRAMByte(addr uint16) uint8 {
	return m.vram[addr]
}

// WriteVRAMByte writes one VRAM byte.
func (m *VideoMemory) WriteVRAMByte(addr uint16, val uint8) {
	m.vram[addr] = val
}

// WriteWord writes a 16-bit word to the given memory.
// VRAM writes to an odd address are byte-swapped onto the aligned word.
// CRAM wraps at 0x80; VSRAM writes at 0x50-0x7F are discarded.
func (m *VideoMemory) WriteWord(ram RAMType, addr uint16, val uint16) {
	switch ram {
	case RAMVRAM:
		if addr&1 == 0 {
			m.vram[addr] = uint8(val >> 8)
			m.vram[addr+1] = uint8(val)
		} else {
			wordAddr := addr & 0xFFFE
			m.vram[wordAddr] = uint8(val)
			m.vram[wordAddr+1] = uint8(val >> 8)
		}
	case RAMCRAM:
		a := addr & 0x7E
		m.cram[a] = uint8(val>>8) & 0x0E
		m.cram[a+1] = uint8(val) & 0xEE
	case RAMVSRAM:
		a := addr & 0x7E
		if a < VSRAMSize {
			m.vsram[a] = uint8(val>>8) & 0x03
			m.vsram[a+1] = uint8(val)
		}
	}
}

// ReadWord reads a 16-bit word from the given memory.
func (m *VideoMemory) ReadWord(ram RAMType, addr uint16) uint16 {
	switch ram {
	case RAMVRAM:
		a := addr & 0xFFFE
		return uint16(m.vram[a])<<8 | uint16(m.vram[a+1])
	case RAMCRAM:
		a := addr & 0x7E
		return uint16(m.cram[a])<<8 | uint16(m.cram[a+1])
	case RAMVSRAM:
		a := addr & 0x7E
		if a < VSRAMSize {
			return uint16(m.vsram[a])<<8 | uint16(m.vsram[a+1])
		}
	}
	return 0
}
