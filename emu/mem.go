package emu

import (
	"hash/crc32"

	"github.com/user-none/go-chip-m68k"
)

const (
	mainRAMSize = 0x10000
	z80RAMSize  = 0x2000
	maxROMSize  = 0x400000
	addrMask    = 0xFFFFFF
)

// busRegion is one decoded window of the 68000 address space. Byte regions
// set readByte/writeByte and get sized access composed big-endian; word
// regions (the VDP) set read/write directly.
type busRegion struct {
	start, end uint32
	readByte   func(addr uint32) uint8
	writeByte  func(addr uint32, v uint8)
	read       func(s m68k.Size, addr uint32) uint32
	write      func(s m68k.Size, addr uint32, v uint32)
}

// GenesisBus is the 68000 bus: ROM, main RAM, the Z80 window and its
// control lines, the version register and the VDP ports. Anything else is
// open and reads as zero.
//
//	0x000000-0x3FFFFF  ROM
//	0xA00000-0xA0FFFF  Z80 space (first 8KB is Z80 RAM)
//	0xA10000-0xA1001F  version register, idle I/O ports
//	0xA11100-0xA11101  Z80 bus request
//	0xA11200-0xA11201  Z80 reset
//	0xC00000-0xDFFFFF  VDP ports, mirrored every 32 bytes
//	0xFF0000-0xFFFFFF  main RAM
type GenesisBus struct {
	rom    []byte
	ram    [mainRAMSize]byte
	z80RAM [z80RAMSize]byte
	romCRC uint32
	vdp    *VDP
	region ConsoleRegion

	z80BusRequested bool
	z80Reset        bool
	// z80PendingReset latches a release of the reset line until the
	// emulator resets the Z80 core.
	z80PendingReset bool

	regions []busRegion

	// cpu is consulted for the opcode in flight (TAS).
	cpu *m68k.CPU
}

// NewGenesisBus builds the bus over rom, which is cut to 4MB.
func NewGenesisBus(rom []byte, vdp *VDP) *GenesisBus {
	if len(rom) > maxROMSize {
		rom = rom[:maxROMSize]
	}
	b := &GenesisBus{
		rom:    rom,
		romCRC: crc32.ChecksumIEEE(rom),
		vdp:    vdp,
		region: vdp.ConsoleRegion(),
	}
	b.regions = []busRegion{
		{start: 0x000000, end: 0x3FFFFF, readByte: b.romByte},
		{start: 0xA00000, end: 0xA0FFFF, readByte: b.z80Byte, writeByte: b.setZ80Byte},
		{start: 0xA10000, end: 0xA1001F, readByte: b.ioByte},
		{start: 0xA11100, end: 0xA11101, readByte: b.busReqByte, writeByte: b.setBusReq},
		{start: 0xA11200, end: 0xA11201, readByte: func(uint32) uint8 { return 0 }, writeByte: b.setZ80Reset},
		{start: 0xC00000, end: 0xDFFFFF, read: b.readVDP, write: b.writeVDP},
		{start: 0xFF0000, end: 0xFFFFFF, readByte: b.ramByte, writeByte: b.setRAMByte},
	}
	return b
}

// SetCPU attaches the 68000 after construction; the CPU needs the bus first.
func (b *GenesisBus) SetCPU(cpu *m68k.CPU) {
	b.cpu = cpu
}

// wrap keeps a multi-byte access inside the region it started in.
func (r *busRegion) wrap(addr uint32) uint32 {
	if addr > r.end {
		return r.start + (addr-r.start)%(r.end-r.start+1)
	}
	return addr
}

func (b *GenesisBus) lookup(addr uint32) *busRegion {
	for i := range b.regions {
		if r := &b.regions[i]; addr >= r.start && addr <= r.end {
			return r
		}
	}
	return nil
}

// Read implements m68k.Bus.
func (b *GenesisBus) Read(s m68k.Size, addr uint32) uint32 {
	return b.ReadCycle(0, s, addr)
}

// ReadCycle implements m68k.CycleBus.
func (b *GenesisBus) ReadCycle(cycle uint64, s m68k.Size, addr uint32) uint32 {
	addr &= addrMask
	r := b.lookup(addr)
	switch {
	case r == nil:
		return 0
	case r.read != nil:
		return r.read(s, addr)
	}
	var v uint32
	for i := uint32(0); i < sizeBytes(s); i++ {
		v = v<<8 | uint32(r.readByte(r.wrap(addr+i)))
	}
	return v
}

// Write implements m68k.Bus.
func (b *GenesisBus) Write(s m68k.Size, addr uint32, value uint32) {
	b.WriteCycle(0, s, addr, value)
}

// WriteCycle implements m68k.CycleBus.
func (b *GenesisBus) WriteCycle(cycle uint64, s m68k.Size, addr uint32, value uint32) {
	// The bus arbiter never completes the write half of a TAS.
	if b.isTASWriteBack() {
		return
	}
	addr &= addrMask
	r := b.lookup(addr)
	switch {
	case r == nil:
		return
	case r.write != nil:
		r.write(s, addr, value)
		return
	case r.writeByte == nil:
		return
	}
	n := sizeBytes(s)
	for i := uint32(0); i < n; i++ {
		r.writeByte(r.wrap(addr+i), uint8(value>>(8*(n-1-i))))
	}
}

func sizeBytes(s m68k.Size) uint32 {
	switch s {
	case m68k.Byte:
		return 1
	case m68k.Long:
		return 4
	default:
		return 2
	}
}

// isTASWriteBack reports a TAS with a memory operand in flight
// (0x4AC0-0x4AFF, mode not Dn).
func (b *GenesisBus) isTASWriteBack() bool {
	if b.cpu == nil {
		return false
	}
	ir := b.cpu.Registers().IR
	return ir&0xFFC0 == 0x4AC0 && ir&0x0038 != 0
}

func (b *GenesisBus) romByte(addr uint32) uint8 {
	if addr < uint32(len(b.rom)) {
		return b.rom[addr]
	}
	return 0
}

func (b *GenesisBus) ramByte(addr uint32) uint8 { return b.ram[addr&(mainRAMSize-1)] }

func (b *GenesisBus) setRAMByte(addr uint32, v uint8) { b.ram[addr&(mainRAMSize-1)] = v }

// z80Byte reads Z80 RAM; the sound chip and bank windows read as zero from
// the 68000 side.
func (b *GenesisBus) z80Byte(addr uint32) uint8 {
	if off := addr - 0xA00000; off < z80RAMSize {
		return b.z80RAM[off]
	}
	return 0
}

func (b *GenesisBus) setZ80Byte(addr uint32, v uint8) {
	if off := addr - 0xA00000; off < z80RAMSize {
		b.z80RAM[off] = v
	}
}

// ioByte returns the version register at 0xA10000/1. Controller and
// expansion ports float high.
func (b *GenesisBus) ioByte(addr uint32) uint8 {
	if addr&0x1F <= 0x01 {
		return b.versionRegister()
	}
	return 0xFF
}

// busReqByte: bit 0 of 0xA11100 reads 0 once the Z80 bus is granted.
func (b *GenesisBus) busReqByte(addr uint32) uint8 {
	if addr == 0xA11100 && !b.z80BusRequested {
		return 0x01
	}
	return 0
}

func (b *GenesisBus) setBusReq(addr uint32, v uint8) {
	if addr == 0xA11100 {
		b.z80BusRequested = v&0x01 != 0
	}
}

// setZ80Reset: 0 holds the Z80 in reset, 1 releases it.
func (b *GenesisBus) setZ80Reset(addr uint32, v uint8) {
	if addr != 0xA11200 {
		return
	}
	release := v&0x01 != 0
	if release && !b.z80Reset {
		b.z80PendingReset = true
	}
	b.z80Reset = release
}

// versionRegister: bit 7 overseas, bit 6 PAL, bit 5 no expansion unit,
// bits 3-0 hardware version 0.
func (b *GenesisBus) versionRegister() uint8 {
	v := uint8(0x20)
	if b.region != ConsoleJapan {
		v |= 0x80
	}
	if b.region == ConsoleEurope {
		v |= 0x40
	}
	return v
}

// readVDP reads a VDP port. A byte read takes the even or odd half of the
// word; a long read is two word reads.
func (b *GenesisBus) readVDP(s m68k.Size, addr uint32) uint32 {
	var port func() uint16
	switch p := addr & 0x1F; {
	case p < 0x04:
		port = b.vdp.ReadData
	case p < 0x08:
		port = b.vdp.ReadControl
	case p < 0x10:
		port = b.vdp.ReadHVCounter
	default:
		return 0
	}
	switch s {
	case m68k.Byte:
		w := port()
		if addr&1 == 0 {
			w >>= 8
		}
		return uint32(w & 0xFF)
	case m68k.Long:
		return uint32(port())<<16 | uint32(port())
	default:
		return uint32(port())
	}
}

// writeVDP writes a VDP port. A byte is mirrored into both halves; a long
// is two words, high first. The HV counter, PSG and debug ports ignore
// writes here.
func (b *GenesisBus) writeVDP(s m68k.Size, addr uint32, value uint32) {
	var port func(uint16)
	switch p := addr & 0x1F; {
	case p < 0x04:
		port = b.vdp.WriteData
	case p < 0x08:
		port = b.vdp.WriteControl
	default:
		return
	}
	switch s {
	case m68k.Byte:
		port(uint16(value&0xFF) * 0x0101)
	case m68k.Long:
		port(uint16(value >> 16))
		port(uint16(value))
	default:
		port(uint16(value))
	}
}

// Reset implements m68k.Bus. Main and Z80 RAM are cleared.
func (b *GenesisBus) Reset() {
	clear(b.ram[:])
	clear(b.z80RAM[:])
}

// ROMCRC32 identifies the loaded image in logs.
func (b *GenesisBus) ROMCRC32() uint32 {
	return b.romCRC
}

// ReadWord implements BusReader for 68000 to VDP DMA.
func (b *GenesisBus) ReadWord(addr uint32) uint16 {
	return uint16(b.ReadCycle(0, m68k.Word, addr))
}
