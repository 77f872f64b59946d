package emu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user-none/go-chip-m68k"
)

func makeTestZ80Memory() *Z80Memory {
	return NewZ80Memory(makeTestBus())
}

// setBank shifts a 9-bit bank number into the bank register, LSB first.
func setBank(mem *Z80Memory, bank uint16) {
	for i := 0; i < 9; i++ {
		mem.Write(0x6000, uint8(bank>>i)&1)
	}
}

func TestZ80Memory_RAMAndMirror(t *testing.T) {
	mem := makeTestZ80Memory()

	mem.Write(0x0000, 0x42)
	mem.Write(0x1FFF, 0xAB)
	assert.Equal(t, uint8(0x42), mem.Read(0x0000))
	assert.Equal(t, uint8(0xAB), mem.Read(0x1FFF))

	// 0x2000-0x3FFF mirrors 0x0000-0x1FFF in both directions.
	mem.Write(0x0100, 0x55)
	assert.Equal(t, uint8(0x55), mem.Read(0x2100))
	mem.Write(0x2200, 0x77)
	assert.Equal(t, uint8(0x77), mem.Read(0x0200))

	assert.Equal(t, mem.Read(0x0100), mem.Fetch(0x0100))
}

func TestZ80Memory_SoundWindow(t *testing.T) {
	mem := makeTestZ80Memory()
	mem.Write(0x4000, 0xFF)
	mem.Write(0x5FFF, 0xFF)
	assert.Equal(t, uint8(0), mem.Read(0x4000))
	assert.Equal(t, uint8(0), mem.Read(0x5FFF))
	assert.Equal(t, uint8(0), mem.Read(0x0000), "RAM untouched")
}

func TestZ80Memory_UnusedAndReserved(t *testing.T) {
	mem := makeTestZ80Memory()
	for _, addr := range []uint16{0x6000, 0x6001, 0x7EFF, 0x7F10, 0x7F11, 0x7F20, 0x7FFF} {
		assert.Equal(t, uint8(0xFF), mem.Read(addr), "addr 0x%04X", addr)
	}
	mem.Write(0x7F20, 0xFF)
	mem.Write(0x7FFF, 0xFF)
	mem.Write(0x7F11, 0x95) // PSG port, not modelled
	assert.True(t, mem.bus.vdp.FIFO().Empty())
}

func TestZ80Memory_IOPorts(t *testing.T) {
	mem := makeTestZ80Memory()
	mem.Out(0x10, 0x55)
	assert.Equal(t, uint8(0xFF), mem.In(0x10))
}

func TestZ80Memory_BankRegisterShift(t *testing.T) {
	mem := makeTestZ80Memory()

	for i := 0; i < 9; i++ {
		mem.Write(0x6000, 0x01)
	}
	assert.Equal(t, uint16(0x1FF), mem.bankRegister)

	for i := 0; i < 9; i++ {
		mem.Write(0x6000, 0x00)
	}
	assert.Equal(t, uint16(0x000), mem.bankRegister)

	// reg = reg>>1 | bit<<8, so the last bit written lands in bit 8.
	setBank(mem, 0x100)
	assert.Equal(t, uint16(0x100), mem.bankRegister)
}

func TestZ80Memory_BankWindow(t *testing.T) {
	mem := makeTestZ80Memory()

	// Bank 0 maps 68000 0x000000-0x007FFF (ROM).
	assert.Equal(t, uint8(0x00), mem.Read(0x8000))
	assert.Equal(t, uint8(0xFF), mem.Read(0x8001))
	assert.Equal(t, uint8(0x4E), mem.Read(0x8200))

	// Bank 0x1FE maps 0xFF0000 (main RAM).
	setBank(mem, 0xFF0000>>15)
	require.Equal(t, uint16(0x1FE), mem.bankRegister)
	mem.Write(0x8000, 0xAA)
	assert.Equal(t, uint32(0xAA), mem.bus.ReadCycle(0, m68k.Byte, 0xFF0000))
	assert.Equal(t, uint8(0xAA), mem.Read(0x8000))
}

func TestZ80Memory_VDPStatusRead(t *testing.T) {
	mem := makeTestZ80Memory()
	// 0x7400 fixed | 0x0200 FIFO empty | 0x0008 display off.
	assert.Equal(t, uint8(0x76), mem.Read(0x7F04))
	assert.Equal(t, uint8(0x08), mem.Read(0x7F05))
}

func TestZ80Memory_VDPDataWrite(t *testing.T) {
	mem := makeTestZ80Memory()
	vdp := mem.bus.vdp
	writeControl(vdp, 0x4000, 0x0000) // VRAM write at 0

	// The Z80 byte is duplicated across the word.
	mem.Write(0x7F00, 0xAB)
	require.Equal(t, 1, vdp.FIFO().Len())
	vdp.flushFIFO()

	assert.Equal(t, uint8(0xAB), vdp.Memory().ReadVRAMByte(0))
	assert.Equal(t, uint8(0xAB), vdp.Memory().ReadVRAMByte(1))
}

func TestZ80Memory_VDPControlWrite(t *testing.T) {
	mem := makeTestZ80Memory()
	// 0x8F8F: reg 15 = 0x8F
	mem.Write(0x7F04, 0x8F)
	assert.Equal(t, uint16(0x8F), mem.bus.vdp.Registers().AutoIncrement())
}

func TestZ80Memory_VDPDataRead(t *testing.T) {
	mem := makeTestZ80Memory()
	vdp := mem.bus.vdp
	vdp.Memory().WriteVRAMByte(0, 0xDE)
	vdp.Memory().WriteVRAMByte(1, 0xAD)

	// Two zero control bytes: VRAM read at 0.
	mem.Write(0x7F04, 0x00)
	mem.Write(0x7F04, 0x00)

	assert.Equal(t, uint8(0xDE), mem.Read(0x7F00))
}

func TestZ80Memory_HVCounterRead(t *testing.T) {
	mem := makeTestZ80Memory()
	assert.Equal(t, uint8(0x00), mem.Read(0x7F08))
	assert.Equal(t, uint8(0x00), mem.Read(0x7F09))

	vdp := mem.bus.vdp
	for vdp.VCounter() == 0 {
		vdp.RunSlot()
	}
	hv := vdp.ReadHVCounter()
	assert.Equal(t, uint8(hv>>8), mem.Read(0x7F08))
	assert.Equal(t, uint8(hv), mem.Read(0x7F09))
	assert.Equal(t, uint8(1), mem.Read(0x7F08))
}
