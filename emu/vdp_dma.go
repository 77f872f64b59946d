package emu

import (
	"context"
	"log/slog"
)

// BusReader provides word-level read access to the 68K bus for DMA transfers.
type BusReader interface {
	ReadWord(addr uint32) uint16
}

// DMAMode is the transfer selected by a DMA command. It is one of
// MemToVRAM, VRAMFill or VRAMCopy.
type DMAMode interface {
	dmaMode()
	String() string
}

// MemToVRAM copies words from the 68000 bus into VRAM, CRAM or VSRAM.
type MemToVRAM struct{}

// VRAMFill repeats the high byte of Data across VRAM. It only starts
// once Armed by the data port write that supplies Data.
type VRAMFill struct {
	Data  uint16
	Armed bool
}

// VRAMCopy copies bytes within VRAM.
type VRAMCopy struct{}

func (MemToVRAM) dmaMode() {}
func (VRAMFill) dmaMode()  {}
func (VRAMCopy) dmaMode()  {}

func (MemToVRAM) String() string { return "MEM_TO_VRAM" }
func (VRAMFill) String() string  { return "VRAM_FILL" }
func (VRAMCopy) String() string  { return "VRAM_COPY" }

// DMA runs VDP DMA transfers against the live register bank.
//
// Length (regs 19/20) and source (regs 21/22, plus the low 7 bits of 23
// for 68000 transfers) are read and written back on every unit. Reg 23 is
// never written.
type DMA struct {
	regs *Registers
	mem  *VideoMemory
	bus  BusReader
	log  *slog.Logger

	mode    DMAMode
	dest    uint16
	destRAM RAMType
}

// NewDMA creates a DMA engine over regs and mem. bus may be nil until
// the 68000 bus exists; 68000 transfers then read zero.
func NewDMA(regs *Registers, mem *VideoMemory, bus BusReader, logger *slog.Logger) *DMA {
	return &DMA{
		regs: regs,
		mem:  mem,
		bus:  bus,
		log:  componentLogger(logger, "dma"),
	}
}

// SetBus sets the bus reader for 68000 transfers.
func (d *DMA) SetBus(bus BusReader) {
	d.bus = bus
}

// Mode returns the pending or running transfer, nil when idle.
func (d *DMA) Mode() DMAMode { return d.mode }

// Active reports whether a transfer is set up and not yet complete.
func (d *DMA) Active() bool { return d.mode != nil }

// FillPending reports whether a fill is waiting for its data port write.
func (d *DMA) FillPending() bool {
	f, ok := d.mode.(VRAMFill)
	return ok && !f.Armed
}

// Dest returns the current destination address.
func (d *DMA) Dest() uint16 { return d.dest }

// DestRAM returns the destination memory.
func (d *DMA) DestRAM() RAMType { return d.destRAM }

// Setup decodes a DMA command. command is the two control words,
// first word in the upper half. A nil return means the command was
// declined: either M1 is off or the type/target combination is invalid.
func (d *DMA) Setup(vramMode VRAMMode, command uint32, m1 bool) DMAMode {
	if !m1 {
		d.log.Warn("attempting DMA but m1 not set", "vramMode", vramMode, "command", command)
		return nil
	}
	mode, ram, ok := decodeDMAMode(d.regs.DMAType(), vramMode)
	if !ok {
		d.log.Error("unexpected DMA setup", "dmaType", d.regs.DMAType(), "vramMode", vramMode)
		d.mode = nil
		return nil
	}
	d.mode = mode
	d.destRAM = ram
	d.dest = uint16((command&0x3)<<14 | (command>>16)&0x3FFF)
	d.logState("setup")
	return mode
}

func decodeDMAMode(dmaType uint8, vramMode VRAMMode) (DMAMode, RAMType, bool) {
	switch dmaType {
	case 3:
		// CD0-CD3 are ignored; copy only ever targets VRAM.
		return VRAMCopy{}, RAMVRAM, true
	case 2:
		if vramMode == VRAMWrite {
			return VRAMFill{}, RAMVRAM, true
		}
		fallthrough
	case 0, 1:
		if vramMode.IsWrite() {
			return MemToVRAM{}, vramMode.RAMType(), true
		}
	}
	return nil, 0, false
}

// StartFill handles the data port write that follows a fill command.
// The word is written immediately, low byte first at dest^1, and its
// high byte becomes the fill value for the slot loop.
func (d *DMA) StartFill(data uint16) bool {
	if _, ok := d.mode.(VRAMFill); !ok {
		return false
	}
	d.mode = VRAMFill{Data: data, Armed: true}
	d.mem.WriteVRAMByte(d.dest^1, uint8(data))
	d.mem.WriteVRAMByte(d.dest, uint8(data>>8))
	d.logState("start")
	return true
}

// DoDMA runs one scanline's worth of transfer units and reports whether
// the transfer finished. Completion only happens when the length reaches
// zero; units left over when the slot budget runs out wait for the next call.
func (d *DMA) DoDMA(vm VideoMode, blanking bool) bool {
	if d.mode == nil {
		return false
	}
	slots := SlotsPerLine(d.mode, vm, blanking)
	var done bool
	switch m := d.mode.(type) {
	case VRAMFill:
		if m.Armed {
			done = d.fill(slots, m.Data)
		}
	case VRAMCopy:
		done = d.copy(slots)
	case MemToVRAM:
		done = d.memToVRAM(slots)
	}
	if done {
		d.logState("done")
		d.mode = nil
	}
	return done
}

// Abandon drops any pending transfer without touching memory. Used on
// system reset only.
func (d *DMA) Abandon() {
	d.mode = nil
}

func (d *DMA) fill(slots int, data uint16) bool {
	msb := uint8(data >> 8)
	for {
		n := d.decreaseLength()
		d.mem.WriteVRAMByte(d.dest, msb)
		d.advanceSource()
		d.dest += d.regs.AutoIncrement()
		slots--
		if n == 0 {
			return true
		}
		if slots <= 0 {
			return false
		}
	}
}

func (d *DMA) copy(slots int) bool {
	for {
		n := d.decreaseLength()
		src := d.regs.DMASourceLow()
		d.mem.WriteVRAMByte(d.dest, d.mem.ReadVRAMByte(src))
		d.advanceSource()
		d.dest += d.regs.AutoIncrement()
		slots--
		if n == 0 {
			return true
		}
		if slots <= 0 {
			return false
		}
	}
}

// memToVRAM moves one word per two slots. CRAM and VSRAM targets get
// twice the VRAM budget.
func (d *DMA) memToVRAM(slots int) bool {
	if d.destRAM != RAMVRAM {
		slots *= 2
	}
	for {
		n := d.decreaseLength()
		src := d.sourceAddress() << 1
		slots -= 2
		var word uint16
		if d.bus != nil {
			word = d.bus.ReadWord(src)
		}
		d.mem.WriteWord(d.destRAM, d.dest, word)
		d.advanceSource()
		d.dest += d.regs.AutoIncrement()
		if n == 0 {
			return true
		}
		if slots <= 0 {
			return false
		}
	}
}

// sourceAddress is the live source in DMA units. Only 68000 transfers
// use reg 23.
func (d *DMA) sourceAddress() uint32 {
	src := uint32(d.regs.DMASourceLow())
	if _, ok := d.mode.(MemToVRAM); ok {
		src |= uint32(d.regs.DMASourceHigh()) << 16
	}
	return src
}

// advanceSource adds one to regs 21/22, for every mode.
func (d *DMA) advanceSource() {
	d.regs.SetDMASourceLow(d.regs.DMASourceLow() + 1)
}

func (d *DMA) decreaseLength() uint16 {
	n := DecreaseDMALength(d.regs.DMALength())
	d.regs.SetDMALength(n)
	return n
}

// DecreaseDMALength returns length-1 masked to the VRAM address width.
// The VDP decrements before testing for zero, so a length of 0 runs
// 0x10000 units.
func DecreaseDMALength(length uint16) uint16 {
	n := (int(length) - 1) & (VRAMSize - 1)
	return uint16(max(n, 0))
}

// SlotsPerLine is the number of DMA slots available per scanline.
func SlotsPerLine(mode DMAMode, vm VideoMode, blanking bool) int {
	h32 := vm.IsH32()
	switch mode.(type) {
	case MemToVRAM:
		if h32 {
			return pick(blanking, 167, 16)
		}
		return pick(blanking, 205, 18)
	case VRAMFill:
		if h32 {
			return pick(blanking, 166, 15)
		}
		return pick(blanking, 204, 17)
	case VRAMCopy:
		if h32 {
			return pick(blanking, 83, 8)
		}
		return pick(blanking, 102, 9)
	}
	return 0
}

func pick(blanking bool, blank, active int) int {
	if blanking {
		return blank
	}
	return active
}

func (d *DMA) logState(phase string) {
	if !d.log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	attrs := []any{
		"phase", phase,
		"mode", d.mode,
		"dest", d.dest,
		"destInc", d.regs.AutoIncrement(),
		"length", d.regs.DMALength(),
		"ram", d.destRAM,
	}
	if f, ok := d.mode.(VRAMFill); ok {
		attrs = append(attrs, "fillData", f.Data)
	} else if d.mode != nil {
		attrs = append(attrs, "src", d.sourceAddress())
	}
	d.log.Debug("dma", attrs...)
}
