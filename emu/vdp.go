package emu

import (
	"log/slog"
	"sync/atomic"
)

// Stop mask bits reported to the arbiter. A non-zero mask halts the 68000.
const (
	StopDMA  = 1 << 0 // transfer running, bus held
	StopFIFO = 1 << 1 // FIFO full, the 68000 waits for a slot
)

// VDP is the Genesis Video Display Processor timing, FIFO and DMA core.
// It is owned by a single goroutine; other goroutines read Snapshot.
type VDP struct {
	regs   Registers
	mem    VideoMemory
	timing *VideoTiming
	fifo   *FIFO
	dma    *DMA
	region ConsoleRegion
	log    *slog.Logger

	// Control port state machine
	writePending bool
	code         uint8  // CD5-CD0 (6 bits)
	address      uint16 // 16-bit VRAM/CRAM/VSRAM address
	firstWord    uint16 // First half of a two-word command
	readBuffer   uint16 // Pre-fetch buffer for data reads

	dmaBusy bool

	// Writes refused by a full FIFO. They are retried as slots free up
	// and keep the 68000 stopped until then.
	backlog []FIFOEntry

	drainTick int
	frames    uint64

	snapshot atomic.Pointer[Snapshot]
}

// NewVDP creates a VDP for cfg. The bus for 68K->VDP DMA is set later
// with SetBus because the bus itself needs the VDP.
func NewVDP(cfg Config) (*VDP, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.logger()
	v := &VDP{
		region: cfg.Region,
		log:    componentLogger(logger, "vdp"),
	}
	v.timing = NewVideoTiming(&v.regs, logger)
	v.fifo = NewFIFO(cfg.FIFOCapacity, cfg.FIFOFullThreshold, logger)
	v.dma = NewDMA(&v.regs, &v.mem, nil, logger)
	v.timing.SetMode(v.regs.VideoMode(v.region))
	v.publish()
	return v, nil
}

// SetBus sets the bus reader for DMA transfers.
// Called after GenesisBus is created due to circular construction dependency.
func (v *VDP) SetBus(bus BusReader) {
	v.dma.SetBus(bus)
}

// Reset clears registers, pending writes and any DMA, and restarts the raster.
func (v *VDP) Reset() {
	v.regs = Registers{}
	v.fifo.Reset()
	v.dma.Abandon()
	v.backlog = v.backlog[:0]
	v.dmaBusy = false
	v.writePending = false
	v.code = 0
	v.address = 0
	v.readBuffer = 0
	v.timing.SetMode(v.regs.VideoMode(v.region))
	v.timing.Reset()
	v.timing.HIntPending = false
	v.publish()
}

// Registers exposes the register bank.
func (v *VDP) Registers() *Registers { return &v.regs }

// Memory exposes VRAM, CRAM and VSRAM.
func (v *VDP) Memory() *VideoMemory { return &v.mem }

// Timing exposes the raster counters.
func (v *VDP) Timing() *VideoTiming { return v.timing }

// FIFO exposes the write queue.
func (v *VDP) FIFO() *FIFO { return v.fifo }

// DMA exposes the transfer engine.
func (v *VDP) DMA() *DMA { return v.dma }

// VideoMode returns the active video mode.
func (v *VDP) VideoMode() VideoMode { return v.timing.Mode() }

// DMAActive reports whether a DMA is set up or running.
func (v *VDP) DMAActive() bool { return v.dmaBusy }

// Frames returns the number of completed frames.
func (v *VDP) Frames() uint64 { return v.frames }

// --- Interrupt source ---

func (v *VDP) VIntPending() bool { return v.timing.VIntPending }
func (v *VDP) HIntPending() bool { return v.timing.HIntPending }
func (v *VDP) SetVIntPending(b bool) { v.timing.VIntPending = b }
func (v *VDP) SetHIntPending(b bool) { v.timing.HIntPending = b }
func (v *VDP) VIntEnabled() bool { return v.regs.VIntEnabled() }
func (v *VDP) HIntEnabled() bool { return v.regs.HIntEnabled() }
func (v *VDP) VCounter() int { return v.timing.VCounter }
func (v *VDP) HCounter() int { return v.timing.HCounter }
func (v *VDP) ConsoleRegion() ConsoleRegion { return v.region }

// StopMask returns the reasons the 68000 must not run this tick.
func (v *VDP) StopMask() int {
	mask := 0
	// A fill waiting for its data word must leave the 68000 free to
	// write it.
	if v.dmaBusy && !v.dma.FillPending() {
		mask |= StopDMA
	}
	if len(v.backlog) > 0 || v.fifo.Full() {
		mask |= StopFIFO
	}
	return mask
}

// isBlanking reports whether DMA and FIFO get the blanking slot rate.
func (v *VDP) isBlanking() bool {
	return v.timing.VBlankSet || !v.regs.DisplayEnabled()
}

// --- Control port ---

// WriteControl writes to the VDP control port.
func (v *VDP) WriteControl(val uint16) {
	// Register writes (bits 15:14 = 10) are ALWAYS detected, even when
	// writePending is true. A register write cancels any pending
	// two-word command.
	if val&0xC000 == 0x8000 {
		v.writeRegister(int((val>>8)&0x1F), uint8(val))
		v.code = (v.code & 0x3C) | (uint8(val>>14) & 0x03)
		v.writePending = false
		return
	}

	if !v.writePending {
		// First word of two-word command
		v.writePending = true
		v.firstWord = val
		v.code = (v.code & 0x3C) | (uint8(val>>14) & 0x03)
		v.address = (v.address & 0xC000) | (val & 0x3FFF)
		return
	}

	// Second word of two-word command
	v.writePending = false
	v.code = (v.code & 0x03) | (uint8(val>>2) & 0x3C)
	v.address = (v.address & 0x3FFF) | ((val & 0x03) << 14)

	if v.code&0x20 != 0 {
		v.setupDMA(uint32(v.firstWord)<<16 | uint32(val))
		return
	}

	// If this sets up a read command, pre-fetch
	if v.code&0x01 == 0 {
		v.flushFIFO()
		v.prefetch()
	}
}

func (v *VDP) setupDMA(command uint32) {
	if v.dmaBusy && !v.dma.FillPending() {
		// Only the Z80 can get here; a running transfer always completes.
		v.log.Warn("dma command ignored while a transfer is running",
			"running", v.dma.Mode(), "command", command)
		v.code &^= 0x20
		return
	}
	// Writes queued before the command land first.
	v.flushFIFO()
	mode := v.dma.Setup(VRAMMode(v.code&0x0F), command, v.regs.DMAEnabled())
	if mode == nil {
		v.code &^= 0x20
		v.dmaBusy = v.dma.Active()
		return
	}
	v.dmaBusy = true
	v.log.Debug("dma busy", "mode", mode, "dest", v.dma.Dest())
}

// ReadControl returns the VDP status register.
// Reading the status register clears writePending.
func (v *VDP) ReadControl() uint16 {
	// Bits 15:10 read as fixed value 011101
	var status uint16 = 0x7400

	if v.fifo.Empty() && len(v.backlog) == 0 {
		status |= 1 << 9
	}
	if v.fifo.Full() {
		status |= 1 << 8
	}
	if v.timing.VIntPending {
		status |= 1 << 7
	}
	if v.isBlanking() {
		status |= 1 << 3
	}
	if v.timing.HBlankSet {
		status |= 1 << 2
	}
	if v.dmaBusy {
		status |= 1 << 1
	}
	if v.region == ConsoleEurope {
		status |= 1
	}

	v.writePending = false
	return status
}

// writeRegister writes a value to a VDP register with bounds checking.
func (v *VDP) writeRegister(reg int, data uint8) {
	if reg >= NumRegisters {
		v.log.Debug("ignoring write to invalid register", "reg", reg, "data", data)
		return
	}
	v.regs.Set(reg, data)
	if reg == 1 || reg == 12 {
		v.updateVideoMode()
	}
}

func (v *VDP) updateVideoMode() {
	mode := v.regs.VideoMode(v.region)
	if mode == v.timing.Mode() {
		return
	}
	v.log.Info("video mode change", "from", v.timing.Mode(), "to", mode)
	v.timing.SetMode(mode)
}

// --- Data port ---

// WriteData writes to the VDP data port. The write is queued; a fill
// waiting for its data word takes it directly.
func (v *VDP) WriteData(val uint16) {
	v.writePending = false

	if v.dma.FillPending() {
		v.dma.StartFill(val)
		return
	}

	v.enqueue(FIFOEntry{Mode: VRAMMode(v.code & 0x0F), Address: v.address, Data: val})
	v.address += v.regs.AutoIncrement()
}

func (v *VDP) enqueue(e FIFOEntry) {
	if len(v.backlog) == 0 {
		err := v.fifo.Push(e.Mode, e.Address, e.Data)
		if err == nil {
			return
		}
		v.log.Debug("stalling 68000", "reason", err, "address", e.Address)
	}
	v.backlog = append(v.backlog, e)
}

// ReadData reads from the VDP data port.
// Returns the pre-fetched value, then fetches the next value.
func (v *VDP) ReadData() uint16 {
	v.writePending = false
	v.flushFIFO()

	result := v.readBuffer
	v.prefetch()
	return result
}

// prefetch reads the next value into readBuffer based on current code and address.
func (v *VDP) prefetch() {
	switch mode := VRAMMode(v.code & 0x0F); mode {
	case VRAMRead, VSRAMRead, CRAMRead:
		v.readBuffer = v.mem.ReadWord(mode.RAMType(), v.address)
	case VRAMRead8:
		v.readBuffer = uint16(v.mem.ReadVRAMByte(v.address ^ 1))
	default:
		v.readBuffer = 0
	}
	v.address += v.regs.AutoIncrement()
}

// ReadHVCounter returns the HV counter value.
func (v *VDP) ReadHVCounter() uint16 {
	return uint16(v.timing.VCounterExternal())<<8 | uint16(v.timing.HCounterExternal())
}

// --- Slot stepping ---

// RunSlot advances the VDP by one pixel clock: the raster moves, then
// either one line of DMA runs (at the start of each line) or a pending
// write drains. Returns true on the last slot of a frame.
func (v *VDP) RunSlot() bool {
	v.timing.AdvanceH()

	if v.dmaBusy {
		if v.timing.IsLineStart() {
			v.runDMA()
		}
	} else {
		v.drainSlot()
	}

	if v.timing.IsFrameEnd() {
		v.frames++
		v.publish()
		return true
	}
	return false
}

func (v *VDP) runDMA() {
	if !v.dma.DoDMA(v.timing.Mode(), v.isBlanking()) {
		return
	}
	v.dmaBusy = false
	v.address = v.dma.Dest()
	v.code &^= 0x20
	v.log.Debug("dma complete", "address", v.address)
}

// drainInterval is the number of slots between FIFO drains during active
// display, spreading the external access slots over the line.
func (v *VDP) drainInterval() int {
	n := SlotsPerLine(MemToVRAM{}, v.timing.Mode(), false)
	return v.timing.Params().HTotal / n
}

func (v *VDP) drainSlot() {
	if v.fifo.Empty() && len(v.backlog) == 0 {
		v.drainTick = 0
		return
	}
	v.drainTick++
	if !v.isBlanking() && !v.timing.HBlankSet && v.drainTick < v.drainInterval() {
		return
	}
	v.drainTick = 0
	v.drainOne()
}

// drainOne commits the oldest queued write and moves one refused write
// into the freed slot.
func (v *VDP) drainOne() {
	if e, ok := v.fifo.Pop(); ok {
		v.commit(e)
	}
	if len(v.backlog) > 0 {
		if err := v.fifo.Push(v.backlog[0].Mode, v.backlog[0].Address, v.backlog[0].Data); err == nil {
			v.backlog = v.backlog[1:]
		}
	}
}

// flushFIFO commits every pending write immediately.
func (v *VDP) flushFIFO() {
	for !v.fifo.Empty() || len(v.backlog) > 0 {
		v.drainOne()
	}
}

func (v *VDP) commit(e FIFOEntry) {
	if !e.Mode.IsWrite() {
		v.log.Debug("data write with read code discarded", "mode", e.Mode, "address", e.Address)
		return
	}
	v.mem.WriteWord(e.Mode.RAMType(), e.Address, e.Data)
}
