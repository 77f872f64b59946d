package emu

import "fmt"

// DMAState is the transfer in progress. Source and length are not part
// of it; they live in the register bank.
type DMAState struct {
	Mode    DMAMode // nil when idle
	Dest    uint16
	DestRAM RAMType
}

// State is the complete VDP core state as plain data, for an external
// serializer. Slices are copies; State shares nothing with the VDP.
type State struct {
	Regs  [NumRegisters]uint8
	VRAM  [VRAMSize]uint8
	CRAM  [CRAMSize]uint8
	VSRAM [VSRAMSize]uint8

	Mode     VideoMode
	Counters CounterState

	WritePending bool
	Code         uint8
	Address      uint16
	FirstWord    uint16
	ReadBuffer   uint16

	FIFO      []FIFOEntry
	Backlog   []FIFOEntry
	DrainTick int
	DMA       DMAState
	DMABusy   bool
	Frames    uint64
}

// State captures the VDP between ticks.
func (v *VDP) State() State {
	st := State{
		Regs:         v.regs.Array(),
		VRAM:         v.mem.vram,
		CRAM:         v.mem.cram,
		VSRAM:        v.mem.vsram,
		Mode:         v.timing.Mode(),
		Counters:     v.timing.CounterState,
		WritePending: v.writePending,
		Code:         v.code,
		Address:      v.address,
		FirstWord:    v.firstWord,
		ReadBuffer:   v.readBuffer,
		FIFO:         v.fifo.Entries(),
		Backlog:      append([]FIFOEntry(nil), v.backlog...),
		DrainTick:    v.drainTick,
		DMA:          DMAState{Mode: v.dma.mode, Dest: v.dma.dest, DestRAM: v.dma.destRAM},
		DMABusy:      v.dmaBusy,
		Frames:       v.frames,
	}
	return st
}

// SetState restores a captured state. The state is checked against this
// VDP's region and FIFO geometry before anything is changed.
func (v *VDP) SetState(st State) error {
	var regs Registers
	regs.Load(st.Regs)
	if want := regs.VideoMode(v.region); st.Mode != want {
		return fmt.Errorf("%w: mode %v, registers select %v", ErrStateMismatch, st.Mode, want)
	}
	if len(st.FIFO) > v.fifo.Cap() {
		return fmt.Errorf("%w: %d fifo entries, capacity %d", ErrStateMismatch, len(st.FIFO), v.fifo.Cap())
	}
	if st.DMABusy != (st.DMA.Mode != nil) {
		return fmt.Errorf("%w: dma busy %v with mode %v", ErrStateMismatch, st.DMABusy, st.DMA.Mode)
	}

	v.regs = regs
	v.mem.vram = st.VRAM
	v.mem.cram = st.CRAM
	v.mem.vsram = st.VSRAM

	v.timing.SetMode(st.Mode)
	v.timing.CounterState = st.Counters

	v.writePending = st.WritePending
	v.code = st.Code
	v.address = st.Address
	v.firstWord = st.FirstWord
	v.readBuffer = st.ReadBuffer

	v.fifo.Reset()
	for _, e := range st.FIFO {
		// Cannot fail: length checked above.
		_ = v.fifo.Push(e.Mode, e.Address, e.Data)
	}
	v.backlog = append(v.backlog[:0], st.Backlog...)
	v.drainTick = st.DrainTick

	v.dma.mode = st.DMA.Mode
	v.dma.dest = st.DMA.Dest
	v.dma.destRAM = st.DMA.DestRAM
	v.dmaBusy = st.DMABusy
	v.frames = st.Frames

	v.publish()
	return nil
}

// Snapshot is a read-only view of the VDP published at frame boundaries
// for readers on other goroutines.
type Snapshot struct {
	Frame       uint64
	Mode        VideoMode
	Counters    CounterState
	Regs        [NumRegisters]uint8
	Status      uint16
	FIFOLen     int
	DMAMode     string
	DMALength   uint16
	DMAActive   bool
	StoppedMask int
}

// Snapshot returns the most recently published view. Safe from any goroutine.
func (v *VDP) Snapshot() *Snapshot {
	return v.snapshot.Load()
}

func (v *VDP) publish() {
	s := &Snapshot{
		Frame:       v.frames,
		Mode:        v.timing.Mode(),
		Counters:    v.timing.CounterState,
		Regs:        v.regs.Array(),
		Status:      v.peekStatus(),
		FIFOLen:     v.fifo.Len(),
		DMALength:   v.regs.DMALength(),
		DMAActive:   v.dmaBusy,
		StoppedMask: v.StopMask(),
	}
	if m := v.dma.Mode(); m != nil {
		s.DMAMode = m.String()
	}
	v.snapshot.Store(s)
}

// peekStatus reads the status register without the read side effects.
func (v *VDP) peekStatus() uint16 {
	pending := v.writePending
	s := v.ReadControl()
	v.writePending = pending
	return s
}
