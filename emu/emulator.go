package emu

import (
	"log/slog"
)

// Stats counts work done by the system loop.
type Stats struct {
	Frames        uint64
	Ticks         uint64
	M68KStepped   uint64 // instructions executed
	M68KStalled   uint64 // ticks the 68000 spent halted
	Z80Stepped    uint64 // instructions and interrupt entries
	DMATicks      uint64 // ticks with a DMA set up or running
	Interrupts    ArbiterStats
	FIFOHighWater int
}

// Emulator owns the VDP, both CPUs and the arbiter, and steps them in
// lock step one VDP slot at a time:
//
//	68000 instructions -> 68000 interrupt poll -> Z80 instructions ->
//	Z80 interrupt poll -> VDP slot (counters, DMA, FIFO) -> stop mask
//
// It is not safe for concurrent use; other goroutines read Snapshot.
type Emulator struct {
	cfg     Config
	timing  RegionTiming
	vdp     *VDP
	bus     *GenesisBus
	m68k    *M68K
	z80     *Z80
	z80Mem  *Z80Memory
	arbiter *Arbiter
	log     *slog.Logger

	// Master clock cycles owed to each CPU. Negative means the CPU ran
	// past the slot boundary and waits.
	m68kBudget int
	z80Budget  int
	// Bresenham remainder spreading LineMCLK over the slots of a line.
	slotRem int

	stats Stats
}

// NewEmulator wires a system around rom.
func NewEmulator(rom []byte, cfg Config) (*Emulator, error) {
	vdp, err := NewVDP(cfg)
	if err != nil {
		return nil, err
	}
	logger := cfg.logger()

	bus := NewGenesisBus(rom, vdp)
	vdp.SetBus(bus)

	cpu := NewM68K(bus)
	bus.SetCPU(cpu.CPU())

	z80Mem := NewZ80Memory(bus)
	z80CPU := NewZ80(z80Mem)

	e := &Emulator{
		cfg:     cfg,
		timing:  GetTimingForRegion(cfg.Region.DisplayRegion()),
		vdp:     vdp,
		bus:     bus,
		m68k:    cpu,
		z80:     z80CPU,
		z80Mem:  z80Mem,
		arbiter: NewArbiter(vdp, cpu, z80CPU, logger),
		log:     componentLogger(logger, "system"),
	}
	e.log.Info("system created", "region", cfg.Region, "mode", vdp.VideoMode(),
		"romSize", len(rom), "romCRC", bus.ROMCRC32())
	return e, nil
}

func (e *Emulator) VDP() *VDP { return e.vdp }
func (e *Emulator) Bus() *GenesisBus { return e.bus }
func (e *Emulator) Arbiter() *Arbiter { return e.arbiter }
func (e *Emulator) M68K() *M68K { return e.m68k }
func (e *Emulator) Z80() *Z80 { return e.z80 }
func (e *Emulator) Timing() RegionTiming { return e.timing }

// DMAActive reports whether a DMA is set up or running.
func (e *Emulator) DMAActive() bool { return e.vdp.DMAActive() }

// Snapshot returns the last VDP view published at a frame boundary.
func (e *Emulator) Snapshot() *Snapshot { return e.vdp.Snapshot() }

// Stats returns the loop counters.
func (e *Emulator) Stats() Stats {
	s := e.stats
	s.Interrupts = e.arbiter.Stats()
	return s
}

// slotMCLK returns the master clocks covered by the next VDP slot.
func (e *Emulator) slotMCLK() int {
	hTotal := e.vdp.Timing().Params().HTotal
	mclk := e.timing.LineMCLK / hTotal
	e.slotRem += e.timing.LineMCLK % hTotal
	if e.slotRem >= hTotal {
		e.slotRem -= hTotal
		mclk++
	}
	return mclk
}

// Tick runs both CPUs for one VDP slot and then advances the VDP.
// Returns true when the slot completed a frame.
func (e *Emulator) Tick() bool {
	mclk := e.slotMCLK()

	e.runM68K(mclk)
	e.runZ80(mclk)

	if e.vdp.DMAActive() {
		e.stats.DMATicks++
	}
	frameEnd := e.vdp.RunSlot()
	e.syncStop()

	if n := e.vdp.FIFO().Len(); n > e.stats.FIFOHighWater {
		e.stats.FIFOHighWater = n
	}
	e.stats.Ticks++
	if frameEnd {
		e.arbiter.NewFrame()
		e.stats.Frames++
	}
	return frameEnd
}

// RunFrame ticks until the raster reaches the end of the frame.
func (e *Emulator) RunFrame() {
	for !e.Tick() {
	}
}

func (e *Emulator) runM68K(mclk int) {
	div := e.timing.M68KDivider
	e.m68kBudget += mclk
	if e.m68k.IsStopped() {
		e.stats.M68KStalled++
	}
	for e.m68kBudget > 0 {
		stall := (e.m68kBudget + div - 1) / div
		stopped := e.m68k.IsStopped()
		cycles := e.m68k.Step(stall)
		if cycles == 0 {
			// CPU halted (double bus fault)
			e.m68kBudget = 0
			break
		}
		e.m68kBudget -= cycles * div
		if !stopped {
			e.stats.M68KStepped++
		}
		e.arbiter.Handle68k()
		// A write may have filled the FIFO or started a DMA.
		e.syncStop()
	}
}

func (e *Emulator) runZ80(mclk int) {
	// Handle Z80 reset transition (reset deasserted = Z80 can start)
	if e.bus.z80PendingReset {
		e.z80.Reset()
		e.bus.z80PendingReset = false
	}

	stop := 0
	if !e.bus.z80Reset {
		stop |= 1
	}
	if e.bus.z80BusRequested {
		stop |= 2
	}
	e.z80.SetStop(stop)

	// The Z80 is paused while the 68K holds the bus or reset is asserted.
	if e.z80.IsStopped() {
		e.z80Budget = 0
		e.arbiter.HandleZ80()
		return
	}

	div := e.timing.Z80Divider
	e.z80Budget += mclk
	polled := false
	for e.z80Budget > 0 {
		cycles := e.z80.Step()
		if cycles == 0 {
			e.z80Budget = 0
			break
		}
		e.z80Budget -= cycles * div
		e.stats.Z80Stepped++
		e.arbiter.HandleZ80()
		polled = true
	}
	if !polled {
		e.arbiter.HandleZ80()
	}
}

func (e *Emulator) syncStop() {
	mask := e.vdp.StopMask()
	e.arbiter.SetStop68k(mask)
	e.m68k.SetStop(mask)
}
