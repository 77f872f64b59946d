package emu

import "log/slog"

// FIFOEntry is one pending data port write.
type FIFOEntry struct {
	Mode    VRAMMode
	Address uint16
	Data    uint16
}

// FIFO is the circular write queue between the 68000 and VDP memory.
//
// Capacity is the number of physical slots; a push beyond it fails.
// Full() uses a separate threshold so backpressure can start before the
// physical limit.
type FIFO struct {
	entries   []FIFOEntry
	pushIdx   int
	popIdx    int
	size      int
	threshold int
	log       *slog.Logger
}

// NewFIFO creates a queue with capacity slots that reports full at
// threshold entries.
func NewFIFO(capacity, threshold int, logger *slog.Logger) *FIFO {
	if capacity < 1 {
		capacity = DefaultFIFOCapacity
	}
	if threshold < 1 || threshold > capacity {
		threshold = capacity
	}
	return &FIFO{
		entries:   make([]FIFOEntry, capacity),
		threshold: threshold,
		log:       componentLogger(logger, "fifo"),
	}
}

// Push queues a write. When every physical slot is taken nothing is
// stored and ErrFIFOFull is returned; stalling the writer is the
// caller's job.
func (f *FIFO) Push(mode VRAMMode, addr uint16, data uint16) error {
	if f.size == len(f.entries) {
		f.log.Debug("fifo full", "mode", mode, "address", addr)
		return ErrFIFOFull
	}
	f.entries[f.pushIdx] = FIFOEntry{Mode: mode, Address: addr, Data: data}
	f.pushIdx = (f.pushIdx + 1) % len(f.entries)
	f.size++
	f.log.Debug("fifo push", "mode", mode, "address", addr, "data", data, "size", f.size)
	return nil
}

// Pop removes the oldest entry.
func (f *FIFO) Pop() (FIFOEntry, bool) {
	if f.size == 0 {
		return FIFOEntry{}, false
	}
	e := f.entries[f.popIdx]
	f.popIdx = (f.popIdx + 1) % len(f.entries)
	f.size--
	f.log.Debug("fifo pop", "mode", e.Mode, "address", e.Address, "data", e.Data, "size", f.size)
	return e, true
}

// Peek returns the oldest entry without removing it.
func (f *FIFO) Peek() (FIFOEntry, bool) {
	if f.size == 0 {
		return FIFOEntry{}, false
	}
	return f.entries[f.popIdx], true
}

// Empty reports whether no writes are pending.
func (f *FIFO) Empty() bool { return f.size == 0 }

// Full reports whether the logical threshold has been reached.
func (f *FIFO) Full() bool { return f.size >= f.threshold }

// Len returns the number of pending writes.
func (f *FIFO) Len() int { return f.size }

// Cap returns the physical capacity.
func (f *FIFO) Cap() int { return len(f.entries) }

// Entries returns the pending writes, oldest first.
func (f *FIFO) Entries() []FIFOEntry {
	out := make([]FIFOEntry, 0, f.size)
	for i := 0; i < f.size; i++ {
		out = append(out, f.entries[(f.popIdx+i)%len(f.entries)])
	}
	return out
}

// Reset drops every pending write.
func (f *FIFO) Reset() {
	f.pushIdx, f.popIdx, f.size = 0, 0, 0
}
