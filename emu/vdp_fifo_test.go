package emu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFO_PushPopOrder(t *testing.T) {
	f := NewFIFO(4, 4, nil)
	for i := uint16(1); i <= 4; i++ {
		require.NoError(t, f.Push(VRAMWrite, i*2, i))
	}
	assert.True(t, f.Full())
	assert.Equal(t, 4, f.Len())

	for i := uint16(1); i <= 4; i++ {
		e, ok := f.Pop()
		require.True(t, ok)
		assert.Equal(t, i, e.Data)
		assert.Equal(t, i*2, e.Address)
		assert.Equal(t, VRAMWrite, e.Mode)
	}
	assert.True(t, f.Empty())

	_, ok := f.Pop()
	assert.False(t, ok)
}

func TestFIFO_PushBeyondCapacity(t *testing.T) {
	f := NewFIFO(4, 4, nil)
	for i := 0; i < 4; i++ {
		require.NoError(t, f.Push(CRAMWrite, 0, uint16(i)))
	}
	err := f.Push(CRAMWrite, 0, 99)
	assert.ErrorIs(t, err, ErrFIFOFull)
	assert.Equal(t, 4, f.Len())

	// The refused write must not have replaced anything.
	for i := 0; i < 4; i++ {
		e, _ := f.Pop()
		assert.Equal(t, uint16(i), e.Data)
	}
}

func TestFIFO_ThresholdBelowCapacity(t *testing.T) {
	f := NewFIFO(8, 2, nil)
	require.NoError(t, f.Push(VRAMWrite, 0, 1))
	assert.False(t, f.Full())
	require.NoError(t, f.Push(VRAMWrite, 0, 2))
	assert.True(t, f.Full())

	// Physical slots remain past the logical threshold.
	require.NoError(t, f.Push(VRAMWrite, 0, 3))
	assert.Equal(t, 3, f.Len())
	assert.Equal(t, 8, f.Cap())
}

func TestFIFO_InvalidGeometryFallsBack(t *testing.T) {
	f := NewFIFO(0, 0, nil)
	assert.Equal(t, DefaultFIFOCapacity, f.Cap())

	f = NewFIFO(2, 5, nil)
	require.NoError(t, f.Push(VRAMWrite, 0, 0))
	require.NoError(t, f.Push(VRAMWrite, 0, 0))
	assert.True(t, f.Full(), "threshold above capacity clamps to capacity")
}

func TestFIFO_WrapAround(t *testing.T) {
	f := NewFIFO(4, 4, nil)
	next := uint16(0)
	want := uint16(0)
	for round := 0; round < 10; round++ {
		for f.Len() < 3 {
			require.NoError(t, f.Push(VSRAMWrite, next, next))
			next++
		}
		e, ok := f.Pop()
		require.True(t, ok)
		require.Equal(t, want, e.Data)
		want++
	}
}

func TestFIFO_PeekAndEntries(t *testing.T) {
	f := NewFIFO(4, 4, nil)
	_, ok := f.Peek()
	assert.False(t, ok)
	assert.Empty(t, f.Entries())

	// Move the ring indices off zero first.
	require.NoError(t, f.Push(VRAMWrite, 0, 0xAA))
	f.Pop()

	require.NoError(t, f.Push(VRAMWrite, 0x10, 1))
	require.NoError(t, f.Push(CRAMWrite, 0x20, 2))
	require.NoError(t, f.Push(VSRAMWrite, 0x30, 3))

	e, ok := f.Peek()
	require.True(t, ok)
	assert.Equal(t, uint16(1), e.Data)
	assert.Equal(t, 3, f.Len(), "peek must not consume")

	assert.Equal(t, []FIFOEntry{
		{Mode: VRAMWrite, Address: 0x10, Data: 1},
		{Mode: CRAMWrite, Address: 0x20, Data: 2},
		{Mode: VSRAMWrite, Address: 0x30, Data: 3},
	}, f.Entries())
}

func TestFIFO_Reset(t *testing.T) {
	f := NewFIFO(4, 4, nil)
	for i := 0; i < 4; i++ {
		require.NoError(t, f.Push(VRAMWrite, 0, 0))
	}
	f.Reset()
	assert.True(t, f.Empty())
	assert.False(t, f.Full())
	require.NoError(t, f.Push(VRAMWrite, 0, 7))
	e, _ := f.Pop()
	assert.Equal(t, uint16(7), e.Data)
}
