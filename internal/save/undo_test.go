package save

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inform7/glulxvm/internal/engine"
)

func TestRingPushPopLIFO(t *testing.T) {
	r := NewRing(4)
	require.False(t, r.Has())

	r.Push(engine.Snapshot{PC: 1})
	r.Push(engine.Snapshot{PC: 2})
	require.True(t, r.Has())

	snap, ok := r.Pop()
	require.True(t, ok)
	require.Equal(t, uint32(2), snap.PC)

	snap, ok = r.Pop()
	require.True(t, ok)
	require.Equal(t, uint32(1), snap.PC)

	_, ok = r.Pop()
	require.False(t, ok)
}

func TestRingEvictsOldestAtCapacity(t *testing.T) {
	r := NewRing(2)
	r.Push(engine.Snapshot{PC: 1})
	r.Push(engine.Snapshot{PC: 2})
	r.Push(engine.Snapshot{PC: 3})

	snap, ok := r.Pop()
	require.True(t, ok)
	require.Equal(t, uint32(3), snap.PC)

	snap, ok = r.Pop()
	require.True(t, ok)
	require.Equal(t, uint32(2), snap.PC, "oldest entry (PC 1) should have been evicted")

	_, ok = r.Pop()
	require.False(t, ok)
}

func TestRingDefaultCapacity(t *testing.T) {
	r := NewRing(0)
	for i := 0; i < DefaultRingCapacity+2; i++ {
		r.Push(engine.Snapshot{PC: uint32(i)})
	}
	count := 0
	for r.Has() {
		r.Pop()
		count++
	}
	require.Equal(t, DefaultRingCapacity, count)
}

func TestRingDiscard(t *testing.T) {
	r := NewRing(4)
	r.Push(engine.Snapshot{PC: 1})
	r.Push(engine.Snapshot{PC: 2})
	r.Discard()
	snap, ok := r.Pop()
	require.True(t, ok)
	require.Equal(t, uint32(1), snap.PC, "Discard should drop the most recent entry without returning it")
}
