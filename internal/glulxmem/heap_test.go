package glulxmem

import (
	"testing"

	"github.com/inform7/glulxvm/internal/testing/require"
)

// TestHeapLifecycle reproduces spec §8 end-to-end scenario 3 verbatim.
func TestHeapLifecycle(t *testing.T) {
	b := testHeaderBytes(0x100, 0x200, 0x2000, 0x100)
	game := make([]byte, 0x200)
	copy(game, b)
	h, err := ParseHeader(b)
	require.NoError(t, err)
	m := New(h, game)

	heap := NewHeap(m)

	a := heap.Malloc(0x100)
	require.Equal(t, uint32(0x2000), a)

	bAddr := heap.Malloc(0x100)
	require.Equal(t, uint32(0x2100), bAddr)

	require.True(t, heap.Mfree(a), "free a")
	require.True(t, heap.Mfree(bAddr), "free b deactivates heap")

	require.False(t, heap.Active(), "heap must deactivate once alloc_count hits 0")
	require.Equal(t, uint32(0x2000), m.EndMem())

	c := heap.Malloc(0x200)
	require.Equal(t, uint32(0x2000), c)
}

func TestHeapMfreeUnknownAddrFails(t *testing.T) {
	m := testMemory(t)
	heap := NewHeap(m)
	heap.Malloc(0x10)
	require.False(t, heap.Mfree(0xDEADBEEF), "freeing an unknown address must fail")
}

func TestHeapMfreeDoubleFreeFails(t *testing.T) {
	m := testMemory(t)
	heap := NewHeap(m)
	addr := heap.Malloc(0x10)
	require.True(t, heap.Mfree(addr))
	require.False(t, heap.Mfree(addr), "double free must fail")
}

func TestHeapCoalescesAdjacentFreeBlocks(t *testing.T) {
	m := testMemory(t)
	heap := NewHeap(m)
	a := heap.Malloc(0x10)
	b := heap.Malloc(0x10)
	keep := heap.Malloc(0x10) // keeps the heap active once a and b are freed
	heap.Mfree(a)
	heap.Mfree(b)
	// a and b now form one free 0x20-byte span at a's address; a 0x20-byte
	// request fits there only if the two were merged.
	c := heap.Malloc(0x20)
	require.Equal(t, a, c)
	require.True(t, heap.Mfree(c))
	require.True(t, heap.Mfree(keep))
}

func TestHeapSnapshotRoundTrip(t *testing.T) {
	m := testMemory(t)
	heap := NewHeap(m)
	a := heap.Malloc(0x10)
	_ = heap.Malloc(0x20)
	heap.Mfree(a)

	heapStart, allocs := heap.Snapshot()
	require.Equal(t, uint32(0x400), heapStart)
	require.Equal(t, 1, len(allocs))

	restored := Restore(m, heapStart, allocs)
	require.True(t, restored.Active())
	require.Equal(t, 1, restored.AllocCount())
}
