package glulxmem

import (
	"testing"

	"github.com/inform7/glulxvm/internal/testing/require"
)

func testMemory(t *testing.T) *Memory {
	t.Helper()
	b := testHeaderBytes(0x100, 0x200, 0x400, 0x100)
	game := make([]byte, 0x200)
	copy(game, b)
	game[0x150] = 0x42
	h, err := ParseHeader(b)
	require.NoError(t, err)
	return New(h, game)
}

func TestWriteBelowRAMStartFails(t *testing.T) {
	m := testMemory(t)
	err := m.WriteU8(0x50, 1)
	require.Error(t, err)
}

func TestReadBeyondEndMemFails(t *testing.T) {
	m := testMemory(t)
	_, err := m.ReadU8(0x400)
	require.Error(t, err)
}

func TestReadWriteRoundTrip(t *testing.T) {
	m := testMemory(t)
	require.NoError(t, m.WriteU32(0x200, 0xCAFEBABE))
	v, err := m.ReadU32(0x200)
	require.NoError(t, err)
	require.Equal(t, uint32(0xCAFEBABE), v)
}

func TestSetMemSizeRejectsBelowInitial(t *testing.T) {
	m := testMemory(t)
	require.False(t, m.SetMemSize(0x300), "shrink below endmem_initial must fail")
}

func TestSetMemSizeRejectsMisaligned(t *testing.T) {
	m := testMemory(t)
	require.False(t, m.SetMemSize(0x401), "misaligned size must fail")
}

func TestSetMemSizeGrowsZeroFilled(t *testing.T) {
	m := testMemory(t)
	require.True(t, m.SetMemSize(0x500))
	v, err := m.ReadU8(0x4FF)
	require.NoError(t, err)
	require.Equal(t, byte(0), v)
}

func TestRestartPreservesProtectedRange(t *testing.T) {
	m := testMemory(t)
	require.NoError(t, m.WriteU32(0x200, 0x11223344))
	m.SetProtection(0x200, 4)
	require.NoError(t, m.WriteU32(0x204, 0x55667788))

	m.Restart()

	v, err := m.ReadU32(0x200)
	require.NoError(t, err)
	require.Equal(t, uint32(0x11223344), v, "protected bytes survive restart")

	v2, err := m.ReadU32(0x204)
	require.NoError(t, err)
	require.Equal(t, uint32(0), v2, "unprotected RAM resets to original (zero, beyond extstart)")
}

func TestRestartDeactivatesHeap(t *testing.T) {
	m := testMemory(t)
	heap := NewHeap(m)
	require.NotEqual(t, uint32(0), heap.Malloc(0x100))
	m.Restart()
	require.True(t, m.Heap() == nil, "heap cleared by restart")
}
