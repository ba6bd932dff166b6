package rng

import (
	"testing"

	"github.com/inform7/glulxvm/internal/testing/require"
)

func TestSeededDeterministic(t *testing.T) {
	a := New()
	a.SetSeed(42)
	b := New()
	b.SetSeed(42)
	for i := 0; i < 8; i++ {
		require.Equal(t, a.Next32(), b.Next32())
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a := New()
	a.SetSeed(1)
	b := New()
	b.SetSeed(2)
	same := true
	for i := 0; i < 8; i++ {
		if a.Next32() != b.Next32() {
			same = false
		}
	}
	require.False(t, same, "different seeds should not produce identical streams")
}

func TestRandomPositiveBound(t *testing.T) {
	r := New()
	r.SetSeed(7)
	for i := 0; i < 200; i++ {
		v := r.Random(10)
		require.True(t, v >= 0 && v < 10, "value in [0,k)")
	}
}

func TestRandomNegativeBound(t *testing.T) {
	r := New()
	r.SetSeed(7)
	for i := 0; i < 200; i++ {
		v := r.Random(-10)
		require.True(t, v > -10 && v <= 0, "value in (k,0]")
	}
}

func TestSnapshotRestore(t *testing.T) {
	r := New()
	r.SetSeed(99)
	_ = r.Next32()
	snap := r.Snapshot()
	expected := r.Next32()

	r2 := New()
	r2.Restore(snap)
	require.Equal(t, expected, r2.Next32())
}

func TestSeedZeroSelectsHostMode(t *testing.T) {
	r := New()
	r.SetSeed(123)
	r.SetSeed(0)
	require.True(t, r.hostMode, "seed 0 must select host-random mode")
}
