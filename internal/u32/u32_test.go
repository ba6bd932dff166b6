package u32

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/inform7/glulxvm/internal/testing/require"
)

func TestLeBytes(t *testing.T) {
	tests := []uint32{0, math.MaxInt32, math.MaxUint32}
	for _, v := range tests {
		expected := make([]byte, 4)
		binary.LittleEndian.PutUint32(expected, v)
		require.Equal(t, expected, LeBytes(v))
	}
}

func TestAddWraps(t *testing.T) {
	require.Equal(t, uint32(0), Add(0xFFFFFFFF, 1))
}

func TestSubWraps(t *testing.T) {
	require.Equal(t, uint32(0xFFFFFFFF), Sub(0, 1))
}

func TestShiftlBeyond32(t *testing.T) {
	require.Equal(t, uint32(0), Shiftl(0xFF, 32))
	require.Equal(t, uint32(0), Shiftl(0xFF, 40))
}

func TestUshiftrBeyond32(t *testing.T) {
	require.Equal(t, uint32(0), Ushiftr(0xFFFFFFFF, 32))
}

func TestSshiftrBeyond32SignExtends(t *testing.T) {
	require.Equal(t, uint32(0xFFFFFFFF), Sshiftr(0x80000000, 32))
	require.Equal(t, uint32(0), Sshiftr(0x7FFFFFFF, 32))
}

func TestSignedDivisionTruncates(t *testing.T) {
	// -7 / 2 == -3, remainder -1 (sign of dividend), per spec §4.3.
	q := SDiv(-7, 2)
	r := SMod(-7, 2)
	require.Equal(t, int32(-3), q)
	require.Equal(t, int32(-1), r)
	require.Equal(t, int32(-7), q*2+r)
}

func TestSignedDivisionDividendPositiveDivisorNegative(t *testing.T) {
	q := SDiv(7, -2)
	r := SMod(7, -2)
	require.Equal(t, int32(-3), q)
	require.Equal(t, int32(1), r)
}
