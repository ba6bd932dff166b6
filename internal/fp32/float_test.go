package fp32

import (
	"math"
	"testing"

	"github.com/inform7/glulxvm/internal/testing/require"
)

func TestNumToFToNumZRoundTrip(t *testing.T) {
	for _, n := range []int32{0, 1, -1, 16777215, -16777216} {
		bits := NumToF(n)
		require.Equal(t, n, FToNumZ(bits))
	}
}

func TestFToNumZSaturates(t *testing.T) {
	huge := ToBits(float32(1e30))
	require.Equal(t, int32(math.MaxInt32), FToNumZ(huge))
}

func TestFToNumZNaNIsZero(t *testing.T) {
	nan := ToBits(float32(math.NaN()))
	require.Equal(t, int32(0), FToNumZ(nan))
}

func TestAddBitPattern(t *testing.T) {
	a := ToBits(1.5)
	b := ToBits(2.25)
	require.Equal(t, ToBits(3.75), Add(a, b))
}

func TestFEqWithTolerance(t *testing.T) {
	a := ToBits(1.0)
	b := ToBits(1.05)
	require.True(t, FEq(a, b, ToBits(0.1)), "within tolerance")
	require.False(t, FEq(a, b, ToBits(0.01)), "outside tolerance")
}

func TestFEqNaNNeverEqual(t *testing.T) {
	nan := ToBits(float32(math.NaN()))
	require.False(t, FEq(nan, nan, ToBits(1000)))
}

func TestIsNaNIsInf(t *testing.T) {
	require.True(t, IsNaN(ToBits(float32(math.NaN()))))
	require.True(t, IsInf(ToBits(float32(math.Inf(1)))))
	require.False(t, IsInf(ToBits(1.0)))
}

func TestDoubleRoundTrip(t *testing.T) {
	hi, lo := PackDouble(3.14159265358979)
	require.Equal(t, 3.14159265358979, UnpackDouble(hi, lo))
}
