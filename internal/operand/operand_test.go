package operand

import (
	"testing"

	"github.com/inform7/glulxvm/internal/testing/require"
)

func TestOperandSizes(t *testing.T) {
	require.Equal(t, uint32(0), OperandSize(ModeConstZero))
	require.Equal(t, uint32(1), OperandSize(ModeConst1))
	require.Equal(t, uint32(2), OperandSize(ModeMem2))
	require.Equal(t, uint32(4), OperandSize(ModeLocal4))
	require.Equal(t, uint32(0), OperandSize(ModeStack))
}

func TestConstantSignExtension(t *testing.T) {
	d := Decoded{Mode: ModeConst1, Raw: 0xFF}
	require.Equal(t, uint32(0xFFFFFFFF), d.ConstantValue())

	d2 := Decoded{Mode: ModeConst2, Raw: 0x8000}
	require.Equal(t, uint32(0xFFFF8000), d2.ConstantValue())

	d3 := Decoded{Mode: ModeConst4, Raw: 0x12345678}
	require.Equal(t, uint32(0x12345678), d3.ConstantValue())
}

func TestReadOnlyIllegalForStore(t *testing.T) {
	require.True(t, IsReadOnlyIllegalForStore(ModeConst1), "constant modes are illegal stores")
	require.False(t, IsReadOnlyIllegalForStore(ModeMem1), "memory modes are legal stores")
}

func TestReservedModeRejected(t *testing.T) {
	err := ValidateReservedMode(ModeReserved, 0x10)
	require.Error(t, err)
	require.NoError(t, ValidateReservedMode(ModeStack, 0x10))
}
