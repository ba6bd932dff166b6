// Package operand decodes Glulx addressing-mode nibbles into resolved
// operand values and store destinations (spec §4.4, component C8). It
// implements the "decode-once, read/write many" tagged variant spec §9
// recommends: Decoded records a mode and its raw operand data once, and the
// engine later resolves it to a value or to a store destination.
package operand

import "github.com/inform7/glulxvm/internal/glulxerr"

// Mode is a 4-bit addressing-mode nibble (spec §4.4 table).
type Mode byte

const (
	ModeConstZero  Mode = 0x0
	ModeConst1     Mode = 0x1
	ModeConst2     Mode = 0x2
	ModeConst4     Mode = 0x3
	ModeReserved   Mode = 0x4
	ModeMem1       Mode = 0x5
	ModeMem2       Mode = 0x6
	ModeMem4       Mode = 0x7
	ModeStack      Mode = 0x8
	ModeLocal1     Mode = 0x9
	ModeLocal2     Mode = 0xA
	ModeLocal4     Mode = 0xB
	ModeRAM1       Mode = 0xD
	ModeRAM2       Mode = 0xE
	ModeRAM4       Mode = 0xF
)

// OperandSize returns the number of bytes of operand data that follow the
// mode nibble for the given mode (spec §4.4 table's "operand size" column).
func OperandSize(m Mode) uint32 {
	switch m {
	case ModeConst1, ModeMem1, ModeLocal1, ModeRAM1:
		return 1
	case ModeConst2, ModeMem2, ModeLocal2, ModeRAM2:
		return 2
	case ModeConst4, ModeMem4, ModeLocal4, ModeRAM4:
		return 4
	default:
		return 0
	}
}

// IsStoreOnlyIllegalForRead reports modes that are legal for a store
// operand but illegal for a read operand. It always reports false: every
// mode that is legal as a store destination is also a legal read.
func IsStoreOnlyIllegalForRead(m Mode) bool {
	return false // constants are legal reads; this helper exists for symmetry / future modes.
}

// IsReadOnlyIllegalForStore reports modes that are legal to read but
// illegal as a store destination (spec §4.4: "Store operands on reads
// behave like mode 0; read operands on stores must fail with
// InvalidMode").
func IsReadOnlyIllegalForStore(m Mode) bool {
	switch m {
	case ModeConst1, ModeConst2, ModeConst4:
		return true
	default:
		return false
	}
}

// Decoded is one decoded operand: its mode and the raw data that followed
// the mode nibble, matching spec §9's tagged variant {Const, RamAbs, Local,
// Stack}. The engine turns it into a value (for reads) or a store
// destination (for writes).
type Decoded struct {
	Mode Mode
	Raw  uint32 // the raw bytes read after the mode nibble, zero-extended; ConstantValue applies sign extension
}

// signExtend sign-extends a value of the given byte width to 32 bits, per
// spec §4.4 ("signed-extended 1/2/4-byte constant").
func signExtend(v uint32, width uint32) uint32 {
	switch width {
	case 1:
		return uint32(int32(int8(v)))
	case 2:
		return uint32(int32(int16(v)))
	default:
		return v
	}
}

// ConstantValue returns the resolved value for a constant-mode operand
// (modes 0/1/2/3), sign-extended per §4.4.
func (d Decoded) ConstantValue() uint32 {
	switch d.Mode {
	case ModeConstZero:
		return 0
	case ModeConst1:
		return signExtend(d.Raw, 1)
	case ModeConst2:
		return signExtend(d.Raw, 2)
	case ModeConst4:
		return d.Raw
	default:
		return d.Raw
	}
}

// ValidateReservedMode rejects mode 4 wherever it's encountered (spec §4.4:
// "reserved").
func ValidateReservedMode(m Mode, pc uint32) error {
	if m == ModeReserved {
		return glulxerr.New(glulxerr.InvalidMode, pc, "addressing mode 4 is reserved")
	}
	return nil
}
