package engine

import (
	"github.com/inform7/glulxvm/internal/glulxerr"
	"github.com/inform7/glulxvm/internal/operand"
)

// instruction is one fully-decoded opcode: its shape plus the raw
// (mode, bytes) pair for every operand slot, in declaration order
// (spec §4.4: "N addressing-mode nibbles ... then the operand data blocks
// in order").
type instruction struct {
	pcEnter uint32
	op      uint32
	info    opInfo
	ops     []operand.Decoded
}

// decodeOpcodeNumber reads the variable-length opcode number at pc, spec
// §4.4: 1 byte if <0x80, 2 bytes (masked) if the top nibble is 0x8-0xB, 4
// bytes if the top nibble is 0xC-0xF.
func (vm *VM) decodeOpcodeNumber(pc uint32) (uint32, uint32, error) {
	b0, err := vm.Mem.ReadU8(pc)
	if err != nil {
		return 0, 0, err
	}
	switch {
	case b0 < 0x80:
		return uint32(b0), pc + 1, nil
	case b0 < 0xC0:
		b1, err := vm.Mem.ReadU8(pc + 1)
		if err != nil {
			return 0, 0, err
		}
		return (uint32(b0&0x3F) << 8) | uint32(b1), pc + 2, nil
	default:
		v, err := vm.Mem.ReadU32(pc)
		if err != nil {
			return 0, 0, err
		}
		return v & 0x3FFFFFFF, pc + 4, nil
	}
}

// decode reads the full instruction (opcode, mode nibbles, operand data
// blocks) starting at pc, and returns it along with the PC of the first
// byte past the instruction.
func (vm *VM) decode(pc uint32) (instruction, uint32, error) {
	pcEnter := pc
	op, cursor, err := vm.decodeOpcodeNumber(pc)
	if err != nil {
		return instruction{}, 0, err
	}
	info, ok := opTable[op]
	if !ok {
		return instruction{}, 0, glulxerr.New(glulxerr.BadOpcode, pcEnter, "unknown opcode %#x", op)
	}

	n := len(info.kinds)
	modeBytes := (n + 1) / 2
	modeNibbles := make([]operand.Mode, n)
	for i := 0; i < modeBytes; i++ {
		b, err := vm.Mem.ReadU8(cursor + uint32(i))
		if err != nil {
			return instruction{}, 0, err
		}
		lo := operand.Mode(b & 0x0F)
		hi := operand.Mode(b >> 4)
		if 2*i < n {
			modeNibbles[2*i] = lo
		}
		if 2*i+1 < n {
			modeNibbles[2*i+1] = hi
		}
	}
	cursor += uint32(modeBytes)

	ops := make([]operand.Decoded, n)
	for i, mode := range modeNibbles {
		if err := operand.ValidateReservedMode(mode, pcEnter); err != nil {
			return instruction{}, 0, err
		}
		if info.kinds[i] == kindStore && operand.IsReadOnlyIllegalForStore(mode) {
			return instruction{}, 0, glulxerr.New(glulxerr.InvalidMode, pcEnter, "mode %#x illegal as a store operand", mode)
		}
		size := operand.OperandSize(mode)
		var raw uint32
		switch size {
		case 1:
			b, err := vm.Mem.ReadU8(cursor)
			if err != nil {
				return instruction{}, 0, err
			}
			raw = uint32(b)
			cursor++
		case 2:
			v, err := vm.Mem.ReadU16(cursor)
			if err != nil {
				return instruction{}, 0, err
			}
			raw = uint32(v)
			cursor += 2
		case 4:
			v, err := vm.Mem.ReadU32(cursor)
			if err != nil {
				return instruction{}, 0, err
			}
			raw = v
			cursor += 4
		}
		ops[i] = operand.Decoded{Mode: mode, Raw: raw}
	}

	return instruction{pcEnter: pcEnter, op: op, info: info, ops: ops}, cursor, nil
}
