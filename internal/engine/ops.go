package engine

import (
	"github.com/inform7/glulxvm/internal/fp32"
	"github.com/inform7/glulxvm/internal/glulxerr"
	"github.com/inform7/glulxvm/internal/glulxmem"
	"github.com/inform7/glulxvm/internal/u32"
)

// execute runs one decoded instruction's body against its resolved operands
// (spec §4.5 step 4). Every opcode here performs its own store(s) inline
// (including the deferred ones for call/catch/saveundo/etc.) rather than
// through one generic post-switch write, since several opcodes (call,
// catch, tailcall, ret, saveundo/restoreundo) have store semantics that
// aren't "write this value to this operand right now".
func (vm *VM) execute(inst instruction, ld []loadedOperand) error {
	afterPC := vm.PC // already advanced past this instruction's operand block

	switch inst.op {
	case opNop:
		return nil

	// Arithmetic / bitwise / shift (spec §4.3).
	case opAdd:
		return vm.performStore(ld[2].dest, u32.Add(ld[0].value, ld[1].value))
	case opSub:
		return vm.performStore(ld[2].dest, u32.Sub(ld[0].value, ld[1].value))
	case opMul:
		return vm.performStore(ld[2].dest, u32.Mul(ld[0].value, ld[1].value))
	case opDiv:
		if ld[1].value == 0 {
			return glulxerr.New(glulxerr.ArithmeticError, inst.pcEnter, "division by zero")
		}
		return vm.performStore(ld[2].dest, uint32(u32.SDiv(int32(ld[0].value), int32(ld[1].value))))
	case opMod:
		if ld[1].value == 0 {
			return glulxerr.New(glulxerr.ArithmeticError, inst.pcEnter, "mod by zero")
		}
		return vm.performStore(ld[2].dest, uint32(u32.SMod(int32(ld[0].value), int32(ld[1].value))))
	case opNeg:
		return vm.performStore(ld[1].dest, u32.Neg(ld[0].value))
	case opBitAnd:
		return vm.performStore(ld[2].dest, u32.BitAnd(ld[0].value, ld[1].value))
	case opBitOr:
		return vm.performStore(ld[2].dest, u32.BitOr(ld[0].value, ld[1].value))
	case opBitXor:
		return vm.performStore(ld[2].dest, u32.BitXor(ld[0].value, ld[1].value))
	case opBitNot:
		return vm.performStore(ld[1].dest, u32.BitNot(ld[0].value))
	case opShiftl:
		return vm.performStore(ld[2].dest, u32.Shiftl(ld[0].value, ld[1].value))
	case opSshiftr:
		return vm.performStore(ld[2].dest, u32.Sshiftr(ld[0].value, ld[1].value))
	case opUshiftr:
		return vm.performStore(ld[2].dest, u32.Ushiftr(ld[0].value, ld[1].value))

	// Branches (spec §4.5 branch rule).
	case opJump:
		vm.branch(ld[0].value, afterPC)
		return nil
	case opJumpabs:
		vm.PC = ld[0].value
		return nil
	case opJz:
		if ld[0].value == 0 {
			vm.branch(ld[1].value, afterPC)
		}
		return nil
	case opJnz:
		if ld[0].value != 0 {
			vm.branch(ld[1].value, afterPC)
		}
		return nil
	case opJeq:
		if ld[0].value == ld[1].value {
			vm.branch(ld[2].value, afterPC)
		}
		return nil
	case opJne:
		if ld[0].value != ld[1].value {
			vm.branch(ld[2].value, afterPC)
		}
		return nil
	case opJlt:
		if int32(ld[0].value) < int32(ld[1].value) {
			vm.branch(ld[2].value, afterPC)
		}
		return nil
	case opJge:
		if int32(ld[0].value) >= int32(ld[1].value) {
			vm.branch(ld[2].value, afterPC)
		}
		return nil
	case opJgt:
		if int32(ld[0].value) > int32(ld[1].value) {
			vm.branch(ld[2].value, afterPC)
		}
		return nil
	case opJle:
		if int32(ld[0].value) <= int32(ld[1].value) {
			vm.branch(ld[2].value, afterPC)
		}
		return nil
	case opJltu:
		if ld[0].value < ld[1].value {
			vm.branch(ld[2].value, afterPC)
		}
		return nil
	case opJgeu:
		if ld[0].value >= ld[1].value {
			vm.branch(ld[2].value, afterPC)
		}
		return nil
	case opJgtu:
		if ld[0].value > ld[1].value {
			vm.branch(ld[2].value, afterPC)
		}
		return nil
	case opJleu:
		if ld[0].value <= ld[1].value {
			vm.branch(ld[2].value, afterPC)
		}
		return nil

	// Calls (spec §4.6).
	case opCall:
		args, err := vm.collectCallArgs(ld[1].value)
		if err != nil {
			return err
		}
		return vm.doCall(ld[0].value, args, ld[2].dest, afterPC)
	case opReturn:
		vm.doReturn(ld[0].value)
		return nil
	case opCatch:
		return vm.doCatch(ld[0].dest, ld[1].value, afterPC)
	case opThrow:
		return vm.doThrow(ld[0].value, ld[1].value)
	case opTailcall:
		args, err := vm.collectCallArgs(ld[1].value)
		if err != nil {
			return err
		}
		return vm.doTailcall(ld[0].value, args)
	case opCallf:
		return vm.doCall(ld[0].value, nil, ld[1].dest, afterPC)
	case opCallfi:
		return vm.doCall(ld[0].value, []uint32{ld[1].value}, ld[2].dest, afterPC)
	case opCallfii:
		return vm.doCall(ld[0].value, []uint32{ld[1].value, ld[2].value}, ld[3].dest, afterPC)
	case opCallfiii:
		return vm.doCall(ld[0].value, []uint32{ld[1].value, ld[2].value, ld[3].value}, ld[4].dest, afterPC)

	// Copy / sign extend (spec §4.5).
	case opCopy:
		return vm.performStore(ld[1].dest, ld[0].value)
	case opCopys:
		return vm.performStore(ld[1].dest, ld[0].value&0xFFFF)
	case opCopyb:
		return vm.performStore(ld[1].dest, ld[0].value&0xFF)
	case opSexs:
		return vm.performStore(ld[1].dest, uint32(int32(int16(ld[0].value))))
	case opSexb:
		return vm.performStore(ld[1].dest, uint32(int32(int8(ld[0].value))))

	// Array load/store (spec §4.5): index is signed, so address arithmetic
	// is plain uint32 multiply/add, which already wraps the way a negative
	// index would via two's complement.
	case opAload:
		v, err := vm.Mem.ReadU32(ld[0].value + ld[1].value*4)
		if err != nil {
			return err
		}
		return vm.performStore(ld[2].dest, v)
	case opAloads:
		v, err := vm.Mem.ReadU16(ld[0].value + ld[1].value*2)
		if err != nil {
			return err
		}
		return vm.performStore(ld[2].dest, uint32(v))
	case opAloadb:
		v, err := vm.Mem.ReadU8(ld[0].value + ld[1].value)
		if err != nil {
			return err
		}
		return vm.performStore(ld[2].dest, uint32(v))
	case opAloadbit:
		addr, bit := bitAddr(ld[0].value, ld[1].value)
		b, err := vm.Mem.ReadU8(addr)
		if err != nil {
			return err
		}
		return vm.performStore(ld[2].dest, uint32((b>>bit)&1))
	case opAstore:
		return vm.Mem.WriteU32(ld[0].value+ld[1].value*4, ld[2].value)
	case opAstores:
		return vm.Mem.WriteU16(ld[0].value+ld[1].value*2, uint16(ld[2].value))
	case opAstoreb:
		return vm.Mem.WriteU8(ld[0].value+ld[1].value, byte(ld[2].value))
	case opAstorebit:
		addr, bit := bitAddr(ld[0].value, ld[1].value)
		b, err := vm.Mem.ReadU8(addr)
		if err != nil {
			return err
		}
		if ld[2].value != 0 {
			b |= 1 << bit
		} else {
			b &^= 1 << bit
		}
		return vm.Mem.WriteU8(addr, b)

	// Value-stack opcodes (spec §4.5).
	case opStkcount:
		return vm.performStore(ld[0].dest, vm.Stk.StackCount())
	case opStkpeek:
		v, err := vm.Stk.Peek4(ld[0].value)
		if err != nil {
			return err
		}
		return vm.performStore(ld[1].dest, v)
	case opStkswap:
		return vm.Stk.Swap()
	case opStkroll:
		return vm.Stk.Roll(ld[0].value, int32(ld[1].value))
	case opStkcopy:
		return vm.Stk.Copy(ld[0].value)

	// Output streaming (spec §4.7).
	case opStreamchar:
		return vm.doStreamchar(ld[0].value)
	case opStreamnum:
		return vm.doStreamnum(ld[0].value)
	case opStreamstr:
		return vm.doStreamstr(ld[0].value)
	case opStreamunichar:
		return vm.doStreamunichar(ld[0].value)

	// System calls (spec §4.5, §6).
	case opGestalt:
		return vm.performStore(ld[2].dest, vm.doGestalt(ld[0].value, ld[1].value))
	case opDebugtrap:
		return nil // no host debugger hook wired; a no-op is the documented behavior absent one
	case opGetmemsize:
		return vm.performStore(ld[0].dest, vm.Mem.EndMem())
	case opSetmemsize:
		res := uint32(0)
		if !vm.Mem.SetMemSize(ld[0].value) {
			res = 1
		}
		return vm.performStore(ld[1].dest, res)
	case opRandom:
		return vm.performStore(ld[1].dest, uint32(vm.RNG.Random(int32(ld[0].value))))
	case opSetrandom:
		vm.RNG.SetSeed(ld[0].value)
		return nil
	case opQuit:
		vm.Halt = true
		return nil
	case opVerify:
		res := uint32(1)
		if vm.Mem.VerifyChecksum() {
			res = 0
		}
		return vm.performStore(ld[0].dest, res)
	case opRestart:
		vm.doRestart()
		return nil
	case opSave:
		return vm.doSave(ld[0].value, ld[1].dest)
	case opRestore:
		return vm.doRestore(ld[0].value, ld[1].dest)
	case opSaveundo:
		return vm.doSaveUndo(ld[0].dest)
	case opRestoreundo:
		return vm.doRestoreUndo(ld[0].dest)
	case opProtect:
		vm.Mem.SetProtection(ld[0].value, ld[1].value)
		return nil
	case opHasundo:
		res := uint32(1)
		if vm.Undo != nil && vm.Undo.Has() {
			res = 0
		}
		return vm.performStore(ld[0].dest, res)
	case opDiscardundo:
		if vm.Undo != nil {
			vm.Undo.Discard()
		}
		return nil
	case opGlk:
		return vm.doGlk(ld[0].value, ld[1].value, ld[2].dest)
	case opGetstringtbl:
		return vm.performStore(ld[0].dest, vm.stringTable)
	case opSetstringtbl:
		vm.stringTable = ld[0].value
		return nil
	case opGetiosys:
		mode, rock := vm.doGetiosys()
		if err := vm.performStore(ld[0].dest, mode); err != nil {
			return err
		}
		return vm.performStore(ld[1].dest, rock)
	case opSetiosys:
		vm.doSetiosys(ld[0].value, ld[1].value)
		return nil

	// Search (spec §4.8).
	case opLinearsearch:
		v, err := vm.doLinearSearch(ld[0].value, ld[1].value, ld[2].value, ld[3].value, ld[4].value, ld[5].value, ld[6].value)
		if err != nil {
			return err
		}
		return vm.performStore(ld[7].dest, v)
	case opBinarysearch:
		v, err := vm.doBinarySearch(ld[0].value, ld[1].value, ld[2].value, ld[3].value, ld[4].value, ld[5].value, ld[6].value)
		if err != nil {
			return err
		}
		return vm.performStore(ld[7].dest, v)
	case opLinkedsearch:
		v, err := vm.doLinkedSearch(ld[0].value, ld[1].value, ld[2].value, ld[3].value, ld[4].value)
		if err != nil {
			return err
		}
		return vm.performStore(ld[5].dest, v)

	// Bulk memory / heap (spec §4.1, §4.2).
	case opMzero:
		for i := uint32(0); i < ld[1].value; i++ {
			if err := vm.Mem.WriteU8(ld[0].value+i, 0); err != nil {
				return err
			}
		}
		return nil
	case opMcopy:
		n := ld[2].value
		src, err := vm.Mem.Slice(ld[0].value, n)
		if err != nil {
			return err
		}
		tmp := make([]byte, n)
		copy(tmp, src)
		for i, b := range tmp {
			if err := vm.Mem.WriteU8(ld[1].value+uint32(i), b); err != nil {
				return err
			}
		}
		return nil
	case opMalloc:
		h := vm.Mem.Heap()
		if h == nil {
			h = glulxmem.NewHeap(vm.Mem)
		}
		return vm.performStore(ld[1].dest, h.Malloc(ld[0].value))
	case opMfree:
		if h := vm.Mem.Heap(); h != nil {
			h.Mfree(ld[0].value)
		}
		return nil

	// Acceleration (spec §4.9).
	case opAccelfunc:
		if vm.Accel != nil {
			return vm.Accel.Register(vm.Mem, ld[0].value, ld[1].value)
		}
		return nil
	case opAccelparam:
		if vm.Accel != nil {
			vm.Accel.SetParam(ld[0].value, ld[1].value)
		}
		return nil

	// Single-precision float (spec §4.10).
	case opNumtof:
		return vm.performStore(ld[1].dest, fp32.NumToF(int32(ld[0].value)))
	case opFtonumz:
		return vm.performStore(ld[1].dest, uint32(fp32.FToNumZ(ld[0].value)))
	case opFtonumn:
		return vm.performStore(ld[1].dest, uint32(fp32.FToNumN(ld[0].value)))
	case opCeil:
		return vm.performStore(ld[1].dest, fp32.Ceil(ld[0].value))
	case opFloor:
		return vm.performStore(ld[1].dest, fp32.Floor(ld[0].value))
	case opFadd:
		return vm.performStore(ld[2].dest, fp32.Add(ld[0].value, ld[1].value))
	case opFsub:
		return vm.performStore(ld[2].dest, fp32.Sub(ld[0].value, ld[1].value))
	case opFmul:
		return vm.performStore(ld[2].dest, fp32.Mul(ld[0].value, ld[1].value))
	case opFdiv:
		return vm.performStore(ld[2].dest, fp32.Div(ld[0].value, ld[1].value))
	case opFmod:
		return vm.performStore(ld[2].dest, fp32.Mod(ld[0].value, ld[1].value))
	case opSqrt:
		return vm.performStore(ld[1].dest, fp32.Sqrt(ld[0].value))
	case opExp:
		return vm.performStore(ld[1].dest, fp32.Exp(ld[0].value))
	case opLog:
		return vm.performStore(ld[1].dest, fp32.Log(ld[0].value))
	case opPow:
		return vm.performStore(ld[2].dest, fp32.Pow(ld[0].value, ld[1].value))
	case opSin:
		return vm.performStore(ld[1].dest, fp32.Sin(ld[0].value))
	case opCos:
		return vm.performStore(ld[1].dest, fp32.Cos(ld[0].value))
	case opTan:
		return vm.performStore(ld[1].dest, fp32.Tan(ld[0].value))
	case opAsin:
		return vm.performStore(ld[1].dest, fp32.Asin(ld[0].value))
	case opAcos:
		return vm.performStore(ld[1].dest, fp32.Acos(ld[0].value))
	case opAtan:
		return vm.performStore(ld[1].dest, fp32.Atan(ld[0].value))
	case opAtan2:
		return vm.performStore(ld[2].dest, fp32.Atan2(ld[0].value, ld[1].value))
	case opJfeq:
		if fp32.FEq(ld[0].value, ld[1].value, ld[2].value) {
			vm.branch(ld[3].value, afterPC)
		}
		return nil
	case opJfne:
		if !fp32.FEq(ld[0].value, ld[1].value, ld[2].value) {
			vm.branch(ld[3].value, afterPC)
		}
		return nil
	case opJflt:
		if fp32.FLt(ld[0].value, ld[1].value) {
			vm.branch(ld[2].value, afterPC)
		}
		return nil
	case opJfle:
		if fp32.FLe(ld[0].value, ld[1].value) {
			vm.branch(ld[2].value, afterPC)
		}
		return nil
	case opJfgt:
		if fp32.FGt(ld[0].value, ld[1].value) {
			vm.branch(ld[2].value, afterPC)
		}
		return nil
	case opJfge:
		if fp32.FGe(ld[0].value, ld[1].value) {
			vm.branch(ld[2].value, afterPC)
		}
		return nil
	case opJisnan:
		if fp32.IsNaN(ld[0].value) {
			vm.branch(ld[1].value, afterPC)
		}
		return nil
	case opJisinf:
		if fp32.IsInf(ld[0].value) {
			vm.branch(ld[1].value, afterPC)
		}
		return nil

	// Double-precision float (this module's own opcode block; see
	// opcodes.go).
	case opNumtod:
		hi, lo := fp32.PackDouble(float64(int32(ld[0].value)))
		if err := vm.performStore(ld[1].dest, hi); err != nil {
			return err
		}
		return vm.performStore(ld[2].dest, lo)
	case opDtonumz:
		return vm.performStore(ld[2].dest, uint32(fp32.DToNumZ(ld[0].value, ld[1].value)))
	case opDtonumn:
		return vm.performStore(ld[2].dest, uint32(fp32.DToNumN(ld[0].value, ld[1].value)))
	case opDadd:
		hi, lo := fp32.DAdd(ld[0].value, ld[1].value, ld[2].value, ld[3].value)
		if err := vm.performStore(ld[4].dest, hi); err != nil {
			return err
		}
		return vm.performStore(ld[5].dest, lo)
	case opDsub:
		hi, lo := fp32.DSub(ld[0].value, ld[1].value, ld[2].value, ld[3].value)
		if err := vm.performStore(ld[4].dest, hi); err != nil {
			return err
		}
		return vm.performStore(ld[5].dest, lo)
	case opDmul:
		hi, lo := fp32.DMul(ld[0].value, ld[1].value, ld[2].value, ld[3].value)
		if err := vm.performStore(ld[4].dest, hi); err != nil {
			return err
		}
		return vm.performStore(ld[5].dest, lo)
	case opDdiv:
		hi, lo := fp32.DDiv(ld[0].value, ld[1].value, ld[2].value, ld[3].value)
		if err := vm.performStore(ld[4].dest, hi); err != nil {
			return err
		}
		return vm.performStore(ld[5].dest, lo)
	case opDceil:
		hi, lo := fp32.DCeil(ld[0].value, ld[1].value)
		if err := vm.performStore(ld[2].dest, hi); err != nil {
			return err
		}
		return vm.performStore(ld[3].dest, lo)
	case opDfloor:
		hi, lo := fp32.DFloor(ld[0].value, ld[1].value)
		if err := vm.performStore(ld[2].dest, hi); err != nil {
			return err
		}
		return vm.performStore(ld[3].dest, lo)
	case opJdeq:
		if fp32.DEq(ld[0].value, ld[1].value, ld[2].value, ld[3].value) {
			vm.branch(ld[4].value, afterPC)
		}
		return nil
	case opJdisnan:
		if fp32.DIsNaN(ld[0].value, ld[1].value) {
			vm.branch(ld[2].value, afterPC)
		}
		return nil

	default:
		return glulxerr.New(glulxerr.BadOpcode, inst.pcEnter, "opcode %#x (%s) decoded but not dispatched", inst.op, inst.info.name)
	}
}

// bitAddr resolves an aloadbit/astorebit bit index to a byte address and
// bit position, floor-dividing by 8 so a negative bitindex walks backward
// from array the way the reference interpreter's signed index does (spec
// §4.5).
func bitAddr(array, bitindex uint32) (addr uint32, bit uint) {
	bi := int32(bitindex)
	addr = array + uint32(bi>>3)
	bit = uint(bi & 7)
	return addr, bit
}
