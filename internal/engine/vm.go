// Package engine implements the Glulx dispatch loop (spec §4.5, component
// C9): instruction decode, operand resolution, the opcode bodies, call/
// return/catch/throw (C10), search (§4.8), and system calls. It is the hub
// that every other component (memory, stack, rng, strdecode, fp32, operand)
// is wired through, in the same role wazero's interpreter.go plays for
// WebAssembly.
package engine

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/inform7/glulxvm/api"
	"github.com/inform7/glulxvm/internal/glulxerr"
	"github.com/inform7/glulxvm/internal/glulxlog"
	"github.com/inform7/glulxvm/internal/glulxmem"
	"github.com/inform7/glulxvm/internal/operand"
	"github.com/inform7/glulxvm/internal/rng"
	"github.com/inform7/glulxvm/internal/strdecode"
	"github.com/inform7/glulxvm/internal/vmstack"
)

// Accelerator is the narrow surface the engine needs from component C11; the
// concrete implementation lives in internal/accel to avoid a dependency
// cycle (accel imports engine for this interface and AccelFunc; engine
// never imports accel).
type Accelerator interface {
	// Lookup returns the native function registered at addr, if any.
	Lookup(addr uint32) (fn AccelFunc, ok bool)
	// Register implements `accelfunc index, addr` (spec §4.9): index==0
	// unregisters; otherwise mem is consulted to validate addr's type byte
	// and the native implementation for index is resolved and installed.
	// An unsupported index is a silent no-op, not an error.
	Register(mem *glulxmem.Memory, index, addr uint32) error
	// SetParam implements `accelparam i, v`; unknown i is a silent no-op.
	SetParam(i, v uint32)
	// Params and LoadParams round-trip the 9 accelerator parameters for
	// save/restore/restart (spec §3, §4.9).
	Params() [9]uint32
	LoadParams(p [9]uint32)
}

// AccelFunc is a native replacement for an Inform-library routine
// (spec §4.9). It operates only through mem; it must never push frames or
// touch PC/SP/FP.
type AccelFunc func(mem *glulxmem.Memory, args []uint32) (result uint32, err error)

// UndoStore is the narrow surface component C13 (save/undo) exposes back
// into the engine for the saveundo/restoreundo/hasundo/discardundo opcodes.
type UndoStore interface {
	Push(snap Snapshot) bool
	Pop() (Snapshot, bool)
	Has() bool
	Discard()
}

// SaveRestorer is the narrow surface component C13's file-based save format
// exposes to the engine for the `save`/`restore` opcodes (spec §4.12).
type SaveRestorer interface {
	WriteSnapshot(stream api.ByteStream, snap Snapshot) error
	ReadSnapshot(stream api.ByteStream) (Snapshot, error)
}

// Snapshot is the engine-visible subset of VM state the undo ring and the
// save-file format round-trip (spec §8: "(memory, stack, PC, RNG seed,
// iosys, protect, heap, accel_params, accel_addrs)"). Components C13 extend
// this with its own chunk bookkeeping; engine only needs enough to restore
// execution state. Frames holds a structured per-call-frame record (not a
// raw byte dump) for the same reason Quetzal's Stks chunk does: a frame's
// own length field doesn't say where it ends relative to value cells
// pushed on top of it.
type Snapshot struct {
	RAM    []byte
	Frames []vmstack.FrameSnapshot
	EndMem uint32
	PC     uint32
	RNG    rng.State

	IosysMode                uint32
	IosysRock                uint32
	ProtectStart, ProtectEnd uint32

	HeapStart   uint32
	HeapAllocs  []struct{ Addr, Len uint32 }
	AccelParams [9]uint32

	// ResumeDest is the store destination of the saveundo/save instruction
	// that produced this snapshot. A later restoreundo/restore stores 1
	// there (distinguishing the resumed path) instead of into its own
	// destination, which is never reached (spec §4.12, §8 scenario 6).
	ResumeDest vmstack.StoreDest
}

// VM is one running Glulx machine instance.
type VM struct {
	Mem *glulxmem.Memory
	Stk *vmstack.Stack
	RNG *rng.RNG

	IoSys api.IoSys
	Ctx   context.Context

	Accel Accelerator
	Undo  UndoStore

	// SaveIO and Streams back the file-based save/restore opcodes
	// (spec §4.12); both nil means save/restore always fail, matching the
	// "no host save support wired" degenerate case.
	SaveIO  SaveRestorer
	Streams func(id uint32) (api.ByteStream, bool)

	PC   uint32
	Halt bool

	iosysMode api.IosysMode
	iosysRock uint32

	stringTable uint32

	// lastReturnValue is set on every `ret` and read back by invokeSync,
	// the nested-call helper used when an opcode body (streamstr's filter
	// calls, a Huffman indirect-call node) must run a VM call to
	// completion before the opcode itself can finish (spec §4.7 last
	// paragraph: "honouring any routine calls above through its normal
	// call stack").
	lastReturnValue uint32

	// strState is not assigned by streamstr, which keeps its Huffman
	// decoder in a local variable; restart and restore reset it to nil.
	strState *strdecode.Decoder

	catchMarks []catchEntry

	tracer func(pc uint32, name string)

	// Log receives host-visible diagnostics (accel-function errors,
	// opcode traces) per spec §10.1; defaults to a discarding entry so a
	// VM built without a configured logger stays silent.
	Log *logrus.Entry
}

// New constructs a VM ready to execute from the header's startfunc.
func New(mem *glulxmem.Memory, stk *vmstack.Stack, r *rng.RNG, iosys api.IoSys) *VM {
	return &VM{
		Mem:         mem,
		Stk:         stk,
		RNG:         r,
		IoSys:       iosys,
		Ctx:         context.Background(),
		PC:          mem.Header.StartFunc,
		stringTable: mem.Header.DecodingTbl,
		Log:         glulxlog.Discard(),
	}
}

// SetTracer installs an opcode trace hook (wired to Config's tracing flag
// by the root package), matching wazero's optional per-call listener
// pattern rather than hardcoding a log call into the hot dispatch path.
func (vm *VM) SetTracer(f func(pc uint32, name string)) { vm.tracer = f }

// Run executes until Halt is set or a fatal error is recovered (spec §4.5
// step 6, §7 policy: "the dispatch loop aborts, the PC at failure is
// preserved"). It mirrors wazero's moduleEngine.Call defer/recover
// boundary: the only place in this codebase that recovers a panic. A
// returned *glulxerr.Error carries the pc_enter of the aborting instruction.
func (vm *VM) Run() (err error) {
	var pcEnter uint32
	defer func() {
		if r := recover(); r != nil {
			err = glulxerr.Recover(r)
		}
		if e, ok := err.(*glulxerr.Error); ok {
			e.PC = pcEnter
		}
	}()
	for !vm.Halt {
		pcEnter = vm.PC
		if err := vm.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step executes exactly one instruction (spec §4.5's six-step loop). It
// does not recover panics; callers that want the fatal/non-fatal split
// applied should go through Run, or wrap their own call to Step in
// glulxerr.Recover.
func (vm *VM) Step() error {
	inst, next, err := vm.decode(vm.PC)
	if err != nil {
		return err
	}
	vm.PC = next

	if vm.tracer != nil {
		vm.tracer(inst.pcEnter, inst.info.name)
	}

	loaded, err := vm.resolveLoads(inst)
	if err != nil {
		return err
	}

	return vm.execute(inst, loaded)
}

// loadedOperand is one resolved operand: either the read value (for a Load
// slot) or the not-yet-written StoreDest (for a Store slot), decoded once up
// front per spec §9's "decode-once, read/write many" recommendation.
type loadedOperand struct {
	value uint32
	dest  vmstack.StoreDest
}

// resolveLoads reads every Load operand (left to right, consuming stack pops
// in order per spec §4.5 step 3) and resolves every Store operand to a
// StoreDest without writing yet.
func (vm *VM) resolveLoads(inst instruction) ([]loadedOperand, error) {
	out := make([]loadedOperand, len(inst.ops))
	for i, d := range inst.ops {
		if inst.info.kinds[i] == kindLoad {
			v, err := vm.readOperand(d)
			if err != nil {
				return nil, err
			}
			out[i] = loadedOperand{value: v}
		} else {
			out[i] = loadedOperand{dest: vm.storeDestFor(d)}
		}
	}
	return out, nil
}

// readOperand resolves a Load-mode operand to its value (spec §4.4 table).
func (vm *VM) readOperand(d operand.Decoded) (uint32, error) {
	switch d.Mode {
	case operand.ModeConstZero, operand.ModeConst1, operand.ModeConst2, operand.ModeConst4:
		return d.ConstantValue(), nil
	case operand.ModeMem1:
		v, err := vm.Mem.ReadU8(d.Raw)
		return uint32(v), err
	case operand.ModeMem2:
		v, err := vm.Mem.ReadU16(d.Raw)
		return uint32(v), err
	case operand.ModeMem4:
		return vm.Mem.ReadU32(d.Raw)
	case operand.ModeStack:
		return vm.Stk.Pop4()
	case operand.ModeLocal1, operand.ModeLocal2, operand.ModeLocal4:
		return vm.readLocal(d.Raw)
	case operand.ModeRAM1:
		v, err := vm.Mem.ReadU8(vm.Mem.Header.RAMStart + d.Raw)
		return uint32(v), err
	case operand.ModeRAM2:
		v, err := vm.Mem.ReadU16(vm.Mem.Header.RAMStart + d.Raw)
		return uint32(v), err
	case operand.ModeRAM4:
		return vm.Mem.ReadU32(vm.Mem.Header.RAMStart + d.Raw)
	default:
		return 0, glulxerr.New(glulxerr.InvalidMode, vm.PC, "unreadable mode %#x", d.Mode)
	}
}

func (vm *VM) readLocal(byteOffset uint32) (uint32, error) {
	f := vm.Stk.CurrentFrame()
	if f == nil {
		return 0, glulxerr.New(glulxerr.StackUnderflow, vm.PC, "local access with no active frame")
	}
	addr, size, ok := f.LocalCellAt(byteOffset)
	if !ok {
		return 0, glulxerr.New(glulxerr.OutOfRange, vm.PC, "no local at offset %#x", byteOffset)
	}
	switch size {
	case 1:
		v, err := vm.Mem.ReadU8(addr)
		return uint32(v), err
	case 2:
		v, err := vm.Mem.ReadU16(addr)
		return uint32(v), err
	default:
		return vm.Mem.ReadU32(addr)
	}
}

// storeDestFor converts a Store-mode operand into a StoreDest (spec §4.4
// store column), deferring the actual write.
func (vm *VM) storeDestFor(d operand.Decoded) vmstack.StoreDest {
	switch d.Mode {
	case operand.ModeConstZero:
		return vmstack.StoreDest{Kind: vmstack.StoreDiscard}
	case operand.ModeMem1:
		return vmstack.StoreDest{Kind: vmstack.StoreMain, Addr: d.Raw, Size: 1}
	case operand.ModeMem2:
		return vmstack.StoreDest{Kind: vmstack.StoreMain, Addr: d.Raw, Size: 2}
	case operand.ModeMem4:
		return vmstack.StoreDest{Kind: vmstack.StoreMain, Addr: d.Raw, Size: 4}
	case operand.ModeStack:
		return vmstack.StoreDest{Kind: vmstack.StoreStack}
	case operand.ModeLocal1, operand.ModeLocal2, operand.ModeLocal4:
		return vmstack.StoreDest{Kind: vmstack.StoreLocal, Addr: d.Raw}
	case operand.ModeRAM1:
		return vmstack.StoreDest{Kind: vmstack.StoreRAM, Addr: d.Raw, Size: 1}
	case operand.ModeRAM2:
		return vmstack.StoreDest{Kind: vmstack.StoreRAM, Addr: d.Raw, Size: 2}
	case operand.ModeRAM4:
		return vmstack.StoreDest{Kind: vmstack.StoreRAM, Addr: d.Raw, Size: 4}
	default:
		return vmstack.StoreDest{Kind: vmstack.StoreDiscard}
	}
}

// performStore writes val to dest (spec §4.5 step 5: store writes happen
// after the opcode body). Used both for a single opcode's own store
// operand and for a `ret`'s deferred write into the caller's destination.
func (vm *VM) performStore(dest vmstack.StoreDest, val uint32) error {
	switch dest.Kind {
	case vmstack.StoreDiscard:
		return nil
	case vmstack.StoreStack:
		return vm.Stk.Push4(val)
	case vmstack.StoreMain:
		return vm.writeSized(dest.Addr, dest.Size, val)
	case vmstack.StoreRAM:
		return vm.writeSized(vm.Mem.Header.RAMStart+dest.Addr, dest.Size, val)
	case vmstack.StoreLocal:
		f := vm.Stk.CurrentFrame()
		if f == nil {
			return glulxerr.New(glulxerr.StackUnderflow, vm.PC, "local store with no active frame")
		}
		addr, size, ok := f.LocalCellAt(dest.Addr)
		if !ok {
			return glulxerr.New(glulxerr.OutOfRange, vm.PC, "no local at offset %#x", dest.Addr)
		}
		return vm.writeSized(addr, size, val)
	default:
		return nil
	}
}

func (vm *VM) writeSized(addr uint32, size byte, val uint32) error {
	switch size {
	case 1:
		return vm.Mem.WriteU8(addr, byte(val))
	case 2:
		return vm.Mem.WriteU16(addr, uint16(val))
	default:
		return vm.Mem.WriteU32(addr, val)
	}
}

// branch implements the shared branch rule of spec §4.5: "offset == 0 →
// return 0; offset == 1 → return 1; else PC ← pc_after_instr + offset - 2".
// afterPC is the instruction's next-PC (already advanced past the operand
// block) at the time the branch is taken.
func (vm *VM) branch(offset uint32, afterPC uint32) (haltCaller bool) {
	switch offset {
	case 0:
		return vm.doReturn(0)
	case 1:
		return vm.doReturn(1)
	default:
		vm.PC = afterPC + offset - 2
		return false
	}
}
