package engine

import (
	"github.com/inform7/glulxvm/api"
	"github.com/inform7/glulxvm/internal/glulxerr"
	"github.com/inform7/glulxvm/internal/vmstack"
)

// catchEntry is one outstanding `catch` marker (spec §4.6). Kept as a flat,
// VM-wide list rather than per-frame since a `throw` must be able to locate
// a marker established in any still-active enclosing frame.
type catchEntry struct {
	token      uint32
	dest       vmstack.StoreDest
	continuePC uint32
	frameDepth int
}

// doReturn implements `ret val` and the branch rule's offset-0/1 shorthand
// (spec §4.5 step, §4.6 "Return"): pop the frame, perform its deferred
// store, resume at its ReturnPC. Returning from the outermost frame halts
// the VM. Reports whether it halted, letting callers (branch, the `return`
// opcode body) short-circuit further PC advancement.
func (vm *VM) doReturn(val uint32) bool {
	vm.lastReturnValue = val
	if vm.Stk.Depth() == 0 {
		vm.Halt = true
		return true
	}
	f, err := vm.Stk.PopFrame()
	if err != nil {
		panic(err)
	}
	vm.dropCatchMarksAbove(vm.Stk.Depth())
	if err := vm.performStore(f.StoreDest, val); err != nil {
		panic(err)
	}
	vm.PC = f.ReturnPC
	return false
}

// dropCatchMarksAbove discards catch markers established at a frame depth
// deeper than depth — they went out of scope when their frame popped
// (spec §4.6: a throw can only target a still-active catch).
func (vm *VM) dropCatchMarksAbove(depth int) {
	i := 0
	for i < len(vm.catchMarks) && vm.catchMarks[i].frameDepth <= depth {
		i++
	}
	vm.catchMarks = vm.catchMarks[:i]
}

// collectCallArgs pops argc arguments off the value stack in the order
// `call` expects: the topmost value is the last argument (spec §4.6 step 1:
// "Collect arguments (from stack for call")).
func (vm *VM) collectCallArgs(argc uint32) ([]uint32, error) {
	args := make([]uint32, argc)
	for i := int(argc) - 1; i >= 0; i-- {
		v, err := vm.Stk.Pop4()
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// doCall implements the shared call path for `call`, `callf`/`callfi`/
// `callfii`/`callfiii` (spec §4.6 steps 2-5). returnPC is the instruction's
// own next-PC, recorded into the pushed frame so `ret` resumes there.
func (vm *VM) doCall(addr uint32, args []uint32, dest vmstack.StoreDest, returnPC uint32) error {
	if vm.Accel != nil {
		if fn, ok := vm.Accel.Lookup(addr); ok {
			result, err := vm.runAccelFunc(fn, args)
			if err != nil {
				return err
			}
			return vm.performStore(dest, result)
		}
	}

	ft, descs, bodyAddr, err := vmstack.ParseFunctionHeader(vm.Mem, addr)
	if err != nil {
		return err
	}
	f, err := vm.Stk.PushFrame(descs, dest)
	if err != nil {
		return err
	}
	f.ReturnPC = returnPC

	if err := vm.bindArgs(f, ft, args); err != nil {
		return err
	}
	vm.PC = bodyAddr
	return nil
}

// doTailcall implements `tailcall` (spec §4.6: "replaces the current frame
// in-place with the callee's, preserving the original caller's
// destination"). An accelerated target never gets a frame at all, so it is
// equivalent to the current frame simply returning the native result.
func (vm *VM) doTailcall(addr uint32, args []uint32) error {
	if vm.Accel != nil {
		if fn, ok := vm.Accel.Lookup(addr); ok {
			result, err := vm.runAccelFunc(fn, args)
			if err != nil {
				return err
			}
			vm.doReturn(result)
			return nil
		}
	}

	ft, descs, bodyAddr, err := vmstack.ParseFunctionHeader(vm.Mem, addr)
	if err != nil {
		return err
	}
	f, err := vm.Stk.ReplaceCurrentFrame(descs)
	if err != nil {
		return err
	}
	if err := vm.bindArgs(f, ft, args); err != nil {
		return err
	}
	vm.PC = bodyAddr
	return nil
}

// bindArgs assigns a call's argument list to the callee's frame per its
// type byte (spec §4.6 step 3).
func (vm *VM) bindArgs(f *vmstack.Frame, ft vmstack.FuncType, args []uint32) error {
	switch ft {
	case vmstack.FuncStackArgs:
		if err := vm.Stk.Push4(uint32(len(args))); err != nil {
			return err
		}
		for _, a := range args {
			if err := vm.Stk.Push4(a); err != nil {
				return err
			}
		}
	case vmstack.FuncCArgs:
		for i, off := range f.LocalOffsets {
			if i >= len(args) {
				break // remaining locals stay zero-initialized
			}
			addr, size, _ := f.LocalCellAt(off)
			if err := vm.writeSized(addr, size, args[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// doCatch implements `catch S1, offset` (spec §4.6). The continuation PC a
// later `throw` resumes at is computed via the standard branch-offset
// formula; catch itself always falls through to the next instruction (the
// guarded block), never jumping at catch-time; the shared branch rule's
// offset-0/1 shorthand is not applied here.
func (vm *VM) doCatch(dest vmstack.StoreDest, offset uint32, afterPC uint32) error {
	token := vm.Stk.SP()
	if err := vm.performStore(dest, token); err != nil {
		return err
	}
	vm.catchMarks = append(vm.catchMarks, catchEntry{
		token:      token,
		dest:       dest,
		continuePC: afterPC + offset - 2,
		frameDepth: vm.Stk.Depth(),
	})
	return nil
}

// doThrow implements `throw val, tok` (spec §4.6): unwind frames/stack to
// the matching catch marker and resume there.
func (vm *VM) doThrow(val, tok uint32) error {
	for i := len(vm.catchMarks) - 1; i >= 0; i-- {
		e := vm.catchMarks[i]
		if e.token != tok {
			continue
		}
		for vm.Stk.Depth() > e.frameDepth {
			if _, err := vm.Stk.PopFrame(); err != nil {
				return err
			}
		}
		vm.Stk.UnwindTo(e.token)
		vm.catchMarks = vm.catchMarks[:i]
		if err := vm.performStore(e.dest, val); err != nil {
			return err
		}
		vm.PC = e.continuePC
		return nil
	}
	return glulxerr.New(glulxerr.ThrowUnresolved, vm.PC, "throw with unmatched token %#x", tok)
}

// invokeSync runs addr to completion as a nested VM call and returns its
// result, used where an opcode body must finish a routine call before it
// can itself complete (spec §4.7 last paragraph: streamstr's iosys-1 filter
// calls, and a Huffman "indirect with args" node). It recurses through
// Step, bounded by the game's own call depth, not by string length.
func (vm *VM) invokeSync(addr uint32, args []uint32) (uint32, error) {
	if vm.Accel != nil {
		if fn, ok := vm.Accel.Lookup(addr); ok {
			return vm.runAccelFunc(fn, args)
		}
	}

	baseDepth := vm.Stk.Depth()
	ft, descs, bodyAddr, err := vmstack.ParseFunctionHeader(vm.Mem, addr)
	if err != nil {
		return 0, err
	}
	f, err := vm.Stk.PushFrame(descs, vmstack.StoreDest{Kind: vmstack.StoreDiscard})
	if err != nil {
		return 0, err
	}
	savedPC := vm.PC
	f.ReturnPC = savedPC
	if err := vm.bindArgs(f, ft, args); err != nil {
		return 0, err
	}
	vm.PC = bodyAddr

	for !vm.Halt && vm.Stk.Depth() > baseDepth {
		if err := vm.Step(); err != nil {
			return 0, err
		}
	}
	vm.PC = savedPC
	return vm.lastReturnValue, nil
}

// runAccelFunc invokes a native accelerated replacement and recovers from
// its non-fatal error kind (spec §4.9: "Errors inside accelerated functions
// surface via accel_error ... writes a newline-bounded message through the
// Glk iosys only"): the call returns 0, execution continues, and the
// message reaches the player only when a Glk iosys is active.
func (vm *VM) runAccelFunc(fn AccelFunc, args []uint32) (uint32, error) {
	result, err := fn(vm.Mem, args)
	if err == nil {
		return result, nil
	}
	ae, ok := err.(*glulxerr.Error)
	if !ok || ae.Kind != glulxerr.AccelFunctionError {
		return 0, err
	}
	vm.Log.WithField("pc", vm.PC).Warn("accelerated function error: " + ae.Message)
	if vm.iosysMode == api.IosysGlk && vm.IoSys != nil {
		vm.IoSys.PutString([]byte(ae.Message + "\n"))
	}
	return 0, nil
}
