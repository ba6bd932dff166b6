package engine

import (
	"github.com/inform7/glulxvm/api"
	"github.com/inform7/glulxvm/internal/glulxmem"
	"github.com/inform7/glulxvm/internal/vmstack"
)

// Snapshot captures the VM's full engine-visible state, for hosts that need
// to save/restore outside of the `save`/`restore` opcodes themselves (e.g. a
// CLI-driven checkpoint). The opcodes use the unexported snapshot/
// applySnapshot pair directly so they can also manage ResumeDest.
func (vm *VM) Snapshot() Snapshot { return vm.snapshot() }

// ApplySnapshot restores state captured by Snapshot.
func (vm *VM) ApplySnapshot(snap Snapshot) error { return vm.applySnapshot(snap) }

// snapshot captures the full engine-visible state (spec §4.12, §8
// round-trip law) for saveundo, restoreundo, save, and restore alike.
func (vm *VM) snapshot() Snapshot {
	live := vm.Mem.RAMBytes()
	ram := make([]byte, len(live))
	copy(ram, live)

	ps, pe := vm.Mem.ProtectedRange()
	snap := Snapshot{
		RAM:          ram,
		Frames:       vm.snapshotFrames(),
		EndMem:       vm.Mem.EndMem(),
		PC:           vm.PC,
		RNG:          vm.RNG.Snapshot(),
		IosysMode:    uint32(vm.iosysMode),
		IosysRock:    vm.iosysRock,
		ProtectStart: ps,
		ProtectEnd:   pe,
	}
	if vm.Accel != nil {
		snap.AccelParams = vm.Accel.Params()
	}
	if h := vm.Mem.Heap(); h != nil {
		snap.HeapStart, snap.HeapAllocs = h.Snapshot()
	}
	return snap
}

func (vm *VM) snapshotFrames() []vmstack.FrameSnapshot {
	frames := vm.Stk.Frames()
	out := make([]vmstack.FrameSnapshot, len(frames))
	for i, f := range frames {
		out[i] = vmstack.FrameSnapshot{
			Locals:     f.Locals,
			LocalBytes: vm.Stk.LocalsBytes(f),
			StoreDest:  f.StoreDest,
			ReturnPC:   f.ReturnPC,
			ValueCells: vm.Stk.ValueCellsAbove(f),
		}
	}
	return out
}

// applySnapshot restores every piece snapshot captured. The RAM delta's
// implied resize always lands exactly on snap.EndMem (the slice is exactly
// [ramstart, endmem) at capture time), so no separate SetMemSize call is
// needed.
func (vm *VM) applySnapshot(snap Snapshot) error {
	vm.Mem.ApplyRAMDelta(snap.RAM)
	if err := vm.Stk.LoadFrames(snap.Frames); err != nil {
		return err
	}
	vm.PC = snap.PC
	vm.RNG.Restore(snap.RNG)
	vm.iosysMode = api.IosysMode(snap.IosysMode)
	vm.iosysRock = snap.IosysRock
	vm.Mem.SetProtection(snap.ProtectStart, snap.ProtectEnd-snap.ProtectStart)
	if vm.Accel != nil {
		vm.Accel.LoadParams(snap.AccelParams)
	}
	if snap.HeapStart != 0 {
		glulxmem.Restore(vm.Mem, snap.HeapStart, snap.HeapAllocs)
	}
	vm.catchMarks = nil
	vm.strState = nil
	return nil
}

// doRestart reinitializes the VM to its startup state (spec §3 lifecycle).
func (vm *VM) doRestart() {
	vm.Mem.Restart()
	vm.Stk.Reset()
	vm.catchMarks = nil
	vm.strState = nil
	if vm.Accel != nil {
		vm.Accel.LoadParams([9]uint32{})
	}
	vm.PC = vm.Mem.Header.StartFunc
}

// doSaveUndo implements `saveundo dest` (spec §4.12): the instruction's own
// destination receives 0 on a normal fall-through; a later restoreundo
// resumes here with the same destination set to 1 instead.
func (vm *VM) doSaveUndo(dest vmstack.StoreDest) error {
	if vm.Undo == nil {
		return vm.performStore(dest, 1)
	}
	snap := vm.snapshot()
	snap.ResumeDest = dest
	if !vm.Undo.Push(snap) {
		return vm.performStore(dest, 1)
	}
	return vm.performStore(dest, 0)
}

// doRestoreUndo implements `restoreundo dest`: dest here only ever receives
// a value on failure (no saved state to restore); on success, the saved
// saveundo's own destination is the one written, and execution resumes at
// its PC, not past this instruction.
func (vm *VM) doRestoreUndo(failDest vmstack.StoreDest) error {
	if vm.Undo == nil || !vm.Undo.Has() {
		return vm.performStore(failDest, 1)
	}
	snap, ok := vm.Undo.Pop()
	if !ok {
		return vm.performStore(failDest, 1)
	}
	dest := snap.ResumeDest
	if err := vm.applySnapshot(snap); err != nil {
		return vm.performStore(failDest, 1)
	}
	return vm.performStore(dest, 1)
}

// doSave implements `save strid, dest` (spec §4.12), writing through the
// host-resolved byte stream.
func (vm *VM) doSave(strid uint32, dest vmstack.StoreDest) error {
	if vm.SaveIO == nil || vm.Streams == nil {
		return vm.performStore(dest, 1)
	}
	stream, ok := vm.Streams(strid)
	if !ok {
		return vm.performStore(dest, 1)
	}
	snap := vm.snapshot()
	snap.ResumeDest = dest
	if err := vm.SaveIO.WriteSnapshot(stream, snap); err != nil {
		return vm.performStore(dest, 1)
	}
	return vm.performStore(dest, 0)
}

// doRestore implements `restore strid, dest`, the file-based twin of
// doRestoreUndo.
func (vm *VM) doRestore(strid uint32, failDest vmstack.StoreDest) error {
	if vm.SaveIO == nil || vm.Streams == nil {
		return vm.performStore(failDest, 1)
	}
	stream, ok := vm.Streams(strid)
	if !ok {
		return vm.performStore(failDest, 1)
	}
	snap, err := vm.SaveIO.ReadSnapshot(stream)
	if err != nil {
		return vm.performStore(failDest, 1)
	}
	dest := snap.ResumeDest
	if err := vm.applySnapshot(snap); err != nil {
		return vm.performStore(failDest, 1)
	}
	return vm.performStore(dest, 1)
}

// doGlk implements `glk identifier, argc, dest` (spec §4.5): the real Glk
// call's own arguments are popped from the value stack by IoSys itself, in
// the order it asks for them.
func (vm *VM) doGlk(selector, argc uint32, dest vmstack.StoreDest) error {
	var popErr error
	pop := func() uint32 {
		v, err := vm.Stk.Pop4()
		if err != nil && popErr == nil {
			popErr = err
		}
		return v
	}
	result := vm.IoSys.Dispatch(vm.Ctx, selector, argc, pop)
	if popErr != nil {
		return popErr
	}
	return vm.performStore(dest, result)
}
