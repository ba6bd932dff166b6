package engine

import (
	"testing"

	"github.com/inform7/glulxvm/internal/testing/require"
	"github.com/inform7/glulxvm/internal/vmstack"
)

func TestSnapshotApplySnapshotRoundTrip(t *testing.T) {
	vm := testVM(t, &spyIoSys{})
	require.NoError(t, vm.Mem.WriteU32(0x180, 0xCAFEBABE))
	vm.PC = 0x1234
	vm.iosysMode = 2
	vm.iosysRock = 9

	snap := vm.Snapshot()
	require.Equal(t, uint32(0x1234), snap.PC)

	// Mutate state, then restore from the earlier snapshot.
	require.NoError(t, vm.Mem.WriteU32(0x180, 0))
	vm.PC = 0
	vm.iosysMode = 0

	require.NoError(t, vm.ApplySnapshot(snap))
	require.Equal(t, uint32(0x1234), vm.PC)
	v, err := vm.Mem.ReadU32(0x180)
	require.NoError(t, err)
	require.Equal(t, uint32(0xCAFEBABE), v)
}

func TestDoSaveUndoThenRestoreUndo(t *testing.T) {
	vm := testVM(t, &spyIoSys{})
	vm.Undo = newFakeUndo()
	require.NoError(t, vm.Mem.WriteU32(0x180, 1))

	dest := vmstack.StoreDest{Kind: vmstack.StoreDiscard}
	require.NoError(t, vm.doSaveUndo(dest))

	require.NoError(t, vm.Mem.WriteU32(0x180, 2))
	require.NoError(t, vm.doRestoreUndo(dest))

	v, err := vm.Mem.ReadU32(0x180)
	require.NoError(t, err)
	require.Equal(t, uint32(1), v, "restoreundo should roll RAM back to the saveundo point")
}

type fakeUndo struct {
	snaps []Snapshot
}

func newFakeUndo() *fakeUndo { return &fakeUndo{} }

func (f *fakeUndo) Push(s Snapshot) bool {
	f.snaps = append(f.snaps, s)
	return true
}

func (f *fakeUndo) Pop() (Snapshot, bool) {
	if len(f.snaps) == 0 {
		return Snapshot{}, false
	}
	s := f.snaps[len(f.snaps)-1]
	f.snaps = f.snaps[:len(f.snaps)-1]
	return s, true
}

func (f *fakeUndo) Has() bool { return len(f.snaps) > 0 }

func (f *fakeUndo) Discard() {
	if len(f.snaps) > 0 {
		f.snaps = f.snaps[:len(f.snaps)-1]
	}
}
