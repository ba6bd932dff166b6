package accel

import (
	"encoding/binary"
	"testing"

	"github.com/inform7/glulxvm/internal/glulxmem"
	"github.com/inform7/glulxvm/internal/testing/require"
)

const testMagic = 0x476C756C

func testHeaderBytes(ramstart, extstart, endmem, stacksize uint32) []byte {
	b := make([]byte, glulxmem.HeaderSize)
	binary.BigEndian.PutUint32(b[0:4], testMagic)
	binary.BigEndian.PutUint32(b[4:8], 0x00030100)
	binary.BigEndian.PutUint32(b[8:12], ramstart)
	binary.BigEndian.PutUint32(b[12:16], extstart)
	binary.BigEndian.PutUint32(b[16:20], endmem)
	binary.BigEndian.PutUint32(b[20:24], stacksize)
	binary.BigEndian.PutUint32(b[24:28], ramstart)
	binary.BigEndian.PutUint32(b[28:32], 0)
	binary.BigEndian.PutUint32(b[32:36], 0)
	return b
}

func testMem(t *testing.T) *glulxmem.Memory {
	t.Helper()
	hb := testHeaderBytes(0x100, 0x300, 0x400, 0x100)
	game := make([]byte, 0x300)
	copy(game, hb)
	h, err := glulxmem.ParseHeader(hb)
	require.NoError(t, err)
	return glulxmem.New(h, game)
}

// writeObject lays out one object record at addr per this package's assumed
// layout: numAttrBytes attribute bytes, then parent/sibling/child/proptable.
func writeObject(t *testing.T, mem *glulxmem.Memory, addr uint32, numAttrBytes uint32, parent, sibling, child, proptab uint32) {
	t.Helper()
	require.NoError(t, mem.WriteU8(addr, typeObject))
	for i := uint32(1); i < numAttrBytes; i++ {
		require.NoError(t, mem.WriteU8(addr+i, 0))
	}
	require.NoError(t, mem.WriteU32(addr+numAttrBytes+objParentOff, parent))
	require.NoError(t, mem.WriteU32(addr+numAttrBytes+objSiblingOff, sibling))
	require.NoError(t, mem.WriteU32(addr+numAttrBytes+objChildOff, child))
	require.NoError(t, mem.WriteU32(addr+numAttrBytes+objProptabOff, proptab))
}

// writePropTable writes a property table at addr holding the given
// {id, data} entries, each with length 4, and returns the next free
// address after the table.
func writePropTable(t *testing.T, mem *glulxmem.Memory, addr uint32, entries [][2]uint32) uint32 {
	t.Helper()
	require.NoError(t, mem.WriteU16(addr, uint16(len(entries))))
	for i, e := range entries {
		entry := addr + 2 + uint32(i)*propEntrySize
		require.NoError(t, mem.WriteU16(entry, uint16(e[0])))
		require.NoError(t, mem.WriteU8(entry+2, 4))
		require.NoError(t, mem.WriteU32(entry+4, e[1]))
	}
	return addr + 2 + uint32(len(entries))*propEntrySize
}

func TestZRegion(t *testing.T) {
	mem := testMem(t)
	writeObject(t, mem, 0x100, 1, 0, 0, 0, 0)
	require.NoError(t, mem.WriteU8(0x120, typeFunctionCArgs))
	require.NoError(t, mem.WriteU8(0x130, typeStringMin))

	r, err := zRegion(mem, 0x100)
	require.NoError(t, err)
	require.Equal(t, uint32(1), r)

	r, err = zRegion(mem, 0x120)
	require.NoError(t, err)
	require.Equal(t, uint32(3), r)

	r, err = zRegion(mem, 0x130)
	require.NoError(t, err)
	require.Equal(t, uint32(2), r)

	r, err = zRegion(mem, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(0), r)
}

func TestRegisterRejectsNonFunction(t *testing.T) {
	mem := testMem(t)
	writeObject(t, mem, 0x100, 1, 0, 0, 0, 0)
	tbl := New()
	err := tbl.Register(mem, uint32(fnZRegion), 0x100)
	require.Error(t, err)
}

func TestRegisterAndLookup(t *testing.T) {
	mem := testMem(t)
	require.NoError(t, mem.WriteU8(0x140, typeFunctionStack))
	tbl := New()
	require.NoError(t, tbl.Register(mem, uint32(fnZRegion), 0x140))
	fn, ok := tbl.Lookup(0x140)
	require.True(t, ok, "registered address should be found")
	result, err := fn(mem, nil)
	require.NoError(t, err)
	require.Equal(t, uint32(0), result, "no argument popped, Z__Region(0) == 0")
}

func TestRegisterUnsupportedIndexIsNoop(t *testing.T) {
	mem := testMem(t)
	require.NoError(t, mem.WriteU8(0x140, typeFunctionStack))
	tbl := New()
	require.NoError(t, tbl.Register(mem, 99, 0x140))
	_, ok := tbl.Lookup(0x140)
	require.False(t, ok, "unsupported index must not register")
}

func TestRegisterZeroUnregisters(t *testing.T) {
	mem := testMem(t)
	require.NoError(t, mem.WriteU8(0x140, typeFunctionStack))
	tbl := New()
	require.NoError(t, tbl.Register(mem, uint32(fnZRegion), 0x140))
	require.NoError(t, tbl.Register(mem, 0, 0x140))
	_, ok := tbl.Lookup(0x140)
	require.False(t, ok)
}

func TestRAPrOwnAndInherited(t *testing.T) {
	mem := testMem(t)
	const numAttrBytes = 1
	// Class object at 0x200 carries property 10 directly.
	writePropTable(t, mem, 0x220, [][2]uint32{{10, 0xABCD}})
	writeObject(t, mem, 0x200, numAttrBytes, 0, 0, 0, 0x220)

	// obj at 0x100 has own property 2 (the "class" link) pointing at a
	// one-entry table whose data cell holds the class object's address.
	require.NoError(t, mem.WriteU32(0x240, 0x200))
	writePropTable(t, mem, 0x250, [][2]uint32{{2, 0x240}})
	writeObject(t, mem, 0x100, numAttrBytes, 0, 0, 0, 0x250)

	tbl := New()
	addr, err := tbl.raPr(mem, 0x100, 10, numAttrBytes)
	require.NoError(t, err)
	require.Equal(t, uint32(0xABCD), addr)
}

func TestRAPrNilObjectReturnsAccelFunctionError(t *testing.T) {
	mem := testMem(t)
	tbl := New()
	_, err := tbl.raPr(mem, 0, 5, 1)
	require.Error(t, err)
}

func TestOCClObjectMetaclass(t *testing.T) {
	mem := testMem(t)
	const numAttrBytes = 1
	writeObject(t, mem, 0x100, numAttrBytes, 0, 0, 0, 0)

	tbl := New()
	tbl.SetParam(ParamObjectMetaclass, 777)
	ok, err := tbl.ocCl(mem, 0x100, 777, numAttrBytes)
	require.NoError(t, err)
	require.Equal(t, uint32(1), ok)
}

func TestParamsRoundTrip(t *testing.T) {
	tbl := New()
	tbl.SetParam(ParamSelf, 0x1000)
	tbl.SetParam(ParamNumAttrBytes, 7)
	saved := tbl.Params()

	other := New()
	other.LoadParams(saved)
	require.Equal(t, saved, other.Params())
}
