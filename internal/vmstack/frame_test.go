package vmstack

import (
	"testing"

	"github.com/inform7/glulxvm/internal/testing/require"
)

type fakeMem struct{ b []byte }

func (f *fakeMem) ReadU8(addr uint32) (byte, error)   { return f.b[addr], nil }
func (f *fakeMem) ReadU16(addr uint32) (uint16, error) { return uint16(f.b[addr])<<8 | uint16(f.b[addr+1]), nil }

func TestParseFunctionHeaderCArgs(t *testing.T) {
	// 0xC1, then locals (4,2) (1,1) terminator (0,0)
	b := []byte{0xC1, 4, 2, 1, 1, 0, 0, 0xAA}
	mem := &fakeMem{b: b}
	ft, descs, bodyAddr, err := ParseFunctionHeader(mem, 0)
	require.NoError(t, err)
	require.Equal(t, FuncCArgs, ft)
	require.Equal(t, 2, len(descs))
	require.Equal(t, byte(4), descs[0].Size)
	require.Equal(t, uint16(2), descs[0].Count)
	require.Equal(t, uint32(7), bodyAddr)
}

func TestParseFunctionHeaderNotAFunction(t *testing.T) {
	b := []byte{0x42, 0, 0}
	mem := &fakeMem{b: b}
	_, _, _, err := ParseFunctionHeader(mem, 0)
	require.Error(t, err)
}

func TestPushFrameLaysOutLocals(t *testing.T) {
	s := New(256)
	descs := []LocalsDescriptor{{Size: 4, Count: 2}}
	f, err := s.PushFrame(descs, StoreDest{Kind: StoreDiscard})
	require.NoError(t, err)
	require.Equal(t, 2, len(f.LocalOffsets))
	addr0, size0, ok := f.LocalCellAt(f.LocalOffsets[0])
	require.True(t, ok, "first local resolvable")
	require.Equal(t, byte(4), size0)
	addr1, _, ok := f.LocalCellAt(f.LocalOffsets[1])
	require.True(t, ok, "second local resolvable")
	require.NotEqual(t, addr0, addr1)
}

func TestReplaceCurrentFramePreservesStoreDest(t *testing.T) {
	s := New(256)
	dest := StoreDest{Kind: StoreMain, Addr: 0x1234}
	_, err := s.PushFrame(nil, dest)
	require.NoError(t, err)
	f2, err := s.ReplaceCurrentFrame([]LocalsDescriptor{{Size: 4, Count: 1}})
	require.NoError(t, err)
	require.Equal(t, dest, f2.StoreDest)
}
