package vmstack

import (
	"testing"

	"github.com/inform7/glulxvm/internal/testing/require"
)

func TestPushPop(t *testing.T) {
	s := New(256)
	require.NoError(t, s.Push4(0x11223344))
	v, err := s.Pop4()
	require.NoError(t, err)
	require.Equal(t, uint32(0x11223344), v)
}

func TestPopUnderflow(t *testing.T) {
	s := New(256)
	_, err := s.Pop4()
	require.Error(t, err)
}

func TestPushOverflow(t *testing.T) {
	s := New(4)
	require.NoError(t, s.Push4(1))
	err := s.Push4(2)
	require.Error(t, err)
}

func TestSwap(t *testing.T) {
	s := New(256)
	s.Push4(1)
	s.Push4(2)
	require.NoError(t, s.Swap())
	top, _ := s.Peek4(0)
	second, _ := s.Peek4(1)
	require.Equal(t, uint32(1), top)
	require.Equal(t, uint32(2), second)
}

func TestRoll(t *testing.T) {
	s := New(256)
	s.Push4(1)
	s.Push4(2)
	s.Push4(3)
	// roll top 3 by 1 toward the top: [1,2,3] -> [3,1,2] (bottom to top order)
	require.NoError(t, s.Roll(3, 1))
	bottom, _ := s.Peek4(2)
	mid, _ := s.Peek4(1)
	top, _ := s.Peek4(0)
	require.Equal(t, uint32(3), bottom)
	require.Equal(t, uint32(1), mid)
	require.Equal(t, uint32(2), top)
}

func TestCopy(t *testing.T) {
	s := New(256)
	s.Push4(1)
	s.Push4(2)
	require.NoError(t, s.Copy(2))
	require.Equal(t, uint32(4), s.StackCount())
	v0, _ := s.Peek4(0)
	v1, _ := s.Peek4(1)
	require.Equal(t, uint32(2), v0)
	require.Equal(t, uint32(1), v1)
}

func TestStackCountScopedToFrame(t *testing.T) {
	s := New(256)
	s.Push4(1) // pushed before any frame exists — acts as frame-less scratch in this unit test
	f, err := s.PushFrame(nil, StoreDest{Kind: StoreDiscard})
	require.NoError(t, err)
	require.Equal(t, uint32(0), s.StackCount(), "new frame's value area starts empty")
	s.Push4(2)
	require.Equal(t, uint32(1), s.StackCount())
	_, err = s.PopFrame()
	require.NoError(t, err)
	require.Equal(t, f.Base, s.SP())
}
