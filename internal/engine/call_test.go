package engine

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/inform7/glulxvm/api"
	"github.com/inform7/glulxvm/internal/glulxerr"
	"github.com/inform7/glulxvm/internal/glulxmem"
	"github.com/inform7/glulxvm/internal/rng"
	"github.com/inform7/glulxvm/internal/testing/require"
	"github.com/inform7/glulxvm/internal/vmstack"
)

func testHeaderBytes(ramstart, extstart, endmem, stacksize uint32) []byte {
	b := make([]byte, glulxmem.HeaderSize)
	binary.BigEndian.PutUint32(b[0:4], 0x476C756C)
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

type spyIoSys struct {
	puts []string
}

func (s *spyIoSys) PutChar(byte)          {}
func (s *spyIoSys) PutCharUni(rune)       {}
func (s *spyIoSys) PutString(b []byte)    { s.puts = append(s.puts, string(b)) }
func (s *spyIoSys) PutStringUni([]rune)   {}
func (s *spyIoSys) Dispatch(context.Context, uint32, uint32, func() uint32) uint32 {
	return 0
}

func testVM(t *testing.T, iosys api.IoSys) *VM {
	t.Helper()
	hb := testHeaderBytes(0x100, 0x200, 0x400, 0x100)
	game := make([]byte, 0x200)
	copy(game, hb)
	h, err := glulxmem.ParseHeader(hb)
	require.NoError(t, err)
	mem := glulxmem.New(h, game)
	stk := vmstack.New(0x100)
	return New(mem, stk, rng.New(), iosys)
}

func TestRunAccelFuncPropagatesOrdinaryError(t *testing.T) {
	vm := testVM(t, &spyIoSys{})
	wantErr := glulxerr.New(glulxerr.OutOfRange, 0, "boom")
	_, err := vm.runAccelFunc(func(*glulxmem.Memory, []uint32) (uint32, error) {
		return 0, wantErr
	}, nil)
	require.Error(t, err)
}

func TestRunAccelFuncRecoversAccelFunctionError(t *testing.T) {
	vm := testVM(t, &spyIoSys{})
	vm.iosysMode = api.IosysGlk
	result, err := vm.runAccelFunc(func(*glulxmem.Memory, []uint32) (uint32, error) {
		return 0, glulxerr.New(glulxerr.AccelFunctionError, 0, "RA__Pr: property number %d applied to nothing", 5)
	}, nil)
	require.NoError(t, err)
	require.Equal(t, uint32(0), result)

	spy := vm.IoSys.(*spyIoSys)
	require.Equal(t, 1, len(spy.puts))
}

func TestRunAccelFuncSilentWithoutGlkIosys(t *testing.T) {
	vm := testVM(t, &spyIoSys{})
	vm.iosysMode = api.IosysNull
	_, err := vm.runAccelFunc(func(*glulxmem.Memory, []uint32) (uint32, error) {
		return 0, glulxerr.New(glulxerr.AccelFunctionError, 0, "boom")
	}, nil)
	require.NoError(t, err)

	spy := vm.IoSys.(*spyIoSys)
	require.Equal(t, 0, len(spy.puts))
}
