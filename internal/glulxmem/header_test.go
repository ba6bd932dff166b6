package glulxmem

import (
	"encoding/binary"
	"testing"

	"github.com/inform7/glulxvm/internal/testing/require"
)

func testHeaderBytes(ramstart, extstart, endmem, stacksize uint32) []byte {
	b := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(b[0:4], magic)
	binary.BigEndian.PutUint32(b[4:8], 0x00030100)
	binary.BigEndian.PutUint32(b[8:12], ramstart)
	binary.BigEndian.PutUint32(b[12:16], extstart)
	binary.BigEndian.PutUint32(b[16:20], endmem)
	binary.BigEndian.PutUint32(b[20:24], stacksize)
	binary.BigEndian.PutUint32(b[24:28], ramstart) // startfunc, arbitrary
	binary.BigEndian.PutUint32(b[28:32], 0)
	binary.BigEndian.PutUint32(b[32:36], 0)
	return b
}

func TestParseHeaderValid(t *testing.T) {
	b := testHeaderBytes(0x100, 0x200, 0x400, 0x100)
	h, err := ParseHeader(b)
	require.NoError(t, err)
	require.Equal(t, uint32(0x100), h.RAMStart)
	require.Equal(t, uint32(0x200), h.ExtStart)
	require.Equal(t, uint32(0x400), h.EndMemInit)
}

func TestParseHeaderBadMagic(t *testing.T) {
	b := testHeaderBytes(0x100, 0x200, 0x400, 0x100)
	b[0] = 'X'
	_, err := ParseHeader(b)
	require.Error(t, err)
}

func TestParseHeaderRamstartTooLow(t *testing.T) {
	b := testHeaderBytes(0x80, 0x200, 0x400, 0x100)
	_, err := ParseHeader(b)
	require.Error(t, err)
}

func TestParseHeaderMisaligned(t *testing.T) {
	b := testHeaderBytes(0x100, 0x201, 0x400, 0x100)
	_, err := ParseHeader(b)
	require.Error(t, err)
}

func TestParseHeaderOrderingViolated(t *testing.T) {
	b := testHeaderBytes(0x300, 0x200, 0x400, 0x100)
	_, err := ParseHeader(b)
	require.Error(t, err)
}

func TestParseHeaderUnsupportedVersion(t *testing.T) {
	b := testHeaderBytes(0x100, 0x200, 0x400, 0x100)
	binary.BigEndian.PutUint32(b[4:8], 0x00040000)
	_, err := ParseHeader(b)
	require.Error(t, err)
}

func TestChecksumZeroesOwnField(t *testing.T) {
	b := testHeaderBytes(0x100, 0x200, 0x400, 0x100)
	binary.BigEndian.PutUint32(b[32:36], 0xDEADBEEF)
	sum1 := Checksum(b, 0x200)
	binary.BigEndian.PutUint32(b[32:36], 0)
	sum2 := Checksum(b, 0x200)
	require.Equal(t, sum2, sum1)
}
