package save

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inform7/glulxvm/internal/engine"
	"github.com/inform7/glulxvm/internal/glulxmem"
	"github.com/inform7/glulxvm/internal/vmstack"
)

// memStream is a minimal in-memory api.ByteStream backing save/restore
// round-trip tests, in the spirit of the real file-backed stream a host
// would supply.
type memStream struct {
	buf bytes.Buffer
}

func (s *memStream) Write(p []byte) (int, error) { return s.buf.Write(p) }
func (s *memStream) Read(p []byte) (int, error)  { return s.buf.Read(p) }
func (s *memStream) Close() error                { return nil }

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
	hb := testHeaderBytes(0x100, 0x200, 0x400, 0x100)
	game := make([]byte, 0x200)
	copy(game, hb)
	game[0x150] = 0x11
	h, err := glulxmem.ParseHeader(hb)
	require.NoError(t, err)
	return glulxmem.New(h, game)
}

func TestWriteReadSnapshotRoundTrip(t *testing.T) {
	mem := testMem(t)
	require.NoError(t, mem.WriteU32(0x180, 0xDEADBEEF))

	c := &Codec{Mem: mem}
	snap := engine.Snapshot{
		RAM:    append([]byte(nil), mem.RAMBytes()...),
		EndMem: mem.EndMem(),
		PC:     0x4242,
		Frames: []vmstack.FrameSnapshot{{
			Locals:     []vmstack.LocalsDescriptor{{Size: 4, Count: 1}},
			LocalBytes: []byte{0, 0, 0, 7},
			StoreDest:  vmstack.StoreDest{Kind: vmstack.StoreMain, Addr: 0x300},
			ReturnPC:   0x10,
			ValueCells: []uint32{1, 2, 3},
		}},
		AccelParams: [9]uint32{1, 2, 3, 4, 5, 6, 7, 8, 9},
		ResumeDest:  vmstack.StoreDest{Kind: vmstack.StoreLocal, Addr: 4},
	}

	stream := &memStream{}
	require.NoError(t, c.WriteSnapshot(stream, snap))

	got, err := c.ReadSnapshot(stream)
	require.NoError(t, err)

	require.Equal(t, snap.PC, got.PC)
	require.Equal(t, snap.AccelParams, got.AccelParams)
	require.Equal(t, snap.ResumeDest, got.ResumeDest)
	require.Equal(t, snap.RAM, got.RAM)
	require.Len(t, got.Frames, 1)
	require.Equal(t, snap.Frames[0].ReturnPC, got.Frames[0].ReturnPC)
	require.Equal(t, snap.Frames[0].ValueCells, got.Frames[0].ValueCells)
	require.Equal(t, snap.Frames[0].StoreDest, got.Frames[0].StoreDest)
}

func TestWriteSnapshotOmitsMAllWhenNoHeap(t *testing.T) {
	mem := testMem(t)
	c := &Codec{Mem: mem}
	snap := engine.Snapshot{RAM: mem.RAMBytes(), EndMem: mem.EndMem()}

	stream := &memStream{}
	require.NoError(t, c.WriteSnapshot(stream, snap))

	chunks, _, err := Inspect(&memStream{buf: stream.buf})
	require.NoError(t, err)
	for _, ch := range chunks {
		require.NotEqual(t, chunkMAll, ch.ID)
	}
}

func TestInspectReportsIFhd(t *testing.T) {
	mem := testMem(t)
	c := &Codec{Mem: mem}
	stream := &memStream{}
	require.NoError(t, c.WriteSnapshot(stream, engine.Snapshot{RAM: mem.RAMBytes(), EndMem: mem.EndMem()}))

	_, ifhd, err := Inspect(&memStream{buf: stream.buf})
	require.NoError(t, err)
	require.Equal(t, mem.Header.Checksum, ifhd.Checksum)
	require.Equal(t, mem.Header.RAMStart, ifhd.RAMStart)
	require.Equal(t, mem.Header.EndMemInit, ifhd.EndMemInit)
}

func TestReadSnapshotRejectsBadMagic(t *testing.T) {
	mem := testMem(t)
	c := &Codec{Mem: mem}
	stream := &memStream{}
	stream.buf.WriteString("NOPE")
	_, err := c.ReadSnapshot(stream)
	require.Error(t, err)
}
