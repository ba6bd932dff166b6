package main

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inform7/glulxvm/internal/engine"
	"github.com/inform7/glulxvm/internal/glulxmem"
	"github.com/inform7/glulxvm/internal/save"
)

func execCommand(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	out := execCommand(t, "version")
	require.Contains(t, out, "glulxrun terp version")
}

func TestSaveInfoCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.glksave")

	hb := make([]byte, glulxmem.HeaderSize)
	binary.BigEndian.PutUint32(hb[0:4], 0x476C756C)
	binary.BigEndian.PutUint32(hb[4:8], 0x00030100)
	binary.BigEndian.PutUint32(hb[8:12], 0x100)
	binary.BigEndian.PutUint32(hb[12:16], 0x200)
	binary.BigEndian.PutUint32(hb[16:20], 0x400)
	binary.BigEndian.PutUint32(hb[20:24], 0x100)
	h, err := glulxmem.ParseHeader(hb)
	require.NoError(t, err)
	game := make([]byte, 0x200)
	copy(game, hb)
	mem := glulxmem.New(h, game)

	f, err := os.Create(path)
	require.NoError(t, err)
	codec := &save.Codec{Mem: mem}
	require.NoError(t, codec.WriteSnapshot(&fileByteStream{f: f}, engine.Snapshot{RAM: mem.RAMBytes(), EndMem: mem.EndMem()}))
	require.NoError(t, f.Close())

	out := execCommand(t, "save-info", path)
	require.Contains(t, out, "game checksum")
	require.Contains(t, out, "IFhd")
	require.Contains(t, out, "CMem")
}
