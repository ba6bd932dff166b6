package glulxmem

import (
	"encoding/binary"

	"github.com/inform7/glulxvm/api"
	"github.com/inform7/glulxvm/internal/glulxerr"
)

// HeaderSize is the fixed 36-byte header every Glulx game image begins with
// (spec §6).
const HeaderSize = 0x24

// magic is the big-endian ASCII bytes 'G','l','u','l' (spec §6).
const magic = 0x476C756C

// Header is the parsed, validated fixed header of a Glulx game file
// (spec §1 C1, §6). It is read-only once parsed; the live, mutable
// counterparts (endmem in particular) live on Memory.
type Header struct {
	Version      uint32
	RAMStart     uint32
	ExtStart     uint32
	EndMemInit   uint32
	StackSize    uint32
	StartFunc    uint32
	DecodingTbl  uint32
	Checksum     uint32
}

// ParseHeader validates the magic number, version range, and the alignment
// invariants of spec §3 ("ramstart, extstart, endmem, stacksize each a
// multiple of 256; ramstart ≤ extstart ≤ endmem") and §8's boundary list.
func ParseHeader(game []byte) (*Header, error) {
	if len(game) < HeaderSize {
		return nil, glulxerr.New(glulxerr.InvalidHeader, 0, "game image shorter than header (%d bytes)", len(game))
	}
	if binary.BigEndian.Uint32(game[0:4]) != magic {
		return nil, glulxerr.New(glulxerr.InvalidHeader, 0, "bad magic number")
	}
	h := &Header{
		Version:     binary.BigEndian.Uint32(game[4:8]),
		RAMStart:    binary.BigEndian.Uint32(game[8:12]),
		ExtStart:    binary.BigEndian.Uint32(game[12:16]),
		EndMemInit:  binary.BigEndian.Uint32(game[16:20]),
		StackSize:   binary.BigEndian.Uint32(game[20:24]),
		StartFunc:   binary.BigEndian.Uint32(game[24:28]),
		DecodingTbl: binary.BigEndian.Uint32(game[28:32]),
		Checksum:    binary.BigEndian.Uint32(game[32:36]),
	}
	if h.Version < api.SupportedVersionMin || h.Version > api.SupportedVersionMax {
		return nil, glulxerr.New(glulxerr.UnsupportedVersion, 0, "version %#x outside supported range [%#x, %#x]", h.Version, api.SupportedVersionMin, api.SupportedVersionMax)
	}
	if err := h.validateAlignment(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Header) validateAlignment() error {
	if h.RAMStart < 0x100 {
		return glulxerr.New(glulxerr.InvalidHeader, 0, "ramstart %#x below minimum 0x100", h.RAMStart)
	}
	for _, v := range []struct {
		name string
		val  uint32
	}{
		{"ramstart", h.RAMStart},
		{"extstart", h.ExtStart},
		{"endmem", h.EndMemInit},
		{"stacksize", h.StackSize},
	} {
		if v.val%256 != 0 {
			return glulxerr.New(glulxerr.InvalidHeader, 0, "%s %#x is not a multiple of 256", v.name, v.val)
		}
	}
	if !(h.RAMStart <= h.ExtStart && h.ExtStart <= h.EndMemInit) {
		return glulxerr.New(glulxerr.InvalidHeader, 0, "ramstart <= extstart <= endmem violated (%#x, %#x, %#x)", h.RAMStart, h.ExtStart, h.EndMemInit)
	}
	return nil
}

// Checksum computes the 32-bit sum of the initial memory image through
// extstart, treated as big-endian u32 words (spec §6), with the stored
// checksum field itself zeroed during the sum — the convention the Glulx
// reference interpreter follows and that spec §12 (SPEC_FULL supplement)
// calls out for the `verify` opcode.
func Checksum(game []byte, extstart uint32) uint32 {
	var sum uint32
	n := int(extstart)
	if n > len(game) {
		n = len(game)
	}
	for i := 0; i+4 <= n; i += 4 {
		word := binary.BigEndian.Uint32(game[i : i+4])
		if i == 32 { // the checksum field itself
			word = 0
		}
		sum += word
	}
	return sum
}
