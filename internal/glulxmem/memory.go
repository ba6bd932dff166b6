// Package glulxmem implements the Glulx memory map (spec §4.1, components
// C1/C2): header validation, the ROM/RAM segmentation, protected-range
// bookkeeping, and size mutation. The heap allocator (C3) that tiles the
// region above endmem_initial lives alongside it in heap.go since both
// share ownership of `endmem`.
package glulxmem

import (
	"encoding/binary"

	"github.com/inform7/glulxvm/internal/glulxerr"
)

// Memory is the flat, byte-addressable, big-endian memory map of spec §3.
// It owns the original game-file bytes (needed for restart/restore and the
// undo XOR-delta of C13) alongside the live, mutable image.
type Memory struct {
	Header *Header

	original []byte // pristine game-file bytes, through ExtStart, never mutated
	bytes    []byte // live memory, length == endmem

	protectStart uint32
	protectEnd   uint32

	heap *Heap // nil until activated by malloc
}

// New builds a Memory from a validated header and the loaded game bytes.
// Bytes in [extstart, endmem_initial) are zero-filled per spec §3.
func New(h *Header, game []byte) *Memory {
	live := make([]byte, h.EndMemInit)
	n := copy(live, game)
	_ = n // remaining bytes through EndMemInit stay zero (ExtStart..EndMemInit zero-init region)

	original := make([]byte, h.ExtStart)
	copy(original, game)

	return &Memory{
		Header:   h,
		original: original,
		bytes:    live,
	}
}

// EndMem returns the current top of addressable memory (mutable via
// SetMemSize and the heap).
func (m *Memory) EndMem() uint32 { return uint32(len(m.bytes)) }

// checkRead validates [addr, addr+n) against endmem (spec §4.1: "any read
// with addr+n > endmem fails with OutOfRange").
func (m *Memory) checkRead(addr uint32, n uint32) error {
	end := uint64(addr) + uint64(n)
	if end > uint64(len(m.bytes)) {
		return glulxerr.New(glulxerr.OutOfRange, 0, "read [%#x,%#x) exceeds endmem %#x", addr, end, len(m.bytes))
	}
	return nil
}

// checkWrite validates a write, additionally rejecting addresses below
// ramstart (spec §3: "Writes to [0, ramstart) fail with IllegalWrite").
func (m *Memory) checkWrite(addr uint32, n uint32) error {
	if addr < m.Header.RAMStart {
		return glulxerr.New(glulxerr.IllegalWrite, 0, "write to %#x is below ramstart %#x", addr, m.Header.RAMStart)
	}
	return m.checkRead(addr, n)
}

func (m *Memory) ReadU8(addr uint32) (byte, error) {
	if err := m.checkRead(addr, 1); err != nil {
		return 0, err
	}
	return m.bytes[addr], nil
}

func (m *Memory) ReadU16(addr uint32) (uint16, error) {
	if err := m.checkRead(addr, 2); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(m.bytes[addr:]), nil
}

func (m *Memory) ReadU32(addr uint32) (uint32, error) {
	if err := m.checkRead(addr, 4); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(m.bytes[addr:]), nil
}

func (m *Memory) WriteU8(addr uint32, v byte) error {
	if err := m.checkWrite(addr, 1); err != nil {
		return err
	}
	m.bytes[addr] = v
	return nil
}

func (m *Memory) WriteU16(addr uint32, v uint16) error {
	if err := m.checkWrite(addr, 2); err != nil {
		return err
	}
	binary.BigEndian.PutUint16(m.bytes[addr:], v)
	return nil
}

func (m *Memory) WriteU32(addr uint32, v uint32) error {
	if err := m.checkWrite(addr, 4); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(m.bytes[addr:], v)
	return nil
}

// Slice returns a read-only view of [addr, addr+n) for bulk consumers
// (string decoding, search opcodes, save). It bounds-checks like any read.
func (m *Memory) Slice(addr, n uint32) ([]byte, error) {
	if err := m.checkRead(addr, n); err != nil {
		return nil, err
	}
	return m.bytes[addr : addr+n], nil
}

// RAMBytes returns the live RAM region [ramstart, endmem), used by the
// save/undo subsystem (C13) to compute the XOR delta against original.
func (m *Memory) RAMBytes() []byte {
	return m.bytes[m.Header.RAMStart:]
}

// OriginalRAMByte returns the original game-file byte at the given offset
// from ramstart, or zero beyond extstart (spec §4.12 CMem: "beyond
// extstart the original is zero").
func (m *Memory) OriginalRAMByte(offsetFromRAMStart uint32) byte {
	idx := m.Header.RAMStart + offsetFromRAMStart
	if idx < uint32(len(m.original)) {
		return m.original[idx]
	}
	return 0
}

// SetMemSize implements spec §4.1's set_memsize: reports true on success and
// false on failure (callers translate failure to the opcode's "1" return
// code, not a fatal VM error — see spec §7 "Save/
// restore failure returns failure code through the opcode's store"; the
// same non-fatal convention applies to setmemsize).
func (m *Memory) SetMemSize(n uint32) bool {
	return m.setMemSize(n, false)
}

// setMemSize is shared by the public opcode path and the heap's internal
// growth path, which is allowed to bypass the "heap active" rejection
// (spec §4.1: "heap is active (unless invoked internally by the heap)").
func (m *Memory) setMemSize(n uint32, fromHeap bool) bool {
	if n < m.Header.EndMemInit || n%256 != 0 {
		return false
	}
	if m.heap != nil && m.heap.active && !fromHeap {
		return false
	}
	cur := uint32(len(m.bytes))
	if n == cur {
		return true
	}
	if n > cur {
		grown := make([]byte, n)
		copy(grown, m.bytes)
		m.bytes = grown
	} else {
		m.bytes = m.bytes[:n]
	}
	return true
}

// SetProtection sets or clears the protected range (spec §3). A zero-length
// range disables protection.
func (m *Memory) SetProtection(start, length uint32) {
	if length == 0 {
		m.protectStart, m.protectEnd = 0, 0
		return
	}
	m.protectStart = start
	m.protectEnd = start + length
}

// ProtectedRange reports the current protected interval.
func (m *Memory) ProtectedRange() (start, end uint32) {
	return m.protectStart, m.protectEnd
}

func (m *Memory) isProtected(addr uint32) bool {
	return m.protectStart < m.protectEnd && addr >= m.protectStart && addr < m.protectEnd
}

// Restart reinitializes memory from the original game bytes, preserving
// protected bytes, per spec §3's lifecycle and §8's round-trip law. The
// heap is deactivated and the accelerator's registered addresses are left
// alone (cleared by the caller's accelerator component, not here; only its
// parameters are — see spec §3 "accelerator parameters cleared (not
// accelerated-address table per spec)").
func (m *Memory) Restart() {
	preserved := make(map[uint32]byte)
	if m.protectStart < m.protectEnd {
		for a := m.protectStart; a < m.protectEnd && a < uint32(len(m.bytes)); a++ {
			preserved[a] = m.bytes[a]
		}
	}
	m.bytes = make([]byte, m.Header.EndMemInit)
	copy(m.bytes, m.original)
	for a, v := range preserved {
		if a < uint32(len(m.bytes)) {
			m.bytes[a] = v
		}
	}
	m.heap = nil
}

// SetHeap wires the heap allocator into the memory map; called once by the
// heap package's constructor (avoids an import cycle between glulxmem and
// a separate heap package by keeping both in glulxmem).
func (m *Memory) SetHeap(h *Heap) { m.heap = h }

// Heap returns the currently active heap, or nil.
func (m *Memory) Heap() *Heap { return m.heap }

// VerifyChecksum recomputes the header checksum over the original game
// image and compares it to the stored value, per `verify` (spec §4.5).
func (m *Memory) VerifyChecksum() bool {
	return Checksum(m.original, m.Header.ExtStart) == m.Header.Checksum
}
