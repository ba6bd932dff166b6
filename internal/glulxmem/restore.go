package glulxmem

// RawBytes returns a copy of the first n bytes of live memory, clamped to
// the memory size. It never fails. The save package's IFhd chunk does not
// use it; that chunk is built from header fields.
func (m *Memory) RawBytes(n uint32) []byte {
	if n > uint32(len(m.bytes)) {
		n = uint32(len(m.bytes))
	}
	out := make([]byte, n)
	copy(out, m.bytes[:n])
	return out
}

// ApplyRAMDelta restores the RAM region [ramstart, endmem) from a decoded
// CMem payload (raw bytes, already XOR/RLE-decompressed by the save
// package), skipping any byte inside the protected range (spec §3, §4.12
// "Restore reverses the process ... applies the RAM delta skipping
// protected bytes"). It also performs the resize implied by the payload
// length, exactly like restart does for the initial image.
func (m *Memory) ApplyRAMDelta(ramBytes []byte) {
	newEnd := m.Header.RAMStart + uint32(len(ramBytes))
	if newEnd < m.Header.EndMemInit {
		newEnd = m.Header.EndMemInit
	}
	resized := make([]byte, newEnd)
	copy(resized, m.bytes[:min32(uint32(len(m.bytes)), newEnd)])

	for i, b := range ramBytes {
		addr := m.Header.RAMStart + uint32(i)
		if m.isProtected(addr) {
			continue
		}
		resized[addr] = b
	}
	m.bytes = resized
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
