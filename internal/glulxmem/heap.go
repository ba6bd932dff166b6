package glulxmem

import "sort"

// block is one tile of the heap's coverage of [heap_start, endmem). Exactly
// one contiguous tiling is maintained at all times (spec §4.2 invariant).
type block struct {
	addr uint32
	len  uint32
	free bool
}

// Heap is the first-fit allocator laid over the upper portion of memory
// (spec §3 C3, §4.2). It is activated lazily by the first malloc and
// deactivated when the live allocation count returns to zero.
type Heap struct {
	mem        *Memory
	heapStart  uint32
	blocks     []block // sorted by addr, tiles [heapStart, endmem) exactly
	active     bool
	allocCount int
}

// NewHeap attaches a (currently inactive) heap to mem. Heap-ness becomes
// "active" on the first successful Malloc (spec §3: "Active iff
// heap_start ≠ 0").
func NewHeap(mem *Memory) *Heap {
	h := &Heap{mem: mem}
	mem.SetHeap(h)
	return h
}

// Active reports whether the heap currently owns any memory.
func (h *Heap) Active() bool { return h.active }

// HeapStart returns the current heap base address, or 0 if inactive.
func (h *Heap) HeapStart() uint32 {
	if !h.active {
		return 0
	}
	return h.heapStart
}

// AllocCount returns the number of live (non-free) blocks.
func (h *Heap) AllocCount() int { return h.allocCount }

// Malloc implements spec §4.2: first-fit over free blocks, growing memory
// by max(requested, 256) rounded to 256 bytes if no fit is found. Returns 0
// on failure (e.g. setmemsize rejects the growth).
func (h *Heap) Malloc(length uint32) uint32 {
	if length == 0 {
		return 0
	}
	if !h.active {
		h.heapStart = h.mem.EndMem()
		h.blocks = []block{{addr: h.heapStart, len: 0, free: true}}
		h.active = true
	}

	if addr, ok := h.firstFit(length); ok {
		return addr
	}

	// No fit: extend memory by the requested length, with a 256-byte
	// floor, rounded up to a multiple of 256 (spec §3).
	need := length
	if need < 256 {
		need = 256
	}
	need = (need + 255) &^ 255

	newEnd := h.mem.EndMem() + need
	if !h.mem.setMemSize(newEnd, true) {
		return 0
	}
	h.growTailFreeBlockTo(newEnd)

	addr, ok := h.firstFit(length)
	if !ok {
		return 0
	}
	return addr
}

// firstFit scans blocks in address order for the first free block at least
// length bytes long, splitting off any remainder as a new free block.
func (h *Heap) firstFit(length uint32) (uint32, bool) {
	for i := range h.blocks {
		b := &h.blocks[i]
		if !b.free || b.len < length {
			continue
		}
		addr := b.addr
		if b.len == length {
			b.free = false
		} else {
			remaining := block{addr: b.addr + length, len: b.len - length, free: true}
			b.len = length
			b.free = false
			h.blocks = append(h.blocks, block{})
			copy(h.blocks[i+2:], h.blocks[i+1:])
			h.blocks[i+1] = remaining
		}
		h.allocCount++
		return addr, true
	}
	return 0, false
}

// growTailFreeBlockTo extends (or appends) the trailing free block so the
// tiling reaches newEnd exactly.
func (h *Heap) growTailFreeBlockTo(newEnd uint32) {
	if n := len(h.blocks); n > 0 && h.blocks[n-1].free {
		last := &h.blocks[n-1]
		last.len = newEnd - last.addr
		return
	}
	var tailAddr uint32 = h.heapStart
	if n := len(h.blocks); n > 0 {
		last := h.blocks[n-1]
		tailAddr = last.addr + last.len
	}
	h.blocks = append(h.blocks, block{addr: tailAddr, len: newEnd - tailAddr, free: true})
}

// Mfree implements spec §4.2: the freed block is marked free and merged at
// once with any free block directly before or after it; firstFit itself
// does no merging.
func (h *Heap) Mfree(addr uint32) bool {
	if !h.active {
		return false
	}
	idx := sort.Search(len(h.blocks), func(i int) bool { return h.blocks[i].addr >= addr })
	if idx >= len(h.blocks) || h.blocks[idx].addr != addr || h.blocks[idx].free {
		return false
	}
	h.blocks[idx].free = true
	h.allocCount--
	h.coalesceAround(idx)

	if h.allocCount == 0 {
		h.deactivate()
	}
	return true
}

// coalesceAround merges blocks[idx] with its free neighbors, maintaining
// the "no two adjacent free blocks" invariant (spec §4.2).
func (h *Heap) coalesceAround(idx int) {
	if idx+1 < len(h.blocks) && h.blocks[idx+1].free {
		h.blocks[idx].len += h.blocks[idx+1].len
		h.blocks = append(h.blocks[:idx+1], h.blocks[idx+2:]...)
	}
	if idx > 0 && h.blocks[idx-1].free {
		h.blocks[idx-1].len += h.blocks[idx].len
		h.blocks = append(h.blocks[:idx], h.blocks[idx+1:]...)
	}
}

// deactivate shrinks memory back to heap_start and clears heap state
// (spec §3: "when the total live allocation count reaches 0, heap
// deactivates and memory is shrunk back to heap_start").
func (h *Heap) deactivate() {
	h.mem.setMemSize(h.heapStart, true)
	h.active = false
	h.blocks = nil
	h.heapStart = 0
	h.mem.SetHeap(nil)
}

// Snapshot returns the heap summary of spec §4.2: [heap_start, alloc_count,
// addr1, len1, ...] for allocated blocks in address order, used by the
// MAll save chunk (C13).
func (h *Heap) Snapshot() (heapStart uint32, allocs []struct{ Addr, Len uint32 }) {
	if !h.active {
		return 0, nil
	}
	for _, b := range h.blocks {
		if !b.free {
			allocs = append(allocs, struct{ Addr, Len uint32 }{b.addr, b.len})
		}
	}
	return h.heapStart, allocs
}

// Restore reconstructs the heap tiling from a save-file summary: the
// allocated blocks listed, with gaps filled by free blocks and a trailing
// free block extended to the current endmem (spec §4.2).
func Restore(mem *Memory, heapStart uint32, allocs []struct{ Addr, Len uint32 }) *Heap {
	if heapStart == 0 {
		return nil
	}
	h := &Heap{mem: mem, heapStart: heapStart, active: true}
	cursor := heapStart
	for _, a := range allocs {
		if a.Addr > cursor {
			h.blocks = append(h.blocks, block{addr: cursor, len: a.Addr - cursor, free: true})
		}
		h.blocks = append(h.blocks, block{addr: a.Addr, len: a.Len, free: false})
		h.allocCount++
		cursor = a.Addr + a.Len
	}
	if end := mem.EndMem(); end > cursor {
		h.blocks = append(h.blocks, block{addr: cursor, len: end - cursor, free: true})
	}
	mem.SetHeap(h)
	return h
}
