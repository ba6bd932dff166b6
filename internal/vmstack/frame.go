package vmstack

import "github.com/inform7/glulxvm/internal/glulxerr"

// MemReader is the minimal read surface frame construction needs from
// memory, kept narrow to avoid an import cycle with glulxmem.
type MemReader interface {
	ReadU8(addr uint32) (byte, error)
	ReadU16(addr uint32) (uint16, error)
}

// FuncType is the type byte at the start of every Glulx function
// (spec §3 "Function headers").
type FuncType byte

const (
	FuncStackArgs FuncType = 0xC0
	FuncCArgs     FuncType = 0xC1
)

// ParseFunctionHeader reads the type byte and locals descriptor starting
// at addr, returning the descriptor list and the address of the function
// body (after header, descriptor, and alignment padding).
func ParseFunctionHeader(mem MemReader, addr uint32) (FuncType, []LocalsDescriptor, uint32, error) {
	typeByte, err := mem.ReadU8(addr)
	if err != nil {
		return 0, nil, 0, err
	}
	ft := FuncType(typeByte)
	if ft != FuncStackArgs && ft != FuncCArgs {
		return 0, nil, 0, glulxerr.New(glulxerr.NotAFunction, 0, "address %#x is not a function (type byte %#x)", addr, typeByte)
	}

	cursor := addr + 1
	var descs []LocalsDescriptor
	for {
		size, err := mem.ReadU8(cursor)
		if err != nil {
			return 0, nil, 0, err
		}
		count, err := mem.ReadU8(cursor + 1)
		if err != nil {
			return 0, nil, 0, err
		}
		cursor += 2
		if size == 0 && count == 0 {
			break
		}
		descs = append(descs, LocalsDescriptor{Size: size, Count: uint16(count)})
	}
	return ft, descs, cursor, nil
}

// layoutLocals computes the byte offset (from the start of the locals
// area) and size of each individual local cell declared across descs, plus
// the total locals-area size rounded up to 4-byte alignment (spec §3
// "Locals area: variably-typed cells ... plus trailing padding to 4-byte
// alignment").
func layoutLocals(descs []LocalsDescriptor) (offsets []uint32, sizes []byte, totalLen uint32) {
	var off uint32
	for _, d := range descs {
		// Each run of same-size locals is itself aligned to its own size,
		// matching the reference interpreter's locals layout rule.
		if d.Size > 1 && off%uint32(d.Size) != 0 {
			off += uint32(d.Size) - off%uint32(d.Size)
		}
		for i := uint16(0); i < d.Count; i++ {
			offsets = append(offsets, off)
			sizes = append(sizes, d.Size)
			off += uint32(d.Size)
		}
	}
	if off%4 != 0 {
		off += 4 - off%4
	}
	return offsets, sizes, off
}

// PushFrame constructs and pushes a new frame at the stack's current SP,
// zero-initializing the locals area (spec §4.6 step 3). It does not write
// arguments; callers (engine/call.go) do that afterward per the function's
// type byte (0xC0 stack-args vs 0xC1 C-args).
func (s *Stack) PushFrame(descs []LocalsDescriptor, storeDest StoreDest) (*Frame, error) {
	offsets, sizes, localsLen := layoutLocals(descs)

	// frame_len(4) + locals_offset(4) + packed format table + padding to
	// locals area start; we lay the format table out as (size,count) pairs
	// identical to the in-memory encoding, terminated by (0,0), then pad
	// to a 4-byte boundary, matching the reference frame layout (spec §3).
	formatLen := uint32(len(descs))*2 + 2
	headerLen := uint32(8) + formatLen
	if headerLen%4 != 0 {
		headerLen += 4 - headerLen%4
	}
	localsOffset := headerLen
	frameLen := localsOffset + localsLen

	base := s.sp
	if err := s.checkGrow(frameLen); err != nil {
		return nil, err
	}
	for i := uint32(0); i < frameLen; i++ {
		s.data[base+i] = 0
	}
	s.setAt(base, frameLen)
	s.setAt(base+4, localsOffset)
	s.sp = base + frameLen

	f := &Frame{
		Base:         base,
		FrameLen:     frameLen,
		LocalsOffset: localsOffset,
		Locals:       descs,
		LocalOffsets: offsets,
		LocalSizes:   sizes,
		ValueBase:    base + frameLen,
		StoreDest:    storeDest,
	}
	s.frames = append(s.frames, f)
	return f, nil
}

// PopFrame removes the current frame, restoring SP to its base and
// returning it so the caller (ret) can perform the deferred store.
func (s *Stack) PopFrame() (*Frame, error) {
	if len(s.frames) == 0 {
		return nil, glulxerr.New(glulxerr.StackUnderflow, 0, "ret with no active frame")
	}
	f := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	s.sp = f.Base
	return f, nil
}

// ReplaceCurrentFrame pops the current frame and installs a freshly built
// one in its place, used by `tailcall` (spec §4.6: "replaces the current
// frame in-place with the callee's, preserving the original caller's
// destination").
func (s *Stack) ReplaceCurrentFrame(descs []LocalsDescriptor) (*Frame, error) {
	if len(s.frames) == 0 {
		return nil, glulxerr.New(glulxerr.StackUnderflow, 0, "tailcall with no active frame")
	}
	old := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	s.sp = old.Base
	f, err := s.PushFrame(descs, old.StoreDest)
	if err != nil {
		return nil, err
	}
	f.ReturnPC = old.ReturnPC
	return f, nil
}

// LocalCellAt resolves the local cell that starts at byteOffset (from the
// start of the locals area) to its stack address and declared size, with
// ok false when no cell starts there; used by operand decoding for modes
// 9/A/B (spec §4.4).
func (f *Frame) LocalCellAt(byteOffset uint32) (addr uint32, size byte, ok bool) {
	for i, off := range f.LocalOffsets {
		if off == byteOffset {
			return f.Base + f.LocalsOffset + off, f.LocalSizes[i], true
		}
	}
	return 0, 0, false
}

// FrameSnapshot is one call frame's structured save-file/undo
// representation (spec §4.12's Quetzal-like "Stks" chunk): a per-frame
// record rather than a raw byte dump, since a frame's own length field
// alone can't tell where it ends relative to the value cells pushed on top
// of it without this structure.
type FrameSnapshot struct {
	Locals     []LocalsDescriptor
	LocalBytes []byte
	StoreDest  StoreDest
	ReturnPC   uint32
	ValueCells []uint32
}

// Frames returns the active frame chain, outermost first, for
// serialization by the save/undo subsystem.
func (s *Stack) Frames() []*Frame { return s.frames }

// LocalsBytes returns a copy of f's locals-area bytes.
func (s *Stack) LocalsBytes(f *Frame) []byte {
	start := f.Base + f.LocalsOffset
	out := make([]byte, f.ValueBase-start)
	copy(out, s.data[start:f.ValueBase])
	return out
}

// ValueCellsAbove returns the raw 32-bit cells pushed above f's locals
// area, up to the next nested frame's base (or SP, if f is topmost).
func (s *Stack) ValueCellsAbove(f *Frame) []uint32 {
	end := s.sp
	for i, fr := range s.frames {
		if fr == f && i+1 < len(s.frames) {
			end = s.frames[i+1].Base
			break
		}
	}
	n := (end - f.ValueBase) / 4
	cells := make([]uint32, n)
	for i := uint32(0); i < n; i++ {
		cells[i] = s.at(f.ValueBase + i*4)
	}
	return cells
}

// LoadFrames rebuilds the stack from a structured frame snapshot, used by
// restore/restoreundo (spec §4.12).
func (s *Stack) LoadFrames(frames []FrameSnapshot) error {
	s.sp = 0
	s.frames = nil
	for i := range s.data {
		s.data[i] = 0
	}
	for _, fs := range frames {
		f, err := s.PushFrame(fs.Locals, fs.StoreDest)
		if err != nil {
			return err
		}
		f.ReturnPC = fs.ReturnPC
		s.SetLocalsBytes(f, fs.LocalBytes)
		for _, v := range fs.ValueCells {
			if err := s.Push4(v); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetLocalsBytes overwrites f's locals-area bytes in place, used to
// restore local variable values PushFrame zero-initialized.
func (s *Stack) SetLocalsBytes(f *Frame, b []byte) {
	start := f.Base + f.LocalsOffset
	copy(s.data[start:f.ValueBase], b)
}
