package save

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/inform7/glulxvm/api"
	"github.com/inform7/glulxvm/internal/engine"
	"github.com/inform7/glulxvm/internal/glulxmem"
	"github.com/inform7/glulxvm/internal/vmstack"
)

// Quetzal-like chunked container (spec §4.12): an IFF-style FORM wrapper
// holding one chunk per piece of engine.Snapshot, modeled on the real
// Quetzal format's IFhd/CMem/Stks/MAll chunks plus two chunks of this
// module's own (AcPm, Extr) for the pieces Quetzal itself never needed
// (accelerator state, iosys/protection/RNG). Grounded on the section-by-
// section binary layout wazero's own module decoder uses for the WebAssembly
// binary format: a fixed magic/header, then typed, length-prefixed sections
// read in a loop. No pack example ships an IFF/chunk library, so this is
// implemented directly against encoding/binary, matching the ambient
// stdlib-binary-decode idiom the pack itself uses for its own format.
const (
	formMagic  = "FORM"
	formType   = "IFZS"
	chunkIFhd  = "IFhd"
	chunkCMem  = "CMem"
	chunkStks  = "Stks"
	chunkMAll  = "MAll"
	chunkAcPm  = "AcPm"
	chunkExtra = "Extr"
)

// Codec implements engine.SaveRestorer.
type Codec struct {
	Mem *glulxmem.Memory
}

var _ engine.SaveRestorer = (*Codec)(nil)

// WriteSnapshot serializes snap as a FORM/IFZS container to stream.
func (c *Codec) WriteSnapshot(stream api.ByteStream, snap engine.Snapshot) error {
	var chunks bytes.Buffer
	writeChunk(&chunks, chunkIFhd, c.encodeIFhd())
	writeChunk(&chunks, chunkCMem, c.encodeCMem(snap.RAM))
	writeChunk(&chunks, chunkStks, encodeStks(snap.Frames))
	if snap.HeapStart != 0 {
		writeChunk(&chunks, chunkMAll, encodeMAll(snap.HeapStart, snap.HeapAllocs))
	}
	writeChunk(&chunks, chunkAcPm, encodeAcPm(snap.AccelParams))
	writeChunk(&chunks, chunkExtra, encodeExtra(snap))

	var out bytes.Buffer
	out.WriteString(formMagic)
	writeU32(&out, uint32(len(formType)+chunks.Len()))
	out.WriteString(formType)
	out.Write(chunks.Bytes())

	_, err := stream.Write(out.Bytes())
	return err
}

// ReadSnapshot parses a FORM/IFZS container from stream.
func (c *Codec) ReadSnapshot(stream api.ByteStream) (engine.Snapshot, error) {
	raw, err := io.ReadAll(asReader(stream))
	if err != nil {
		return engine.Snapshot{}, err
	}
	r := bytes.NewReader(raw)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil || string(magic[:]) != formMagic {
		return engine.Snapshot{}, fmt.Errorf("save: not a FORM container")
	}
	var formLen uint32
	if err := binary.Read(r, binary.BigEndian, &formLen); err != nil {
		return engine.Snapshot{}, err
	}
	var ftype [4]byte
	if _, err := io.ReadFull(r, ftype[:]); err != nil || string(ftype[:]) != formType {
		return engine.Snapshot{}, fmt.Errorf("save: not an IFZS form")
	}

	var snap engine.Snapshot
	for r.Len() > 0 {
		id, body, err := readChunk(r)
		if err != nil {
			return engine.Snapshot{}, err
		}
		switch id {
		case chunkCMem:
			snap.RAM = decodeCMem(body, c.Mem)
			snap.EndMem = c.Mem.Header.RAMStart + uint32(len(snap.RAM))
		case chunkStks:
			snap.Frames = decodeStks(body)
		case chunkMAll:
			snap.HeapStart, snap.HeapAllocs = decodeMAll(body)
		case chunkAcPm:
			snap.AccelParams = decodeAcPm(body)
		case chunkExtra:
			decodeExtra(body, &snap)
		case chunkIFhd:
			// identifying info only; nothing to restore from it.
		}
	}
	return snap, nil
}

// ChunkInfo describes one chunk of a FORM/IFZS container without decoding
// its body, for a host that wants to inspect a save file without the
// original game image CMem decoding needs.
type ChunkInfo struct {
	ID   string
	Size int
}

// IdentifyHeader holds the IFhd chunk's fields: the game image a save file
// was made against.
type IdentifyHeader struct {
	Checksum   uint32
	RAMStart   uint32
	EndMemInit uint32
}

// Inspect lists every chunk in a FORM/IFZS container and decodes its IFhd
// chunk, without needing the original game image CMem decoding requires.
func Inspect(stream api.ByteStream) ([]ChunkInfo, IdentifyHeader, error) {
	raw, err := io.ReadAll(asReader(stream))
	if err != nil {
		return nil, IdentifyHeader{}, err
	}
	r := bytes.NewReader(raw)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil || string(magic[:]) != formMagic {
		return nil, IdentifyHeader{}, fmt.Errorf("save: not a FORM container")
	}
	var formLen uint32
	if err := binary.Read(r, binary.BigEndian, &formLen); err != nil {
		return nil, IdentifyHeader{}, err
	}
	var ftype [4]byte
	if _, err := io.ReadFull(r, ftype[:]); err != nil || string(ftype[:]) != formType {
		return nil, IdentifyHeader{}, fmt.Errorf("save: not an IFZS form")
	}

	var chunks []ChunkInfo
	var ifhd IdentifyHeader
	for r.Len() > 0 {
		id, body, err := readChunk(r)
		if err != nil {
			return nil, IdentifyHeader{}, err
		}
		chunks = append(chunks, ChunkInfo{ID: id, Size: len(body)})
		if id == chunkIFhd {
			br := bytes.NewReader(body)
			binary.Read(br, binary.BigEndian, &ifhd.Checksum)
			binary.Read(br, binary.BigEndian, &ifhd.RAMStart)
			binary.Read(br, binary.BigEndian, &ifhd.EndMemInit)
		}
	}
	return chunks, ifhd, nil
}

func asReader(s api.ByteStream) io.Reader {
	return readerFunc(s.Read)
}

type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }

func writeU32(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

func writeChunk(w *bytes.Buffer, id string, body []byte) {
	w.WriteString(id)
	writeU32(w, uint32(len(body)))
	w.Write(body)
	if len(body)%2 == 1 {
		w.WriteByte(0) // IFF pad byte to keep chunks even-aligned
	}
}

func readChunk(r *bytes.Reader) (id string, body []byte, err error) {
	var idb [4]byte
	if _, err := io.ReadFull(r, idb[:]); err != nil {
		return "", nil, err
	}
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", nil, err
	}
	body = make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return "", nil, err
	}
	if n%2 == 1 {
		r.ReadByte()
	}
	return string(idb[:]), body, nil
}

// encodeIFhd identifies the game image a save file belongs to, from the
// header fields a restore can sanity-check against (spec §4.12).
func (c *Codec) encodeIFhd() []byte {
	var buf bytes.Buffer
	writeU32(&buf, c.Mem.Header.Checksum)
	writeU32(&buf, c.Mem.Header.RAMStart)
	writeU32(&buf, c.Mem.Header.EndMemInit)
	return buf.Bytes()
}

// encodeCMem XOR-diffs the live RAM against the original game image, then
// RLE-compresses runs of zero bytes as [0x00, runLen-1] (spec §4.12,
// following Quetzal's CMem convention), leaving non-zero bytes literal.
func (c *Codec) encodeCMem(ram []byte) []byte {
	var buf bytes.Buffer
	i := 0
	for i < len(ram) {
		d := ram[i] ^ c.Mem.OriginalRAMByte(uint32(i))
		if d == 0 {
			run := 0
			for i < len(ram) && run < 256 {
				if (ram[i] ^ c.Mem.OriginalRAMByte(uint32(i))) != 0 {
					break
				}
				run++
				i++
			}
			buf.WriteByte(0)
			buf.WriteByte(byte(run - 1))
			continue
		}
		buf.WriteByte(d)
		i++
	}
	return buf.Bytes()
}

// decodeCMem reverses encodeCMem, reconstructing the live RAM bytes by
// re-XORing the decompressed delta against the original image.
func decodeCMem(body []byte, mem *glulxmem.Memory) []byte {
	var out []byte
	i := 0
	for i < len(body) {
		d := body[i]
		if d == 0 && i+1 < len(body) {
			run := int(body[i+1]) + 1
			for k := 0; k < run; k++ {
				off := uint32(len(out))
				out = append(out, mem.OriginalRAMByte(off))
			}
			i += 2
			continue
		}
		off := uint32(len(out))
		out = append(out, mem.OriginalRAMByte(off)^d)
		i++
	}
	return out
}

func encodeStks(frames []vmstack.FrameSnapshot) []byte {
	var buf bytes.Buffer
	writeU32(&buf, uint32(len(frames)))
	for _, f := range frames {
		writeU32(&buf, uint32(len(f.Locals)))
		for _, d := range f.Locals {
			buf.WriteByte(d.Size)
			var cb [2]byte
			binary.BigEndian.PutUint16(cb[:], d.Count)
			buf.Write(cb[:])
		}
		writeU32(&buf, uint32(len(f.LocalBytes)))
		buf.Write(f.LocalBytes)
		buf.WriteByte(byte(f.StoreDest.Kind))
		buf.WriteByte(f.StoreDest.Size)
		writeU32(&buf, f.StoreDest.Addr)
		writeU32(&buf, f.ReturnPC)
		writeU32(&buf, uint32(len(f.ValueCells)))
		for _, v := range f.ValueCells {
			writeU32(&buf, v)
		}
	}
	return buf.Bytes()
}

func decodeStks(body []byte) []vmstack.FrameSnapshot {
	r := bytes.NewReader(body)
	var count uint32
	binary.Read(r, binary.BigEndian, &count)
	frames := make([]vmstack.FrameSnapshot, count)
	for i := range frames {
		var nLocals uint32
		binary.Read(r, binary.BigEndian, &nLocals)
		locals := make([]vmstack.LocalsDescriptor, nLocals)
		for j := range locals {
			size, _ := r.ReadByte()
			var cb [2]byte
			io.ReadFull(r, cb[:])
			locals[j] = vmstack.LocalsDescriptor{Size: size, Count: binary.BigEndian.Uint16(cb[:])}
		}
		var nBytes uint32
		binary.Read(r, binary.BigEndian, &nBytes)
		localBytes := make([]byte, nBytes)
		io.ReadFull(r, localBytes)

		kind, _ := r.ReadByte()
		size, _ := r.ReadByte()
		var addr, retPC, nCells uint32
		binary.Read(r, binary.BigEndian, &addr)
		binary.Read(r, binary.BigEndian, &retPC)
		binary.Read(r, binary.BigEndian, &nCells)
		cells := make([]uint32, nCells)
		for k := range cells {
			binary.Read(r, binary.BigEndian, &cells[k])
		}

		frames[i] = vmstack.FrameSnapshot{
			Locals:     locals,
			LocalBytes: localBytes,
			StoreDest:  vmstack.StoreDest{Kind: vmstack.StoreKind(kind), Size: size, Addr: addr},
			ReturnPC:   retPC,
			ValueCells: cells,
		}
	}
	return frames
}

func encodeMAll(heapStart uint32, allocs []struct{ Addr, Len uint32 }) []byte {
	var buf bytes.Buffer
	writeU32(&buf, heapStart)
	writeU32(&buf, uint32(len(allocs)))
	for _, a := range allocs {
		writeU32(&buf, a.Addr)
		writeU32(&buf, a.Len)
	}
	return buf.Bytes()
}

func decodeMAll(body []byte) (uint32, []struct{ Addr, Len uint32 }) {
	r := bytes.NewReader(body)
	var heapStart, n uint32
	binary.Read(r, binary.BigEndian, &heapStart)
	binary.Read(r, binary.BigEndian, &n)
	allocs := make([]struct{ Addr, Len uint32 }, n)
	for i := range allocs {
		binary.Read(r, binary.BigEndian, &allocs[i].Addr)
		binary.Read(r, binary.BigEndian, &allocs[i].Len)
	}
	return heapStart, allocs
}

func encodeAcPm(p [9]uint32) []byte {
	var buf bytes.Buffer
	for _, v := range p {
		writeU32(&buf, v)
	}
	return buf.Bytes()
}

func decodeAcPm(body []byte) [9]uint32 {
	var p [9]uint32
	r := bytes.NewReader(body)
	for i := range p {
		binary.Read(r, binary.BigEndian, &p[i])
	}
	return p
}

func encodeExtra(snap engine.Snapshot) []byte {
	var buf bytes.Buffer
	writeU32(&buf, snap.PC)
	for _, s := range snap.RNG.S {
		writeU32(&buf, s)
	}
	if snap.RNG.HostMode {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	writeU32(&buf, snap.IosysMode)
	writeU32(&buf, snap.IosysRock)
	writeU32(&buf, snap.ProtectStart)
	writeU32(&buf, snap.ProtectEnd)
	buf.WriteByte(byte(snap.ResumeDest.Kind))
	buf.WriteByte(snap.ResumeDest.Size)
	writeU32(&buf, snap.ResumeDest.Addr)
	return buf.Bytes()
}

func decodeExtra(body []byte, snap *engine.Snapshot) {
	r := bytes.NewReader(body)
	binary.Read(r, binary.BigEndian, &snap.PC)
	for i := range snap.RNG.S {
		binary.Read(r, binary.BigEndian, &snap.RNG.S[i])
	}
	hostMode, _ := r.ReadByte()
	snap.RNG.HostMode = hostMode == 1
	binary.Read(r, binary.BigEndian, &snap.IosysMode)
	binary.Read(r, binary.BigEndian, &snap.IosysRock)
	binary.Read(r, binary.BigEndian, &snap.ProtectStart)
	binary.Read(r, binary.BigEndian, &snap.ProtectEnd)
	kind, _ := r.ReadByte()
	size, _ := r.ReadByte()
	var addr uint32
	binary.Read(r, binary.BigEndian, &addr)
	snap.ResumeDest = vmstack.StoreDest{Kind: vmstack.StoreKind(kind), Size: size, Addr: addr}
}
