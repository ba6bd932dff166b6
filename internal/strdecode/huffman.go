// Package strdecode implements Glulx string streaming (spec §4.7,
// component C7): the three string encodings (0xE0 Latin-1, 0xE1 Huffman,
// 0xE2 UTF-32BE) and the Huffman decoding-table walk, including its
// "indirect" node kinds that reference other strings or call VM routines.
//
// Re-entrancy (spec §9 design notes, §4.7 last paragraph): a Huffman
// "indirect with args" node must invoke a normal VM routine whose output
// interleaves with the string being decoded, and the decoder must not
// recurse the host's Go call stack to do it. Decoder is therefore an
// explicit state machine: Next returns either literal output, or (after
// recursing internally for a plain indirect string reference, which never
// touches the VM call stack) a CallRequest the engine must satisfy by
// making a normal VM call before calling Next again.
package strdecode

import "github.com/inform7/glulxvm/internal/glulxerr"

// Node type tags (spec §4.7).
const (
	NodeBranch             = 0x00
	NodeStringTerm         = 0x01
	NodeChar               = 0x02
	NodeCString            = 0x03
	NodeUniChar            = 0x04
	NodeUniString          = 0x05
	NodeIndirect           = 0x08
	NodeDoubleIndirect     = 0x09
	NodeIndirectArgs       = 0x0A
	NodeDoubleIndirectArgs = 0x0B
	NodeIndirectCall       = 0x0C
)

// MemReader is the narrow memory surface the decoder needs.
type MemReader interface {
	ReadU8(addr uint32) (byte, error)
	ReadU32(addr uint32) (uint32, error)
}

// Table wraps the in-memory Huffman decoding table: a 4-byte table length,
// 4-byte node count, 4-byte root node address, then the nodes themselves.
type Table struct {
	mem      MemReader
	RootAddr uint32
}

// NewTable parses the 12-byte decoding-table header at addr.
func NewTable(mem MemReader, addr uint32) (*Table, error) {
	root, err := mem.ReadU32(addr + 8)
	if err != nil {
		return nil, err
	}
	return &Table{mem: mem, RootAddr: root}, nil
}

// bitReader walks a byte stream bit by bit, MSB-first within each byte
// (spec §4.7: "walk the decoding-table tree bit by bit (MSB-first within
// each byte)").
type bitReader struct {
	mem     MemReader
	addr    uint32
	bit     uint
	curByte byte
	loaded  bool
}

func (r *bitReader) next() (int, error) {
	if !r.loaded || r.bit == 8 {
		b, err := r.mem.ReadU8(r.addr)
		if err != nil {
			return 0, err
		}
		r.curByte = b
		r.addr++
		r.bit = 0
		r.loaded = true
	}
	bitVal := (r.curByte >> (7 - r.bit)) & 1
	r.bit++
	return int(bitVal), nil
}

// frame is one level of nested string decoding. literalCursor, when
// non-zero, means we are mid-way through emitting an embedded C-string or
// Unicode-string leaf and must resume there rather than re-walking the
// tree from the root.
type frame struct {
	bits          *bitReader
	literalCursor uint32 // address of the next literal byte/word to emit, or 0 if not mid-literal
	literalUni    bool
}

// Action is what Decoder.Next produced.
type Action int

const (
	ActionChar Action = iota
	ActionCharUni
	ActionDone
	ActionCall
)

// Step is the result of one Decoder.Next call.
type Step struct {
	Action Action
	Char   byte
	Uni    rune
	Call   CallRequest
}

// CallRequest asks the engine to invoke a VM routine; decoding resumes
// automatically on the next Next() call once the call returns (spec §4.7:
// "Routines invoked during string streaming return to resume decoding at
// the node after the call").
type CallRequest struct {
	Addr uint32
	Args []uint32
}

// Decoder walks a 0xE1 string against a Table. Each entry in stack is a
// nested string (the root string, plus any string entered via a plain
// "indirect reference" leaf); the top of stack is the string currently
// being decoded.
type Decoder struct {
	table *Table
	mem   MemReader
	stack []*frame
}

// NewDecoder begins decoding the Huffman string whose first content byte
// (after the 0xE1 tag) is at stringAddr.
func NewDecoder(table *Table, mem MemReader, stringAddr uint32) *Decoder {
	return &Decoder{
		table: table,
		mem:   mem,
		stack: []*frame{{bits: &bitReader{mem: mem, addr: stringAddr}}},
	}
}

// Next advances the decoder by one step. Callers loop calling Next until
// Action == ActionDone, performing a VM call whenever Action == ActionCall
// (decoding resumes on the following Next() call automatically).
func (d *Decoder) Next() (Step, error) {
outer:
	for len(d.stack) > 0 {
		top := d.stack[len(d.stack)-1]

		if top.literalCursor != 0 {
			step, done, err := d.continueLiteral(top)
			if err != nil {
				return Step{}, err
			}
			if done {
				d.stack = d.stack[:len(d.stack)-1]
				continue
			}
			return step, nil
		}

		nodeAddr := d.table.RootAddr
		for {
			typeByte, err := d.mem.ReadU8(nodeAddr)
			if err != nil {
				return Step{}, err
			}
			switch typeByte {
			case NodeBranch:
				left, err := d.mem.ReadU32(nodeAddr + 1)
				if err != nil {
					return Step{}, err
				}
				right, err := d.mem.ReadU32(nodeAddr + 5)
				if err != nil {
					return Step{}, err
				}
				bit, err := top.bits.next()
				if err != nil {
					return Step{}, err
				}
				if bit == 0 {
					nodeAddr = left
				} else {
					nodeAddr = right
				}
				continue

			case NodeStringTerm:
				d.stack = d.stack[:len(d.stack)-1]
				continue outer

			case NodeChar:
				c, err := d.mem.ReadU8(nodeAddr + 1)
				if err != nil {
					return Step{}, err
				}
				return Step{Action: ActionChar, Char: c}, nil

			case NodeCString:
				top.literalCursor = nodeAddr + 1
				top.literalUni = false
				step, done, err := d.continueLiteral(top)
				if err != nil {
					return Step{}, err
				}
				if done {
					d.stack = d.stack[:len(d.stack)-1]
					continue outer
				}
				return step, nil

			case NodeUniChar:
				v, err := d.mem.ReadU32(nodeAddr + 1)
				if err != nil {
					return Step{}, err
				}
				return Step{Action: ActionCharUni, Uni: rune(v)}, nil

			case NodeUniString:
				top.literalCursor = nodeAddr + 1
				top.literalUni = true
				step, done, err := d.continueLiteral(top)
				if err != nil {
					return Step{}, err
				}
				if done {
					d.stack = d.stack[:len(d.stack)-1]
					continue outer
				}
				return step, nil

			case NodeIndirect:
				target, err := d.mem.ReadU32(nodeAddr + 1)
				if err != nil {
					return Step{}, err
				}
				d.stack = append(d.stack, &frame{bits: &bitReader{mem: d.mem, addr: target}})
				continue outer

			case NodeDoubleIndirect:
				ptr, err := d.mem.ReadU32(nodeAddr + 1)
				if err != nil {
					return Step{}, err
				}
				target, err := d.mem.ReadU32(ptr)
				if err != nil {
					return Step{}, err
				}
				d.stack = append(d.stack, &frame{bits: &bitReader{mem: d.mem, addr: target}})
				continue outer

			case NodeIndirectArgs:
				addr, args, err := d.readIndirectArgs(nodeAddr + 1)
				if err != nil {
					return Step{}, err
				}
				return Step{Action: ActionCall, Call: CallRequest{Addr: addr, Args: args}}, nil

			case NodeDoubleIndirectArgs:
				ptr, args, err := d.readIndirectArgs(nodeAddr + 1)
				if err != nil {
					return Step{}, err
				}
				addr, err := d.mem.ReadU32(ptr)
				if err != nil {
					return Step{}, err
				}
				return Step{Action: ActionCall, Call: CallRequest{Addr: addr, Args: args}}, nil

			case NodeIndirectCall:
				addr, err := d.mem.ReadU32(nodeAddr + 1)
				if err != nil {
					return Step{}, err
				}
				return Step{Action: ActionCall, Call: CallRequest{Addr: addr}}, nil

			default:
				return Step{}, glulxerr.New(glulxerr.BadOpcode, 0, "unknown huffman node type %#x", typeByte)
			}
		}
	}
	return Step{Action: ActionDone}, nil
}

// continueLiteral emits the next byte/word of an embedded C-string or
// Unicode-string leaf, reporting done=true once its terminating zero is
// reached (the zero itself is consumed, not emitted).
func (d *Decoder) continueLiteral(f *frame) (Step, bool, error) {
	if f.literalUni {
		v, err := d.mem.ReadU32(f.literalCursor)
		if err != nil {
			return Step{}, false, err
		}
		f.literalCursor += 4
		if v == 0 {
			f.literalCursor = 0
			return Step{}, true, nil
		}
		return Step{Action: ActionCharUni, Uni: rune(v)}, false, nil
	}
	b, err := d.mem.ReadU8(f.literalCursor)
	if err != nil {
		return Step{}, false, err
	}
	f.literalCursor++
	if b == 0 {
		f.literalCursor = 0
		return Step{}, true, nil
	}
	return Step{Action: ActionChar, Char: b}, false, nil
}

func (d *Decoder) readIndirectArgs(addr uint32) (uint32, []uint32, error) {
	target, err := d.mem.ReadU32(addr)
	if err != nil {
		return 0, nil, err
	}
	argc, err := d.mem.ReadU32(addr + 4)
	if err != nil {
		return 0, nil, err
	}
	args := make([]uint32, argc)
	for i := uint32(0); i < argc; i++ {
		v, err := d.mem.ReadU32(addr + 8 + i*4)
		if err != nil {
			return 0, nil, err
		}
		args[i] = v
	}
	return target, args, nil
}
