package engine

import "bytes"

// searchOptions unpacks the shared options bitfield of spec §4.8.
type searchOptions struct {
	returnIndex bool
	zeroEnds    bool
	indirect    bool
}

func decodeSearchOptions(options uint32) searchOptions {
	return searchOptions{
		returnIndex: options&0x01 != 0,
		zeroEnds:    options&0x02 != 0,
		indirect:    options&0x04 != 0,
	}
}

// keyBytes resolves the search key to a byte slice of length keysize: either
// the indirected bytes at the key address (option 0x04), or the low-order
// keysize bytes of the key value's big-endian encoding.
func (vm *VM) keyBytes(key, keysize uint32, indirect bool) ([]byte, error) {
	if indirect {
		return vm.Mem.Slice(key, keysize)
	}
	full := [4]byte{byte(key >> 24), byte(key >> 16), byte(key >> 8), byte(key)}
	buf := make([]byte, keysize)
	if keysize <= 4 {
		copy(buf, full[4-keysize:])
	} else {
		copy(buf[keysize-4:], full[:])
	}
	return buf, nil
}

// doLinearSearch implements `linearsearch` (spec §4.8). numstructs ==
// 0xFFFFFFFF means unbounded, relying on the zero-ends option (0x02) to
// terminate, matching the reference interpreter's convention.
func (vm *VM) doLinearSearch(key, keysize, start, structsize, numstructs, keyoffset, options uint32) (uint32, error) {
	opt := decodeSearchOptions(options)
	want, err := vm.keyBytes(key, keysize, opt.indirect)
	if err != nil {
		return 0, err
	}
	zero := make([]byte, keysize)

	for i := uint32(0); numstructs == 0xFFFFFFFF || i < numstructs; i++ {
		addr := start + i*structsize
		field, err := vm.Mem.Slice(addr+keyoffset, keysize)
		if err != nil {
			return 0, err
		}
		if opt.zeroEnds && bytes.Equal(field, zero) {
			return 0, nil
		}
		if bytes.Equal(field, want) {
			if opt.returnIndex {
				return i, nil
			}
			return addr, nil
		}
	}
	return 0, nil
}

// doBinarySearch implements `binarysearch` (spec §4.8): classic binary
// search over structures sorted by the keyed field, comparing key bytes
// lexicographically (equivalent to unsigned numeric order for fixed-width
// big-endian keys).
func (vm *VM) doBinarySearch(key, keysize, start, structsize, numstructs, keyoffset, options uint32) (uint32, error) {
	opt := decodeSearchOptions(options)
	want, err := vm.keyBytes(key, keysize, opt.indirect)
	if err != nil {
		return 0, err
	}

	lo, hi := 0, int(numstructs)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		addr := start + uint32(mid)*structsize
		field, err := vm.Mem.Slice(addr+keyoffset, keysize)
		if err != nil {
			return 0, err
		}
		switch bytes.Compare(field, want) {
		case 0:
			if opt.returnIndex {
				return uint32(mid), nil
			}
			return addr, nil
		case -1:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return 0, nil
}

// doLinkedSearch implements `linkedsearch` (spec §4.8): the struct's next-
// pointer field sits immediately after the key field, 4-byte aligned.
// Option 0x01 (return index) has no meaning for a linked list and is
// ignored; an address is always returned.
func (vm *VM) doLinkedSearch(key, keysize, start, keyoffset, options uint32) (uint32, error) {
	opt := decodeSearchOptions(options)
	want, err := vm.keyBytes(key, keysize, opt.indirect)
	if err != nil {
		return 0, err
	}

	nextOff := keyoffset + keysize
	if nextOff%4 != 0 {
		nextOff += 4 - nextOff%4
	}

	addr := start
	for addr != 0 {
		field, err := vm.Mem.Slice(addr+keyoffset, keysize)
		if err != nil {
			return 0, err
		}
		if bytes.Equal(field, want) {
			return addr, nil
		}
		addr, err = vm.Mem.ReadU32(addr + nextOff)
		if err != nil {
			return 0, err
		}
	}
	return 0, nil
}
