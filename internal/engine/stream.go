package engine

import (
	"fmt"

	"github.com/inform7/glulxvm/api"
	"github.com/inform7/glulxvm/internal/strdecode"
)

// emitChar sends one Latin-1 byte through the active iosys (spec §4.7).
func (vm *VM) emitChar(b byte) error {
	switch vm.iosysMode {
	case api.IosysNull:
		return nil
	case api.IosysGlk:
		vm.IoSys.PutChar(b)
		return nil
	case api.IosysFilter, api.IosysFilter2:
		_, err := vm.invokeSync(vm.iosysRock, []uint32{uint32(b)})
		return err
	default:
		return nil
	}
}

// emitCharUni sends one Unicode code point through the active iosys.
func (vm *VM) emitCharUni(r rune) error {
	switch vm.iosysMode {
	case api.IosysNull:
		return nil
	case api.IosysGlk:
		vm.IoSys.PutCharUni(r)
		return nil
	case api.IosysFilter, api.IosysFilter2:
		_, err := vm.invokeSync(vm.iosysRock, []uint32{uint32(r)})
		return err
	default:
		return nil
	}
}

// doStreamchar implements `streamchar c`.
func (vm *VM) doStreamchar(c uint32) error { return vm.emitChar(byte(c)) }

// doStreamunichar implements `streamunichar c`.
func (vm *VM) doStreamunichar(c uint32) error { return vm.emitCharUni(rune(c)) }

// doStreamnum implements `streamnum n`: decimal ASCII of a signed 32-bit
// value (spec §4.5).
func (vm *VM) doStreamnum(n uint32) error {
	s := fmt.Sprintf("%d", int32(n))
	for i := 0; i < len(s); i++ {
		if err := vm.emitChar(s[i]); err != nil {
			return err
		}
	}
	return nil
}

// doStreamstr implements `streamstr addr` (spec §4.7): dispatches on the
// string's leading type byte, running the Huffman decoder to completion
// when the string is 0xE1-encoded, satisfying any embedded routine calls
// via invokeSync before resuming decoding.
func (vm *VM) doStreamstr(addr uint32) error {
	tag, err := vm.Mem.ReadU8(addr)
	if err != nil {
		return err
	}
	switch tag {
	case 0xE0:
		for cursor := addr + 1; ; cursor++ {
			b, err := vm.Mem.ReadU8(cursor)
			if err != nil {
				return err
			}
			if b == 0 {
				return nil
			}
			if err := vm.emitChar(b); err != nil {
				return err
			}
		}
	case 0xE2:
		for cursor := addr + 4; ; cursor += 4 {
			v, err := vm.Mem.ReadU32(cursor)
			if err != nil {
				return err
			}
			if v == 0 {
				return nil
			}
			if err := vm.emitCharUni(rune(v)); err != nil {
				return err
			}
		}
	case 0xE1:
		table, err := strdecode.NewTable(vm.Mem, vm.stringTable)
		if err != nil {
			return err
		}
		dec := strdecode.NewDecoder(table, vm.Mem, addr+1)
		for {
			step, err := dec.Next()
			if err != nil {
				return err
			}
			switch step.Action {
			case strdecode.ActionDone:
				return nil
			case strdecode.ActionChar:
				if err := vm.emitChar(step.Char); err != nil {
					return err
				}
			case strdecode.ActionCharUni:
				if err := vm.emitCharUni(step.Uni); err != nil {
					return err
				}
			case strdecode.ActionCall:
				if _, err := vm.invokeSync(step.Call.Addr, step.Call.Args); err != nil {
					return err
				}
			}
		}
	default:
		return nil
	}
}
