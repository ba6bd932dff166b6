package engine

import "github.com/inform7/glulxvm/api"

// doGestalt implements `gestalt sel, x` (spec §4.5, §6): unknown selectors
// return 0 rather than failing (spec §7 policy).
func (vm *VM) doGestalt(sel, arg uint32) uint32 {
	switch api.GestaltSelector(sel) {
	case api.GestaltGlulxVersion:
		return vm.Mem.Header.Version
	case api.GestaltTerpVersion:
		return api.TerpVersion
	case api.GestaltResizeMem:
		return 1
	case api.GestaltUndo:
		return 1
	case api.GestaltIOSystem:
		return vm.gestaltIOSystem(arg)
	case api.GestaltUnicode:
		return 1
	case api.GestaltMemCopy:
		return 1
	case api.GestaltMAlloc:
		return 1
	case api.GestaltMAllocHeap:
		return 1
	case api.GestaltAcceleration:
		return 1
	case api.GestaltAccelFunc:
		return vm.gestaltAccelFunc(arg)
	case api.GestaltFloat:
		return 1
	case api.GestaltExtUndo:
		return 1
	case api.GestaltDoubleValue:
		return 1
	default:
		return 0
	}
}

// gestaltIOSystem answers the io_system sub-selector (spec §6: "4:io_system
// (subsel=iosys)"): whether the iosys mode named by arg is supported.
func (vm *VM) gestaltIOSystem(arg uint32) uint32 {
	switch api.IosysMode(arg) {
	case api.IosysNull, api.IosysFilter, api.IosysGlk, api.IosysFilter2:
		return 1
	default:
		return 0
	}
}

// gestaltAccelFunc answers the accel_func sub-selector: whether
// acceleration index arg is implemented (spec §4.9's 1-13 map).
func (vm *VM) gestaltAccelFunc(arg uint32) uint32 {
	if arg >= 1 && arg <= 13 {
		return 1
	}
	return 0
}

// doGetiosys implements `getiosys S1, S2`: stores mode then rock.
func (vm *VM) doGetiosys() (uint32, uint32) {
	return uint32(vm.iosysMode), vm.iosysRock
}

// doSetiosys implements `setiosys mode, rock` (spec §4.5).
func (vm *VM) doSetiosys(mode, rock uint32) {
	vm.iosysMode = api.IosysMode(mode)
	vm.iosysRock = rock
}
