// Package accel implements the Glulx function-acceleration subsystem
// (spec §4.9, component C11): a table of well-known Inform-library
// routines whose registered VM addresses are intercepted and replaced with
// a native Go implementation, bypassing ordinary call dispatch entirely.
// It mirrors the role wazero's internal/wasmruntime built-in closures play
// for standard-library functions, except the lookup key is a VM address
// rather than a module/name pair.
package accel

import (
	"github.com/inform7/glulxvm/internal/engine"
	"github.com/inform7/glulxvm/internal/glulxerr"
	"github.com/inform7/glulxvm/internal/glulxmem"
)

// Object record layout assumed by the native replacements, matching the
// compiled form the Inform library emits for Glulx (spec §4.9 test
// scenario: object type byte 0x70):
//
//	[0, numAttrBytes)   attribute flags, MSB-first within each byte
//	numAttrBytes+0      parent object address (4 bytes)
//	numAttrBytes+4      sibling (next) object address (4 bytes)
//	numAttrBytes+8      child object address (4 bytes)
//	numAttrBytes+12     property table address (4 bytes)
//
// Property table: a 2-byte entry count, followed by that many fixed-width
// entries of {id uint16, len byte, pad byte, data address uint32}.
const (
	objParentOff   = 0
	objSiblingOff  = 4
	objChildOff    = 8
	objProptabOff  = 12
	objTrailerSize = 16

	propEntrySize = 8
)

// Object type bytes (spec §4.1 "type byte" convention, reused by §4.9's
// Z__Region).
const (
	typeFunctionStack byte = 0xC0
	typeFunctionCArgs byte = 0xC1
	typeObject        byte = 0x70
	typeStringMin     byte = 0xE0
)

// Param indices for the 9 accelerator parameters (spec §4.9).
const (
	ParamClassesTable = iota
	ParamIndivPropStart
	ParamClassMetaclass
	ParamObjectMetaclass
	ParamRoutineMetaclass
	ParamStringMetaclass
	ParamSelf
	ParamNumAttrBytes
	ParamCPVStart
)

// funcIndex names the 1-13 acceleration slots of spec §4.9/§6.
type funcIndex uint32

const (
	fnZRegion  funcIndex = 1
	fnCPTab    funcIndex = 2
	fnRAPr     funcIndex = 3
	fnRLPr     funcIndex = 4
	fnOCCl     funcIndex = 5
	fnRVPr     funcIndex = 6
	fnOPPr     funcIndex = 7
	fnCPTabNew funcIndex = 8
	fnRAPrNew  funcIndex = 9
	fnRLPrNew  funcIndex = 10
	fnOCClNew  funcIndex = 11
	fnRVPrNew  funcIndex = 12
	fnOPPrNew  funcIndex = 13
)

// Table is the accelerator's registered-address lookup and parameter
// store. It implements engine.Accelerator; the engine only ever sees it
// through that interface.
type Table struct {
	funcs  map[uint32]funcIndex
	params [9]uint32
}

// New returns an empty accelerator table (spec §3: "Accelerator table
// constructed empty; populated by VM via accelfunc").
func New() *Table {
	return &Table{funcs: make(map[uint32]funcIndex)}
}

var _ engine.Accelerator = (*Table)(nil)

// Lookup implements engine.Accelerator.
func (t *Table) Lookup(addr uint32) (engine.AccelFunc, bool) {
	idx, ok := t.funcs[addr]
	if !ok {
		return nil, false
	}
	return t.bind(idx), true
}

// Register implements engine.Accelerator's `accelfunc index, addr`.
func (t *Table) Register(mem *glulxmem.Memory, index, addr uint32) error {
	if index == 0 {
		delete(t.funcs, addr)
		return nil
	}
	idx := funcIndex(index)
	if !idx.supported() {
		return nil // unsupported index: silent no-op (spec §4.9)
	}
	typeByte, err := mem.ReadU8(addr)
	if err != nil {
		return err
	}
	if typeByte != typeFunctionStack && typeByte != typeFunctionCArgs {
		return glulxerr.New(glulxerr.NotAFunction, 0, "accelfunc: %#x is not a function (type byte %#x)", addr, typeByte)
	}
	t.funcs[addr] = idx
	return nil
}

// SetParam implements engine.Accelerator's `accelparam i, v`.
func (t *Table) SetParam(i, v uint32) {
	if i < uint32(len(t.params)) {
		t.params[i] = v
	}
}

// Params and LoadParams round-trip the 9 parameters for save/restore.
func (t *Table) Params() [9]uint32      { return t.params }
func (t *Table) LoadParams(p [9]uint32) { t.params = p }

func (idx funcIndex) supported() bool {
	switch idx {
	case fnZRegion, fnCPTab, fnRAPr, fnRLPr, fnOCCl, fnRVPr, fnOPPr,
		fnCPTabNew, fnRAPrNew, fnRLPrNew, fnOCClNew, fnRVPrNew, fnOPPrNew:
		return true
	default:
		return false
	}
}

// bind closes idx over t's current parameters, resolving the native Go
// implementation of each of the 13 slots (spec §4.9, §6 "1-13 map").
func (t *Table) bind(idx funcIndex) engine.AccelFunc {
	switch idx {
	case fnZRegion:
		return func(mem *glulxmem.Memory, args []uint32) (uint32, error) { return zRegion(mem, arg(args, 0)) }
	case fnCPTab:
		return func(mem *glulxmem.Memory, args []uint32) (uint32, error) {
			return t.cpTab(mem, arg(args, 0), arg(args, 1), 7)
		}
	case fnCPTabNew:
		return func(mem *glulxmem.Memory, args []uint32) (uint32, error) {
			return t.cpTab(mem, arg(args, 0), arg(args, 1), t.params[ParamNumAttrBytes])
		}
	case fnRAPr:
		return func(mem *glulxmem.Memory, args []uint32) (uint32, error) {
			return t.raPr(mem, arg(args, 0), arg(args, 1), 7)
		}
	case fnRAPrNew:
		return func(mem *glulxmem.Memory, args []uint32) (uint32, error) {
			return t.raPr(mem, arg(args, 0), arg(args, 1), t.params[ParamNumAttrBytes])
		}
	case fnRLPr:
		return func(mem *glulxmem.Memory, args []uint32) (uint32, error) {
			return t.rlPr(mem, arg(args, 0), arg(args, 1), 7)
		}
	case fnRLPrNew:
		return func(mem *glulxmem.Memory, args []uint32) (uint32, error) {
			return t.rlPr(mem, arg(args, 0), arg(args, 1), t.params[ParamNumAttrBytes])
		}
	case fnOCCl:
		return func(mem *glulxmem.Memory, args []uint32) (uint32, error) {
			return t.ocCl(mem, arg(args, 0), arg(args, 1), 7)
		}
	case fnOCClNew:
		return func(mem *glulxmem.Memory, args []uint32) (uint32, error) {
			return t.ocCl(mem, arg(args, 0), arg(args, 1), t.params[ParamNumAttrBytes])
		}
	case fnRVPr:
		return func(mem *glulxmem.Memory, args []uint32) (uint32, error) {
			return t.rvPr(mem, arg(args, 0), arg(args, 1), 7)
		}
	case fnRVPrNew:
		return func(mem *glulxmem.Memory, args []uint32) (uint32, error) {
			return t.rvPr(mem, arg(args, 0), arg(args, 1), t.params[ParamNumAttrBytes])
		}
	case fnOPPr:
		return func(mem *glulxmem.Memory, args []uint32) (uint32, error) {
			return t.opPr(mem, arg(args, 0), arg(args, 1), 7)
		}
	case fnOPPrNew:
		return func(mem *glulxmem.Memory, args []uint32) (uint32, error) {
			return t.opPr(mem, arg(args, 0), arg(args, 1), t.params[ParamNumAttrBytes])
		}
	default:
		return nil
	}
}

func arg(args []uint32, i int) uint32 {
	if i >= len(args) {
		return 0
	}
	return args[i]
}

// zRegion implements Z__Region(x): 0 not a valid address, 1 object,
// 2 string, 3 function (spec §4.9, test scenario of §8).
func zRegion(mem *glulxmem.Memory, x uint32) (uint32, error) {
	if x < 36 || x >= mem.EndMem() {
		return 0, nil
	}
	typeByte, err := mem.ReadU8(x)
	if err != nil {
		return 0, nil
	}
	switch {
	case typeByte == typeObject:
		return 1, nil
	case typeByte >= typeStringMin:
		return 2, nil
	case typeByte == typeFunctionStack || typeByte == typeFunctionCArgs:
		return 3, nil
	default:
		return 0, nil
	}
}

func objField(mem *glulxmem.Memory, obj uint32, numAttrBytes uint32, fieldOff uint32) (uint32, error) {
	return mem.ReadU32(obj + numAttrBytes + fieldOff)
}

// classOf walks to obj's class object via the Inform "first property is
// the class's own object number" convention: the class an object belongs
// to is the object stored in obj's own property 2 (the conventional
// "class" common property), falling back to 0 when obj has no property 2.
func (t *Table) classOf(mem *glulxmem.Memory, obj, numAttrBytes uint32) (uint32, error) {
	proptab, err := objField(mem, obj, numAttrBytes, objProptabOff)
	if err != nil {
		return 0, err
	}
	addr, err := scanProptable(mem, proptab, 2)
	if err != nil || addr == 0 {
		return 0, err
	}
	return mem.ReadU32(addr)
}

// cpTab implements CP__Tab(cla, id): scan the class object's own property
// table (the "compiled properties" of the class pseudo-object) for id,
// returning its data address or 0.
func (t *Table) cpTab(mem *glulxmem.Memory, cla, id, numAttrBytes uint32) (uint32, error) {
	proptab, err := objField(mem, cla, numAttrBytes, objProptabOff)
	if err != nil {
		return 0, err
	}
	return scanProptable(mem, proptab, id)
}

// raPr implements RA__Pr(obj, id): address of property id's data, checked
// first on obj directly, then (if absent) inherited from obj's class via
// CP__Tab.
func (t *Table) raPr(mem *glulxmem.Memory, obj, id, numAttrBytes uint32) (uint32, error) {
	if obj == 0 {
		return 0, glulxerr.New(glulxerr.AccelFunctionError, 0, "RA__Pr: property number %d applied to nothing", id)
	}
	proptab, err := objField(mem, obj, numAttrBytes, objProptabOff)
	if err != nil {
		return 0, err
	}
	addr, err := scanProptable(mem, proptab, id)
	if err != nil || addr != 0 {
		return addr, err
	}
	cla, err := t.classOf(mem, obj, numAttrBytes)
	if err != nil || cla == 0 {
		return 0, err
	}
	return t.cpTab(mem, cla, id, numAttrBytes)
}

// rlPr implements RL__Pr(obj, id): byte length of property id, or 0.
func (t *Table) rlPr(mem *glulxmem.Memory, obj, id, numAttrBytes uint32) (uint32, error) {
	proptab, err := objField(mem, obj, numAttrBytes, objProptabOff)
	if err != nil {
		return 0, err
	}
	return scanProptableLen(mem, proptab, id)
}

// rvPr implements RV__Pr(obj, id): the property's value (the 4 bytes at
// its data address), or 0 if obj has no such property.
func (t *Table) rvPr(mem *glulxmem.Memory, obj, id, numAttrBytes uint32) (uint32, error) {
	addr, err := t.raPr(mem, obj, id, numAttrBytes)
	if err != nil {
		return 0, err
	}
	if addr == 0 {
		return 0, nil
	}
	return mem.ReadU32(addr)
}

// opPr implements OP__Pr(obj, cla): whether obj provides (responds to)
// property cla.
func (t *Table) opPr(mem *glulxmem.Memory, obj, id, numAttrBytes uint32) (uint32, error) {
	addr, err := t.raPr(mem, obj, id, numAttrBytes)
	if err != nil {
		return 0, err
	}
	if addr != 0 {
		return 1, nil
	}
	return 0, nil
}

// ocCl implements OC__Cl(obj, cla): whether obj is a member of class cla,
// walking obj's own class pointer and, for the Class/Object/Routine/String
// pseudo-classes, Z__Region's metaclass result.
func (t *Table) ocCl(mem *glulxmem.Memory, obj, cla, numAttrBytes uint32) (uint32, error) {
	region, err := zRegion(mem, obj)
	if err != nil {
		return 0, err
	}
	switch {
	case region == 3:
		if cla == t.params[ParamRoutineMetaclass] {
			return 1, nil
		}
		return 0, nil
	case region == 2:
		if cla == t.params[ParamStringMetaclass] {
			return 1, nil
		}
		return 0, nil
	case region != 1:
		return 0, nil
	}
	if cla == t.params[ParamClassMetaclass] {
		return 0, nil // obj is itself a class-metaclass test: not modeled, per §4.9 scope
	}
	if cla == t.params[ParamObjectMetaclass] {
		return 1, nil
	}
	objCla, err := t.classOf(mem, obj, numAttrBytes)
	if err != nil {
		return 0, err
	}
	for c := objCla; c != 0; {
		if c == cla {
			return 1, nil
		}
		next, err := objField(mem, c, numAttrBytes, objSiblingOff)
		if err != nil {
			return 0, err
		}
		if next == c {
			break
		}
		c = next
	}
	return 0, nil
}

func scanProptable(mem *glulxmem.Memory, proptab, id uint32) (uint32, error) {
	addr, _, err := findProp(mem, proptab, id)
	return addr, err
}

func scanProptableLen(mem *glulxmem.Memory, proptab, id uint32) (uint32, error) {
	_, length, err := findProp(mem, proptab, id)
	return length, err
}

func findProp(mem *glulxmem.Memory, proptab, id uint32) (addr, length uint32, err error) {
	if proptab == 0 {
		return 0, 0, nil
	}
	count, err := mem.ReadU16(proptab)
	if err != nil {
		return 0, 0, err
	}
	base := proptab + 2
	for i := uint16(0); i < count; i++ {
		entry := base + uint32(i)*propEntrySize
		propID, err := mem.ReadU16(entry)
		if err != nil {
			return 0, 0, err
		}
		if uint32(propID) != id {
			continue
		}
		plen, err := mem.ReadU8(entry + 2)
		if err != nil {
			return 0, 0, err
		}
		pdata, err := mem.ReadU32(entry + 4)
		if err != nil {
			return 0, 0, err
		}
		return pdata, uint32(plen), nil
	}
	return 0, 0, nil
}
