package engine

// Opcode numbers, transcribed verbatim from the authoritative numeric table
// (component C9). Names match the conventional Glulx mnemonics.
const (
	opNop = 0x00

	opAdd    = 0x10
	opSub    = 0x11
	opMul    = 0x12
	opDiv    = 0x13
	opMod    = 0x14
	opNeg    = 0x15
	opBitAnd = 0x18
	opBitOr  = 0x19
	opBitXor = 0x1A
	opBitNot = 0x1B
	opShiftl = 0x1C
	opSshiftr = 0x1D
	opUshiftr = 0x1E

	opJump  = 0x20
	opJz    = 0x22
	opJnz   = 0x23
	opJeq   = 0x24
	opJne   = 0x25
	opJlt   = 0x26
	opJge   = 0x27
	opJgt   = 0x28
	opJle   = 0x29
	opJltu  = 0x2A
	opJgeu  = 0x2B
	opJgtu  = 0x2C
	opJleu  = 0x2D
	opJumpabs = 0x104

	opCall     = 0x30
	opReturn   = 0x31
	opCatch    = 0x32
	opThrow    = 0x33
	opTailcall = 0x34
	opCallf    = 0x160
	opCallfi   = 0x161
	opCallfii  = 0x162
	opCallfiii = 0x163

	opCopy  = 0x40
	opCopys = 0x41
	opCopyb = 0x42
	opSexs  = 0x44
	opSexb  = 0x45

	opAload     = 0x48
	opAloads    = 0x49
	opAloadb    = 0x4A
	opAloadbit  = 0x4B
	opAstore    = 0x4C
	opAstores   = 0x4D
	opAstoreb   = 0x4E
	opAstorebit = 0x4F

	opStkcount = 0x50
	opStkpeek  = 0x51
	opStkswap  = 0x52
	opStkroll  = 0x53
	opStkcopy  = 0x54

	opStreamchar    = 0x70
	opStreamnum     = 0x71
	opStreamstr     = 0x72
	opStreamunichar = 0x73

	opGestalt     = 0x100
	opDebugtrap   = 0x101
	opGetmemsize  = 0x102
	opSetmemsize  = 0x103
	opRandom      = 0x110
	opSetrandom   = 0x111
	opQuit        = 0x120
	opVerify      = 0x121
	opRestart     = 0x122
	opSave        = 0x123
	opRestore     = 0x124
	opSaveundo    = 0x125
	opRestoreundo = 0x126
	opProtect     = 0x127
	opHasundo     = 0x128
	opDiscardundo = 0x129
	opGlk         = 0x130
	opGetstringtbl = 0x140
	opSetstringtbl = 0x141
	opGetiosys     = 0x148
	opSetiosys     = 0x149

	opLinearsearch = 0x150
	opBinarysearch = 0x151
	opLinkedsearch = 0x152

	opMzero  = 0x170
	opMcopy  = 0x171
	opMalloc = 0x178
	opMfree  = 0x179

	opAccelfunc  = 0x180
	opAccelparam = 0x181

	opNumtof  = 0x190
	opFtonumz = 0x191
	opFtonumn = 0x192
	opCeil    = 0x198
	opFloor   = 0x199
	opFadd    = 0x1A0
	opFsub    = 0x1A1
	opFmul    = 0x1A2
	opFdiv    = 0x1A3
	opFmod    = 0x1A4
	opSqrt    = 0x1A8
	opExp     = 0x1A9
	opLog     = 0x1AA
	opPow     = 0x1AB
	opSin     = 0x1B0
	opCos     = 0x1B1
	opTan     = 0x1B2
	opAsin    = 0x1B3
	opAcos    = 0x1B4
	opAtan    = 0x1B5
	opAtan2   = 0x1B6
	opJfeq    = 0x1C0
	opJfne    = 0x1C1
	opJflt    = 0x1C2
	opJfle    = 0x1C3
	opJfgt    = 0x1C4
	opJfge    = 0x1C5
	opJisnan  = 0x1C8
	opJisinf  = 0x1C9

	// Double-precision opcodes: spec §6 allocates these to the optional
	// doubleValue gestalt without assigning numbers (SPEC_FULL.md §12). This
	// block (0x1D0-0x1E9) is this implementation's own allocation, chosen to
	// sit beside the single-precision float block without colliding with it.
	opNumtod  = 0x1D0
	opDtonumz = 0x1D1
	opDtonumn = 0x1D2
	opDadd    = 0x1D8
	opDsub    = 0x1D9
	opDmul    = 0x1DA
	opDdiv    = 0x1DB
	opDceil   = 0x1E0
	opDfloor  = 0x1E1
	opJdeq    = 0x1E8
	opJdisnan = 0x1E9
)

// operandKind tags one operand slot of an opcode's fixed shape as either a
// value to read (left-to-right, before the opcode body runs) or a
// destination to write after the body runs (spec §4.5 step 3/5).
type operandKind byte

const (
	kindLoad operandKind = iota
	kindStore
)

// opInfo is one opcode's static shape: its operand count and, per slot,
// whether it is a load or a store (spec §4.4/§4.5).
type opInfo struct {
	name  string
	kinds []operandKind
}

func shape(kinds ...operandKind) []operandKind { return kinds }

const (
	L = kindLoad
	S = kindStore
)

// opTable maps every supported opcode number to its shape. Opcodes not
// present here fail decode with BadOpcode (spec §7).
var opTable = map[uint32]opInfo{
	opNop: {"nop", nil},

	opAdd:     {"add", shape(L, L, S)},
	opSub:     {"sub", shape(L, L, S)},
	opMul:     {"mul", shape(L, L, S)},
	opDiv:     {"div", shape(L, L, S)},
	opMod:     {"mod", shape(L, L, S)},
	opNeg:     {"neg", shape(L, S)},
	opBitAnd:  {"bitand", shape(L, L, S)},
	opBitOr:   {"bitor", shape(L, L, S)},
	opBitXor:  {"bitxor", shape(L, L, S)},
	opBitNot:  {"bitnot", shape(L, S)},
	opShiftl:  {"shiftl", shape(L, L, S)},
	opSshiftr: {"sshiftr", shape(L, L, S)},
	opUshiftr: {"ushiftr", shape(L, L, S)},

	opJump: {"jump", shape(L)},
	opJz:   {"jz", shape(L, L)},
	opJnz:  {"jnz", shape(L, L)},
	opJeq:  {"jeq", shape(L, L, L)},
	opJne:  {"jne", shape(L, L, L)},
	opJlt:  {"jlt", shape(L, L, L)},
	opJge:  {"jge", shape(L, L, L)},
	opJgt:  {"jgt", shape(L, L, L)},
	opJle:  {"jle", shape(L, L, L)},
	opJltu: {"jltu", shape(L, L, L)},
	opJgeu: {"jgeu", shape(L, L, L)},
	opJgtu: {"jgtu", shape(L, L, L)},
	opJleu: {"jleu", shape(L, L, L)},
	opJumpabs: {"jumpabs", shape(L)},

	opCall:     {"call", shape(L, L, S)},
	opReturn:   {"return", shape(L)},
	opCatch:    {"catch", shape(S, L)},
	opThrow:    {"throw", shape(L, L)},
	opTailcall: {"tailcall", shape(L, L)},
	opCallf:    {"callf", shape(L, S)},
	opCallfi:   {"callfi", shape(L, L, S)},
	opCallfii:  {"callfii", shape(L, L, L, S)},
	opCallfiii: {"callfiii", shape(L, L, L, L, S)},

	opCopy:  {"copy", shape(L, S)},
	opCopys: {"copys", shape(L, S)},
	opCopyb: {"copyb", shape(L, S)},
	opSexs:  {"sexs", shape(L, S)},
	opSexb:  {"sexb", shape(L, S)},

	opAload:     {"aload", shape(L, L, S)},
	opAloads:    {"aloads", shape(L, L, S)},
	opAloadb:    {"aloadb", shape(L, L, S)},
	opAloadbit:  {"aloadbit", shape(L, L, S)},
	opAstore:    {"astore", shape(L, L, L)},
	opAstores:   {"astores", shape(L, L, L)},
	opAstoreb:   {"astoreb", shape(L, L, L)},
	opAstorebit: {"astorebit", shape(L, L, L)},

	opStkcount: {"stkcount", shape(S)},
	opStkpeek:  {"stkpeek", shape(L, S)},
	opStkswap:  {"stkswap", nil},
	opStkroll:  {"stkroll", shape(L, L)},
	opStkcopy:  {"stkcopy", shape(L)},

	opStreamchar:    {"streamchar", shape(L)},
	opStreamnum:     {"streamnum", shape(L)},
	opStreamstr:     {"streamstr", shape(L)},
	opStreamunichar: {"streamunichar", shape(L)},

	opGestalt:      {"gestalt", shape(L, L, S)},
	opDebugtrap:    {"debugtrap", shape(L)},
	opGetmemsize:   {"getmemsize", shape(S)},
	opSetmemsize:   {"setmemsize", shape(L, S)},
	opRandom:       {"random", shape(L, S)},
	opSetrandom:    {"setrandom", shape(L)},
	opQuit:         {"quit", nil},
	opVerify:       {"verify", shape(S)},
	opRestart:      {"restart", nil},
	opSave:         {"save", shape(L, S)},
	opRestore:      {"restore", shape(L, S)},
	opSaveundo:     {"saveundo", shape(S)},
	opRestoreundo:  {"restoreundo", shape(S)},
	opProtect:      {"protect", shape(L, L)},
	opHasundo:      {"hasundo", shape(S)},
	opDiscardundo:  {"discardundo", nil},
	opGlk:          {"glk", shape(L, L, S)},
	opGetstringtbl: {"getstringtbl", shape(S)},
	opSetstringtbl: {"setstringtbl", shape(L)},
	opGetiosys:     {"getiosys", shape(S, S)},
	opSetiosys:     {"setiosys", shape(L, L)},

	opLinearsearch: {"linearsearch", shape(L, L, L, L, L, L, L, S)},
	opBinarysearch: {"binarysearch", shape(L, L, L, L, L, L, L, S)},
	opLinkedsearch: {"linkedsearch", shape(L, L, L, L, L, S)},

	opMzero:  {"mzero", shape(L, L)},
	opMcopy:  {"mcopy", shape(L, L, L)},
	opMalloc: {"malloc", shape(L, S)},
	opMfree:  {"mfree", shape(L)},

	opAccelfunc:  {"accelfunc", shape(L, L)},
	opAccelparam: {"accelparam", shape(L, L)},

	opNumtof:  {"numtof", shape(L, S)},
	opFtonumz: {"ftonumz", shape(L, S)},
	opFtonumn: {"ftonumn", shape(L, S)},
	opCeil:    {"ceil", shape(L, S)},
	opFloor:   {"floor", shape(L, S)},
	opFadd:    {"fadd", shape(L, L, S)},
	opFsub:    {"fsub", shape(L, L, S)},
	opFmul:    {"fmul", shape(L, L, S)},
	opFdiv:    {"fdiv", shape(L, L, S)},
	opFmod:    {"fmod", shape(L, L, S)},
	opSqrt:    {"sqrt", shape(L, S)},
	opExp:     {"exp", shape(L, S)},
	opLog:     {"log", shape(L, S)},
	opPow:     {"pow", shape(L, L, S)},
	opSin:     {"sin", shape(L, S)},
	opCos:     {"cos", shape(L, S)},
	opTan:     {"tan", shape(L, S)},
	opAsin:    {"asin", shape(L, S)},
	opAcos:    {"acos", shape(L, S)},
	opAtan:    {"atan", shape(L, S)},
	opAtan2:   {"atan2", shape(L, L, S)},
	opJfeq:    {"jfeq", shape(L, L, L, L)},
	opJfne:    {"jfne", shape(L, L, L, L)},
	opJflt:    {"jflt", shape(L, L, L)},
	opJfle:    {"jfle", shape(L, L, L)},
	opJfgt:    {"jfgt", shape(L, L, L)},
	opJfge:    {"jfge", shape(L, L, L)},
	opJisnan:  {"jisnan", shape(L, L)},
	opJisinf:  {"jisinf", shape(L, L)},

	opNumtod:  {"numtod", shape(L, S, S)},
	opDtonumz: {"dtonumz", shape(L, L, S)},
	opDtonumn: {"dtonumn", shape(L, L, S)},
	opDadd:    {"dadd", shape(L, L, L, L, S, S)},
	opDsub:    {"dsub", shape(L, L, L, L, S, S)},
	opDmul:    {"dmul", shape(L, L, L, L, S, S)},
	opDdiv:    {"ddiv", shape(L, L, L, L, S, S)},
	opDceil:   {"dceil", shape(L, L, S, S)},
	opDfloor:  {"dfloor", shape(L, L, S, S)},
	opJdeq:    {"jdeq", shape(L, L, L, L, L)},
	opJdisnan: {"jdisnan", shape(L, L, L)},
}
