// Package glulxerr defines the fatal and non-fatal error taxonomy of the
// Glulx dispatch loop (spec §7) and the panic/recover convention used to
// propagate fatal errors out of the engine without leaving partial state
// visible (spec §4.5 ordering, §7 policy).
package glulxerr

import "fmt"

// Kind distinguishes the error conditions named in spec §7. Kinds that are
// "fatal" abort the dispatch loop. Most non-fatal conditions are never
// constructed as an Error — they are handled inline by the opcode that
// detects them (e.g. an unknown gestalt selector just returns 0); the
// exception is AccelFunctionError, which the accelerated functions return
// and the engine's runAccelFunc turns into a 0 result.
type Kind int

const (
	InvalidHeader Kind = iota
	UnsupportedVersion
	OutOfRange
	IllegalWrite
	InvalidMode
	BadOpcode
	ArithmeticError
	StackOverflow
	StackUnderflow
	NotAFunction
	ThrowUnresolved
	HeapError
	AccelFunctionError
)

func (k Kind) String() string {
	switch k {
	case InvalidHeader:
		return "InvalidHeader"
	case UnsupportedVersion:
		return "UnsupportedVersion"
	case OutOfRange:
		return "OutOfRange"
	case IllegalWrite:
		return "IllegalWrite"
	case InvalidMode:
		return "InvalidMode"
	case BadOpcode:
		return "BadOpcode"
	case ArithmeticError:
		return "ArithmeticError"
	case StackOverflow:
		return "StackOverflow"
	case StackUnderflow:
		return "StackUnderflow"
	case NotAFunction:
		return "NotAFunction"
	case ThrowUnresolved:
		return "ThrowUnresolved"
	case HeapError:
		return "HeapError"
	case AccelFunctionError:
		return "AccelFunctionError"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is a fatal VM error. It carries the PC at which the offending
// instruction began decoding (pc_enter, spec §4.5), not the PC at the point
// of failure, so a host can report exactly which instruction aborted.
type Error struct {
	Kind    Kind
	PC      uint32
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("glulx: %s at pc=%#x", e.Kind, e.PC)
	}
	return fmt.Sprintf("glulx: %s at pc=%#x: %s", e.Kind, e.PC, e.Message)
}

// New constructs a *Error. It does not panic; callers return it as an
// ordinary error, and the engine's Run hands it back to the host.
func New(kind Kind, pc uint32, format string, args ...any) *Error {
	return &Error{Kind: kind, PC: pc, Message: fmt.Sprintf(format, args...)}
}

// Recover converts a recovered panic value into an error, the single point
// where the dispatch loop's internal panic/recover convention surfaces to
// callers (mirrors moduleEngine.Call's defer/recover in wazero's
// internal/engine/interpreter/interpreter.go).
func Recover(v any) error {
	if v == nil {
		return nil
	}
	if e, ok := v.(*Error); ok {
		return e
	}
	if err, ok := v.(error); ok {
		return &Error{Kind: BadOpcode, Message: err.Error()}
	}
	return &Error{Kind: BadOpcode, Message: fmt.Sprintf("%v", v)}
}
