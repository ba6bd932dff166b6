// Package api includes the interfaces and constants a host embeds a Glulx
// runtime with, in the same spirit as wazero's api package: the boundary
// types both end users and the internal engine share, kept free of
// internal engine details.
package api

import "context"

// IoSys is the host-provided I/O subsystem the engine streams characters,
// numbers, and Unicode code points through (spec §4.7, §2 "out of scope:
// the Glk I/O library itself"). The VM never touches a window or stream
// directly; it only ever calls through this interface.
type IoSys interface {
	// PutChar streams a single Latin-1 byte (0-255).
	PutChar(c byte)
	// PutCharUni streams a single Unicode code point.
	PutCharUni(c rune)
	// PutString streams a string of Latin-1 bytes. The engine uses it for
	// accelerated-function error messages under the Glk iosys; streamed
	// game strings go out one character at a time through PutChar and
	// PutCharUni.
	PutString(s []byte)
	// PutStringUni streams a decoded string of Unicode code points.
	PutStringUni(s []rune)
	// Dispatch invokes a Glk selector with argc arguments, each obtained
	// by calling pop() in order; it returns the Glk call's result, to be
	// pushed back onto the VM's value stack by the glk opcode.
	Dispatch(ctx context.Context, selector uint32, argc uint32, pop func() uint32) uint32
}

// ByteStream is the reduced file-open/close hook save/restore consume
// (spec §2 "out of scope: the file-open/close hooks"). A save operation
// gets a fresh write stream; a restore operation gets a stream to read.
type ByteStream interface {
	// Write appends bytes to the stream (save path).
	Write(p []byte) (int, error)
	// Read fills p from the stream (restore path).
	Read(p []byte) (int, error)
	// Close finalizes the stream.
	Close() error
}

// IosysMode selects the active I/O subsystem (spec §4.5 system calls,
// §4.7 Iosys modes).
type IosysMode uint32

const (
	IosysNull    IosysMode = 0
	IosysFilter  IosysMode = 1
	IosysGlk     IosysMode = 2
	IosysFilter2 IosysMode = 20
)

// GestaltSelector enumerates the selectors of spec §6.
type GestaltSelector uint32

const (
	GestaltGlulxVersion GestaltSelector = 0
	GestaltTerpVersion  GestaltSelector = 1
	GestaltResizeMem    GestaltSelector = 2
	GestaltUndo         GestaltSelector = 3
	GestaltIOSystem     GestaltSelector = 4
	GestaltUnicode      GestaltSelector = 5
	GestaltMemCopy      GestaltSelector = 6
	GestaltMAlloc       GestaltSelector = 7
	GestaltMAllocHeap   GestaltSelector = 8
	GestaltAcceleration GestaltSelector = 9
	GestaltAccelFunc    GestaltSelector = 10
	GestaltFloat        GestaltSelector = 11
	GestaltExtUndo      GestaltSelector = 12
	GestaltDoubleValue  GestaltSelector = 13
)

// TerpVersion is the interpreter version this module reports for gestalt
// selector 1, encoded like the Glulx version numbers below: the major
// version in the upper 16 bits, then one byte each for minor and patch
// (0x00010000 is 1.0.0).
const TerpVersion = 0x00010000

// SupportedVersionMin and SupportedVersionMax bound the Glulx version range
// this module accepts (spec §6): [2.0.0, 3.1.*].
const (
	SupportedVersionMin = 0x00020000
	SupportedVersionMax = 0x000301FF
)
