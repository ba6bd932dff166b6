package main

import (
	"bufio"
	"context"
	"io"
	"os"
)

// consoleIoSys is the minimal host-provided api.IoSys this CLI wires up:
// it streams character/string output straight to stdout and leaves full
// Glk window/stream/event dispatch unimplemented, per spec's own Non-goal
// ("Glk window/stream/event management" is explicitly out of scope). A
// real embedder would replace this with a proper Glk library; this one
// exists only so `glulxrun run` has somewhere to put a game's output.
type consoleIoSys struct {
	out *bufio.Writer
}

func newConsoleIoSys(w io.Writer) *consoleIoSys {
	return &consoleIoSys{out: bufio.NewWriter(w)}
}

func (c *consoleIoSys) PutChar(b byte) { c.out.WriteByte(b) }

func (c *consoleIoSys) PutCharUni(r rune) { c.out.WriteRune(r) }

func (c *consoleIoSys) PutString(s []byte) { c.out.Write(s) }

func (c *consoleIoSys) PutStringUni(s []rune) {
	for _, r := range s {
		c.out.WriteRune(r)
	}
}

// Dispatch drains argc arguments off the stack (the engine expects them
// popped regardless of whether the selector is understood) and returns 0.
// Real Glk selector semantics (window creation, line input, streams) are
// the Non-goal this CLI inherits; a host that needs them supplies its own
// api.IoSys.
func (c *consoleIoSys) Dispatch(_ context.Context, _ uint32, argc uint32, pop func() uint32) uint32 {
	for i := uint32(0); i < argc; i++ {
		pop()
	}
	c.out.Flush()
	return 0
}

func (c *consoleIoSys) Flush() { c.out.Flush() }

// fileByteStream adapts an *os.File to api.ByteStream for --save/--restore.
type fileByteStream struct {
	f *os.File
}

func (s *fileByteStream) Write(p []byte) (int, error) { return s.f.Write(p) }
func (s *fileByteStream) Read(p []byte) (int, error)   { return s.f.Read(p) }
func (s *fileByteStream) Close() error                 { return s.f.Close() }
