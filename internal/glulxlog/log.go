// Package glulxlog centralizes the structured logging this module emits.
// The VM itself never needs logging for correctness; these entries exist
// for the host embedding the VM (accel-function failures and opt-in opcode
// tracing), the same split moby/moby draws between
// its logrus usage in daemon code and its silent library packages.
package glulxlog

import "github.com/sirupsen/logrus"

// New returns a logrus.Entry scoped to component, e.g. "engine", "heap",
// "save". Callers hold onto the entry rather than re-deriving it per call.
func New(component string) *logrus.Entry {
	return logrus.WithField("component", component)
}

// Discard is a logger that drops everything; Config defaults to it so a
// Runtime built without WithLogger produces no output on its own.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(discardWriter{})
	return logrus.NewEntry(l)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
