// Package glulx is the public entry point a host embeds: build a Config,
// then construct a Runtime from a parsed game image and an api.IoSys.
package glulx

import (
	"github.com/sirupsen/logrus"

	"github.com/inform7/glulxvm/internal/glulxlog"
	"github.com/inform7/glulxvm/internal/save"
)

// Config controls Runtime construction, with the default implementation as
// NewConfig. It follows the immutable builder shape of wazero's
// RuntimeConfig (config.go): unexported fields, a package-level default,
// and chainable With* methods that clone-then-mutate-then-return.
type Config struct {
	undoRingCapacity int
	trace            bool
	seed             uint32 // 0 means host-random mode
	logger           *logrus.Entry
}

// defaultConfig helps avoid copy/pasting the wrong defaults.
var defaultConfig = &Config{
	undoRingCapacity: save.DefaultRingCapacity,
	logger:           glulxlog.Discard(),
}

// NewConfig returns the default configuration: a 4-deep undo ring, tracing
// disabled, host-random RNG mode, and a discarding logger.
func NewConfig() *Config {
	return defaultConfig.clone()
}

func (c *Config) clone() *Config {
	cp := *c
	return &cp
}

// WithUndoRingCapacity bounds the in-memory undo ring saveundo/restoreundo
// consume (spec §4.12). Values <= 0 fall back to the package default.
func (c *Config) WithUndoRingCapacity(n int) *Config {
	ret := c.clone()
	ret.undoRingCapacity = n
	return ret
}

// WithTrace enables per-opcode debug tracing through the configured logger
// (spec §10.1).
func (c *Config) WithTrace(enabled bool) *Config {
	ret := c.clone()
	ret.trace = enabled
	return ret
}

// WithSeed deterministically seeds the RNG in place of host-random mode
// (spec §4.11), for reproducible runs. seed == 0 restores host-random mode.
func (c *Config) WithSeed(seed uint32) *Config {
	ret := c.clone()
	ret.seed = seed
	return ret
}

// WithLogger overrides the logrus entry diagnostics are written through.
// Defaults to a discarding entry.
func (c *Config) WithLogger(logger *logrus.Entry) *Config {
	ret := c.clone()
	if logger == nil {
		logger = glulxlog.Discard()
	}
	ret.logger = logger
	return ret
}
