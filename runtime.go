package glulx

import (
	"context"

	"github.com/inform7/glulxvm/api"
	"github.com/inform7/glulxvm/internal/accel"
	"github.com/inform7/glulxvm/internal/engine"
	"github.com/inform7/glulxvm/internal/glulxmem"
	"github.com/inform7/glulxvm/internal/rng"
	"github.com/inform7/glulxvm/internal/save"
	"github.com/inform7/glulxvm/internal/vmstack"
)

// Runtime is one running Glulx machine instance: the engine plus the
// components (C1-C13) it is wired to. It is the root package's counterpart
// to wazero's runtime struct, minus the compile/instantiate split a
// bytecode-interpreted format never needed.
type Runtime struct {
	vm    *engine.VM
	mem   *glulxmem.Memory
	accel *accel.Table
	undo  *save.Ring
	codec *save.Codec
}

// NewRuntime parses game as a Glulx image and wires every component (memory,
// stack, RNG, accelerator, undo ring, save codec) into a single engine.VM
// per cfg. A nil cfg uses NewConfig()'s defaults.
func NewRuntime(ctx context.Context, game []byte, iosys api.IoSys, cfg *Config) (*Runtime, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	h, err := glulxmem.ParseHeader(game)
	if err != nil {
		return nil, err
	}
	mem := glulxmem.New(h, game)
	stk := vmstack.New(h.StackSize)
	r := rng.New()
	if cfg.seed != 0 {
		r.SetSeed(cfg.seed)
	}

	vm := engine.New(mem, stk, r, iosys)
	vm.Ctx = ctx
	vm.Log = cfg.logger

	tbl := accel.New()
	vm.Accel = tbl

	ring := save.NewRing(cfg.undoRingCapacity)
	vm.Undo = ring

	codec := &save.Codec{Mem: mem}
	vm.SaveIO = codec

	if cfg.trace {
		tracer := cfg.logger.WithField("component", "engine")
		vm.SetTracer(func(pc uint32, name string) {
			tracer.WithField("pc", pc).Debug(name)
		})
	}

	return &Runtime{vm: vm, mem: mem, accel: tbl, undo: ring, codec: codec}, nil
}

// BindStreams wires the host's stream resolver for the save/restore
// opcodes (spec §4.12); without it, save/restore always fail.
func (rt *Runtime) BindStreams(resolve func(id uint32) (api.ByteStream, bool)) {
	rt.vm.Streams = resolve
}

// Run executes the loaded game until it quits or a fatal error occurs
// (spec §4.5).
func (rt *Runtime) Run() error {
	return rt.vm.Run()
}

// PC reports the current program counter, chiefly useful for diagnostics
// after Run returns an error.
func (rt *Runtime) PC() uint32 {
	return rt.vm.PC
}

// Memory exposes the live memory map for hosts that need direct access
// (e.g. a save-info CLI command reading header fields without running the
// game).
func (rt *Runtime) Memory() *glulxmem.Memory {
	return rt.mem
}

// Save writes the current machine state to stream in this module's
// Quetzal-like format (spec §4.12), independent of the `save` opcode (for a
// host-driven checkpoint rather than one the game itself requested).
func (rt *Runtime) Save(stream api.ByteStream) error {
	return rt.codec.WriteSnapshot(stream, rt.vm.Snapshot())
}

// Restore reads a previously-saved state from stream and resumes execution
// from it (spec §4.12).
func (rt *Runtime) Restore(stream api.ByteStream) error {
	snap, err := rt.codec.ReadSnapshot(stream)
	if err != nil {
		return err
	}
	return rt.vm.ApplySnapshot(snap)
}
