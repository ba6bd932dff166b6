// Package rng implements the Glulx `random`/`setrandom` opcodes (spec
// §4.11, component C6): an xoshiro128** generator seeded by four rounds of
// SplitMix32, plus a host-random pass-through mode for setrandom(0).
package rng

import (
	"math/rand"
	"time"
)

const splitMixIncrement = 0x9E3779B9

// splitMix32 runs one round of the SplitMix32 mixing function over state,
// advancing it, per spec §4.11's scramblers 0x85EBCA6B / 0xC2B2AE35.
func splitMix32(state *uint32) uint32 {
	*state += splitMixIncrement
	z := *state
	z = (z ^ (z >> 16)) * 0x85EBCA6B
	z = (z ^ (z >> 13)) * 0xC2B2AE35
	z = z ^ (z >> 16)
	return z
}

// RNG is the Glulx random-number source. When seeded (setrandom with a
// non-zero argument), it is a deterministic xoshiro128**; when in host mode
// (setrandom(0), the default), it delegates to a host PRNG so successive
// runs of the same game differ the way a real player's sessions would.
type RNG struct {
	s        [4]uint32
	hostMode bool
	host     *rand.Rand
}

// New returns an RNG in host-random mode, matching the VM's default state
// before any setrandom call (spec §4.11).
func New() *RNG {
	r := &RNG{hostMode: true}
	r.host = rand.New(rand.NewSource(time.Now().UnixNano()))
	return r
}

// SetSeed implements setrandom: seed == 0 selects host-random mode; any
// other value deterministically seeds the xoshiro128** state via four
// SplitMix32 rounds (spec §4.11).
func (r *RNG) SetSeed(seed uint32) {
	if seed == 0 {
		r.hostMode = true
		return
	}
	r.hostMode = false
	state := seed
	for i := range r.s {
		r.s[i] = splitMix32(&state)
	}
}

func rotl(x uint32, k uint) uint32 {
	return (x << k) | (x >> (32 - k))
}

// next produces the next xoshiro128** word and advances state.
func (r *RNG) next() uint32 {
	result := rotl(r.s[1]*5, 7) * 9

	t := r.s[1] << 9
	r.s[2] ^= r.s[0]
	r.s[3] ^= r.s[1]
	r.s[1] ^= r.s[2]
	r.s[0] ^= r.s[3]
	r.s[2] ^= t
	r.s[3] = rotl(r.s[3], 11)

	return result
}

// Next32 returns a raw 32-bit word from whichever source is active.
func (r *RNG) Next32() uint32 {
	if r.hostMode {
		return r.host.Uint32()
	}
	return r.next()
}

// Random implements the `random k` opcode (spec §4.11): k > 0 returns a
// value in [0, k); k < 0 returns a value in (k, 0]; k == 0 returns an
// arbitrary 32-bit word.
func (r *RNG) Random(k int32) int32 {
	switch {
	case k == 0:
		return int32(r.Next32())
	case k > 0:
		return int32(r.Next32() % uint32(k))
	default: // k < 0
		n := uint32(-k)
		return -int32(r.Next32()%n)
	}
}

// State captures the generator's internal words for save/undo (spec §8
// round-trip law: "(memory, stack, PC, RNG seed, ...)").
type State struct {
	S        [4]uint32
	HostMode bool
}

func (r *RNG) Snapshot() State {
	return State{S: r.s, HostMode: r.hostMode}
}

func (r *RNG) Restore(s State) {
	r.s = s.S
	r.hostMode = s.HostMode
}
