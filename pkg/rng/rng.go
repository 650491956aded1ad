// Package rng provides deterministic, per-stage random number generation.
//
// Every pipeline stage that needs randomness (hand-drawn jitter, k-means++
// seeding) derives its own sub-generator from a single master seed so that
// results are reproducible across runs.
package rng

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
)

// RNG is a stage-scoped deterministic random source.
//
// The derivation follows seed_stage = H(masterSeed, stageName, configHash),
// where H is SHA-256 and the first 8 bytes are read as a big-endian uint64.
type RNG struct {
	seed      uint64
	stageName string
	source    *rand.Rand
}

// New derives a stage-specific RNG from a master seed, a stage name and an
// opaque config fingerprint (see config.Config.ConfigHash). Passing the same
// three inputs always yields the same sequence.
func New(masterSeed uint64, stageName string, configHash []byte) *RNG {
	h := sha256.New()

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], masterSeed)
	h.Write(buf[:])
	h.Write([]byte(stageName))
	h.Write(configHash)

	sum := h.Sum(nil)
	derived := binary.BigEndian.Uint64(sum[:8])

	return &RNG{
		seed:      derived,
		stageName: stageName,
		source:    rand.New(rand.NewSource(int64(derived))),
	}
}

// Child derives a further sub-RNG scoped to an index (e.g. tile or cluster
// number), so concurrent workers never share a *rand.Rand.
func (r *RNG) Child(index int) *RNG {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(index))
	return New(r.seed, r.stageName, buf[:])
}

// Seed returns the derived seed backing this generator.
func (r *RNG) Seed() uint64 { return r.seed }

// Uint64 returns a pseudo-random 64-bit unsigned integer.
func (r *RNG) Uint64() uint64 { return r.source.Uint64() }

// Intn returns a pseudo-random integer in [0, n). It panics if n <= 0.
func (r *RNG) Intn(n int) int { return r.source.Intn(n) }

// Float64 returns a pseudo-random float64 in [0.0, 1.0).
func (r *RNG) Float64() float64 { return r.source.Float64() }

// Signed returns a pseudo-random float64 in [-1.0, 1.0).
func (r *RNG) Signed() float64 { return r.source.Float64()*2 - 1 }

// Shuffle pseudo-randomizes the order of n elements using swap.
func (r *RNG) Shuffle(n int, swap func(i, j int)) { r.source.Shuffle(n, swap) }

// IntRange returns a pseudo-random integer in [lo, hi]. It panics if lo > hi.
func (r *RNG) IntRange(lo, hi int) int {
	if lo > hi {
		panic("rng: IntRange lo must be <= hi")
	}
	if lo == hi {
		return lo
	}
	return lo + r.source.Intn(hi-lo+1)
}
