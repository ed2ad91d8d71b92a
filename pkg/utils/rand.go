package utils

import (
	"math/rand/v2"
	"time"
)

// streamIncrement is the PCG stream selector used when no explicit stream is requested.
const streamIncrement = 0xda3e39cb94b95bdb

// RandSource is a seeded PCG random stream.
//
// It implements rand.Source, so it can be handed directly to gonum
// distributions as their Src. A RandSource is not safe for concurrent use;
// give every goroutine its own stream.
type RandSource struct {
	seed int64
	pcg  *rand.PCG
}

// NewRandSource creates a new random source with the given seed.
// A zero seed is replaced by the current time.
func NewRandSource(seed int64) *RandSource {
	return NewRandStream(seed, streamIncrement)
}

// NewRandStream creates a random source for a specific (seed, stream) pair.
// Different streams with the same seed are statistically independent.
func NewRandStream(seed int64, stream uint64) *RandSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandSource{
		seed: seed,
		pcg:  rand.NewPCG(uint64(seed), stream),
	}
}

// Seed returns the seed the source was created with.
func (r *RandSource) Seed() int64 {
	return r.seed
}

// Uint64 returns a pseudo-random 64-bit value. It makes RandSource a rand.Source.
func (r *RandSource) Uint64() uint64 {
	return r.pcg.Uint64()
}
