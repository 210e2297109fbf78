// Package simcore implements the deterministic price-feed simulation
// engine shared by the DEX and Oracle processes: labeled PRNG streams,
// price models, the fault pipeline, publication policies, subscriber
// fan-out, snapshot storage, and metrics.
package simcore

import (
	"hash/fnv"
	"math/bits"
	"math/rand/v2"
)

// hash64 derives a stable 64-bit digest of a label using FNV-1a. FNV-1a
// is specified by algorithm, not by library version, so its output is
// stable across Go releases and machines — required for label-derived
// seeds to reproduce identically everywhere.
func hash64(label string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(label))
	return h.Sum64()
}

// NewLabeledRNG derives an independent PRNG stream from a master seed and
// a string label: seed' = S XOR hash64(L). The underlying generator is
// math/rand/v2's PCG, a documented, version-locked algorithm (unlike the
// legacy math/rand default source), giving the bit-for-bit reproducibility
// spec P1 requires across runs and machines. The derived seed is the first
// 64-bit half of the PCG state; the second half is that value rotated by 32
// bits XOR hash64(L+"#hi"), so both halves depend on the label.
func NewLabeledRNG(seed uint64, label string) *rand.Rand {
	derived := seed ^ hash64(label)
	hi := bits.RotateLeft64(derived, 32) ^ hash64(label+"#hi")
	return rand.New(rand.NewPCG(derived, hi))
}

// Happens reports whether an event with the given probability fires,
// drawing one uniform sample from rng. p<=0 never fires, p>=1 always
// fires (spec P3).
func Happens(rng *rand.Rand, p float64) bool {
	if p <= 0.0 {
		return false
	}
	if p >= 1.0 {
		return true
	}
	return rng.Float64() < p
}

// SampleRangeU64 draws a uniform integer in [min, max] inclusive. If
// min >= max it returns min (a degenerate, single-valued range).
func SampleRangeU64(rng *rand.Rand, min, max uint64) uint64 {
	if min >= max {
		return min
	}
	span := max - min + 1
	return min + rng.Uint64N(span)
}
