// Package randfx draws the random effects a population run feeds into
// models: one ETA vector per subject and one EPS vector per output row.
package randfx

import (
	"hash/fnv"
	"math/rand/v2"
)

// === SimulationKey ===

// SimulationKey identifies a reproducible set of draws. Two runs with the
// same key, matrices and data produce identical ETA and EPS values.
type SimulationKey uint64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Stream names ===

const (
	// StreamETA is the stream for between-subject effects.
	StreamETA = "eta"
	// StreamEPS is the stream for residual effects.
	StreamEPS = "eps"
)

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated generators per named
// stream. Drawing more ETAs (for example after adding a subject) never
// shifts the EPS sequence.
//
// Derivation: PCG seeded with (key, fnv1a64(name)).
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type PartitionedRNG struct {
	key     SimulationKey
	streams map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:     key,
		streams: make(map[string]*rand.Rand),
	}
}

// ForStream returns the generator for the named stream. The same name
// always returns the same *rand.Rand (cached). Never returns nil.
func (p *PartitionedRNG) ForStream(name string) *rand.Rand {
	if rng, ok := p.streams[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewPCG(uint64(p.key), fnv1a64(name)))
	p.streams[name] = rng
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

func fnv1a64(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
