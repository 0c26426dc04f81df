package random

import (
	"math/rand/v2"
	"sync"
)

// Source supplies uniformly distributed integer draws in [0, n).
// Implementations must be safe for concurrent use. Callers guarantee n >= 1.
type Source interface {
	IntN(n int) int
}

// Global draws from the runtime's shared generator, which is safe for concurrent use.
type Global struct{}

func (Global) IntN(n int) int {
	return rand.IntN(n)
}

// Locked wraps a seeded PCG generator behind a mutex so that it can be shared
// by concurrent callers.
type Locked struct {
	mu   sync.Mutex
	seed uint64
	rng  *rand.Rand
}

// NewLocked creates a lock-protected generator from a fixed seed.
func NewLocked(seed uint64) *Locked {
	return &Locked{
		seed: seed,
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (l *Locked) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.IntN(n)
}

// New returns a Locked source when a seed is given, and the global generator otherwise.
func New(seed *uint64) Source {
	if seed != nil {
		return NewLocked(*seed)
	}
	return Global{}
}

// Derive returns the source for one stream of src. A seeded source yields a new Locked
// generator per stream, so each consumer sees the same draws however they are scheduled.
// Unseeded sources are returned as they are.
func Derive(src Source, stream int) Source {
	l, ok := src.(*Locked)
	if !ok {
		return src
	}
	return NewLocked(l.seed ^ (uint64(stream+1) * 0xbf58476d1ce4e5b9))
}
