package estimator

import (
	"math/rand/v2"
	"sync"
)

// RandomSource supplies uniform values in [0, 1). *rand.Rand from math/rand/v2 satisfies it.
type RandomSource interface {
	Float64() float64
}

// globalSource draws from the goroutine-safe math/rand/v2 top-level generator
type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// LockedSource serialises access to a source that is not safe for concurrent use
type LockedSource struct {
	mu  sync.Mutex
	src RandomSource
}

// NewLockedSource wraps src for sharing across goroutines
func NewLockedSource(src RandomSource) *LockedSource {
	return &LockedSource{src: src}
}

// Float64 returns the next value of the wrapped source
func (s *LockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Float64()
}

// NewSeededSource returns a deterministic, concurrency-safe source
func NewSeededSource(seed uint64) *LockedSource {
	return NewLockedSource(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}
