package random

import (
	"math/rand/v2"
	"sync"
)

// Random provides random number generation that can be mocked for testing
type Random interface {
	// Intn returns a random int in [0, n)
	Intn(n int) int
}

// SourceRandom implements Random over a math/rand/v2 source.
// Safe for concurrent use.
type SourceRandom struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a SourceRandom seeded from the runtime's entropy
func New() *SourceRandom {
	return &SourceRandom{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeeded creates a SourceRandom with a fixed seed, for reproducible runs
func NewSeeded(seed uint64) *SourceRandom {
	return &SourceRandom{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Intn returns a uniformly random int in [0, n), or 0 if n <= 0
func (r *SourceRandom) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(n)
}
