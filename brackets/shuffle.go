package brackets

import (
	"math/rand/v2"
	"sync"
)

// Shuffler produces a permutation of n elements through swap.
// *rand.Rand satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// lockedShuffler lets one seeded source serve concurrent requests.
type lockedShuffler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (s *lockedShuffler) Shuffle(n int, swap func(i, j int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng.Shuffle(n, swap)
}

// NewSeededShuffler returns a reproducible shuffler for the given seed.
func NewSeededShuffler(seed uint64) Shuffler {
	return &lockedShuffler{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewRandomShuffler returns a shuffler seeded from the runtime's random source.
func NewRandomShuffler() Shuffler {
	return NewSeededShuffler(rand.Uint64())
}
