package domain

import (
	"math/rand/v2"
	"sync"
)

// Shuffler produces uniform random permutations. Its method matches the
// signature of rand.Shuffle so a *rand.Rand satisfies it directly.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// globalShuffler draws from the runtime's auto-seeded source.
type globalShuffler struct{}

func (globalShuffler) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// DefaultShuffler returns a Shuffler backed by the global math/rand/v2
// source. It is safe for concurrent use.
func DefaultShuffler() Shuffler { return globalShuffler{} }

// lockedShuffler guards a seeded generator so it can be shared.
type lockedShuffler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (l *lockedShuffler) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rng.Shuffle(n, swap)
}

// NewSeededShuffler returns a deterministic Shuffler for reproducible runs.
func NewSeededShuffler(seed uint64) Shuffler {
	return &lockedShuffler{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Shuffle returns a uniformly permuted copy of items. The input is not
// modified. A nil shuffler uses DefaultShuffler.
func Shuffle[T any](items []T, s Shuffler) []T {
	if s == nil {
		s = DefaultShuffler()
	}
	out := make([]T, len(items))
	copy(out, items)
	s.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
