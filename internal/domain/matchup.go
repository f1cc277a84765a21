package domain

import (
	"fmt"
	"slices"
)

// Entry is one candidate of a matchup as it stood when the matchup was
// issued.
type Entry[T any] struct {
	ID      ItemID
	Payload T
	Score   int
}

// Matchup is an immutable snapshot of the candidates selected for one
// judgment, ordered by score descending. The judge decides the outcome
// out of band and reports it through Tournament.Resolve.
type Matchup[T any] struct {
	seq     int
	entries []Entry[T]
}

// Seq returns the matchup's sequence number within its tournament,
// starting at 1.
func (m Matchup[T]) Seq() int { return m.seq }

// Len returns the number of candidates.
func (m Matchup[T]) Len() int { return len(m.entries) }

// Entry returns the i-th candidate.
func (m Matchup[T]) Entry(i int) Entry[T] { return m.entries[i] }

// Entries returns a copy of the candidates.
func (m Matchup[T]) Entries() []Entry[T] { return slices.Clone(m.entries) }

// IDs returns the candidate IDs in presentation order.
func (m Matchup[T]) IDs() []ItemID {
	ids := make([]ItemID, len(m.entries))
	for i, e := range m.entries {
		ids[i] = e.ID
	}
	return ids
}

// Payloads returns the candidate payloads in presentation order.
func (m Matchup[T]) Payloads() []T {
	out := make([]T, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Payload
	}
	return out
}

// Contains reports whether id is a candidate of the matchup.
func (m Matchup[T]) Contains(id ItemID) bool {
	for _, e := range m.entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

// Reordered returns a matchup with the same identity presented in the given
// index order. It lets bias-mitigating judges show candidates in a
// different arrangement while the outcome still refers to the same IDs.
func (m Matchup[T]) Reordered(order []int) (Matchup[T], error) {
	if !isPermutation(order, len(m.entries)) {
		return Matchup[T]{}, fmt.Errorf("%w: order %v is not a permutation of %d candidates",
			ErrInvalidMatchupResponse, order, len(m.entries))
	}
	entries := make([]Entry[T], len(order))
	for i, idx := range order {
		entries[i] = m.entries[idx]
	}
	return Matchup[T]{seq: m.seq, entries: entries}, nil
}

// Outcome builds the outcome for strategy from a ranking of candidate
// indices, strongest first. Pick and winner strategies only need the first
// index; the order strategy needs a full permutation.
func (m Matchup[T]) Outcome(strategy Strategy, ranking []int) (Outcome, error) {
	n := len(m.entries)
	if len(ranking) == 0 || ranking[0] < 0 || ranking[0] >= n {
		return nil, fmt.Errorf("%w: ranking %v does not name a candidate", ErrInvalidMatchupResponse, ranking)
	}
	best := m.entries[ranking[0]].ID
	rest := make([]ItemID, 0, n-1)
	for _, e := range m.entries {
		if e.ID != best {
			rest = append(rest, e.ID)
		}
	}

	switch strategy {
	case StrategyWinner:
		return Winner(best, rest...), nil
	case StrategyPick:
		return Pick(best, rest...), nil
	case StrategyOrder:
		if !isPermutation(ranking, n) {
			return nil, fmt.Errorf("%w: ranking %v is not a permutation of %d candidates",
				ErrInvalidMatchupResponse, ranking, n)
		}
		chain := &Chain{}
		for _, idx := range ranking {
			chain.Append(m.entries[idx].ID)
		}
		return chain.Outcome(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

func isPermutation(order []int, n int) bool {
	if len(order) != n {
		return false
	}
	seen := make([]bool, n)
	for _, idx := range order {
		if idx < 0 || idx >= n || seen[idx] {
			return false
		}
		seen[idx] = true
	}
	return true
}
