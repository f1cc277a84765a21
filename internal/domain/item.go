// Package domain contains the pure, dependency-free tournament ranking engine.
// It turns a sequence of small matchup judgments into a total order over a
// set of opaque items without ever requiring a global comparator.
package domain

import "fmt"

// ItemID identifies an item inside a single tournament. IDs are dense
// indices into the registry arena and are only meaningful for the
// tournament that issued them.
type ItemID int

// NoItem marks an absent item reference, such as an undecided item's
// eliminator.
const NoItem ItemID = -1

// Direction controls whether rank 1 denotes the strongest or the weakest item.
type Direction int

const (
	// HighestFirst assigns rank 1 to the strongest item. Positions are
	// handed out in increasing order as survivors are finalized.
	HighestFirst Direction = iota

	// LowestFirst assigns rank 1 to the weakest item. Positions are handed
	// out in decreasing order starting from N.
	LowestFirst
)

// String returns the configuration spelling of the direction.
func (d Direction) String() string {
	switch d {
	case HighestFirst:
		return "highest_first"
	case LowestFirst:
		return "lowest_first"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// ParseDirection converts a configuration value into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "highest_first", "highest":
		return HighestFirst, nil
	case "lowest_first", "lowest":
		return LowestFirst, nil
	default:
		return 0, fmt.Errorf("%w: unknown direction %q", ErrInvalidConfiguration, s)
	}
}

// ItemState is the lifecycle state of a ranked item.
type ItemState int

const (
	// Undecided items have neither an eliminator nor a final position and
	// are eligible for selection.
	Undecided ItemState = iota

	// Eliminated items lost a matchup and wait until their eliminator is
	// finalized.
	Eliminated

	// Finalized items hold their final position.
	Finalized
)

// String returns a readable name for the state.
func (s ItemState) String() string {
	switch s {
	case Undecided:
		return "undecided"
	case Eliminated:
		return "eliminated"
	case Finalized:
		return "finalized"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// rankedItem is the registry's mutable record for one item.
type rankedItem[T any] struct {
	payload      T
	score        int
	eliminatedBy ItemID
	position     int // 0 while not finalized
}

func (it *rankedItem[T]) state() ItemState {
	switch {
	case it.position != 0:
		return Finalized
	case it.eliminatedBy != NoItem:
		return Eliminated
	default:
		return Undecided
	}
}

// Item is a read-only snapshot of a ranked item.
type Item[T any] struct {
	// ID is the item's identifier within its tournament.
	ID ItemID

	// Payload is the caller's value.
	Payload T

	// Score is the accumulated strength: one plus the scores of every item
	// absorbed through wins. It never decreases.
	Score int

	// EliminatedBy names the item that eliminated this one, or NoItem.
	EliminatedBy ItemID

	// Position is the final rank, or 0 while the item is not finalized.
	Position int
}

// State reports the lifecycle state captured by the snapshot.
func (it Item[T]) State() ItemState {
	switch {
	case it.Position != 0:
		return Finalized
	case it.EliminatedBy != NoItem:
		return Eliminated
	default:
		return Undecided
	}
}

// Standing is one row of a completed ranking.
type Standing[T any] struct {
	Position int
	ID       ItemID
	Payload  T
	Score    int
}
