package domain

import (
	"cmp"
	"slices"
)

// DefaultMatchupSize is the number of candidates per matchup when none is
// configured.
const DefaultMatchupSize = 2

// Config holds the tournament parameters.
type Config struct {
	// Direction decides whether rank 1 is the strongest or weakest item.
	Direction Direction

	// MatchupSize is the number of candidates presented per matchup. It must
	// be at least 2. Fewer undecided items than MatchupSize yields a smaller
	// matchup holding all of them.
	MatchupSize int

	// Shuffler randomizes presentation order. Nil uses DefaultShuffler.
	Shuffler Shuffler
}

// DefaultConfig returns a Config for highest-first pairwise matchups.
func DefaultConfig() Config {
	return Config{
		Direction:   HighestFirst,
		MatchupSize: DefaultMatchupSize,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	verr := NewValidationError("Config")
	if c.MatchupSize < 2 {
		verr.AddError("matchup size must be at least 2")
	}
	if c.Direction != HighestFirst && c.Direction != LowestFirst {
		verr.AddError("unknown direction " + c.Direction.String())
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// Stats counts the work a tournament has done so far.
type Stats struct {
	// Matchups is the number of matchups handed out by Next.
	Matchups int

	// Resolutions is the number of outcomes accepted by Resolve.
	Resolutions int

	// Rejections is the number of outcomes refused by Resolve.
	Rejections int

	// Finalizations is the number of items that received a position.
	Finalizations int
}

// Tournament is the incremental ranking engine. A driving loop calls Next
// to obtain a matchup, asks a judge for the outcome and reports it with
// Resolve until Next reports completion; Result then yields the order.
//
// A Tournament is not safe for concurrent use. Exactly one matchup is in
// flight at any time.
type Tournament[T any] struct {
	reg         *registry[T]
	direction   Direction
	matchupSize int
	cursor      int
	finalized   int
	pending     *pendingMatchup
	stats       Stats
}

// pendingMatchup remembers the last issued matchup until it is resolved.
type pendingMatchup struct {
	seq     int
	members map[ItemID]struct{}
}

// New creates a tournament over items. Every item starts undecided with
// score 1 and the registry is presented in shuffled order. Input with fewer
// items than cfg.MatchupSize is accepted; see ErrDegenerateInput.
func New[T any](items []T, cfg Config) (*Tournament[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t := &Tournament[T]{
		reg:         newRegistry(items, cfg.Shuffler),
		direction:   cfg.Direction,
		matchupSize: cfg.MatchupSize,
	}
	t.cursor = 1
	if cfg.Direction == LowestFirst {
		t.cursor = len(items)
	}
	return t, nil
}

// Len returns the number of items being ranked.
func (t *Tournament[T]) Len() int { return t.reg.len() }

// Direction returns the configured direction.
func (t *Tournament[T]) Direction() Direction { return t.direction }

// MatchupSize returns the configured matchup size.
func (t *Tournament[T]) MatchupSize() int { return t.matchupSize }

// Degenerate reports whether the input had fewer items than the matchup
// size, in which case the first matchup holds every item.
func (t *Tournament[T]) Degenerate() bool { return t.reg.len() < t.matchupSize }

// Done reports whether every item has been finalized.
func (t *Tournament[T]) Done() bool { return t.finalized == t.reg.len() }

// Stats returns counters describing the work done so far.
func (t *Tournament[T]) Stats() Stats { return t.stats }

// Undecided returns the number of items currently eligible for selection.
func (t *Tournament[T]) Undecided() int { return len(t.reg.undecided()) }

// Item returns a snapshot of the item with the given ID.
func (t *Tournament[T]) Item(id ItemID) (Item[T], bool) {
	if !t.reg.contains(id) {
		return Item[T]{}, false
	}
	return t.reg.snapshot(id), true
}

// Items returns snapshots of every item in registry order.
func (t *Tournament[T]) Items() []Item[T] {
	out := make([]Item[T], t.reg.len())
	for i := range out {
		out[i] = t.reg.snapshot(ItemID(i))
	}
	return out
}

// Next returns the next matchup, or false once every item is finalized.
//
// Whenever exactly one undecided item remains it is finalized on the spot
// and the items it eliminated rejoin the pool; this repeats until either a
// matchup of at least two items can be formed or nothing is left. Candidates
// are the highest-scoring undecided items; ties keep registry order.
//
// Calling Next again before Resolve abandons the pending matchup and issues
// a fresh one over the same state.
func (t *Tournament[T]) Next() (Matchup[T], bool) {
	for {
		undecided := t.reg.undecided()
		switch len(undecided) {
		case 0:
			t.pending = nil
			return Matchup[T]{}, false
		case 1:
			t.finalize(undecided[0])
			continue
		}

		slices.SortStableFunc(undecided, func(a, b ItemID) int {
			return cmp.Compare(t.reg.get(b).score, t.reg.get(a).score)
		})
		size := min(t.matchupSize, len(undecided))

		t.stats.Matchups++
		m := Matchup[T]{seq: t.stats.Matchups, entries: make([]Entry[T], size)}
		members := make(map[ItemID]struct{}, size)
		for i, id := range undecided[:size] {
			it := t.reg.get(id)
			m.entries[i] = Entry[T]{ID: id, Payload: it.payload, Score: it.score}
			members[id] = struct{}{}
		}
		t.pending = &pendingMatchup{seq: m.seq, members: members}
		return m, true
	}
}

// finalize assigns the next position to id and releases its direct
// dependents.
func (t *Tournament[T]) finalize(id ItemID) {
	t.reg.get(id).position = t.cursor
	if t.direction == HighestFirst {
		t.cursor++
	} else {
		t.cursor--
	}
	t.finalized++
	t.stats.Finalizations++
	t.reg.release(id)
}

// Resolve records the outcome of the pending matchup. Only scores and
// eliminators of matchup members change. A malformed outcome is rejected
// with an error wrapping ErrInvalidMatchupResponse and leaves the state
// untouched, so the judge can be asked again.
func (t *Tournament[T]) Resolve(outcome Outcome) error {
	if err := t.check(outcome); err != nil {
		t.stats.Rejections++
		return err
	}

	switch o := outcome.(type) {
	case WinnerOutcome:
		t.absorb(o.Winner, o.Losers)
	case PickOutcome:
		t.absorb(o.Pick, o.Others)
	case OrderOutcome:
		// Walk from the weakest upward so each step carries the cascaded
		// score of everything below it.
		for i := len(o.Ordered) - 1; i > 0; i-- {
			higher, lower := t.reg.get(o.Ordered[i-1]), t.reg.get(o.Ordered[i])
			lower.eliminatedBy = o.Ordered[i-1]
			higher.score += lower.score
		}
	}

	t.pending = nil
	t.stats.Resolutions++
	return nil
}

func (t *Tournament[T]) absorb(winner ItemID, losers []ItemID) {
	w := t.reg.get(winner)
	for _, id := range losers {
		l := t.reg.get(id)
		w.score += l.score
		l.eliminatedBy = winner
	}
}

// check validates outcome against the pending matchup without mutating
// anything.
func (t *Tournament[T]) check(outcome Outcome) error {
	if outcome == nil {
		return newMatchupError("resolve", t.pendingSeq(), NoItem, "nil outcome")
	}
	op := string(outcome.Strategy())
	if t.pending == nil {
		return newMatchupError(op, 0, NoItem, "no matchup pending")
	}

	seq, members := t.pending.seq, t.pending.members
	seen := make(map[ItemID]struct{}, len(members))
	claim := func(id ItemID) error {
		if _, ok := members[id]; !ok {
			return newMatchupError(op, seq, id, "item not in matchup")
		}
		if _, dup := seen[id]; dup {
			return newMatchupError(op, seq, id, "item listed more than once")
		}
		seen[id] = struct{}{}
		return nil
	}
	claimAll := func(head ItemID, rest []ItemID) error {
		if err := claim(head); err != nil {
			return err
		}
		for _, id := range rest {
			if err := claim(id); err != nil {
				return err
			}
		}
		return nil
	}

	switch o := outcome.(type) {
	case WinnerOutcome:
		if len(o.Losers) == 0 {
			return newMatchupError(op, seq, o.Winner, "winner needs at least one loser")
		}
		return claimAll(o.Winner, o.Losers)
	case PickOutcome:
		if err := claimAll(o.Pick, o.Others); err != nil {
			return err
		}
	case OrderOutcome:
		if len(o.Ordered) == 0 {
			return newMatchupError(op, seq, NoItem, "empty order")
		}
		if err := claimAll(o.Ordered[0], o.Ordered[1:]); err != nil {
			return err
		}
	default:
		return newMatchupError(op, seq, NoItem, "unsupported outcome type")
	}

	if len(seen) != len(members) {
		for id := range members {
			if _, ok := seen[id]; !ok {
				return newMatchupError(op, seq, id, "matchup member missing from outcome")
			}
		}
	}
	return nil
}

func (t *Tournament[T]) pendingSeq() int {
	if t.pending == nil {
		return 0
	}
	return t.pending.seq
}

// Result returns the payloads ordered by final position. It fails with
// ErrPrematureExtraction until Next has reported completion and is
// idempotent afterwards.
func (t *Tournament[T]) Result() ([]T, error) {
	standings, err := t.Rankings()
	if err != nil {
		return nil, err
	}
	out := make([]T, len(standings))
	for i, s := range standings {
		out[i] = s.Payload
	}
	return out, nil
}

// Rankings returns the full standings ordered by final position.
func (t *Tournament[T]) Rankings() ([]Standing[T], error) {
	if !t.Done() {
		return nil, ErrPrematureExtraction
	}
	standings := make([]Standing[T], t.reg.len())
	for i := range standings {
		it := t.reg.get(ItemID(i))
		standings[i] = Standing[T]{
			Position: it.position,
			ID:       ItemID(i),
			Payload:  it.payload,
			Score:    it.score,
		}
	}
	slices.SortStableFunc(standings, func(a, b Standing[T]) int {
		return cmp.Compare(a.Position, b.Position)
	})
	return standings, nil
}
