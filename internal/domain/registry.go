package domain

// registry owns every item of a tournament in a dense arena. Items are stored
// in shuffled presentation order and their ItemID is their arena index, so
// cross references are plain integers rather than pointers.
type registry[T any] struct {
	items []rankedItem[T]
}

// newRegistry builds a registry with every item undecided at score 1. The
// payloads are shuffled before IDs are assigned; the shuffle is what keeps
// adversarial input orderings from degrading candidate selection.
func newRegistry[T any](payloads []T, s Shuffler) *registry[T] {
	shuffled := Shuffle(payloads, s)
	items := make([]rankedItem[T], len(shuffled))
	for i, p := range shuffled {
		items[i] = rankedItem[T]{
			payload:      p,
			score:        1,
			eliminatedBy: NoItem,
		}
	}
	return &registry[T]{items: items}
}

func (r *registry[T]) len() int { return len(r.items) }

func (r *registry[T]) get(id ItemID) *rankedItem[T] { return &r.items[id] }

func (r *registry[T]) contains(id ItemID) bool {
	return id >= 0 && int(id) < len(r.items)
}

// undecided returns the IDs of items with no eliminator and no final
// position, in registry order.
func (r *registry[T]) undecided() []ItemID {
	ids := make([]ItemID, 0, len(r.items))
	for i := range r.items {
		if r.items[i].state() == Undecided {
			ids = append(ids, ItemID(i))
		}
	}
	return ids
}

// release returns every item eliminated by eliminator to the undecided pool.
func (r *registry[T]) release(eliminator ItemID) int {
	released := 0
	for i := range r.items {
		it := &r.items[i]
		if it.eliminatedBy == eliminator && it.position == 0 {
			it.eliminatedBy = NoItem
			released++
		}
	}
	return released
}

func (r *registry[T]) snapshot(id ItemID) Item[T] {
	it := r.items[id]
	return Item[T]{
		ID:           id,
		Payload:      it.payload,
		Score:        it.score,
		EliminatedBy: it.eliminatedBy,
		Position:     it.position,
	}
}
