package domain

// Chain is an ordered sequence of item IDs, strongest first, used to stage
// input for OrderOutcome. Items can be added at either end in amortized O(1)
// and positions are addressed front to back.
//
// The zero value is an empty chain ready to use.
type Chain struct {
	front []ItemID // stored in reverse: front[len-1] is the first element
	back  []ItemID
}

// NewChain returns a chain holding ids in the given order.
func NewChain(ids ...ItemID) *Chain {
	c := &Chain{back: make([]ItemID, 0, len(ids))}
	c.back = append(c.back, ids...)
	return c
}

// Append adds id after the current last element.
func (c *Chain) Append(id ItemID) { c.back = append(c.back, id) }

// Prepend adds id before the current first element.
func (c *Chain) Prepend(id ItemID) { c.front = append(c.front, id) }

// Len returns the number of elements.
func (c *Chain) Len() int { return len(c.front) + len(c.back) }

// At returns the element at position i, counting from the front.
// It panics if i is out of range.
func (c *Chain) At(i int) ItemID {
	if i < len(c.front) {
		return c.front[len(c.front)-1-i]
	}
	return c.back[i-len(c.front)]
}

// Next returns the element after position i.
func (c *Chain) Next(i int) (ItemID, bool) {
	if i < 0 || i+1 >= c.Len() {
		return NoItem, false
	}
	return c.At(i + 1), true
}

// Prev returns the element before position i.
func (c *Chain) Prev(i int) (ItemID, bool) {
	if i <= 0 || i >= c.Len() {
		return NoItem, false
	}
	return c.At(i - 1), true
}

// IDs returns the elements front to back in a fresh slice.
func (c *Chain) IDs() []ItemID {
	ids := make([]ItemID, 0, c.Len())
	for i := len(c.front) - 1; i >= 0; i-- {
		ids = append(ids, c.front[i])
	}
	return append(ids, c.back...)
}

// Outcome converts the chain into an OrderOutcome.
func (c *Chain) Outcome() OrderOutcome { return Order(c.IDs()...) }
