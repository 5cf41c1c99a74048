package counters

// Counters is the free-form counter mapping carried by a board object
// (key -> count). Keys are player-visible labels such as "+1/+1", "charge"
// or "loyalty"; the engine never interprets them beyond counting.
type Counters map[string]int

// New creates an empty counter map.
func New() Counters {
	return make(Counters)
}

// Add adds amount counters of the given kind. Non-positive amounts are
// ignored.
func (c Counters) Add(kind string, amount int) {
	if amount <= 0 {
		return
	}
	c[kind] += amount
}

// Remove removes up to amount counters of the given kind and returns the
// number actually removed.
func (c Counters) Remove(kind string, amount int) int {
	if amount <= 0 {
		return 0
	}
	have := c[kind]
	if amount > have {
		amount = have
	}
	if amount == have {
		delete(c, kind)
	} else {
		c[kind] -= amount
	}
	return amount
}

// Count returns the number of counters of one kind.
func (c Counters) Count(kind string) int {
	return c[kind]
}

// Total returns the number of counters across all kinds.
func (c Counters) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Copy creates an independent copy of the counter map.
func (c Counters) Copy() Counters {
	out := make(Counters, len(c))
	for kind, n := range c {
		out[kind] = n
	}
	return out
}
