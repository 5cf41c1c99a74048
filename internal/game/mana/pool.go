package mana

// Pool maps every mana type to a non-negative count. The engine treats pools
// as values: a pool handed back to a caller is never mutated afterwards, and
// caller-supplied pools are never written in place. Mutation happens on
// private copies via Copy.
type Pool map[ManaType]int

// NewPool creates an empty mana pool.
func NewPool() Pool {
	return make(Pool, len(AllTypes))
}

// Copy creates an independent copy of the pool.
func (p Pool) Copy() Pool {
	out := make(Pool, len(p))
	for mt, n := range p {
		if n > 0 {
			out[mt] = n
		}
	}
	return out
}

// Add adds amount to the given mana type. Non-positive amounts are ignored.
func (p Pool) Add(mt ManaType, amount int) {
	if amount <= 0 {
		return
	}
	p[mt] += amount
}

// Get returns the count for a mana type.
func (p Pool) Get(mt ManaType) int {
	return p[mt]
}

// Spend removes amount of the given type. Returns false (and leaves the pool
// untouched) if there is not enough.
func (p Pool) Spend(mt ManaType, amount int) bool {
	if amount <= 0 {
		return true
	}
	if p[mt] < amount {
		return false
	}
	p[mt] -= amount
	if p[mt] == 0 {
		delete(p, mt)
	}
	return true
}

// Total returns the total mana count across all types.
func (p Pool) Total() int {
	total := 0
	for _, n := range p {
		total += n
	}
	return total
}

// Equal reports whether two pools hold the same counts.
func (p Pool) Equal(other Pool) bool {
	for mt, n := range p {
		if n != other[mt] {
			return false
		}
	}
	for mt, n := range other {
		if n != p[mt] {
			return false
		}
	}
	return true
}
