package analysis

// Allocation describes one heap allocation site the emitter is
// considering: its size class (in Obj cells) and the program point
// (an index into whatever linear order the caller is pairing over).
type Allocation struct {
	Site     string
	SizeWord int
	Point    int
}

// Deallocation describes one free site the emitter already decided on
// via the shape lattice, again positioned in program order.
type Deallocation struct {
	Site     string
	SizeWord int
	Point    int
}

// ReusePair is a matched (free, alloc) pair the emitter can lower to a
// single in-place reuse (Perceus-style "free ; malloc of the same size"
// becomes a no-op rewrite).
type ReusePair struct {
	Free  *Deallocation
	Alloc *Allocation
}

// Pairer greedily matches deallocations to same-size allocations that
// occur later in program order with no intervening use of the freed
// cell: a free immediately followed by an allocation of the same size
// may reuse the storage in place.
type Pairer struct {
	live func(point int, site string) bool
}

// NewPairer takes a liveness predicate: live(point, site) reports
// whether the storage freed at 'site' is still referenced by the time
// execution reaches 'point'. When liveness information is unavailable
// the caller should pass a predicate that always returns true, which
// degrades Pair to finding no candidates — safe, just less optimal.
func NewPairer(live func(point int, site string) bool) *Pairer {
	return &Pairer{live: live}
}

// Pair matches each Deallocation to the nearest-following Allocation of
// equal size with no intervening liveness of the freed binding. Every
// allocation is consumed by at most one pairing.
func (p *Pairer) Pair(deallocs []*Deallocation, allocs []*Allocation) []*ReusePair {
	used := make(map[int]bool, len(allocs))
	var pairs []*ReusePair

	for _, d := range deallocs {
		best := -1
		for i, a := range allocs {
			if used[i] || a.SizeWord != d.SizeWord || a.Point <= d.Point {
				continue
			}
			if p.live != nil && p.live(a.Point, d.Site) {
				continue
			}
			if best == -1 || a.Point < allocs[best].Point {
				best = i
			}
		}
		if best != -1 {
			used[best] = true
			pairs = append(pairs, &ReusePair{Free: d, Alloc: allocs[best]})
		}
	}
	return pairs
}
