package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairerMatchesEqualSizeFollowingAllocation(t *testing.T) {
	dealloc := &Deallocation{Site: "free_at_3", SizeWord: 2, Point: 3}
	alloc := &Allocation{Site: "alloc_at_5", SizeWord: 2, Point: 5}

	p := NewPairer(func(point int, site string) bool { return false })
	pairs := p.Pair([]*Deallocation{dealloc}, []*Allocation{alloc})

	require.Len(t, pairs, 1)
	assert.Equal(t, dealloc, pairs[0].Free)
	assert.Equal(t, alloc, pairs[0].Alloc)
}

func TestPairerSkipsWhenSizesDiffer(t *testing.T) {
	dealloc := &Deallocation{Site: "d", SizeWord: 2, Point: 1}
	alloc := &Allocation{Site: "a", SizeWord: 3, Point: 2}

	p := NewPairer(func(point int, site string) bool { return false })
	pairs := p.Pair([]*Deallocation{dealloc}, []*Allocation{alloc})
	assert.Empty(t, pairs)
}

func TestPairerSkipsWhenFreedValueStillLive(t *testing.T) {
	dealloc := &Deallocation{Site: "d", SizeWord: 2, Point: 1}
	alloc := &Allocation{Site: "a", SizeWord: 2, Point: 2}

	p := NewPairer(func(point int, site string) bool { return true }) // always live
	pairs := p.Pair([]*Deallocation{dealloc}, []*Allocation{alloc})
	assert.Empty(t, pairs)
}

func TestPairerDoesNotReuseSameAllocationTwice(t *testing.T) {
	d1 := &Deallocation{Site: "d1", SizeWord: 2, Point: 1}
	d2 := &Deallocation{Site: "d2", SizeWord: 2, Point: 2}
	a := &Allocation{Site: "a", SizeWord: 2, Point: 5}

	p := NewPairer(func(point int, site string) bool { return false })
	pairs := p.Pair([]*Deallocation{d1, d2}, []*Allocation{a})
	assert.Len(t, pairs, 1)
}
