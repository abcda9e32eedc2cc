package balancer

import (
	"math"

	"github.com/okian/mixer/internal/domain/role"
)

// group is one candidate set of players for a role's slots on one team.
type group struct {
	members []int
	weight  float64
	value   float64
	mask    bitset
}

type level struct {
	role   role.Role
	groups []group
}

// search is the mutable state of one Balance call. Depth 2i picks Team A's
// group for levels[i], depth 2i+1 picks Team B's.
type search struct {
	levels    []level
	threshold float64
	budget    int

	used  []bitset // used[d] holds every player picked above depth d
	picks []*group
	best  []*group

	bestGap  float64
	found    bool
	stop     bool
	exceeded bool
	explored int
}

func newSearch(levels []level, words int, threshold float64, budget int) *search {
	depth := 2 * len(levels)
	s := &search{
		levels:    levels,
		threshold: threshold,
		budget:    budget,
		used:      make([]bitset, depth+1),
		picks:     make([]*group, depth),
		best:      make([]*group, depth),
		bestGap:   math.Inf(1),
	}
	for i := range s.used {
		s.used[i] = make(bitset, words)
	}
	return s
}

func (s *search) descend(depth int, sumA, sumB float64) {
	if depth == len(s.picks) {
		s.evaluate(math.Abs(sumA - sumB))
		return
	}

	groups := s.levels[depth/2].groups
	for i := range groups {
		if s.stop {
			return
		}
		if s.budget > 0 && s.explored >= s.budget {
			s.exceeded = true
			s.stop = true
			return
		}
		s.explored++

		g := &groups[i]
		if g.mask.intersects(s.used[depth]) {
			continue
		}
		s.picks[depth] = g
		s.used[depth+1].union(s.used[depth], g.mask)
		if depth%2 == 0 {
			s.descend(depth+1, sumA+g.value, sumB)
		} else {
			s.descend(depth+1, sumA, sumB+g.value)
		}
	}
}

// evaluate applies the acceptance rules to a complete assignment: a gap
// strictly under the threshold ends the search, otherwise the candidate
// replaces the best one only when it is better by more than the threshold.
func (s *search) evaluate(gap float64) {
	if gap < s.threshold {
		s.record(gap)
		s.stop = true
		return
	}
	if !s.found || gap+s.threshold < s.bestGap {
		s.record(gap)
	}
}

func (s *search) record(gap float64) {
	copy(s.best, s.picks)
	s.bestGap = gap
	s.found = true
}

// bitset marks roster indexes.
type bitset []uint64

func (b bitset) set(i int) {
	b[i/64] |= 1 << (uint(i) % 64)
}

func (b bitset) intersects(o bitset) bool {
	for i := range b {
		if b[i]&o[i] != 0 {
			return true
		}
	}
	return false
}

// union stores x | y into b.
func (b bitset) union(x, y bitset) {
	for i := range b {
		b[i] = x[i] | y[i]
	}
}
