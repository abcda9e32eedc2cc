// Package balancer splits a roster into two role-complete teams with the
// smallest aggregate skill gap it can find.
//
// The search enumerates, per role, every group of players that could fill
// that role's slots, orders the groups by eagerness and walks them depth
// first: Team A's tank group, Team B's tank group, Team A's dps group and so
// on. Every pick must be disjoint from all earlier picks in the branch.
package balancer

import (
	"fmt"
	"math"
	"math/big"
	"sort"
	"time"

	"github.com/okian/mixer/internal/domain/player"
	"github.com/okian/mixer/internal/domain/role"
	"github.com/okian/mixer/internal/domain/team"
)

// Default search parameters.
const (
	DefaultAcceptanceThreshold = 300.0
	DefaultSearchBudget        = 5_000_000
)

// Option applies a configuration option to the Balancer.
type Option func(*Balancer)

// WithAcceptanceThreshold sets the gap under which a candidate is accepted
// immediately. It is also the margin by which a later candidate must beat
// the best one seen to replace it.
func WithAcceptanceThreshold(threshold float64) Option {
	return func(b *Balancer) {
		if threshold >= 0 && !math.IsInf(threshold, 0) {
			b.threshold = threshold
		}
	}
}

// WithSearchBudget caps the number of explored search nodes and, before the
// search starts, the number of candidate groups it would build. Zero
// disables the cap.
func WithSearchBudget(nodes int) Option {
	return func(b *Balancer) {
		if nodes >= 0 {
			b.budget = nodes
		}
	}
}

// Balancer runs the team search. It holds only configuration and is safe
// for concurrent use.
type Balancer struct {
	threshold float64
	budget    int
}

// New creates a Balancer with the default threshold and budget.
func New(opts ...Option) *Balancer {
	b := &Balancer{
		threshold: DefaultAcceptanceThreshold,
		budget:    DefaultSearchBudget,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Threshold returns the acceptance threshold.
func (b *Balancer) Threshold() float64 {
	return b.threshold
}

// Budget returns the explored-node cap, zero when unlimited.
func (b *Balancer) Budget() int {
	return b.budget
}

// Entry is one (player, role, weight) candidate for a single run.
type Entry struct {
	Player int
	Role   role.Role
	Weight float64
}

// Result holds two filled teams and the gap between them.
type Result struct {
	TeamA    *team.Team
	TeamB    *team.Team
	Gap      float64
	Fair     bool
	Explored int
}

// PriorityEntries emits one entry per player per role they are a candidate
// for, in roster order then canonical role order.
func PriorityEntries(players []player.Player, now time.Time) []Entry {
	entries := make([]Entry, 0, len(players)*role.Count)
	for i := range players {
		prio := player.BasePriority(&players[i], now)
		for _, r := range role.All() {
			if w, ok := prio[r]; ok {
				entries = append(entries, Entry{Player: i, Role: r, Weight: w})
			}
		}
	}
	return entries
}

// Balance partitions players into two teams shaped by template. It returns
// ErrNoFairComposition when no disjoint assignment exists and
// ErrSearchBudgetExceeded when the node budget runs out first. Teams are
// only built for a successful result.
func (b *Balancer) Balance(players []player.Player, template team.Template, now time.Time) (Result, error) {
	if err := template.Validate(); err != nil {
		return Result{}, err
	}
	if err := checkUnique(players); err != nil {
		return Result{}, err
	}

	pools := make(map[role.Role][]Entry, role.Count)
	for _, e := range PriorityEntries(players, now) {
		pools[e.Role] = append(pools[e.Role], e)
	}

	// Groups are built up front, so they count against the budget before
	// any of them is allocated.
	remaining := b.budget
	for _, r := range role.All() {
		n := template.Count(r)
		if n == 0 {
			continue
		}
		if n > len(pools[r]) {
			return Result{}, fmt.Errorf("%w: %d candidates for %d %s slots", ErrNoFairComposition, len(pools[r]), n, r)
		}
		if b.budget == 0 {
			continue
		}
		count, ok := binomial(len(pools[r]), n, remaining)
		if !ok {
			return Result{}, fmt.Errorf("%w: more than %d candidate groups for %d %s slots from %d players",
				ErrSearchBudgetExceeded, b.budget, n, r, len(pools[r]))
		}
		remaining -= count
	}

	words := (len(players) + 63) / 64
	var levels []level
	for _, r := range role.All() {
		n := template.Count(r)
		if n == 0 {
			continue
		}
		groups := combinations(pools[r], n, players, words)
		if len(groups) == 0 {
			return Result{}, fmt.Errorf("%w: %d candidates for %d %s slots", ErrNoFairComposition, len(pools[r]), n, r)
		}
		levels = append(levels, level{role: r, groups: groups})
	}

	s := newSearch(levels, words, b.threshold, b.budget)
	s.descend(0, 0, 0)

	switch {
	case s.exceeded:
		return Result{Explored: s.explored}, fmt.Errorf("%w after %d nodes", ErrSearchBudgetExceeded, s.explored)
	case !s.found:
		return Result{Explored: s.explored}, fmt.Errorf("%w: no disjoint assignment", ErrNoFairComposition)
	}

	teamA, teamB := team.New(template), team.New(template)
	for i, lv := range levels {
		for _, idx := range s.best[2*i].members {
			teamA.AddPlayer(idx, lv.role)
		}
		for _, idx := range s.best[2*i+1].members {
			teamB.AddPlayer(idx, lv.role)
		}
	}

	return Result{
		TeamA:    teamA,
		TeamB:    teamB,
		Gap:      s.bestGap,
		Fair:     s.bestGap < b.threshold,
		Explored: s.explored,
	}, nil
}

func checkUnique(players []player.Player) error {
	seen := make(map[string]struct{}, len(players))
	for i := range players {
		if _, dup := seen[players[i].ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicatePlayer, players[i].ID)
		}
		seen[players[i].ID] = struct{}{}
	}
	return nil
}

// binomial returns C(m, n) and true, or false when it exceeds limit.
func binomial(m, n, limit int) (int, bool) {
	c := new(big.Int).Binomial(int64(m), int64(n))
	if !c.IsInt64() || c.Int64() > int64(limit) {
		return 0, false
	}
	return int(c.Int64()), true
}

// combinations returns every size-n group of pool, heaviest first. Ties keep
// lexicographic order.
func combinations(pool []Entry, n int, players []player.Player, words int) []group {
	if n > len(pool) {
		return nil
	}
	var groups []group
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for {
		g := group{members: make([]int, n), mask: make(bitset, words)}
		for k, i := range idx {
			e := pool[i]
			g.members[k] = e.Player
			g.weight += e.Weight
			g.value += players[e.Player].Rating(e.Role).Value
			g.mask.set(e.Player)
		}
		groups = append(groups, g)

		// advance to the next combination
		k := n - 1
		for k >= 0 && idx[k] == len(pool)-n+k {
			k--
		}
		if k < 0 {
			break
		}
		idx[k]++
		for j := k + 1; j < n; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].weight > groups[j].weight
	})
	return groups
}
