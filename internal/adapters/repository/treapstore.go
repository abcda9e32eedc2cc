package repository

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/mixer/internal/domain/rating"
	"github.com/okian/mixer/internal/domain/role"
	"github.com/okian/mixer/pkg/metrics"
)

// Treap-based, in-memory Store implementation with one tree per role.
//
// Ordering: value DESC, then playerID ASC (deterministic).
// "less" means ranks earlier, so in-order traversal yields the ladder from
// best to worst. Subtree sizes give ranks in O(log n).

type node struct {
	id    string
	value float64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aValue, aID) should appear before (bValue, bID).
func less(aValue float64, aID string, bValue float64, bID string) bool {
	if aValue != bValue {
		return aValue > bValue
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, value float64, prio uint64) *node {
	if n == nil {
		return &node{id: id, value: value, prio: prio, size: 1}
	}
	if less(value, id, n.value, n.id) {
		n.left = insert(n.left, id, value, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, value, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, value float64) *node {
	if n == nil {
		return nil
	}
	switch {
	case value == n.value && id == n.id:
		// Rotate the higher priority child up until n is a leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, value)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, value)
		}
	case less(value, id, n.value, n.id):
		n.left = deleteNode(n.left, id, value)
	default:
		n.right = deleteNode(n.right, id, value)
	}
	fix(n)
	return n
}

// countAbove returns how many nodes hold a value strictly greater than v.
func countAbove(n *node, v float64) int {
	count := 0
	for n != nil {
		if n.value > v {
			count += 1 + nsize(n.left)
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// collectTopN appends up to limit nodes in ladder order.
func collectTopN(n *node, limit int, out *[]*node) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n)
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

type ladder struct {
	root *node
	byID map[string]rating.Rating
}

// TreapStore is a Store backed by one treap per role.
type TreapStore struct {
	mu      sync.RWMutex
	ladders map[role.Role]*ladder
	rng     *rand.Rand
}

// NewTreapStore constructs an empty store.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		ladders: make(map[role.Role]*ladder, role.Count),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		seed := uint64(time.Now().UnixNano()) //nolint:gosec // tree balance only
		WithSeed(seed)(s)
	}
	for _, r := range role.All() {
		s.ladders[r] = &ladder{byID: make(map[string]rating.Rating)}
	}
	return s
}

func (s *TreapStore) ladder(r role.Role) (*ladder, error) {
	l, ok := s.ladders[r]
	if !ok {
		return nil, fmt.Errorf("%w: %d", role.ErrUnknownRole, r)
	}
	return l, nil
}

// Set implements Store.Set in O(log n) expected time.
func (s *TreapStore) Set(ctx context.Context, r role.Role, playerID string, rt rating.Rating) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if math.IsNaN(rt.Value) || math.IsInf(rt.Value, 0) {
		metrics.RecordErrorByComponent("repository", "invalid_rating")
		return fmt.Errorf("%w: player %s", ErrInvalidRating, playerID)
	}

	s.mu.Lock()
	l, err := s.ladder(r)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if old, ok := l.byID[playerID]; ok {
		l.root = deleteNode(l.root, playerID, old.Value)
	}
	l.byID[playerID] = rt
	l.root = insert(l.root, playerID, rt.Value, s.rng.Uint64())
	size := len(l.byID)
	s.mu.Unlock()

	metrics.UpdateLadderSize(r.String(), size)
	return nil
}

// Rank returns the player's current row in O(log n).
func (s *TreapStore) Rank(_ context.Context, r role.Role, playerID string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordLadderQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	l, err := s.ladder(r)
	if err != nil {
		return Entry{}, err
	}
	rt, ok := l.byID[playerID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, fmt.Errorf("%w: %s in %s", ErrNotFound, playerID, r)
	}
	return Entry{
		Rank:     countAbove(l.root, rt.Value) + 1,
		PlayerID: playerID,
		Role:     r,
		Rating:   rt,
	}, nil
}

// TopN returns the best n rows of a ladder.
func (s *TreapStore) TopN(_ context.Context, r role.Role, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordLadderQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	l, err := s.ladder(r)
	if err != nil {
		return nil, err
	}
	nodes := make([]*node, 0, min(n, len(l.byID)))
	collectTopN(l.root, n, &nodes)

	out := make([]Entry, len(nodes))
	for i, nd := range nodes {
		rank := i + 1
		if i > 0 && nd.value == nodes[i-1].value {
			rank = out[i-1].Rank
		}
		out[i] = Entry{Rank: rank, PlayerID: nd.id, Role: r, Rating: l.byID[nd.id]}
	}
	return out, nil
}

// Count returns the number of players rated in r.
func (s *TreapStore) Count(_ context.Context, r role.Role) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if l, ok := s.ladders[r]; ok {
		return len(l.byID)
	}
	return 0
}
