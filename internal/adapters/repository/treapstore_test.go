package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/okian/mixer/internal/domain/rating"
	"github.com/okian/mixer/internal/domain/role"
)

func rated(v float64) rating.Rating {
	return rating.Rating{Value: v, Deviation: rating.DefaultDeviation, Volatility: rating.DefaultVolatility}
}

func TestTreapStore_BasicOperations(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(WithSeed(1))

	if count := store.Count(ctx, role.Tank); count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}

	if err := store.Set(ctx, role.Tank, "p1", rated(2600)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count := store.Count(ctx, role.Tank); count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}
	if count := store.Count(ctx, role.DPS); count != 0 {
		t.Errorf("ladders must be independent, dps count %d", count)
	}

	entry, err := store.Rank(ctx, role.Tank, "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Rank != 1 || entry.Rating.Value != 2600 || entry.Role != role.Tank {
		t.Errorf("unexpected entry %+v", entry)
	}

	entries, err := store.TopN(ctx, role.Tank, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].PlayerID != "p1" {
		t.Errorf("unexpected top entries %+v", entries)
	}
}

func TestTreapStore_SetReplaces(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(WithSeed(2))

	for i, v := range []float64{2400, 2500, 2600} {
		if err := store.Set(ctx, role.DPS, fmt.Sprintf("p%d", i), rated(v)); err != nil {
			t.Fatal(err)
		}
	}

	// A lower value replaces a higher one, unlike a best-score board.
	if err := store.Set(ctx, role.DPS, "p2", rated(2300)); err != nil {
		t.Fatal(err)
	}
	if store.Count(ctx, role.DPS) != 3 {
		t.Errorf("replacement must not add a row")
	}
	entry, err := store.Rank(ctx, role.DPS, "p2")
	if err != nil {
		t.Fatal(err)
	}
	if entry.Rank != 3 {
		t.Errorf("expected rank 3 after drop, got %d", entry.Rank)
	}

	top, err := store.TopN(ctx, role.DPS, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"p1", "p0", "p2"}
	for i, e := range top {
		if e.PlayerID != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], e.PlayerID)
		}
	}
}

func TestTreapStore_Ties(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(WithSeed(3))

	for _, id := range []string{"c", "a", "b"} {
		if err := store.Set(ctx, role.Support, id, rated(2500)); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Set(ctx, role.Support, "z", rated(2000)); err != nil {
		t.Fatal(err)
	}

	top, err := store.TopN(ctx, role.Support, 10)
	if err != nil {
		t.Fatal(err)
	}
	wantIDs := []string{"a", "b", "c", "z"}
	wantRanks := []int{1, 1, 1, 4}
	for i, e := range top {
		if e.PlayerID != wantIDs[i] || e.Rank != wantRanks[i] {
			t.Errorf("position %d: got %s rank %d, want %s rank %d", i, e.PlayerID, e.Rank, wantIDs[i], wantRanks[i])
		}
	}

	entry, err := store.Rank(ctx, role.Support, "z")
	if err != nil {
		t.Fatal(err)
	}
	if entry.Rank != 4 {
		t.Errorf("expected rank 4 behind a three-way tie, got %d", entry.Rank)
	}
}

func TestTreapStore_Errors(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore()

	if _, err := store.Rank(ctx, role.Tank, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.TopN(ctx, role.Tank, 0); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
	if err := store.Set(ctx, role.Tank, "p", rated(math.NaN())); !errors.Is(err, ErrInvalidRating) {
		t.Errorf("expected ErrInvalidRating, got %v", err)
	}
	if err := store.Set(ctx, role.Tank, "p", rated(math.Inf(1))); !errors.Is(err, ErrInvalidRating) {
		t.Errorf("expected ErrInvalidRating, got %v", err)
	}
	if err := store.Set(ctx, role.Role(0), "p", rated(2500)); !errors.Is(err, role.ErrUnknownRole) {
		t.Errorf("expected ErrUnknownRole, got %v", err)
	}
	if _, err := store.TopN(ctx, role.Role(9), 1); !errors.Is(err, role.ErrUnknownRole) {
		t.Errorf("expected ErrUnknownRole, got %v", err)
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if err := store.Set(cctx, role.Tank, "p", rated(2500)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestTreapStore_MatchesSortedOrder(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore(WithSeed(4))
	rng := rand.New(rand.NewSource(42))
	values := map[string]float64{}

	for i := 0; i < 2000; i++ {
		id := fmt.Sprintf("p%03d", rng.Intn(300))
		v := float64(2000 + rng.Intn(100)*10)
		values[id] = v
		if err := store.Set(ctx, role.Tank, id, rated(v)); err != nil {
			t.Fatal(err)
		}
	}

	ids := make([]string, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if values[ids[i]] != values[ids[j]] {
			return values[ids[i]] > values[ids[j]]
		}
		return ids[i] < ids[j]
	})

	if got := store.Count(ctx, role.Tank); got != len(ids) {
		t.Fatalf("expected %d players, got %d", len(ids), got)
	}
	top, err := store.TopN(ctx, role.Tank, len(ids)+5)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != len(ids) {
		t.Fatalf("expected %d rows, got %d", len(ids), len(top))
	}
	for i, e := range top {
		if e.PlayerID != ids[i] {
			t.Fatalf("position %d: expected %s, got %s", i, ids[i], e.PlayerID)
		}
		r, err := store.Rank(ctx, role.Tank, e.PlayerID)
		if err != nil {
			t.Fatal(err)
		}
		if r.Rank != e.Rank {
			t.Fatalf("%s: Rank says %d, TopN says %d", e.PlayerID, r.Rank, e.Rank)
		}
	}
}

func TestTreapStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewTreapStore()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := fmt.Sprintf("g%d-p%d", g, i%50)
				if err := store.Set(ctx, role.All()[i%role.Count], id, rated(float64(2000+i))); err != nil {
					t.Error(err)
					return
				}
				_, _ = store.TopN(ctx, role.DPS, 5)
			}
		}(g)
	}
	wg.Wait()

	total := 0
	for _, r := range role.All() {
		total += store.Count(ctx, r)
	}
	if total == 0 {
		t.Error("expected players on the ladders")
	}
}

func BenchmarkTreapStore_Set(b *testing.B) {
	ctx := context.Background()
	store := NewTreapStore(WithSeed(5))
	rng := rand.New(rand.NewSource(5))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := fmt.Sprintf("p%d", rng.Intn(100000))
		_ = store.Set(ctx, role.DPS, id, rated(float64(1+rng.Intn(5000))))
	}
}
