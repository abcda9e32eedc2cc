// Package rostergen generates synthetic rosters for load tests and demos.
package rostergen

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/okian/mixer/internal/domain/player"
	"github.com/okian/mixer/internal/domain/rating"
	"github.com/okian/mixer/internal/domain/role"
	"github.com/okian/mixer/pkg/logger"
)

// Defaults.
const (
	DefaultPlayers   = 12
	DefaultFlexRatio = 0.2
	DefaultMaxWait   = 2 * time.Hour
)

// Skill tiers as rating centre and spread.
type tier struct {
	centre, spread float64
}

var tiers = []tier{ //nolint:gochecknoglobals // fixed distribution
	{2500, 200}, // average, most common
	{2500, 200},
	{2900, 150}, // strong
	{2100, 150}, // weak
	{3400, 200}, // elite, rare
	{1600, 200}, // beginner, rare
	{2700, 100},
	{2300, 100},
}

const (
	neverPlayedChance = 0.1
	absentSlotChance  = 0.15
	minDeviation      = 60.0
	maxDeviation      = 300.0
)

// ErrNoPlayers is returned when the requested roster is empty.
var ErrNoPlayers = errors.New("roster size must be positive")

// Generate builds a roster. The same seed and options always produce the
// same roster.
func Generate(ctx context.Context, opts ...Option) ([]player.Player, error) {
	cfg := Config{
		Players:   DefaultPlayers,
		FlexRatio: DefaultFlexRatio,
		MaxWait:   DefaultMaxWait,
		Seed:      time.Now().UnixNano(),
		Now:       time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Players <= 0 {
		return nil, ErrNoPlayers
	}

	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // reproducible test data
	players := make([]player.Player, cfg.Players)
	for i := range players {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generate player %d: %w", i, err)
		}
		p, err := generatePlayer(rng, &cfg, i)
		if err != nil {
			return nil, err
		}
		players[i] = p
	}

	logger.Get().Debug(ctx, "roster generated",
		logger.Int("players", cfg.Players),
		logger.Float64("flex_ratio", cfg.FlexRatio),
		logger.Any("seed", cfg.Seed),
	)
	return players, nil
}

func generatePlayer(rng *rand.Rand, cfg *Config, index int) (player.Player, error) {
	id, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		return player.Player{}, fmt.Errorf("player id: %w", err)
	}
	p := player.Player{
		ID:   id.String(),
		Name: fmt.Sprintf("player-%03d", index+1),
		Flex: rng.Float64() < cfg.FlexRatio,
	}

	if rng.Float64() >= neverPlayedChance {
		wait := time.Duration(rng.Int63n(int64(cfg.MaxWait) + 1))
		played := cfg.Now.Add(-wait)
		p.LastPlayed = &played
	}

	rated := role.All()
	if !p.Flex {
		p.Preferences = preferences(rng)
		rated = rated[:0]
		for _, r := range p.Preferences {
			if r.Valid() {
				rated = append(rated, r)
			}
		}
	}

	t := tiers[rng.Intn(len(tiers))]
	p.Ratings = make(map[role.Role]rating.Rating, len(rated))
	for _, r := range rated {
		value := t.centre + rng.NormFloat64()*t.spread
		value = math.Round(min(max(value, rating.MinSeedValue), rating.MaxSeedValue))
		p.Ratings[r] = rating.Rating{
			Value:      value,
			Deviation:  math.Round(minDeviation + rng.Float64()*(maxDeviation-minDeviation)),
			Volatility: rating.DefaultVolatility,
		}
	}
	return p, nil
}

// preferences returns one to three distinct roles in random order. A middle
// rank is occasionally left empty.
func preferences(rng *rand.Rand) []role.Role {
	all := role.All()
	rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	prefs := append([]role.Role(nil), all[:1+rng.Intn(len(all))]...)
	if len(prefs) == player.MaxPreferences && rng.Float64() < absentSlotChance {
		prefs[1] = 0
	}
	return prefs
}
