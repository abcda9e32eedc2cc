// Package roster reads and writes lobby rosters as YAML files.
//
//	players:
//	  - id: p1
//	    name: Ana
//	    flex: false
//	    preferences: [tank, "", support]
//	    last_played: 2026-01-02T15:04:05Z
//	    ratings:
//	      tank: {value: 2650, deviation: 120, volatility: 0.06}
//
// An empty preference keeps its rank as an absent slot. A rating with only a
// value is seeded with the administrator deviation.
package roster

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/mixer/internal/domain/player"
	"github.com/okian/mixer/internal/domain/rating"
	"github.com/okian/mixer/internal/domain/role"
)

type fileRoster struct {
	Players []filePlayer `koanf:"players"`
}

type filePlayer struct {
	ID          string                   `koanf:"id"`
	Name        string                   `koanf:"name"`
	Flex        bool                     `koanf:"flex"`
	Preferences []string                 `koanf:"preferences"`
	LastPlayed  string                   `koanf:"last_played"`
	Ratings     map[string]rating.Rating `koanf:"ratings"`
}

// Load reads the roster at path.
func Load(ctx context.Context, path string) ([]player.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadRoster, path, err)
	}
	var f fileRoster
	if err := k.UnmarshalWithConf("", &f, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadRoster, path, err)
	}

	players := make([]player.Player, 0, len(f.Players))
	seen := make(map[string]bool, len(f.Players))
	for i, fp := range f.Players {
		p, err := fp.toPlayer()
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrInvalidRoster, i, err)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("%w: entry %d: duplicate id %s", ErrInvalidRoster, i, p.ID)
		}
		seen[p.ID] = true
		players = append(players, p)
	}
	return players, nil
}

func (fp filePlayer) toPlayer() (player.Player, error) {
	p := player.Player{
		ID:   strings.TrimSpace(fp.ID),
		Name: fp.Name,
		Flex: fp.Flex,
	}

	for _, tag := range fp.Preferences {
		if strings.TrimSpace(tag) == "" {
			p.Preferences = append(p.Preferences, 0)
			continue
		}
		r, err := role.Parse(tag)
		if err != nil {
			return p, err
		}
		p.Preferences = append(p.Preferences, r)
	}

	if fp.LastPlayed != "" {
		ts, err := time.Parse(time.RFC3339, fp.LastPlayed)
		if err != nil {
			return p, fmt.Errorf("last_played: %w", err)
		}
		p.LastPlayed = &ts
	}

	if len(fp.Ratings) > 0 {
		p.Ratings = make(map[role.Role]rating.Rating, len(fp.Ratings))
	}
	for tag, rt := range fp.Ratings {
		r, err := role.Parse(tag)
		if err != nil {
			return p, err
		}
		if rt.Deviation == 0 && rt.Volatility == 0 {
			seeded, err := rating.Seed(rt.Value)
			if err != nil {
				return p, fmt.Errorf("rating %s: %w", tag, err)
			}
			rt = seeded
		}
		p.Ratings[r] = rt
	}

	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// Save writes players to path in the format Load reads.
func Save(ctx context.Context, path string, players []player.Player) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries := make([]any, 0, len(players))
	for i := range players {
		entries = append(entries, toEntry(&players[i]))
	}
	out, err := yaml.Parser().Marshal(map[string]any{"players": entries})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSaveRoster, err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil { //nolint:gosec // roster files are not secret
		return fmt.Errorf("%w: %s: %w", ErrSaveRoster, path, err)
	}
	return nil
}

func toEntry(p *player.Player) map[string]any {
	e := map[string]any{
		"id":   p.ID,
		"flex": p.Flex,
	}
	if p.Name != "" {
		e["name"] = p.Name
	}
	if len(p.Preferences) > 0 {
		prefs := make([]any, len(p.Preferences))
		for i, r := range p.Preferences {
			prefs[i] = r.String()
		}
		e["preferences"] = prefs
	}
	if p.LastPlayed != nil {
		e["last_played"] = p.LastPlayed.UTC().Format(time.RFC3339)
	}
	if len(p.Ratings) > 0 {
		ratings := make(map[string]any, len(p.Ratings))
		for r, rt := range p.Ratings {
			ratings[r.String()] = map[string]any{
				"value":      rt.Value,
				"deviation":  rt.Deviation,
				"volatility": rt.Volatility,
			}
		}
		e["ratings"] = ratings
	}
	return e
}
