// Package player describes the queued player snapshot consumed by the
// balancer and derives per-role eagerness weights from it.
package player

import (
	"fmt"
	"math"
	"time"

	"github.com/okian/mixer/internal/domain/rating"
	"github.com/okian/mixer/internal/domain/role"
)

// Priority model constants.
const (
	MaxPreferences = 3

	basePriorityPoints = 100.0
	waitStepMinutes    = 5.0
	waitExponent       = 1.5
	flexMultiplier     = 1.5
)

// Player is an immutable snapshot of a queued player. The engine never
// mutates it; rating changes are returned as new values.
type Player struct {
	ID      string                      `json:"id"`
	Name    string                      `json:"name,omitempty"`
	Ratings map[role.Role]rating.Rating `json:"ratings"`
	Flex    bool                        `json:"flex"`
	// Preferences is ranked best first. Zero entries are absent slots and
	// keep the positions of the roles after them.
	Preferences []role.Role `json:"preferences,omitempty"`
	LastPlayed  *time.Time  `json:"last_played,omitempty"`
}

// Rating returns the player's rating for r, or the default rating when the
// player has none recorded.
func (p *Player) Rating(r role.Role) rating.Rating {
	if rt, ok := p.Ratings[r]; ok {
		return rt
	}
	return rating.Default()
}

// Eligible reports whether the player may be seated in r.
func (p *Player) Eligible(r role.Role) bool {
	if !r.Valid() {
		return false
	}
	if p.Flex {
		return true
	}
	for _, pref := range p.Preferences {
		if pref == r {
			return true
		}
	}
	return false
}

// Clone returns a copy sharing no maps, slices or pointers with p. Nil
// fields stay nil.
func (p *Player) Clone() Player {
	c := *p
	if p.Ratings != nil {
		c.Ratings = make(map[role.Role]rating.Rating, len(p.Ratings))
		for r, rt := range p.Ratings {
			c.Ratings[r] = rt
		}
	}
	if p.Preferences != nil {
		c.Preferences = append([]role.Role(nil), p.Preferences...)
	}
	if p.LastPlayed != nil {
		last := *p.LastPlayed
		c.LastPlayed = &last
	}
	return c
}

// Validate checks the snapshot for inconsistencies a caller could persist.
func (p *Player) Validate() error {
	if p.ID == "" {
		return ErrMissingID
	}
	if len(p.Preferences) > MaxPreferences {
		return fmt.Errorf("%w: player %s has %d", ErrTooManyPreferences, p.ID, len(p.Preferences))
	}
	seen := make(map[role.Role]bool, len(p.Preferences))
	for _, pref := range p.Preferences {
		if pref == 0 {
			continue
		}
		if !pref.Valid() {
			return fmt.Errorf("%w: player %s preference %d", role.ErrUnknownRole, p.ID, pref)
		}
		if seen[pref] {
			return fmt.Errorf("%w: player %s role %s", ErrDuplicatePreference, p.ID, pref)
		}
		seen[pref] = true
	}
	for r := range p.Ratings {
		if !r.Valid() {
			return fmt.Errorf("%w: player %s rating key %d", role.ErrUnknownRole, p.ID, r)
		}
	}
	return nil
}

// WaitMinutes returns the minutes elapsed since the player's last game, or
// zero when they have never played or the timestamp lies in the future.
func WaitMinutes(p *Player, now time.Time) float64 {
	if p.LastPlayed == nil {
		return 0
	}
	wait := now.Sub(*p.LastPlayed).Minutes()
	if wait < 0 {
		return 0
	}
	return wait
}

// BasePriority returns the player's weight for every role they are a
// candidate for. Roles without an entry must not be assigned to the player.
func BasePriority(p *Player, now time.Time) map[role.Role]float64 {
	points := basePriorityPoints + math.Pow(WaitMinutes(p, now)/waitStepMinutes, waitExponent)

	if p.Flex {
		priorities := make(map[role.Role]float64, role.Count)
		for _, r := range role.All() {
			priorities[r] = flexMultiplier * points / role.Count
		}
		return priorities
	}

	priorities := make(map[role.Role]float64, len(p.Preferences))
	for i, r := range p.Preferences {
		if !r.Valid() {
			continue
		}
		if _, ok := priorities[r]; ok {
			continue
		}
		priorities[r] = points / float64(i+1)
	}
	return priorities
}
