// Package match settles a reported outcome into per-player rating updates.
package match

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/mixer/internal/domain/player"
	"github.com/okian/mixer/internal/domain/rating"
	"github.com/okian/mixer/internal/domain/role"
	"github.com/okian/mixer/internal/domain/team"
)

// Outcome is the reported result of a match.
type Outcome int

// Known outcomes.
const (
	TeamAWin Outcome = iota + 1
	Draw
	TeamBWin
)

// ParseOutcome accepts team_a, draw and team_b as well as the legacy
// win_team1 and win_team2 identifiers.
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "team_a", "a", "win_team1":
		return TeamAWin, nil
	case "draw":
		return Draw, nil
	case "team_b", "b", "win_team2":
		return TeamBWin, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOutcome, s)
}

func (o Outcome) String() string {
	switch o {
	case TeamAWin:
		return "team_a"
	case Draw:
		return "draw"
	case TeamBWin:
		return "team_b"
	}
	return "unknown"
}

// Score returns Team A's score for the outcome.
func (o Outcome) Score() (float64, error) {
	switch o {
	case TeamAWin:
		return rating.ScoreWin, nil
	case Draw:
		return rating.ScoreDraw, nil
	case TeamBWin:
		return rating.ScoreLoss, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnknownOutcome, int(o))
}

// Side identifies a team within a match.
type Side string

// Sides.
const (
	SideA Side = "a"
	SideB Side = "b"
)

// Updater rates one side of a game against an opponent rating.
type Updater interface {
	Update(self, opponent rating.Rating, score float64) (rating.Rating, error)
}

// RatingUpdate is one new rating for the caller to persist.
type RatingUpdate struct {
	PlayerID string        `json:"player_id"`
	Role     role.Role     `json:"role"`
	Side     Side          `json:"side"`
	Before   rating.Rating `json:"before"`
	After    rating.Rating `json:"after"`
	PlayedAt time.Time     `json:"played_at"`
}

// Delta returns the change in rating value.
func (u RatingUpdate) Delta() float64 {
	return u.After.Value - u.Before.Value
}

// Settle rates every seated player against the opposing team's average
// rating. Both averages are taken before any update. Either every seat is
// rated or no update is returned.
func Settle(updater Updater, players []player.Player, a, b *team.Team, outcome Outcome, playedAt time.Time) ([]RatingUpdate, error) {
	score, err := outcome.Score()
	if err != nil {
		return nil, err
	}
	if a == nil || b == nil || !a.Full() || !b.Full() {
		return nil, ErrIncompleteTeam
	}
	for _, s := range a.Members() {
		if b.Contains(s.Player) {
			return nil, fmt.Errorf("%w: %s", ErrOverlappingTeams, players[s.Player].ID)
		}
	}

	avgA := a.AverageRating(players)
	avgB := b.AverageRating(players)

	updates := make([]RatingUpdate, 0, a.Size()+b.Size())
	rate := func(tm *team.Team, side Side, opponent rating.Rating, score float64) error {
		for _, s := range tm.Members() {
			p := &players[s.Player]
			before := p.Rating(s.Role)
			after, err := updater.Update(before, opponent, score)
			if err != nil {
				return fmt.Errorf("rate %s as %s: %w", p.ID, s.Role, err)
			}
			updates = append(updates, RatingUpdate{
				PlayerID: p.ID,
				Role:     s.Role,
				Side:     side,
				Before:   before,
				After:    after,
				PlayedAt: playedAt,
			})
		}
		return nil
	}

	if err := rate(a, SideA, avgB, score); err != nil {
		return nil, err
	}
	if err := rate(b, SideB, avgA, rating.ScoreWin-score); err != nil {
		return nil, err
	}
	return updates, nil
}
