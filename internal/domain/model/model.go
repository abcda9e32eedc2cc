// Package model contains payloads passed between the service, the queue and
// the workers.
package model

import (
	"encoding/json"
	"time"

	"github.com/okian/mixer/internal/domain/player"
	"github.com/okian/mixer/internal/domain/role"
	"github.com/okian/mixer/internal/domain/team"
)

// MixRequest asks for one lobby to be balanced.
type MixRequest struct {
	RequestID   string
	LobbyID     string
	Players     []player.Player
	SubmittedAt time.Time
}

// Match is a balanced composition waiting for, or past, its outcome. Team
// seats index into Players.
type Match struct {
	ID        string
	LobbyID   string
	Players   []player.Player
	TeamA     *team.Team
	TeamB     *team.Team
	Gap       float64
	Fair      bool
	Explored  int
	CreatedAt time.Time
}

// Assignment is one seated player.
type Assignment struct {
	PlayerID string    `json:"player_id"`
	Name     string    `json:"name,omitempty"`
	Role     role.Role `json:"role"`
	Rating   float64   `json:"rating"`
}

// Lineup returns the seated players of t in seat order.
func (m *Match) Lineup(t *team.Team) []Assignment {
	if t == nil {
		return nil
	}
	seats := t.Members()
	out := make([]Assignment, 0, len(seats))
	for _, s := range seats {
		p := &m.Players[s.Player]
		out = append(out, Assignment{
			PlayerID: p.ID,
			Name:     p.Name,
			Role:     s.Role,
			Rating:   p.Rating(s.Role).Value,
		})
	}
	return out
}

type matchJSON struct {
	ID        string       `json:"id"`
	LobbyID   string       `json:"lobby_id"`
	TeamA     []Assignment `json:"team_a"`
	TeamB     []Assignment `json:"team_b"`
	RatingA   float64      `json:"rating_a"`
	RatingB   float64      `json:"rating_b"`
	Gap       float64      `json:"gap"`
	Fair      bool         `json:"fair"`
	Explored  int          `json:"explored"`
	CreatedAt time.Time    `json:"created_at"`
}

// MarshalJSON renders the match as two lineups.
func (m *Match) MarshalJSON() ([]byte, error) {
	v := matchJSON{
		ID:        m.ID,
		LobbyID:   m.LobbyID,
		TeamA:     m.Lineup(m.TeamA),
		TeamB:     m.Lineup(m.TeamB),
		Gap:       m.Gap,
		Fair:      m.Fair,
		Explored:  m.Explored,
		CreatedAt: m.CreatedAt,
	}
	if m.TeamA != nil {
		v.RatingA = m.TeamA.FullRating(m.Players).Value
	}
	if m.TeamB != nil {
		v.RatingB = m.TeamB.FullRating(m.Players).Value
	}
	return json.Marshal(v)
}

// MixResult is what a worker delivers for a request.
type MixResult struct {
	RequestID string
	LobbyID   string
	Match     *Match
	Err       error
}
