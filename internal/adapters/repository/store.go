// Package repository keeps per-role rating ladders of every player the
// mixer has seen.
package repository

import (
	"context"

	"github.com/okian/mixer/internal/domain/rating"
	"github.com/okian/mixer/internal/domain/role"
)

// Entry is one ladder row. Players with equal values share a rank and the
// next distinct value skips past them.
type Entry struct {
	Rank     int           `json:"rank"`
	PlayerID string        `json:"player_id"`
	Role     role.Role     `json:"role"`
	Rating   rating.Rating `json:"rating"`
}

// Store provides read/write access to the ladders.
type Store interface {
	// Set records the current rating of a player in one role, replacing any
	// earlier value whether higher or lower.
	Set(ctx context.Context, r role.Role, playerID string, rt rating.Rating) error

	// Rank returns the player's row in the role's ladder.
	// Returns ErrNotFound if the player has no rating in that role.
	Rank(ctx context.Context, r role.Role, playerID string) (Entry, error)

	// TopN returns up to n rows ordered by rating value desc, then player ID.
	TopN(ctx context.Context, r role.Role, n int) ([]Entry, error)

	// Count returns the number of players rated in the role.
	Count(ctx context.Context, r role.Role) int
}
