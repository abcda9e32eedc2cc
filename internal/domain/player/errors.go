package player

import "errors"

// Sentinel kinds for player snapshot errors.
var (
	ErrMissingID           = errors.New("player id is required")
	ErrTooManyPreferences  = errors.New("too many role preferences")
	ErrDuplicatePreference = errors.New("role preference listed twice")
)
