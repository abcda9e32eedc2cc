package repository

import "errors"

// Sentinel kinds for ladder errors.
var (
	ErrNotFound      = errors.New("player not on ladder")
	ErrInvalidLimit  = errors.New("invalid ladder limit")
	ErrInvalidRating = errors.New("rating value is not finite")
)
