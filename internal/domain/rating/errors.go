package rating

import "errors"

// Sentinel kinds for rating errors.
var (
	// ErrNonConvergence means the volatility solver hit its iteration cap.
	ErrNonConvergence  = errors.New("glicko-2 volatility did not converge")
	ErrInvalidRating   = errors.New("invalid rating")
	ErrInvalidScore    = errors.New("score must be within [0, 1]")
	ErrInvalidScale    = errors.New("scale must be positive")
	ErrValueOutOfRange = errors.New("rating value out of range")
)
