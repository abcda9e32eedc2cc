package team

import "errors"

// Sentinel kinds for team errors.
var (
	ErrInvalidTemplate = errors.New("invalid slot template")
)
