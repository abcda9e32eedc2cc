package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrInvalidRoster  = errors.New("invalid roster")
	ErrNotStarted     = errors.New("service not started")
	ErrMatchNotFound  = errors.New("match not found")
	ErrMatchExpired   = errors.New("match expired")
	ErrAlreadySettled = errors.New("match already settled")
)
