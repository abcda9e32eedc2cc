package worker

import "errors"

// Sentinel kinds for worker errors.
var (
	ErrMixerPanic = errors.New("mixer panicked")
)
