package roster

import "errors"

// Sentinel kinds for roster file errors.
var (
	ErrLoadRoster    = errors.New("load roster failed")
	ErrInvalidRoster = errors.New("invalid roster")
	ErrSaveRoster    = errors.New("save roster failed")
)
