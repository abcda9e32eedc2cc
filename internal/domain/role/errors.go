package role

import "errors"

// Sentinel kinds for role conversion errors.
var (
	ErrUnknownRole = errors.New("unknown role")
)
