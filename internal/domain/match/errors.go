package match

import "errors"

// Sentinel kinds for settlement errors.
var (
	ErrUnknownOutcome   = errors.New("unknown match outcome")
	ErrIncompleteTeam   = errors.New("teams must be fully seated")
	ErrOverlappingTeams = errors.New("player seated on both teams")
)
