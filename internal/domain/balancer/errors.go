package balancer

import (
	"errors"
	"fmt"
)

// Sentinel kinds for balancing errors.
var (
	// ErrNoFairComposition is the expected outcome for rosters that cannot
	// fill both teams.
	ErrNoFairComposition = errors.New("no fair composition found")
	// ErrSearchBudgetExceeded is reported as a kind of ErrNoFairComposition.
	ErrSearchBudgetExceeded = fmt.Errorf("search budget exceeded: %w", ErrNoFairComposition)
	ErrDuplicatePlayer      = errors.New("player listed twice in roster")
)
