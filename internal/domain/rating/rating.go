// Package rating holds the per-role skill rating value and the Glicko-2
// update used after every reported match.
package rating

import (
	"fmt"
	"math"
)

// Default rating parameters. Ratings are centred on 2500 rather than the
// standard Glicko-2 midpoint of 1500.
const (
	DefaultValue      = 2500.0
	DefaultDeviation  = 300.0
	DefaultVolatility = 0.06

	// SeedDeviation is used for ratings set by an administrator.
	SeedDeviation = 125.0
	MinSeedValue  = 1.0
	MaxSeedValue  = 5000.0
)

// Match scores from the point of view of the rated side.
const (
	ScoreWin  = 1.0
	ScoreDraw = 0.5
	ScoreLoss = 0.0
)

// Rating is a Glicko-2 skill estimate for one player in one role.
type Rating struct {
	Value      float64 `json:"value" koanf:"value"`
	Deviation  float64 `json:"deviation" koanf:"deviation"`
	Volatility float64 `json:"volatility" koanf:"volatility"`
}

// Default returns the rating assigned to players without history.
func Default() Rating {
	return Rating{Value: DefaultValue, Deviation: DefaultDeviation, Volatility: DefaultVolatility}
}

// Zero returns the additive identity, used for unfilled slots.
func Zero() Rating {
	return Rating{}
}

// Seed returns a rating pinned by hand to value with a tight deviation.
func Seed(value float64) (Rating, error) {
	if math.IsNaN(value) || value < MinSeedValue || value > MaxSeedValue {
		return Rating{}, fmt.Errorf("%w: %v not in [%v, %v]", ErrValueOutOfRange, value, MinSeedValue, MaxSeedValue)
	}
	return Rating{Value: value, Deviation: SeedDeviation, Volatility: DefaultVolatility}, nil
}

// Add sums two ratings component-wise.
func (r Rating) Add(o Rating) Rating {
	return Rating{
		Value:      r.Value + o.Value,
		Deviation:  r.Deviation + o.Deviation,
		Volatility: r.Volatility + o.Volatility,
	}
}

// Div divides every component by n. Dividing by zero yields Zero.
func (r Rating) Div(n float64) Rating {
	if n == 0 {
		return Zero()
	}
	return Rating{
		Value:      r.Value / n,
		Deviation:  r.Deviation / n,
		Volatility: r.Volatility / n,
	}
}

// Sum adds all ratings together.
func Sum(rs ...Rating) Rating {
	total := Zero()
	for _, r := range rs {
		total = total.Add(r)
	}
	return total
}

// validate rejects ratings the Glicko-2 solver cannot work with.
func (r Rating) validate() error {
	switch {
	case math.IsNaN(r.Value) || math.IsInf(r.Value, 0):
		return fmt.Errorf("%w: value %v", ErrInvalidRating, r.Value)
	case !(r.Deviation > 0) || math.IsInf(r.Deviation, 0):
		return fmt.Errorf("%w: deviation %v", ErrInvalidRating, r.Deviation)
	case !(r.Volatility > 0) || math.IsInf(r.Volatility, 0):
		return fmt.Errorf("%w: volatility %v", ErrInvalidRating, r.Volatility)
	}
	return nil
}
