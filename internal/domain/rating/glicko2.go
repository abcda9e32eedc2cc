package rating

import (
	"fmt"
	"math"
)

// Glicko-2 constants.
const (
	glickoScale    = 173.7178
	glickoMidpoint = 1500.0

	defaultTau           = 0.2
	defaultTolerance     = 1e-6
	defaultMaxIterations = 100

	// DefaultScale maps the 2500 midpoint onto 1500.
	DefaultScale = 5.0 / 3.0
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithTau sets the system constant constraining volatility change.
func WithTau(tau float64) Option {
	return func(e *Engine) {
		if tau > 0 {
			e.tau = tau
		}
	}
}

// WithTolerance sets the convergence tolerance of the volatility solver.
func WithTolerance(tolerance float64) Option {
	return func(e *Engine) {
		if tolerance > 0 {
			e.tolerance = tolerance
		}
	}
}

// WithMaxIterations caps both the bracket search and the root iteration.
func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

// WithScale sets the factor mapping stored values onto the 1500 midpoint.
func WithScale(scale float64) Option {
	return func(e *Engine) {
		if scale > 0 {
			e.scale = scale
		}
	}
}

// Engine performs single-period Glicko-2 updates. It holds no state between
// calls and is safe for concurrent use.
type Engine struct {
	tau           float64
	tolerance     float64
	maxIterations int
	scale         float64
}

// NewEngine creates an Engine with the standard constants.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		tau:           defaultTau,
		tolerance:     defaultTolerance,
		maxIterations: defaultMaxIterations,
		scale:         DefaultScale,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = NewEngine()

// Update rates self after one game against opponent using the default
// constants and the given scale.
func Update(self, opponent Rating, score, scale float64) (Rating, error) {
	return defaultEngine.update(self, opponent, score, scale)
}

// Update rates self after one game against opponent with the engine's scale.
// score is self's result: ScoreWin, ScoreDraw or ScoreLoss.
func (e *Engine) Update(self, opponent Rating, score float64) (Rating, error) {
	return e.update(self, opponent, score, e.scale)
}

// Scale returns the engine's midpoint scale factor.
func (e *Engine) Scale() float64 {
	return e.scale
}

func (e *Engine) update(self, opponent Rating, score, scale float64) (Rating, error) {
	if err := self.validate(); err != nil {
		return Rating{}, err
	}
	if err := opponent.validate(); err != nil {
		return Rating{}, fmt.Errorf("opponent: %w", err)
	}
	if math.IsNaN(score) || score < ScoreLoss || score > ScoreWin {
		return Rating{}, fmt.Errorf("%w: %v", ErrInvalidScore, score)
	}
	if !(scale > 0) || math.IsInf(scale, 0) {
		return Rating{}, fmt.Errorf("%w: %v", ErrInvalidScale, scale)
	}

	mu := (self.Value/scale - glickoMidpoint) / glickoScale
	phi := self.Deviation / glickoScale
	muOpponent := (opponent.Value/scale - glickoMidpoint) / glickoScale
	phiOpponent := opponent.Deviation / glickoScale

	g := 1 / math.Sqrt(1+3*phiOpponent*phiOpponent/(math.Pi*math.Pi))
	expected := 1 / (1 + math.Exp(-g*(mu-muOpponent)))
	v := 1 / (g * g * expected * (1 - expected))
	delta := v * g * (score - expected)

	sigma, err := e.volatility(phi, v, delta, self.Volatility)
	if err != nil {
		return Rating{}, err
	}

	phiStar := math.Sqrt(phi*phi + sigma*sigma)
	phiPrime := 1 / math.Sqrt(1/(phiStar*phiStar)+1/v)
	muPrime := mu + phiPrime*phiPrime*g*(score-expected)

	return Rating{
		Value:      (glickoScale*muPrime + glickoMidpoint) * scale,
		Deviation:  glickoScale * phiPrime,
		Volatility: sigma,
	}, nil
}

// volatility solves for the new sigma with the Illinois variant of regula
// falsi. Both loops are bounded by maxIterations.
func (e *Engine) volatility(phi, v, delta, sigma float64) (float64, error) {
	a := math.Log(sigma * sigma)
	phi2 := phi * phi
	delta2 := delta * delta
	tau2 := e.tau * e.tau

	f := func(x float64) float64 {
		ex := math.Exp(x)
		d := phi2 + v + ex
		return ex*(delta2-phi2-v-ex)/(2*d*d) - (x-a)/tau2
	}

	lower := a
	var upper float64
	if delta2 > phi2+v {
		upper = math.Log(delta2 - phi2 - v)
	} else {
		k := 1
		for f(a-float64(k)*e.tau) < 0 {
			k++
			if k > e.maxIterations {
				return 0, fmt.Errorf("%w: no bracket after %d steps", ErrNonConvergence, e.maxIterations)
			}
		}
		upper = a - float64(k)*e.tau
	}

	fLower, fUpper := f(lower), f(upper)
	for i := 0; math.Abs(upper-lower) > e.tolerance; i++ {
		if i >= e.maxIterations {
			return 0, fmt.Errorf("%w: %d iterations, interval %g", ErrNonConvergence, e.maxIterations, math.Abs(upper-lower))
		}
		c := lower + (lower-upper)*fLower/(fUpper-fLower)
		fc := f(c)
		if math.IsNaN(c) || math.IsNaN(fc) {
			return 0, fmt.Errorf("%w: solver produced NaN", ErrNonConvergence)
		}
		if fc*fUpper <= 0 {
			lower, fLower = upper, fUpper
		} else {
			fLower /= 2
		}
		upper, fUpper = c, fc
	}

	return math.Exp(lower / 2), nil
}
