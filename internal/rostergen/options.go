package rostergen

import "time"

// Option configures Generate.
type Option func(*Config)

// Config controls the shape of a generated roster.
type Config struct {
	Players   int
	FlexRatio float64
	MaxWait   time.Duration
	Seed      int64
	Now       time.Time
}

// WithPlayers sets the roster size.
func WithPlayers(n int) Option {
	return func(c *Config) { c.Players = n }
}

// WithFlexRatio sets the share of flex players, clamped to [0, 1].
func WithFlexRatio(r float64) Option {
	return func(c *Config) {
		c.FlexRatio = min(max(r, 0), 1)
	}
}

// WithMaxWait bounds how long ago a player last played.
func WithMaxWait(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.MaxWait = d
		}
	}
}

// WithSeed fixes the random source so runs are reproducible.
func WithSeed(seed int64) Option {
	return func(c *Config) { c.Seed = seed }
}

// WithNow sets the reference time for last-played timestamps.
func WithNow(now time.Time) Option {
	return func(c *Config) {
		if !now.IsZero() {
			c.Now = now
		}
	}
}
