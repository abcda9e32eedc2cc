// Package config defines mixer configuration and its loading hooks.
package config

import (
	"context"
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// WorkerCount sets the number of lobby workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory mix queue.
	QueueSize int `koanf:"queue_size"`

	// SettledCacheSize bounds how many settled match IDs are remembered.
	SettledCacheSize int `koanf:"settled_cache_size"`

	// AcceptanceThreshold is the skill gap under which a composition is
	// accepted without searching further.
	AcceptanceThreshold float64 `koanf:"acceptance_threshold"`

	// SearchBudget caps explored search nodes. Zero means unlimited.
	SearchBudget int `koanf:"search_budget"`

	RatingScale         float64 `koanf:"rating_scale"`
	RatingTau           float64 `koanf:"rating_tau"`
	RatingTolerance     float64 `koanf:"rating_tolerance"`
	RatingMaxIterations int     `koanf:"rating_max_iterations"`

	// SlotTemplate lists the role of every slot on one team.
	SlotTemplate []string `koanf:"slot_template"`

	// MatchTTL is how long a balanced match waits for its outcome.
	MatchTTL time.Duration `koanf:"match_ttl"`

	// MetricsNamespace and MetricsSubsystem prefix every metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsLabels are key=value pairs attached to every metric.
	MetricsLabels []string `koanf:"metrics_labels"`

	// RosterPath and MetricsOut are CLI defaults.
	RosterPath string `koanf:"roster_path"`
	MetricsOut string `koanf:"metrics_out"`
}

// New returns a Config holding the defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		WorkerCount:         runtime.NumCPU(),
		QueueSize:           1024,
		SettledCacheSize:    50_000,
		AcceptanceThreshold: 300,
		SearchBudget:        5_000_000,
		RatingScale:         5.0 / 3.0,
		RatingTau:           0.2,
		RatingTolerance:     1e-6,
		RatingMaxIterations: 100,
		SlotTemplate:        []string{"tank", "dps", "dps", "support", "support"},
		MatchTTL:            30 * time.Minute,
		MetricsNamespace:    "mixer",
		MetricsSubsystem:    "balancer",
	}
}
