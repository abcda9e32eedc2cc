package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/prometheus/common/model"

	"github.com/okian/mixer/internal/domain/team"
)

// Environment names.
const (
	EnvPrefix = "MIXER_"
	EnvFile   = "MIXER_CONFIG"
)

// Load builds a Config by layering, from low to high precedence:
//  1. defaults (New(ctx))
//  2. the YAML file named by MIXER_CONFIG, if set
//  3. MIXER_* environment variables
func Load(ctx context.Context) (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(EnvFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// MIXER_QUEUE_SIZE -> queue_size. Keys stay flat to match the struct tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := New(ctx)
	// Decoding into a non-nil slice keeps trailing defaults.
	if k.Exists("slot_template") {
		cfg.SlotTemplate = nil
	}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.AcceptanceThreshold < 0:
		return fmt.Errorf("%w: acceptance_threshold must not be negative", ErrInvalidConfig)
	case c.SearchBudget < 0:
		return fmt.Errorf("%w: search_budget must not be negative", ErrInvalidConfig)
	case c.RatingScale <= 0:
		return fmt.Errorf("%w: rating_scale must be positive", ErrInvalidConfig)
	case c.RatingTau <= 0:
		return fmt.Errorf("%w: rating_tau must be positive", ErrInvalidConfig)
	case c.RatingTolerance <= 0:
		return fmt.Errorf("%w: rating_tolerance must be positive", ErrInvalidConfig)
	case c.RatingMaxIterations < 1:
		return fmt.Errorf("%w: rating_max_iterations must be positive", ErrInvalidConfig)
	case c.MatchTTL <= 0:
		return fmt.Errorf("%w: match_ttl must be positive", ErrInvalidConfig)
	}
	if _, err := c.Template(); err != nil {
		return fmt.Errorf("%w: slot_template: %w", ErrInvalidConfig, err)
	}
	if !model.LabelName(c.MetricsNamespace).IsValidLegacy() {
		return fmt.Errorf("%w: metrics_namespace %q", ErrInvalidConfig, c.MetricsNamespace)
	}
	if c.MetricsSubsystem != "" && !model.LabelName(c.MetricsSubsystem).IsValidLegacy() {
		return fmt.Errorf("%w: metrics_subsystem %q", ErrInvalidConfig, c.MetricsSubsystem)
	}
	if _, err := c.ConstLabels(); err != nil {
		return err
	}
	return nil
}

// ConstLabels parses MetricsLabels. Entries may hold several comma
// separated pairs.
func (c *Config) ConstLabels() (map[string]string, error) {
	labels := map[string]string{}
	for _, entry := range c.MetricsLabels {
		for _, pair := range strings.Split(entry, ",") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			key, value, ok := strings.Cut(pair, "=")
			key = strings.TrimSpace(key)
			if !ok || !model.LabelName(key).IsValidLegacy() {
				return nil, fmt.Errorf("%w: metrics_labels entry %q", ErrInvalidConfig, pair)
			}
			labels[key] = strings.TrimSpace(value)
		}
	}
	return labels, nil
}

// Template parses SlotTemplate.
func (c *Config) Template() (team.Template, error) {
	return team.ParseTemplate(c.SlotTemplate)
}
