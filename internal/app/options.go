package service

import (
	"time"

	"github.com/okian/mixer/internal/adapters/mq/worker"
	"github.com/okian/mixer/internal/adapters/repository"
	"github.com/okian/mixer/internal/domain/match"
	"github.com/okian/mixer/internal/domain/rating"
	"github.com/okian/mixer/internal/domain/team"
	"github.com/okian/mixer/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of lobby workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued lobbies.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithSettledCacheSize bounds how many settled match IDs are remembered.
func WithSettledCacheSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.settledCacheSize = size
		}
	}
}

// WithAcceptanceThreshold sets the gap accepted without further search.
func WithAcceptanceThreshold(threshold float64) Option {
	return func(s *Service) {
		if threshold >= 0 {
			s.threshold = threshold
		}
	}
}

// WithSearchBudget caps explored search nodes. Zero means unlimited.
func WithSearchBudget(nodes int) Option {
	return func(s *Service) {
		if nodes >= 0 {
			s.budget = nodes
		}
	}
}

// WithRatingOptions configures the rating engine.
func WithRatingOptions(opts ...rating.Option) Option {
	return func(s *Service) {
		s.ratingOpts = append(s.ratingOpts, opts...)
	}
}

// WithUpdater replaces the rating engine used to settle matches. Rating
// options are ignored when it is set.
func WithUpdater(u match.Updater) Option {
	return func(s *Service) {
		if u != nil {
			s.updater = u
		}
	}
}

// WithTemplate sets the slot template of both teams.
func WithTemplate(t team.Template) Option {
	return func(s *Service) {
		if len(t) > 0 {
			s.template = append(team.Template(nil), t...)
		}
	}
}

// WithMatchTTL sets how long a match waits for its outcome.
func WithMatchTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.matchTTL = ttl
		}
	}
}

// WithJanitorInterval sets how often expired matches are pruned.
func WithJanitorInterval(every time.Duration) Option {
	return func(s *Service) {
		if every > 0 {
			s.janitorInterval = every
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSink receives the results of submitted lobbies.
func WithSink(sink worker.Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithLadder replaces the in-memory rating ladder.
func WithLadder(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.ladder = store
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
