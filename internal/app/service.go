// Package service wires the balancer, the rating engine and the lobby
// workers into the mixer's entry points.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/mixer/internal/adapters/mq/queue"
	"github.com/okian/mixer/internal/adapters/mq/worker"
	"github.com/okian/mixer/internal/adapters/repository"
	"github.com/okian/mixer/internal/domain/balancer"
	"github.com/okian/mixer/internal/domain/dedupe"
	"github.com/okian/mixer/internal/domain/match"
	"github.com/okian/mixer/internal/domain/model"
	"github.com/okian/mixer/internal/domain/player"
	"github.com/okian/mixer/internal/domain/rating"
	"github.com/okian/mixer/internal/domain/role"
	"github.com/okian/mixer/internal/domain/team"
	"github.com/okian/mixer/pkg/logger"
	"github.com/okian/mixer/pkg/metrics"
)

// DefaultMatchTTL is how long a balanced match waits for its outcome.
const DefaultMatchTTL = 30 * time.Minute

// Service balances lobbies and settles their outcomes.
type Service struct {
	mu sync.RWMutex

	balancer *balancer.Balancer
	updater  match.Updater
	deduper  dedupe.Deduper
	ladder   repository.Store
	queue    *queue.InMemoryQueue
	pool     *worker.Pool
	sink     worker.Sink

	workerCount      int
	queueSize        int
	settledCacheSize int
	threshold        float64
	budget           int
	ratingOpts       []rating.Option
	template         team.Template
	matchTTL         time.Duration
	janitorInterval  time.Duration
	now              func() time.Time

	pendingMu sync.Mutex
	pending   map[string]*model.Match

	mixed   atomic.Int64
	fair    atomic.Int64
	failed  atomic.Int64
	settled atomic.Int64
	expired atomic.Int64

	started bool
	stopCh  chan struct{}
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a Service. Mix and Report work immediately; Submit needs
// Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:      runtime.NumCPU(),
		queueSize:        1024,
		settledCacheSize: dedupe.DefaultMaxSize,
		threshold:        balancer.DefaultAcceptanceThreshold,
		budget:           balancer.DefaultSearchBudget,
		template:         team.DefaultTemplate(),
		matchTTL:         DefaultMatchTTL,
		now:              time.Now,
		pending:          make(map[string]*model.Match),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("mixer")
	}
	if s.janitorInterval == 0 {
		s.janitorInterval = max(s.matchTTL/10, time.Second)
	}
	if s.sink == nil {
		s.sink = worker.SinkFunc(s.logResult)
	}
	if s.ladder == nil {
		s.ladder = repository.NewTreapStore()
	}

	s.balancer = balancer.New(
		balancer.WithAcceptanceThreshold(s.threshold),
		balancer.WithSearchBudget(s.budget),
	)
	if s.updater == nil {
		s.updater = rating.NewEngine(s.ratingOpts...)
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.settledCacheSize))
	return s
}

// Start launches the lobby workers and the expiry janitor.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.stopCh = make(chan struct{})
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, requestMixer{s}, s.sink, worker.WithLogger(s.logger))
	s.pool.Start(runCtx)
	go s.janitor(runCtx, s.stopCh)

	s.started = true
	s.logger.Info(ctx, "mixer started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Float64("acceptance_threshold", s.threshold),
		logger.Int("search_budget", s.budget),
		logger.Duration("match_ttl", s.matchTTL),
	)
	return nil
}

// Stop drains queued lobbies and stops the workers and the janitor.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	err := s.pool.Shutdown(ctx)
	close(s.stopCh)
	s.cancel()
	s.started = false

	s.logger.Info(ctx, "mixer stopped")
	return err
}

// Mix balances one lobby synchronously and registers the match as pending
// until its outcome is reported.
func (s *Service) Mix(ctx context.Context, lobbyID string, players []player.Player) (*model.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i := range players {
		if err := players[i].Validate(); err != nil {
			s.failed.Add(1)
			s.recordMix(metrics.ResultInvalid)
			return nil, fmt.Errorf("%w: %w", ErrInvalidRoster, err)
		}
	}

	now := s.now()
	start := time.Now()
	roster := make([]player.Player, len(players))
	for i := range players {
		roster[i] = players[i].Clone()
	}
	res, err := s.balancer.Balance(roster, s.template, now)
	metrics.RecordMixLatency(float64(time.Since(start).Microseconds()) / 1000)
	metrics.UpdateRosterSize(len(roster))

	if err != nil {
		s.failed.Add(1)
		switch {
		case errors.Is(err, balancer.ErrSearchBudgetExceeded):
			s.recordMix(metrics.ResultBudgetExceeded)
		case errors.Is(err, balancer.ErrNoFairComposition):
			s.recordMix(metrics.ResultInfeasible)
		default:
			s.recordMix(metrics.ResultInvalid)
			err = fmt.Errorf("%w: %w", ErrInvalidRoster, err)
		}
		s.logger.Debug(ctx, "lobby not balanced",
			logger.String("lobby_id", lobbyID),
			logger.Int("players", len(roster)),
			logger.Int("explored", res.Explored),
			logger.Error(err),
		)
		return nil, err
	}

	m := &model.Match{
		ID:        uuid.NewString(),
		LobbyID:   lobbyID,
		Players:   roster,
		TeamA:     res.TeamA,
		TeamB:     res.TeamB,
		Gap:       res.Gap,
		Fair:      res.Fair,
		Explored:  res.Explored,
		CreatedAt: now,
	}

	s.pendingMu.Lock()
	s.pending[m.ID] = m
	pending := len(s.pending)
	s.pendingMu.Unlock()

	for i := range roster {
		for r, rt := range roster[i].Ratings {
			s.rank(ctx, r, roster[i].ID, rt)
		}
	}

	s.mixed.Add(1)
	if res.Fair {
		s.fair.Add(1)
		s.recordMix(metrics.ResultFair)
	} else {
		s.recordMix(metrics.ResultBestEffort)
	}
	metrics.RecordSearch(res.Explored, res.Gap)
	metrics.UpdatePendingMatches(pending)

	s.logger.Info(ctx, "lobby balanced",
		logger.String("lobby_id", lobbyID),
		logger.String("match_id", m.ID),
		logger.Float64("gap", res.Gap),
		logger.Bool("fair", res.Fair),
		logger.Int("explored", res.Explored),
	)
	return m, nil
}

func (s *Service) recordMix(result string) {
	metrics.RecordMixRun(result)
	if result != metrics.ResultFair && result != metrics.ResultBestEffort {
		metrics.RecordErrorByComponent("balancer", result)
	}
}

// Submit queues a lobby for the worker pool and returns its request ID.
// Results go to the configured sink.
func (s *Service) Submit(ctx context.Context, req model.MixRequest) (string, error) { //nolint:gocritic // hugeParam: copied into the queue
	s.mu.RLock()
	q, started := s.queue, s.started
	s.mu.RUnlock()
	if !started {
		return "", ErrNotStarted
	}

	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.SubmittedAt.IsZero() {
		req.SubmittedAt = s.now()
	}
	if err := q.Enqueue(ctx, req); err != nil {
		return "", fmt.Errorf("submit lobby %s: %w", req.LobbyID, err)
	}
	return req.RequestID, nil
}

// Match returns a pending match.
func (s *Service) Match(_ context.Context, id string) (*model.Match, error) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	m, ok := s.pending[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	return m, nil
}

// Report settles a pending match and returns the new ratings for the caller
// to persist. Each match settles at most once.
func (s *Service) Report(ctx context.Context, matchID string, outcome match.Outcome) ([]match.RatingUpdate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := outcome.Score(); err != nil {
		return nil, err
	}

	if s.deduper.SeenAndRecord(ctx, matchID) {
		metrics.RecordOutcomeDuplicate()
		return nil, fmt.Errorf("%w: %s", ErrAlreadySettled, matchID)
	}

	now := s.now()
	s.pendingMu.Lock()
	m, ok := s.pending[matchID]
	if ok && s.expiredAt(m, now) {
		delete(s.pending, matchID)
		s.expired.Add(1)
		metrics.RecordMatchesExpired(1)
		metrics.UpdatePendingMatches(len(s.pending))
		s.pendingMu.Unlock()
		s.deduper.Unrecord(ctx, matchID)
		return nil, fmt.Errorf("%w: %s", ErrMatchExpired, matchID)
	}
	s.pendingMu.Unlock()
	if !ok {
		s.deduper.Unrecord(ctx, matchID)
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}

	updates, err := match.Settle(s.updater, m.Players, m.TeamA, m.TeamB, outcome, now)
	if err != nil {
		s.deduper.Unrecord(ctx, matchID)
		metrics.RecordRatingError()
		metrics.RecordErrorByComponent("rating", "settle_failed")
		s.logger.Error(ctx, "settlement failed", logger.String("match_id", matchID), logger.Error(err))
		return nil, fmt.Errorf("settle %s: %w", matchID, err)
	}

	// A Cancel or prune may have removed the match while it was being rated.
	s.pendingMu.Lock()
	if s.pending[matchID] != m {
		s.pendingMu.Unlock()
		s.deduper.Unrecord(ctx, matchID)
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	delete(s.pending, matchID)
	pending := len(s.pending)
	s.pendingMu.Unlock()

	for _, u := range updates {
		s.rank(ctx, u.Role, u.PlayerID, u.After)
	}

	s.settled.Add(1)
	metrics.RecordOutcome(outcome.String())
	metrics.RecordRatingUpdates(len(updates))
	metrics.UpdatePendingMatches(pending)

	s.logger.Info(ctx, "match settled",
		logger.String("match_id", matchID),
		logger.String("outcome", outcome.String()),
		logger.Int("updates", len(updates)),
	)
	return updates, nil
}

// rank mirrors a rating onto the ladder. Ladder failures never fail the
// caller's operation.
func (s *Service) rank(ctx context.Context, r role.Role, playerID string, rt rating.Rating) {
	if err := s.ladder.Set(ctx, r, playerID, rt); err != nil {
		s.logger.Warn(ctx, "ladder update failed",
			logger.String("player_id", playerID),
			logger.String("role", r.String()),
			logger.Error(err),
		)
	}
}

// Standings returns the best n players of a role ladder.
func (s *Service) Standings(ctx context.Context, r role.Role, n int) ([]repository.Entry, error) {
	return s.ladder.TopN(ctx, r, n)
}

// Standing returns one player's ladder row for a role.
func (s *Service) Standing(ctx context.Context, r role.Role, playerID string) (repository.Entry, error) {
	return s.ladder.Rank(ctx, r, playerID)
}

// Cancel discards a pending match without rating anyone.
func (s *Service) Cancel(ctx context.Context, matchID string) error {
	s.pendingMu.Lock()
	_, ok := s.pending[matchID]
	delete(s.pending, matchID)
	pending := len(s.pending)
	s.pendingMu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	metrics.UpdatePendingMatches(pending)
	s.logger.Info(ctx, "match cancelled", logger.String("match_id", matchID))
	return nil
}

// PruneExpired drops pending matches older than the TTL and returns how many
// were dropped.
func (s *Service) PruneExpired(ctx context.Context) int {
	now := s.now()
	s.pendingMu.Lock()
	n := 0
	for id, m := range s.pending {
		if s.expiredAt(m, now) {
			delete(s.pending, id)
			n++
		}
	}
	pending := len(s.pending)
	s.pendingMu.Unlock()

	if n > 0 {
		s.expired.Add(int64(n))
		metrics.RecordMatchesExpired(n)
		metrics.UpdatePendingMatches(pending)
		s.logger.Debug(ctx, "expired matches pruned", logger.Int("count", n))
	}
	return n
}

func (s *Service) expiredAt(m *model.Match, now time.Time) bool {
	return now.Sub(m.CreatedAt) >= s.matchTTL
}

func (s *Service) janitor(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(s.janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			s.PruneExpired(ctx)
			metrics.RefreshSystem()
		}
	}
}

func (s *Service) logResult(ctx context.Context, res model.MixResult) {
	if res.Err != nil {
		s.logger.Warn(ctx, "submitted lobby failed",
			logger.String("request_id", res.RequestID),
			logger.String("lobby_id", res.LobbyID),
			logger.Error(res.Err),
		)
		return
	}
	s.logger.Info(ctx, "submitted lobby balanced",
		logger.String("request_id", res.RequestID),
		logger.String("match_id", res.Match.ID),
	)
}

// Stats is a point-in-time view of the service.
type Stats struct {
	Started        bool    `json:"started"`
	WorkerCount    int     `json:"worker_count"`
	BusyWorkers    int     `json:"busy_workers"`
	QueueSize      int     `json:"queue_size"`
	QueueLength    int     `json:"queue_length"`
	Threshold      float64 `json:"acceptance_threshold"`
	SearchBudget   int     `json:"search_budget"`
	PendingMatches int     `json:"pending_matches"`
	SettledIDs     int64   `json:"settled_ids"`
	Mixed          int64   `json:"mixed"`
	Fair           int64   `json:"fair"`
	Failed         int64   `json:"failed"`
	Settled        int64   `json:"settled"`
	Expired        int64   `json:"expired"`
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.pendingMu.Lock()
	pending := len(s.pending)
	s.pendingMu.Unlock()

	st := Stats{
		Started:        s.started,
		WorkerCount:    s.workerCount,
		QueueSize:      s.queueSize,
		Threshold:      s.threshold,
		SearchBudget:   s.budget,
		PendingMatches: pending,
		SettledIDs:     s.deduper.Size(),
		Mixed:          s.mixed.Load(),
		Fair:           s.fair.Load(),
		Failed:         s.failed.Load(),
		Settled:        s.settled.Load(),
		Expired:        s.expired.Load(),
	}
	if s.started {
		st.QueueLength = s.queue.Len(context.Background())
		st.BusyWorkers = s.pool.Busy()
	}
	return st
}

// requestMixer adapts Service.Mix to worker.Mixer.
type requestMixer struct {
	s *Service
}

func (r requestMixer) Mix(ctx context.Context, req model.MixRequest) (*model.Match, error) { //nolint:gocritic // hugeParam
	return r.s.Mix(ctx, req.LobbyID, req.Players)
}
