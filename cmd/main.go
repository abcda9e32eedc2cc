package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/mixer/internal/adapters/mq/worker"
	"github.com/okian/mixer/internal/adapters/repository"
	"github.com/okian/mixer/internal/adapters/roster"
	app "github.com/okian/mixer/internal/app"
	"github.com/okian/mixer/internal/config"
	"github.com/okian/mixer/internal/domain/match"
	"github.com/okian/mixer/internal/domain/model"
	"github.com/okian/mixer/internal/domain/player"
	"github.com/okian/mixer/internal/domain/rating"
	"github.com/okian/mixer/internal/domain/role"
	"github.com/okian/mixer/pkg/logger"
	"github.com/okian/mixer/pkg/metrics"
)

const (
	asyncTimeout    = time.Minute
	shutdownTimeout = 30 * time.Second
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			_, _ = fmt.Fprintln(os.Stderr, "mixer:", err)
		}
		os.Exit(1)
	}
}

type options struct {
	roster     string
	lobby      string
	outcome    string
	save       string
	metricsOut string
	top        int
	async      bool
}

// output is what the CLI prints.
type output struct {
	Match     *model.Match                  `json:"match"`
	Outcome   string                        `json:"outcome,omitempty"`
	Updates   []match.RatingUpdate          `json:"updates,omitempty"`
	Standings map[string][]repository.Entry `json:"standings,omitempty"`
	Stats     app.Stats                     `json:"stats"`
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("mixer", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.roster, "roster", cfg.RosterPath, "YAML roster file to balance")
	fs.StringVar(&opts.lobby, "lobby", "lobby", "lobby identifier")
	fs.StringVar(&opts.outcome, "outcome", "", "settle the match: team_a, draw or team_b")
	fs.StringVar(&opts.save, "save", "", "write the roster with settled ratings to this file")
	fs.StringVar(&opts.metricsOut, "metrics-out", cfg.MetricsOut, "write Prometheus metrics to this file (- for stderr)")
	fs.IntVar(&opts.top, "top", 0, "print the best N players of every role ladder")
	fs.BoolVar(&opts.async, "async", false, "balance through the worker pool")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.roster == "" {
		fs.Usage()
		return fmt.Errorf("%w: -roster is required", errUsage)
	}
	var outcome match.Outcome
	if opts.outcome != "" {
		if outcome, err = match.ParseOutcome(opts.outcome); err != nil {
			return err
		}
	}

	if err := logger.Init(
		logger.WithFormat(cfg.LogFormat),
		logger.WithWriter(stderr),
		logger.WithLevel(cfg.LogLevel),
	); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log := logger.Named("cli")

	tmpl, err := cfg.Template()
	if err != nil {
		return err
	}
	labels, err := cfg.ConstLabels()
	if err != nil {
		return err
	}
	metrics.Configure(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithConstLabels(labels),
	)
	players, err := roster.Load(ctx, opts.roster)
	if err != nil {
		return err
	}
	log.Debug(ctx, "roster loaded", logger.String("path", opts.roster), logger.Int("players", len(players)))

	results := make(chan model.MixResult, 1)
	svc := app.New(
		app.WithLogger(logger.Named("mixer")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithSettledCacheSize(cfg.SettledCacheSize),
		app.WithAcceptanceThreshold(cfg.AcceptanceThreshold),
		app.WithSearchBudget(cfg.SearchBudget),
		app.WithTemplate(tmpl),
		app.WithMatchTTL(cfg.MatchTTL),
		app.WithRatingOptions(
			rating.WithScale(cfg.RatingScale),
			rating.WithTau(cfg.RatingTau),
			rating.WithTolerance(cfg.RatingTolerance),
			rating.WithMaxIterations(cfg.RatingMaxIterations),
		),
		app.WithSink(worker.SinkFunc(func(_ context.Context, res model.MixResult) { results <- res })),
	)

	m, err := mix(ctx, svc, &opts, players, results)
	if err != nil {
		return err
	}

	out := output{Match: m}
	if opts.outcome != "" {
		out.Outcome = outcome.String()
		out.Updates, err = svc.Report(ctx, m.ID, outcome)
		if err != nil {
			return err
		}
		if opts.save != "" {
			if err := roster.Save(ctx, opts.save, apply(players, out.Updates)); err != nil {
				return err
			}
			log.Info(ctx, "roster saved", logger.String("path", opts.save))
		}
	}
	if opts.top > 0 {
		out.Standings = make(map[string][]repository.Entry, role.Count)
		for _, r := range role.All() {
			rows, err := svc.Standings(ctx, r, opts.top)
			if err != nil {
				return err
			}
			out.Standings[r.String()] = rows
		}
	}
	out.Stats = svc.GetStats()

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	if opts.metricsOut != "" {
		metrics.RefreshSystem()
		if err := writeMetrics(opts.metricsOut, stderr); err != nil {
			return err
		}
	}
	return nil
}

func mix(ctx context.Context, svc *app.Service, opts *options, players []player.Player, results <-chan model.MixResult) (*model.Match, error) {
	if !opts.async {
		return svc.Mix(ctx, opts.lobby, players)
	}

	if err := svc.Start(ctx); err != nil {
		return nil, err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = svc.Stop(sctx)
	}()

	if _, err := svc.Submit(ctx, model.MixRequest{LobbyID: opts.lobby, Players: players}); err != nil {
		return nil, err
	}
	select {
	case res := <-results:
		return res.Match, res.Err
	case <-time.After(asyncTimeout):
		return nil, fmt.Errorf("lobby %s: no result after %s", opts.lobby, asyncTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// apply returns a copy of players carrying the settled ratings.
func apply(players []player.Player, updates []match.RatingUpdate) []player.Player {
	byID := make(map[string]int, len(players))
	out := make([]player.Player, len(players))
	for i, p := range players {
		byID[p.ID] = i
		p.Ratings = make(map[role.Role]rating.Rating, len(players[i].Ratings)+1)
		for r, rt := range players[i].Ratings {
			p.Ratings[r] = rt
		}
		out[i] = p
	}
	for _, u := range updates {
		if i, ok := byID[u.PlayerID]; ok {
			out[i].Ratings[u.Role] = u.After
			played := u.PlayedAt
			out[i].LastPlayed = &played
		}
	}
	return out
}

func writeMetrics(path string, stderr io.Writer) error {
	if path == "-" {
		return metrics.WriteText(stderr)
	}
	f, err := os.Create(path) //nolint:gosec // operator supplied path
	if err != nil {
		return fmt.Errorf("metrics out: %w", err)
	}
	if err := metrics.WriteText(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
