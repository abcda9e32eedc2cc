// Command gen-roster writes a synthetic YAML roster for the mixer CLI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/mixer/internal/adapters/roster"
	app "github.com/okian/mixer/internal/app"
	"github.com/okian/mixer/internal/rostergen"
	"github.com/okian/mixer/pkg/logger"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			_, _ = fmt.Fprintln(os.Stderr, "gen-roster:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("gen-roster", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		players = fs.Int("players", 12, "number of players to generate")
		flex    = fs.Float64("flex", 0.2, "share of flex players (0-1)")
		maxWait = fs.Duration("max-wait", 2*time.Hour, "longest time since a player's last match")
		seed    = fs.Int64("seed", time.Now().UnixNano(), "random seed")
		out     = fs.String("out", "roster.yaml", "output file")
		check   = fs.Bool("check", false, "balance the generated roster once and log the gap")
		level   = fs.String("log-level", "info", "log level")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := logger.Init(logger.WithWriter(stderr), logger.WithLevel(*level)); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log := logger.Named("gen-roster")

	generated, err := rostergen.Generate(ctx,
		rostergen.WithPlayers(*players),
		rostergen.WithFlexRatio(*flex),
		rostergen.WithMaxWait(*maxWait),
		rostergen.WithSeed(*seed),
	)
	if err != nil {
		return err
	}
	if err := roster.Save(ctx, *out, generated); err != nil {
		return err
	}
	log.Info(ctx, "roster written",
		logger.String("path", *out),
		logger.Int("players", len(generated)),
		logger.Any("seed", *seed),
	)

	if !*check {
		return nil
	}
	svc := app.New(app.WithLogger(log))
	m, err := svc.Mix(ctx, "check", generated)
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}
	log.Info(ctx, "roster balanced",
		logger.Float64("gap", m.Gap),
		logger.Bool("fair", m.Fair),
		logger.Int("explored", m.Explored),
	)
	return nil
}
