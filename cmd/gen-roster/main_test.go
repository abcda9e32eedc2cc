package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/mixer/internal/adapters/roster"
	"github.com/okian/mixer/internal/rostergen"
)

func TestRun(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given an output path", t, func() {
		out := filepath.Join(t.TempDir(), "roster.yaml")
		var stderr bytes.Buffer

		convey.Convey("A seeded roster round-trips through the loader", func() {
			err := run(ctx, []string{"-players", "10", "-flex", "1", "-seed", "7", "-out", out, "-check"}, &stderr)
			convey.So(err, convey.ShouldBeNil)
			convey.So(stderr.String(), convey.ShouldContainSubstring, "roster balanced")

			players, err := roster.Load(ctx, out)
			convey.So(err, convey.ShouldBeNil)
			convey.So(players, convey.ShouldHaveLength, 10)
			for _, p := range players {
				convey.So(p.Flex, convey.ShouldBeTrue)
			}
		})

		convey.Convey("An empty roster is refused", func() {
			err := run(ctx, []string{"-players", "0", "-out", out}, &stderr)
			convey.So(errors.Is(err, rostergen.ErrNoPlayers), convey.ShouldBeTrue)
		})

		convey.Convey("Unknown flags fail to parse", func() {
			err := run(ctx, []string{"-bogus"}, &stderr)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
