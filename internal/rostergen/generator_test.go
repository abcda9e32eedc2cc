package rostergen_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/mixer/internal/domain/role"
	"github.com/okian/mixer/internal/rostergen"
)

func TestGenerate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)

	Convey("Given a fixed seed", t, func() {
		opts := []rostergen.Option{rostergen.WithSeed(42), rostergen.WithNow(now), rostergen.WithPlayers(30)}

		Convey("Runs are reproducible", func() {
			a, err := rostergen.Generate(ctx, opts...)
			So(err, ShouldBeNil)
			b, err := rostergen.Generate(ctx, opts...)
			So(err, ShouldBeNil)
			So(a, ShouldResemble, b)
			So(a, ShouldHaveLength, 30)
		})

		Convey("Every player is a valid snapshot with a unique id", func() {
			players, err := rostergen.Generate(ctx, opts...)
			So(err, ShouldBeNil)
			ids := map[string]bool{}
			for i := range players {
				p := &players[i]
				So(p.Validate(), ShouldBeNil)
				So(ids[p.ID], ShouldBeFalse)
				ids[p.ID] = true
				if p.LastPlayed != nil {
					So(p.LastPlayed.After(now), ShouldBeFalse)
					So(now.Sub(*p.LastPlayed), ShouldBeLessThanOrEqualTo, rostergen.DefaultMaxWait)
				}
				for _, rt := range p.Ratings {
					So(rt.Value, ShouldBeBetweenOrEqual, 1, 5000)
					So(rt.Deviation, ShouldBeGreaterThan, 0)
				}
			}
		})
	})

	Convey("Given no flex players", t, func() {
		players, err := rostergen.Generate(ctx, rostergen.WithSeed(7), rostergen.WithFlexRatio(0), rostergen.WithPlayers(50))
		So(err, ShouldBeNil)

		Convey("Each player is rated only in the roles they prefer", func() {
			for i := range players {
				p := &players[i]
				So(p.Flex, ShouldBeFalse)
				So(len(p.Preferences), ShouldBeBetweenOrEqual, 1, 3)
				So(p.Preferences[0].Valid(), ShouldBeTrue)
				for r := range p.Ratings {
					So(p.Eligible(r), ShouldBeTrue)
				}
			}
		})
	})

	Convey("Given only flex players", t, func() {
		players, err := rostergen.Generate(ctx, rostergen.WithSeed(7), rostergen.WithFlexRatio(2), rostergen.WithPlayers(10))
		So(err, ShouldBeNil)
		for i := range players {
			So(players[i].Flex, ShouldBeTrue)
			So(players[i].Ratings, ShouldHaveLength, len(role.All()))
		}
	})

	Convey("Given invalid input", t, func() {
		_, err := rostergen.Generate(ctx, rostergen.WithPlayers(0))
		So(errors.Is(err, rostergen.ErrNoPlayers), ShouldBeTrue)

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err = rostergen.Generate(cctx)
		So(errors.Is(err, context.Canceled), ShouldBeTrue)
	})
}
