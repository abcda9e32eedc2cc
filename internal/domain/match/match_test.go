package match_test

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/mixer/internal/domain/match"
	"github.com/okian/mixer/internal/domain/player"
	"github.com/okian/mixer/internal/domain/rating"
	"github.com/okian/mixer/internal/domain/role"
	"github.com/okian/mixer/internal/domain/team"
)

type recordingUpdater struct {
	calls []float64
	fail  int
}

func (r *recordingUpdater) Update(self, opponent rating.Rating, score float64) (rating.Rating, error) {
	r.calls = append(r.calls, score)
	if r.fail > 0 && len(r.calls) == r.fail {
		return rating.Rating{}, rating.ErrNonConvergence
	}
	self.Value += (score - 0.5) * 10
	return self, nil
}

func rated(id string, r role.Role, value float64) player.Player {
	return player.Player{
		ID:      id,
		Ratings: map[role.Role]rating.Rating{r: {Value: value, Deviation: 300, Volatility: 0.06}},
	}
}

func duel(values ...float64) ([]player.Player, *team.Team, *team.Team) {
	tmpl := team.Template{role.Tank}
	players := []player.Player{rated("a", role.Tank, values[0]), rated("b", role.Tank, values[1])}
	a, b := team.New(tmpl), team.New(tmpl)
	a.AddPlayer(0, role.Tank)
	b.AddPlayer(1, role.Tank)
	return players, a, b
}

func TestOutcome(t *testing.T) {
	Convey("Given outcome identifiers", t, func() {
		Convey("Known names and legacy aliases parse", func() {
			for in, want := range map[string]match.Outcome{
				"team_a": match.TeamAWin, "win_team1": match.TeamAWin,
				"DRAW": match.Draw, "team_b": match.TeamBWin, "win_team2": match.TeamBWin,
			} {
				got, err := match.ParseOutcome(in)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, want)
			}
		})

		Convey("Unknown names are rejected", func() {
			_, err := match.ParseOutcome("forfeit")
			So(errors.Is(err, match.ErrUnknownOutcome), ShouldBeTrue)
		})

		Convey("Scores are from Team A's perspective", func() {
			s, _ := match.TeamAWin.Score()
			So(s, ShouldEqual, 1.0)
			s, _ = match.Draw.Score()
			So(s, ShouldEqual, 0.5)
			s, _ = match.TeamBWin.Score()
			So(s, ShouldEqual, 0.0)
			_, err := match.Outcome(9).Score()
			So(errors.Is(err, match.ErrUnknownOutcome), ShouldBeTrue)
		})
	})
}

func TestSettle(t *testing.T) {
	Convey("Given two seated one-slot teams", t, func() {
		players, a, b := duel(2500, 2500)
		now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

		Convey("A Team A win scores 1 for A and 0 for B", func() {
			u := &recordingUpdater{}
			updates, err := match.Settle(u, players, a, b, match.TeamAWin, now)
			So(err, ShouldBeNil)
			So(u.calls, ShouldResemble, []float64{1, 0})
			So(updates, ShouldHaveLength, 2)
			So(updates[0].PlayerID, ShouldEqual, "a")
			So(updates[0].Side, ShouldEqual, match.SideA)
			So(updates[0].Role, ShouldEqual, role.Tank)
			So(updates[0].Delta(), ShouldEqual, 5.0)
			So(updates[1].PlayerID, ShouldEqual, "b")
			So(updates[1].Delta(), ShouldEqual, -5.0)
			So(updates[1].PlayedAt, ShouldEqual, now)
		})

		Convey("A draw scores both sides 0.5", func() {
			u := &recordingUpdater{}
			_, err := match.Settle(u, players, a, b, match.Draw, now)
			So(err, ShouldBeNil)
			So(u.calls, ShouldResemble, []float64{0.5, 0.5})
		})

		Convey("The real engine moves ratings in opposite directions", func() {
			updates, err := match.Settle(rating.NewEngine(), players, a, b, match.TeamBWin, now)
			So(err, ShouldBeNil)
			So(updates[0].After.Value, ShouldBeLessThan, 2500)
			So(updates[1].After.Value, ShouldBeGreaterThan, 2500)
			So(updates[0].Delta(), ShouldAlmostEqual, -updates[1].Delta(), 1e-6)
			So(players[0].Rating(role.Tank).Value, ShouldEqual, 2500)
		})

		Convey("A failing update returns no partial result", func() {
			u := &recordingUpdater{fail: 2}
			updates, err := match.Settle(u, players, a, b, match.TeamAWin, now)
			So(errors.Is(err, rating.ErrNonConvergence), ShouldBeTrue)
			So(updates, ShouldBeNil)
		})

		Convey("Unfilled teams are rejected", func() {
			empty := team.New(team.Template{role.Tank})
			_, err := match.Settle(&recordingUpdater{}, players, a, empty, match.Draw, now)
			So(errors.Is(err, match.ErrIncompleteTeam), ShouldBeTrue)
			_, err = match.Settle(&recordingUpdater{}, players, a, nil, match.Draw, now)
			So(errors.Is(err, match.ErrIncompleteTeam), ShouldBeTrue)
		})

		Convey("A player on both sides is rejected", func() {
			twin := team.New(team.Template{role.Tank})
			twin.AddPlayer(0, role.Tank)
			_, err := match.Settle(&recordingUpdater{}, players, a, twin, match.Draw, now)
			So(errors.Is(err, match.ErrOverlappingTeams), ShouldBeTrue)
		})

		Convey("An unknown outcome is rejected before rating", func() {
			u := &recordingUpdater{}
			_, err := match.Settle(u, players, a, b, match.Outcome(0), now)
			So(errors.Is(err, match.ErrUnknownOutcome), ShouldBeTrue)
			So(u.calls, ShouldBeEmpty)
		})
	})

	Convey("Given unequal teams", t, func() {
		players, a, b := duel(3000, 2000)

		Convey("Each side is rated against the other side's pre-match average", func() {
			var opponents []float64
			u := updaterFunc(func(self, opp rating.Rating, score float64) (rating.Rating, error) {
				opponents = append(opponents, opp.Value)
				return self, nil
			})
			_, err := match.Settle(u, players, a, b, match.Draw, time.Now())
			So(err, ShouldBeNil)
			So(opponents, ShouldResemble, []float64{2000, 3000})
		})
	})
}

type updaterFunc func(self, opp rating.Rating, score float64) (rating.Rating, error)

func (f updaterFunc) Update(self, opp rating.Rating, score float64) (rating.Rating, error) {
	return f(self, opp, score)
}
