package team_test

import (
	"errors"
	"testing"

	"github.com/okian/mixer/internal/domain/player"
	"github.com/okian/mixer/internal/domain/rating"
	"github.com/okian/mixer/internal/domain/role"
	"github.com/okian/mixer/internal/domain/team"
	. "github.com/smartystreets/goconvey/convey"
)

func rated(id string, r role.Role, value float64) player.Player {
	return player.Player{
		ID:      id,
		Ratings: map[role.Role]rating.Rating{r: {Value: value, Deviation: 100, Volatility: 0.06}},
	}
}

func TestTeamSlots(t *testing.T) {
	Convey("Given an empty team with the default template", t, func() {
		tm := team.New(team.DefaultTemplate())

		Convey("Then every role should have open slots", func() {
			So(tm.Size(), ShouldEqual, 5)
			So(tm.Count(), ShouldEqual, 0)
			So(tm.Full(), ShouldBeFalse)
			for _, r := range role.All() {
				So(tm.HasSlot(r), ShouldBeTrue)
			}
		})

		Convey("When filling the tank slot", func() {
			tm.AddPlayer(0, role.Tank)

			Convey("Then no tank slot should remain", func() {
				So(tm.HasSlot(role.Tank), ShouldBeFalse)
				So(tm.CountRole(role.Tank), ShouldEqual, 1)
				So(tm.Contains(0), ShouldBeTrue)
			})

			Convey("And adding another tank should panic", func() {
				So(func() { tm.AddPlayer(1, role.Tank) }, ShouldPanic)
			})

			Convey("And seating the same player again should panic", func() {
				So(func() { tm.AddPlayer(0, role.DPS) }, ShouldPanic)
			})
		})

		Convey("When filling duplicate role slots", func() {
			tm.AddPlayer(3, role.DPS)
			tm.AddPlayer(4, role.DPS)

			Convey("Then slot indexes should only disambiguate", func() {
				members := tm.Members()
				So(len(members), ShouldEqual, 2)
				So(members[0].Role, ShouldEqual, role.DPS)
				So(members[0].Slot, ShouldEqual, 0)
				So(members[0].Player, ShouldEqual, 3)
				So(members[1].Slot, ShouldEqual, 1)
				So(members[1].Player, ShouldEqual, 4)
				So(tm.HasSlot(role.DPS), ShouldBeFalse)
			})
		})

		Convey("When the template has no slot for a role", func() {
			tankless := team.New(team.Template{role.DPS, role.Support})
			So(tankless.HasSlot(role.Tank), ShouldBeFalse)
			So(func() { tankless.AddPlayer(0, role.Tank) }, ShouldPanic)
		})
	})
}

func TestTeamRatings(t *testing.T) {
	Convey("Given a roster and a partly filled team", t, func() {
		players := []player.Player{
			rated("t", role.Tank, 3000),
			rated("d1", role.DPS, 2600),
			rated("d2", role.DPS, 2400),
			rated("s1", role.Support, 2000),
		}
		tm := team.New(team.DefaultTemplate())
		tm.AddPlayer(0, role.Tank)
		tm.AddPlayer(1, role.DPS)
		tm.AddPlayer(2, role.DPS)
		tm.AddPlayer(3, role.Support)

		Convey("When computing the full rating", func() {
			full := tm.FullRating(players)

			Convey("Then the empty support slot should count as zero", func() {
				So(full.Value, ShouldEqual, 10000)
				So(full.Deviation, ShouldEqual, 400)
			})
		})

		Convey("When computing the average rating", func() {
			So(tm.AverageRating(players).Value, ShouldEqual, 2000)
		})

		Convey("When computing role-scoped ratings", func() {
			So(tm.FullRatingForRole(role.DPS, players).Value, ShouldEqual, 5000)
			So(tm.AverageRatingForRole(role.DPS, players).Value, ShouldEqual, 2500)
			So(tm.AverageRatingForRole(role.Support, players).Value, ShouldEqual, 1000)
		})

		Convey("When a player has no rating for the seated role", func() {
			flex := []player.Player{{ID: "f", Flex: true}}
			solo := team.New(team.Template{role.Support})
			solo.AddPlayer(0, role.Support)
			So(solo.FullRating(flex), ShouldResemble, rating.Default())
		})

		Convey("When a role has no slots", func() {
			small := team.New(team.Template{role.Tank})
			So(small.AverageRatingForRole(role.DPS, players), ShouldResemble, rating.Zero())
		})
	})
}

func TestTemplate(t *testing.T) {
	Convey("Given slot template tags", t, func() {
		Convey("When parsing a list of tags", func() {
			tpl, err := team.ParseTemplate([]string{"tank", "dps", "dps", "support", "support"})

			Convey("Then it should match the default template", func() {
				So(err, ShouldBeNil)
				So(tpl, ShouldResemble, team.DefaultTemplate())
				So(tpl.Count(role.DPS), ShouldEqual, 2)
				So(tpl.Strings(), ShouldResemble, []string{"tank", "dps", "dps", "support", "support"})
			})
		})

		Convey("When parsing a comma separated entry", func() {
			tpl, err := team.ParseTemplate([]string{"tank, dps,support"})
			So(err, ShouldBeNil)
			So(tpl, ShouldResemble, team.Template{role.Tank, role.DPS, role.Support})
		})

		Convey("When a tag is unknown", func() {
			_, err := team.ParseTemplate([]string{"tank", "healer"})
			So(errors.Is(err, team.ErrInvalidTemplate), ShouldBeTrue)
			So(errors.Is(err, role.ErrUnknownRole), ShouldBeTrue)
		})

		Convey("When the template is empty", func() {
			_, err := team.ParseTemplate(nil)
			So(errors.Is(err, team.ErrInvalidTemplate), ShouldBeTrue)
		})
	})
}
