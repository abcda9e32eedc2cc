package player_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/mixer/internal/domain/player"
	"github.com/okian/mixer/internal/domain/rating"
	"github.com/okian/mixer/internal/domain/role"
	. "github.com/smartystreets/goconvey/convey"
)

func minutesAgo(now time.Time, m int) *time.Time {
	t := now.Add(-time.Duration(m) * time.Minute)
	return &t
}

func TestBasePriority(t *testing.T) {
	now := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

	Convey("Given flex players", t, func() {
		waited := &player.Player{ID: "a", Flex: true, LastPlayed: minutesAgo(now, 120)}
		fresh := &player.Player{ID: "b", Flex: true, LastPlayed: minutesAgo(now, 30)}

		Convey("When computing priorities", func() {
			long := player.BasePriority(waited, now)
			short := player.BasePriority(fresh, now)

			Convey("Then every role should be present", func() {
				So(len(long), ShouldEqual, role.Count)
				So(len(short), ShouldEqual, role.Count)
			})

			Convey("And the longer wait should weigh strictly more in every role", func() {
				for _, r := range role.All() {
					So(long[r], ShouldBeGreaterThan, short[r])
				}
			})

			Convey("And the weight should follow the flex formula", func() {
				points := 100 + math.Pow(120.0/5, 1.5)
				So(long[role.Tank], ShouldAlmostEqual, 1.5*points/3, 1e-9)
			})
		})

		Convey("When a player never played", func() {
			never := &player.Player{ID: "c", Flex: true}
			So(player.BasePriority(never, now)[role.DPS], ShouldAlmostEqual, 50, 1e-9)
		})

		Convey("When the last game lies in the future", func() {
			future := now.Add(time.Hour)
			skewed := &player.Player{ID: "d", Flex: true, LastPlayed: &future}
			So(player.WaitMinutes(skewed, now), ShouldEqual, 0)
			So(player.BasePriority(skewed, now)[role.Support], ShouldAlmostEqual, 50, 1e-9)
		})
	})

	Convey("Given a player with ranked preferences", t, func() {
		p := &player.Player{ID: "e", Preferences: []role.Role{role.Support, role.DPS}}

		Convey("When computing priorities", func() {
			prio := player.BasePriority(p, now)

			Convey("Then the primary role should dominate", func() {
				So(prio[role.Support], ShouldAlmostEqual, 100, 1e-9)
				So(prio[role.DPS], ShouldAlmostEqual, 50, 1e-9)
			})

			Convey("And unranked roles should have no entry", func() {
				_, ok := prio[role.Tank]
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When a middle slot is absent", func() {
			gap := &player.Player{ID: "f", Preferences: []role.Role{role.DPS, 0, role.Tank}}
			prio := player.BasePriority(gap, now)

			Convey("Then later roles should keep their position", func() {
				So(len(prio), ShouldEqual, 2)
				So(prio[role.DPS], ShouldAlmostEqual, 100, 1e-9)
				So(prio[role.Tank], ShouldAlmostEqual, 100.0/3, 1e-9)
			})
		})

		Convey("When a role is listed twice", func() {
			dup := &player.Player{ID: "g", Preferences: []role.Role{role.Tank, role.Tank}}
			So(player.BasePriority(dup, now)[role.Tank], ShouldAlmostEqual, 100, 1e-9)
		})

		Convey("When the player has no preferences and is not flex", func() {
			idle := &player.Player{ID: "h"}
			So(player.BasePriority(idle, now), ShouldBeEmpty)
		})
	})
}

func TestPlayerSnapshot(t *testing.T) {
	Convey("Given a player snapshot", t, func() {
		p := &player.Player{
			ID:          "p1",
			Preferences: []role.Role{role.Tank, role.Support},
			Ratings: map[role.Role]rating.Rating{
				role.Tank: {Value: 3100, Deviation: 90, Volatility: 0.06},
			},
		}

		Convey("When reading ratings", func() {
			So(p.Rating(role.Tank).Value, ShouldEqual, 3100)
			So(p.Rating(role.DPS), ShouldResemble, rating.Default())
		})

		Convey("When checking eligibility", func() {
			So(p.Eligible(role.Tank), ShouldBeTrue)
			So(p.Eligible(role.Support), ShouldBeTrue)
			So(p.Eligible(role.DPS), ShouldBeFalse)
			So(p.Eligible(0), ShouldBeFalse)

			flex := &player.Player{ID: "p2", Flex: true}
			So(flex.Eligible(role.DPS), ShouldBeTrue)
		})

		Convey("When validating", func() {
			So(p.Validate(), ShouldBeNil)

			Convey("Then a missing id should fail", func() {
				anon := &player.Player{}
				So(errors.Is(anon.Validate(), player.ErrMissingID), ShouldBeTrue)
			})

			Convey("And more than three preferences should fail", func() {
				many := &player.Player{ID: "x", Preferences: []role.Role{role.Tank, role.DPS, role.Support, role.Tank}}
				So(errors.Is(many.Validate(), player.ErrTooManyPreferences), ShouldBeTrue)
			})

			Convey("And duplicated preferences should fail", func() {
				dup := &player.Player{ID: "y", Preferences: []role.Role{role.DPS, 0, role.DPS}}
				So(errors.Is(dup.Validate(), player.ErrDuplicatePreference), ShouldBeTrue)
			})

			Convey("And unknown roles should fail", func() {
				odd := &player.Player{ID: "z", Preferences: []role.Role{role.Role(9)}}
				So(errors.Is(odd.Validate(), role.ErrUnknownRole), ShouldBeTrue)
			})
		})
	})
}

func TestPlayerClone(t *testing.T) {
	now := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

	Convey("Given a fully populated player", t, func() {
		p := player.Player{
			ID:          "a",
			Name:        "Ana",
			Ratings:     map[role.Role]rating.Rating{role.Tank: rating.Default()},
			Preferences: []role.Role{role.Tank, 0, role.DPS},
			LastPlayed:  minutesAgo(now, 10),
		}

		Convey("The clone is equal but shares nothing mutable", func() {
			c := p.Clone()
			So(c, ShouldResemble, p)

			p.Ratings[role.Tank] = rating.Rating{Value: 4000, Deviation: 50, Volatility: 0.06}
			p.Ratings[role.DPS] = rating.Default()
			p.Preferences[0] = role.Support
			*p.LastPlayed = now

			So(c.Ratings, ShouldHaveLength, 1)
			So(c.Ratings[role.Tank], ShouldResemble, rating.Default())
			So(c.Preferences[0], ShouldEqual, role.Tank)
			So(*c.LastPlayed, ShouldEqual, now.Add(-10*time.Minute))
		})

		Convey("Nil fields stay nil", func() {
			c := (&player.Player{ID: "b", Flex: true}).Clone()
			So(c.Ratings, ShouldBeNil)
			So(c.Preferences, ShouldBeNil)
			So(c.LastPlayed, ShouldBeNil)
		})
	})
}
