// Package team models one side of a match: a fixed set of role slots that
// are filled with indexes into the roster being balanced.
package team

import (
	"fmt"

	"github.com/okian/mixer/internal/domain/player"
	"github.com/okian/mixer/internal/domain/rating"
	"github.com/okian/mixer/internal/domain/role"
)

// Seat is one role slot. Slot only disambiguates duplicate roles.
type Seat struct {
	Role   role.Role
	Slot   int
	Player int
	Filled bool
}

// Team tracks which roster entries occupy which slots.
type Team struct {
	template Template
	seats    []Seat
	capacity map[role.Role]int
	filled   map[role.Role]int
}

// New creates an empty team shaped by template.
func New(template Template) *Team {
	t := &Team{
		template: append(Template(nil), template...),
		capacity: make(map[role.Role]int, role.Count),
		filled:   make(map[role.Role]int, role.Count),
	}
	for _, r := range role.All() {
		n := template.Count(r)
		t.capacity[r] = n
		for i := 0; i < n; i++ {
			t.seats = append(t.seats, Seat{Role: r, Slot: i, Player: -1})
		}
	}
	return t
}

// Template returns a copy of the team's shape.
func (t *Team) Template() Template {
	return append(Template(nil), t.template...)
}

// HasSlot reports whether a slot for r is still open.
func (t *Team) HasSlot(r role.Role) bool {
	return t.filled[r] < t.capacity[r]
}

// AddPlayer seats roster entry index in the next open slot for r. Callers
// must check HasSlot first; violating that, or seating the same entry twice,
// is a programming error and panics.
func (t *Team) AddPlayer(index int, r role.Role) {
	if !t.HasSlot(r) {
		panic(fmt.Sprintf("team: no open slot for role %q", r))
	}
	if t.Contains(index) {
		panic(fmt.Sprintf("team: player %d already seated", index))
	}
	slot := t.filled[r]
	for i := range t.seats {
		if t.seats[i].Role == r && t.seats[i].Slot == slot {
			t.seats[i].Player = index
			t.seats[i].Filled = true
			break
		}
	}
	t.filled[r] = slot + 1
}

// Contains reports whether roster entry index occupies any slot.
func (t *Team) Contains(index int) bool {
	for _, s := range t.seats {
		if s.Filled && s.Player == index {
			return true
		}
	}
	return false
}

// CountRole returns the number of filled slots for r.
func (t *Team) CountRole(r role.Role) int {
	return t.filled[r]
}

// Count returns the number of filled slots.
func (t *Team) Count() int {
	n := 0
	for _, c := range t.filled {
		n += c
	}
	return n
}

// Size returns the number of slots.
func (t *Team) Size() int {
	return len(t.seats)
}

// Full reports whether every slot is filled.
func (t *Team) Full() bool {
	return t.Count() == t.Size()
}

// Seats returns every slot ordered by role then slot index.
func (t *Team) Seats() []Seat {
	return append([]Seat(nil), t.seats...)
}

// Members returns the filled slots ordered by role then slot index.
func (t *Team) Members() []Seat {
	out := make([]Seat, 0, t.Count())
	for _, s := range t.seats {
		if s.Filled {
			out = append(out, s)
		}
	}
	return out
}

// FullRating sums the occupant rating of every slot. Unfilled slots add a
// zero rating, so an incomplete team aggregates lower.
func (t *Team) FullRating(players []player.Player) rating.Rating {
	total := rating.Zero()
	for _, s := range t.seats {
		total = total.Add(seatRating(s, players))
	}
	return total
}

// AverageRating divides FullRating by the number of slots.
func (t *Team) AverageRating(players []player.Player) rating.Rating {
	if len(t.seats) == 0 {
		return rating.Zero()
	}
	return t.FullRating(players).Div(float64(len(t.seats)))
}

// FullRatingForRole sums the ratings of the slots for r.
func (t *Team) FullRatingForRole(r role.Role, players []player.Player) rating.Rating {
	total := rating.Zero()
	for _, s := range t.seats {
		if s.Role == r {
			total = total.Add(seatRating(s, players))
		}
	}
	return total
}

// AverageRatingForRole divides FullRatingForRole by the slot count for r.
func (t *Team) AverageRatingForRole(r role.Role, players []player.Player) rating.Rating {
	n := t.capacity[r]
	if n == 0 {
		return rating.Zero()
	}
	return t.FullRatingForRole(r, players).Div(float64(n))
}

func seatRating(s Seat, players []player.Player) rating.Rating {
	if !s.Filled {
		return rating.Zero()
	}
	return players[s.Player].Rating(s.Role)
}
