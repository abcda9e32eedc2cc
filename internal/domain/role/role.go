// Package role defines the closed set of team roles and the only place where
// roles are converted to and from their external encodings.
package role

import (
	"fmt"
	"strings"
)

// Role is a player's functional class within a team. The zero value means
// "unset" and is never a valid slot role.
type Role uint8

// Known roles in canonical order.
const (
	Tank Role = iota + 1
	DPS
	Support
)

// Count is the size of the fixed role set.
const Count = 3

// noneIndex is the legacy integer encoding of "no role".
const noneIndex = -1

var names = [...]string{
	Tank:    "tank",
	DPS:     "dps",
	Support: "support",
}

// All returns the fixed role set in canonical order.
func All() []Role {
	return []Role{Tank, DPS, Support}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r >= Tank && r <= Support
}

// String returns the lowercase tag used by persistence and presentation, or
// an empty string for the unset role.
func (r Role) String() string {
	if !r.Valid() {
		return ""
	}
	return names[r]
}

// Index returns the legacy integer encoding: 0 tank, 1 dps, 2 support and -1
// for the unset role.
func (r Role) Index() int {
	if !r.Valid() {
		return noneIndex
	}
	return int(r) - 1
}

// Parse converts a tag such as "tank" into a Role. Matching is case
// insensitive and ignores surrounding whitespace.
func Parse(s string) (Role, error) {
	tag := strings.ToLower(strings.TrimSpace(s))
	for _, r := range All() {
		if names[r] == tag {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// FromIndex converts the legacy integer encoding into a Role. -1 yields the
// unset role without error.
func FromIndex(i int) (Role, error) {
	if i == noneIndex {
		return 0, nil
	}
	if i < 0 || i >= Count {
		return 0, fmt.Errorf("%w: index %d", ErrUnknownRole, i)
	}
	return Role(i + 1), nil
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input decodes
// to the unset role.
func (r *Role) UnmarshalText(text []byte) error {
	if len(strings.TrimSpace(string(text))) == 0 {
		*r = 0
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
