package team

import (
	"fmt"
	"strings"

	"github.com/okian/mixer/internal/domain/role"
)

// Template is the ordered multiset of roles making up one team. Both teams
// of a match share the same template.
type Template []role.Role

// DefaultTemplate is the 1 tank / 2 dps / 2 support shape.
func DefaultTemplate() Template {
	return Template{role.Tank, role.DPS, role.DPS, role.Support, role.Support}
}

// ParseTemplate converts role tags into a Template. Entries may themselves be
// comma separated lists, as produced by environment variables.
func ParseTemplate(tags []string) (Template, error) {
	var t Template
	for _, entry := range tags {
		for _, tag := range strings.Split(entry, ",") {
			if strings.TrimSpace(tag) == "" {
				continue
			}
			r, err := role.Parse(tag)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
			}
			t = append(t, r)
		}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate rejects empty templates and unknown roles.
func (t Template) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("%w: no slots", ErrInvalidTemplate)
	}
	for i, r := range t {
		if !r.Valid() {
			return fmt.Errorf("%w: slot %d has no role", ErrInvalidTemplate, i)
		}
	}
	return nil
}

// Count returns how many slots of role r the template holds.
func (t Template) Count(r role.Role) int {
	n := 0
	for _, slot := range t {
		if slot == r {
			n++
		}
	}
	return n
}

// Strings returns the role tags in template order.
func (t Template) Strings() []string {
	out := make([]string, len(t))
	for i, r := range t {
		out[i] = r.String()
	}
	return out
}
