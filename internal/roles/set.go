// Package roles computes the sub-role closure of an ontology and keeps the
// registry of role conjunctions used during materialization.
package roles

import (
	"sort"
	"strings"

	"hornmat/internal/ontology"
)

// Set is a canonical (sorted, duplicate-free) set of roles. The zero value
// is the empty set.
type Set struct {
	roles []ontology.Role
}

// NewSet builds a canonical set.
func NewSet(rs ...ontology.Role) Set {
	seen := make(map[string]bool, len(rs))
	out := make([]ontology.Role, 0, len(rs))
	for _, r := range rs {
		if !seen[r.Key()] {
			seen[r.Key()] = true
			out = append(out, r)
		}
	}
	ontology.SortRoles(out)
	return Set{roles: out}
}

// Roles returns a copy of the members in canonical order.
func (s Set) Roles() []ontology.Role {
	return append([]ontology.Role(nil), s.roles...)
}

func (s Set) Len() int { return len(s.roles) }

// Contains reports membership.
func (s Set) Contains(r ontology.Role) bool {
	k := r.Key()
	i := sort.Search(len(s.roles), func(i int) bool { return s.roles[i].Key() >= k })
	return i < len(s.roles) && s.roles[i].Key() == k
}

// Invert returns the pointwise inverse {r⁻ | r ∈ s}.
func (s Set) Invert() Set {
	inv := make([]ontology.Role, len(s.roles))
	for i, r := range s.roles {
		inv[i] = r.Invert()
	}
	return NewSet(inv...)
}

// Union returns s ∪ o.
func (s Set) Union(o Set) Set {
	return NewSet(append(s.Roles(), o.roles...)...)
}

// Equal reports set equality.
func (s Set) Equal(o Set) bool { return s.Key() == o.Key() }

// Key is the canonical string identity of the set.
func (s Set) Key() string {
	keys := make([]string, len(s.roles))
	for i, r := range s.roles {
		keys[i] = r.Key()
	}
	return strings.Join(keys, " ")
}

func (s Set) String() string {
	parts := make([]string, len(s.roles))
	for i, r := range s.roles {
		parts[i] = r.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
