package roles

import (
	"errors"
	"fmt"
	"strconv"

	"hornmat/internal/datalog"
	"hornmat/internal/ontology"
)

// ErrAlreadyRegistered is returned by Add for a set that already has a name.
var ErrAlreadyRegistered = errors.New("role conjunction already registered")

// Conjunction binds a name to the role set it stands for. The name is a role
// so that its inverse is the same name with the inverse flag flipped.
type Conjunction struct {
	Name  ontology.Role
	Roles Set
}

// Singleton reports whether the conjunction stands for a single role.
func (c Conjunction) Singleton() bool { return c.Roles.Len() == 1 }

// Registry is an append-only bijection between role sets and names.
// A set that is the pointwise inverse of a registered set is named by the
// inverse of that set's name. Not safe for concurrent use.
type Registry struct {
	byKey  map[string]ontology.Role
	byName map[string]Set
	order  []ontology.Role
	next   int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byKey:  make(map[string]ontology.Role),
		byName: make(map[string]Set),
	}
}

// Seed registers every closure role as a singleton named by itself, then
// every distinct super-role set.
func (r *Registry) Seed(c *Closure) []Conjunction {
	var added []Conjunction
	all := c.Roles()
	for _, role := range all {
		s := NewSet(role)
		if _, ok := r.byKey[s.Key()]; !ok {
			r.bind(role, s)
			added = append(added, Conjunction{Name: role, Roles: s})
		}
	}
	for _, role := range all {
		s := c.SuperRoles(role)
		if _, ok := r.byKey[s.Key()]; ok {
			continue
		}
		conj, err := r.Add(s)
		if err != nil {
			panic(err) // checked above
		}
		added = append(added, conj)
	}
	return added
}

// Add registers a set that has no name yet.
func (r *Registry) Add(s Set) (Conjunction, error) {
	if name, ok := r.byKey[s.Key()]; ok {
		return Conjunction{}, fmt.Errorf("%w: %s as %s", ErrAlreadyRegistered, s, name)
	}
	name, ok := r.byKey[s.Invert().Key()]
	if ok {
		name = name.Invert()
	} else {
		name = r.mint()
	}
	r.bind(name, s)
	return Conjunction{Name: name, Roles: s}, nil
}

// ConjunctionFor returns the name of s, registering s and its inverse when
// needed. It also returns the conjunctions registered by this call.
func (r *Registry) ConjunctionFor(s Set) (ontology.Role, []Conjunction) {
	if name, ok := r.byKey[s.Key()]; ok {
		return name, nil
	}
	var added []Conjunction
	conj, err := r.Add(s)
	if err != nil {
		panic(err) // checked above
	}
	added = append(added, conj)
	inv := s.Invert()
	if _, ok := r.byKey[inv.Key()]; !ok {
		invConj, err := r.Add(inv)
		if err != nil {
			panic(err)
		}
		added = append(added, invConj)
	}
	return conj.Name, added
}

// Lookup returns the name of s if it is registered.
func (r *Registry) Lookup(s Set) (ontology.Role, bool) {
	name, ok := r.byKey[s.Key()]
	return name, ok
}

// RoleSetFor returns the set bound to name.
func (r *Registry) RoleSetFor(name ontology.Role) (Set, bool) {
	s, ok := r.byName[name.Key()]
	return s, ok
}

// InverseOf returns the name of the inverse set of name. A self-inverse set
// is its own inverse. Names of unregistered sets map to their inverse role.
func (r *Registry) InverseOf(name ontology.Role) ontology.Role {
	s, ok := r.byName[name.Key()]
	if !ok {
		return name.Invert()
	}
	if inv, ok := r.byKey[s.Invert().Key()]; ok {
		return inv
	}
	return name.Invert()
}

// ContainingRole returns the names of every registered set containing role,
// in registration order.
func (r *Registry) ContainingRole(role ontology.Role) []ontology.Role {
	var out []ontology.Role
	for _, name := range r.order {
		if r.byName[name.Key()].Contains(role) {
			out = append(out, name)
		}
	}
	return out
}

// Conjunctions returns all registered conjunctions in registration order.
func (r *Registry) Conjunctions() []Conjunction {
	out := make([]Conjunction, len(r.order))
	for i, name := range r.order {
		out[i] = Conjunction{Name: name, Roles: r.byName[name.Key()]}
	}
	return out
}

// Len returns the number of registered conjunctions.
func (r *Registry) Len() int { return len(r.order) }

func (r *Registry) bind(name ontology.Role, s Set) {
	r.byKey[s.Key()] = name
	r.byName[name.Key()] = s
	r.order = append(r.order, name)
}

func (r *Registry) mint() ontology.Role {
	name := ontology.NewRole(datalog.RoleSetPrefix + strconv.Itoa(r.next))
	r.next++
	return name
}
