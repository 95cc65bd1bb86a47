package roles

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hornmat/internal/datalog"
	"hornmat/internal/ontology"
)

func role(name string) ontology.Role { return ontology.NewRole("http://example.org/" + name) }

func TestSetCanonical(t *testing.T) {
	r, s := role("R"), role("S")
	a := NewSet(s, r, s)
	b := NewSet(r, s)
	assert.True(t, a.Equal(b))
	assert.Equal(t, 2, a.Len())
	assert.True(t, a.Contains(r))
	assert.False(t, a.Contains(r.Invert()))
	assert.True(t, a.Invert().Contains(s.Invert()))
	assert.True(t, a.Invert().Invert().Equal(a))
	assert.Equal(t, 3, a.Union(NewSet(r.Invert())).Len())
	assert.Equal(t, "", Set{}.Key())
}

func TestClosureChain(t *testing.T) {
	r, s, u := role("R"), role("S"), role("U")
	c := NewClosure()
	c.AddSubsumption(r, s)
	c.AddSubsumption(s, u)
	c.Compute()

	assert.True(t, c.SuperRoles(r).Equal(NewSet(r, s, u)))
	assert.True(t, c.SuperRoles(r.Invert()).Equal(NewSet(r.Invert(), s.Invert(), u.Invert())))
	assert.True(t, c.SuperRoles(u).Equal(NewSet(u)))
	assert.Len(t, c.Roles(), 6)
}

// Property: reflexive and transitive for random subsumption graphs.
func TestClosureReflexiveTransitive(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		n := 2 + rng.Intn(6)
		var names []ontology.Role
		for i := 0; i < n; i++ {
			names = append(names, role(fmt.Sprintf("P%d", i)))
		}
		c := NewClosure()
		for _, r := range names {
			c.AddRole(r)
		}
		for e := 0; e < n*2; e++ {
			a, b := names[rng.Intn(n)], names[rng.Intn(n)]
			if rng.Intn(3) == 0 {
				b = b.Invert()
			}
			c.AddSubsumption(a, b)
		}
		c.Compute()

		for _, r := range c.Roles() {
			sup := c.SuperRoles(r)
			require.True(t, sup.Contains(r), "trial %d: %s not reflexive", trial, r)
			for _, s := range sup.Roles() {
				for _, u := range c.SuperRoles(s).Roles() {
					require.True(t, sup.Contains(u), "trial %d: %s ⊑ %s ⊑ %s not closed", trial, r, s, u)
				}
			}
		}
	}
}

func TestRegistrySeed(t *testing.T) {
	r, s := role("R"), role("S")
	c := NewClosure()
	c.AddSubsumption(r, s)
	c.Compute()

	reg := NewRegistry()
	added := reg.Seed(c)
	// four singletons plus {R,S} and {R⁻,S⁻}
	assert.Len(t, added, 6)

	name, ok := reg.Lookup(NewSet(r, s))
	require.True(t, ok)
	assert.Equal(t, datalog.RoleSetPrefix+"0", name.Name)
	invName, ok := reg.Lookup(NewSet(r.Invert(), s.Invert()))
	require.True(t, ok)
	assert.Equal(t, name.Invert(), invName)

	single, ok := reg.Lookup(NewSet(s))
	require.True(t, ok)
	assert.Equal(t, s, single)

	assert.Equal(t, []ontology.Role{r, name}, reg.ContainingRole(r))
}

func TestRegistryConjunctionFor(t *testing.T) {
	r, s, u := role("R"), role("S"), role("U")
	reg := NewRegistry()
	set := NewSet(r, s, u)

	name, added := reg.ConjunctionFor(set)
	require.Len(t, added, 2, "set and inverse registered")

	again, added := reg.ConjunctionFor(set)
	assert.Equal(t, name, again, "idempotent")
	assert.Empty(t, added)

	got, ok := reg.RoleSetFor(name)
	require.True(t, ok)
	assert.True(t, got.Equal(set))

	inv, _ := reg.ConjunctionFor(set.Invert())
	assert.Equal(t, name.Invert(), inv)
	assert.Equal(t, inv, reg.InverseOf(name))
}

// Property: inverse-consistent naming over random sets (none self-inverse).
func TestRegistryInverseNaming(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	base := []ontology.Role{role("A"), role("B"), role("C"), role("D")}
	reg := NewRegistry()
	for i := 0; i < 200; i++ {
		var members []ontology.Role
		for _, r := range base {
			switch rng.Intn(3) {
			case 0:
				members = append(members, r)
			case 1:
				members = append(members, r.Invert())
			}
		}
		if len(members) == 0 {
			continue
		}
		s := NewSet(members...)
		name, _ := reg.ConjunctionFor(s)
		back, ok := reg.RoleSetFor(name)
		require.True(t, ok)
		require.True(t, back.Equal(s))
		invName, _ := reg.ConjunctionFor(s.Invert())
		require.Equal(t, name.Invert(), invName, "set %s", s)
	}
}

func TestRegistrySelfInverse(t *testing.T) {
	r := role("R")
	reg := NewRegistry()
	s := NewSet(r, r.Invert())
	name, added := reg.ConjunctionFor(s)
	assert.Len(t, added, 1)
	assert.Equal(t, name, reg.InverseOf(name))
	again, _ := reg.ConjunctionFor(s.Invert())
	assert.Equal(t, name, again)
}

func TestRegistryAddRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	s := NewSet(role("R"), role("S"))
	_, err := reg.Add(s)
	require.NoError(t, err)
	_, err = reg.Add(s)
	assert.True(t, errors.Is(err, ErrAlreadyRegistered))
	assert.Equal(t, 1, reg.Len())
}
