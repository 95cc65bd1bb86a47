package roles

import (
	"hornmat/internal/ontology"
)

// Closure is the reflexive-transitive sub-role relation over a set of roles
// and their inverses.
type Closure struct {
	roles map[string]ontology.Role
	super map[string]map[string]ontology.Role
}

// NewClosure returns an empty closure.
func NewClosure() *Closure {
	return &Closure{
		roles: make(map[string]ontology.Role),
		super: make(map[string]map[string]ontology.Role),
	}
}

// AddRole registers r and r⁻.
func (c *Closure) AddRole(r ontology.Role) {
	for _, x := range []ontology.Role{r, r.Invert()} {
		if _, ok := c.roles[x.Key()]; !ok {
			c.roles[x.Key()] = x
			c.super[x.Key()] = make(map[string]ontology.Role)
		}
	}
}

// AddSubsumption records sub ⊑ super together with sub⁻ ⊑ super⁻.
func (c *Closure) AddSubsumption(sub, super ontology.Role) {
	c.AddRole(sub)
	c.AddRole(super)
	c.super[sub.Key()][super.Key()] = super
	c.super[sub.Invert().Key()][super.Invert().Key()] = super.Invert()
}

// Compute saturates the relation and makes it reflexive. It returns the
// number of passes taken.
func (c *Closure) Compute() int {
	passes := 0
	for changed := true; changed; {
		changed = false
		passes++
		for _, r := range c.Roles() {
			sup := c.super[r.Key()]
			for k := range snapshot(sup) {
				for k2, s2 := range c.super[k] {
					if _, ok := sup[k2]; !ok {
						sup[k2] = s2
						changed = true
					}
				}
			}
		}
	}
	for k, r := range c.roles {
		c.super[k][k] = r
	}
	return passes
}

func snapshot(m map[string]ontology.Role) map[string]ontology.Role {
	out := make(map[string]ontology.Role, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SuperRoles returns every s with r ⊑* s. Unknown roles yield {r}.
func (c *Closure) SuperRoles(r ontology.Role) Set {
	sup, ok := c.super[r.Key()]
	if !ok {
		return NewSet(r)
	}
	out := make([]ontology.Role, 0, len(sup)+1)
	out = append(out, r)
	for _, s := range sup {
		out = append(out, s)
	}
	return NewSet(out...)
}

// Roles returns all registered roles in canonical order.
func (c *Closure) Roles() []ontology.Role {
	out := make([]ontology.Role, 0, len(c.roles))
	for _, r := range c.roles {
		out = append(out, r)
	}
	ontology.SortRoles(out)
	return out
}
