// Package program holds the compiled Datalog program shared by the axiom
// compiler and the materialization driver: rules, facts, the role closure,
// the role conjunction registry, the witness arena and the deferred
// restrictions still to be fired.
package program

import (
	"sort"
	"strconv"
	"strings"

	"hornmat/internal/datalog"
	"hornmat/internal/ontology"
	"hornmat/internal/roles"
)

// Axiom kinds counted during compilation.
const (
	KindRoleInclusion    = "RoleInclusion"
	KindConceptInclusion = "ConceptInclusion"
	KindNominal          = "Nominal"
	KindExistential      = "Existential"
	KindUniversal        = "Universal"
	KindAtMostOne        = "AtMostOne"
	KindBottom           = "Bottom"
	KindTrivial          = "Trivial"
	KindClassAssertion   = "ClassAssertion"
	KindRoleAssertion    = "RoleAssertion"
	KindSameIndividual   = "SameIndividual"
	KindDifferent        = "DifferentIndividuals"
)

// Deferred identifies the restrictions re-checked by the driver.
type Deferred int

const (
	Existential Deferred = iota
	Universal
	AtMostOne
)

func (d Deferred) String() string {
	switch d {
	case Existential:
		return "existential"
	case Universal:
		return "universal"
	case AtMostOne:
		return "at-most-one"
	}
	return "unknown"
}

// Restriction is a deferred C ⊑ ≥1 R.D, C ⊑ ∀R.D or C ⊑ ≤1 R.D. Sub holds
// the conjuncts of C; empty means owl:Thing. Filler is a class IRI.
type Restriction struct {
	Kind   Deferred
	Sub    []string
	Role   ontology.Role
	Filler string
	Source string
}

// SubAtoms returns the body atoms for C(x).
func (r Restriction) SubAtoms(x datalog.Term) []datalog.Atom {
	if len(r.Sub) == 0 {
		return []datalog.Atom{datalog.Unary(datalog.Thing, x)}
	}
	out := make([]datalog.Atom, len(r.Sub))
	for i, c := range r.Sub {
		out[i] = datalog.Unary(c, x)
	}
	return out
}

// FillerIsTop reports whether D is owl:Thing.
func (r Restriction) FillerIsTop() bool { return r.Filler == datalog.Thing }

// Program is owned by one goroutine at a time; it is not locked.
type Program struct {
	Rules      []datalog.Rule
	Facts      []datalog.Atom
	Closure    *roles.Closure
	Registry   *roles.Registry
	Synthetics *Synthetics
	Counts     map[string]int

	deferred   map[Deferred][]Restriction
	ruleKeys   map[string]bool
	factKeys   map[string]bool
	named      map[string]bool
	flushRules int
	flushFacts int
}

// New returns an empty program.
func New() *Program {
	return &Program{
		Closure:    roles.NewClosure(),
		Registry:   roles.NewRegistry(),
		Synthetics: NewSynthetics(),
		Counts:     make(map[string]int),
		deferred:   make(map[Deferred][]Restriction),
		ruleKeys:   make(map[string]bool),
		factKeys:   make(map[string]bool),
		named:      make(map[string]bool),
	}
}

// AddRule appends r unless an identical rule was already added.
func (p *Program) AddRule(r datalog.Rule) bool {
	key := r.String()
	if p.ruleKeys[key] {
		return false
	}
	p.ruleKeys[key] = true
	p.Rules = append(p.Rules, r)
	return true
}

// AddFact appends f unless it is already present.
func (p *Program) AddFact(f datalog.Atom) bool {
	key := f.String()
	if p.factKeys[key] {
		return false
	}
	p.factKeys[key] = true
	p.Facts = append(p.Facts, f)
	return true
}

// MarkNamed records ind as a named individual.
func (p *Program) MarkNamed(ind string) {
	if p.named[ind] {
		return
	}
	p.named[ind] = true
	p.AddFact(datalog.Unary(datalog.NamedIndividual, datalog.Const(ind)))
}

// NamedCount returns the number of named individuals.
func (p *Program) NamedCount() int { return len(p.named) }

// Count increments the counter for an axiom kind.
func (p *Program) Count(kind string) { p.Counts[kind]++ }

// CountKinds returns the counted kinds in sorted order.
func (p *Program) CountKinds() []string {
	kinds := make([]string, 0, len(p.Counts))
	for k := range p.Counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Defer queues a restriction for the driver.
func (p *Program) Defer(r Restriction) {
	p.deferred[r.Kind] = append(p.deferred[r.Kind], r)
}

// Pending returns the queued restrictions of a kind.
func (p *Program) Pending(kind Deferred) []Restriction {
	return append([]Restriction(nil), p.deferred[kind]...)
}

// SetPending replaces the queued restrictions of a kind.
func (p *Program) SetPending(kind Deferred, rs []Restriction) {
	p.deferred[kind] = rs
}

// Flush returns the rules and facts added since the previous Flush.
func (p *Program) Flush() ([]datalog.Rule, []datalog.Atom) {
	rules := p.Rules[p.flushRules:]
	facts := p.Facts[p.flushFacts:]
	p.flushRules = len(p.Rules)
	p.flushFacts = len(p.Facts)
	return rules, facts
}

// ObtainWitness returns the witness for a class conjunction, adding the
// facts of a newly minted one.
func (p *Program) ObtainWitness(classes []string) string {
	id, facts, created := p.Synthetics.Obtain(classes)
	if created {
		for _, f := range facts {
			p.AddFact(f)
		}
	}
	return id
}

// ObtainConjunction returns the name of a role set, registering it and its
// inverse together with their bookkeeping rules when new.
func (p *Program) ObtainConjunction(s roles.Set) ontology.Role {
	name, added := p.Registry.ConjunctionFor(s)
	for _, c := range added {
		p.AddBookkeeping(c)
	}
	return name
}

// AddBookkeeping emits the inverse propagation rule of c and, for a proper
// conjunction, one decomposition rule per conjunct.
func (p *Program) AddBookkeeping(c roles.Conjunction) {
	p.AddRule(InverseRule(c.Name, p.Registry.InverseOf(c.Name)))
	if c.Singleton() {
		return
	}
	for _, r := range DecompositionRules(c) {
		p.AddRule(r)
	}
}

// InverseRule is inv(y,x) :- rs(x,y), Named(y).
func InverseRule(rs, inv ontology.Role) datalog.Rule {
	x, y := datalog.Var("x"), datalog.Var("y")
	return datalog.NewRule(
		datalog.Binary(inv.Predicate(), y, x),
		datalog.Binary(rs.Predicate(), x, y),
		datalog.Unary(datalog.NamedIndividual, y),
	)
}

// DecompositionRules are R(x,y) :- rs(x,y) for every conjunct R of c.
func DecompositionRules(c roles.Conjunction) []datalog.Rule {
	x, y := datalog.Var("x"), datalog.Var("y")
	var out []datalog.Rule
	for _, r := range c.Roles.Roles() {
		if r.Key() == c.Name.Key() {
			continue
		}
		out = append(out, datalog.NewRule(
			datalog.Binary(r.Predicate(), x, y),
			datalog.Binary(c.Name.Predicate(), x, y),
		))
	}
	return out
}

// Summary renders the counters for logs.
func (p *Program) Summary() string {
	var sb strings.Builder
	for i, k := range p.CountKinds() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(strconv.Itoa(p.Counts[k]))
	}
	return sb.String()
}
