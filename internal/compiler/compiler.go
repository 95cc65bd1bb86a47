// Package compiler translates Horn-ALCHOIQ axioms into a program.Program.
//
// Class inclusions compile to immediate rules, deferred restrictions or
// both; assertions compile to facts. After the scan the role closure is
// computed and the bookkeeping rules for every role conjunction are emitted.
package compiler

import (
	"errors"
	"fmt"

	"hornmat/internal/datalog"
	"hornmat/internal/logging"
	"hornmat/internal/ontology"
	"hornmat/internal/program"
)

var (
	// ErrNotHorn marks axioms outside Horn-ALCHOIQ.
	ErrNotHorn = errors.New("not Horn-ALCHOIQ")
	// ErrUnsupportedAxiom marks axiom shapes the normal form never produces.
	ErrUnsupportedAxiom = errors.New("unexpected axiom")
)

// AxiomError reports the axiom that stopped compilation.
type AxiomError struct {
	Axiom  ontology.Axiom
	Reason string
	Err    error
}

func (e *AxiomError) Error() string {
	return fmt.Sprintf("%v: %s: %s", e.Err, e.Reason, e.Axiom)
}

func (e *AxiomError) Unwrap() error { return e.Err }

// Compile builds a program from axioms, stopping at the first axiom it
// cannot translate.
func Compile(axioms []ontology.Axiom) (*program.Program, error) {
	timer := logging.StartTimer(logging.CategoryCompile, "compile")
	defer timer.Stop()

	p, err := build(axioms)
	if err != nil {
		logging.Get(logging.CategoryCompile).Error("compile: %v", err)
		return nil, err
	}
	logging.Compile("compiled %d axioms into %d rules and %d facts (%s)",
		len(axioms), len(p.Rules), len(p.Facts), p.Summary())
	logging.CompileDebug("role closure: %d roles, %d conjunctions",
		len(p.Closure.Roles()), p.Registry.Len())
	return p, nil
}

func build(axioms []ontology.Axiom) (*program.Program, error) {
	c := &compiler{p: program.New()}
	for _, ax := range axioms {
		if err := c.axiom(ax); err != nil {
			return nil, err
		}
	}
	c.finish()
	return c.p, nil
}

type compiler struct {
	p *program.Program
}

func notHorn(ax ontology.Axiom, format string, args ...interface{}) error {
	return &AxiomError{Axiom: ax, Reason: fmt.Sprintf(format, args...), Err: ErrNotHorn}
}

func unsupported(ax ontology.Axiom, format string, args ...interface{}) error {
	return &AxiomError{Axiom: ax, Reason: fmt.Sprintf(format, args...), Err: ErrUnsupportedAxiom}
}

func (c *compiler) axiom(ax ontology.Axiom) error {
	switch a := ax.(type) {
	case ontology.SubClassOf:
		for _, r := range ontology.Roles(a.Sub) {
			c.p.Closure.AddRole(r)
		}
		for _, r := range ontology.Roles(a.Super) {
			c.p.Closure.AddRole(r)
		}
		return c.subClass(a, a.Sub, a.Super)
	case ontology.SubObjectPropertyOf:
		c.p.Closure.AddSubsumption(a.Sub, a.Super)
		c.p.Count(program.KindRoleInclusion)
		return nil
	case ontology.ClassAssertion:
		return c.classAssertion(a)
	case ontology.ObjectPropertyAssertion:
		c.p.Closure.AddRole(a.Role)
		subj, obj := a.Subject, a.Object
		if a.Role.Inverse {
			subj, obj = obj, subj
		}
		c.p.AddFact(datalog.Binary(a.Role.Name, datalog.Const(subj), datalog.Const(obj)))
		c.p.MarkNamed(a.Subject)
		c.p.MarkNamed(a.Object)
		c.p.Count(program.KindRoleAssertion)
		return nil
	case ontology.SameIndividual:
		c.pairwise(datalog.SameAs, a.Individuals)
		c.p.Count(program.KindSameIndividual)
		return nil
	case ontology.DifferentIndividuals:
		c.pairwise(datalog.DifferentFrom, a.Individuals)
		c.p.Count(program.KindDifferent)
		return nil
	case ontology.Unsupported:
		return notHorn(ax, "%s axioms are not supported", a.Kind)
	default:
		return unsupported(ax, "unknown axiom type %T", ax)
	}
}

func (c *compiler) pairwise(pred string, inds []string) {
	for i, a := range inds {
		c.p.MarkNamed(a)
		for _, b := range inds[i+1:] {
			c.p.AddFact(datalog.Binary(pred, datalog.Const(a), datalog.Const(b)))
		}
	}
}

func (c *compiler) classAssertion(a ontology.ClassAssertion) error {
	classes, ok := conjuncts(a.Class)
	if !ok {
		return unsupported(a, "class assertions must use named classes")
	}
	ind := datalog.Const(a.Individual)
	if len(classes) == 0 {
		c.p.AddFact(datalog.Unary(datalog.Thing, ind))
	}
	for _, cls := range classes {
		c.p.AddFact(datalog.Unary(cls, ind))
	}
	c.p.MarkNamed(a.Individual)
	c.p.Count(program.KindClassAssertion)
	return nil
}

// conjuncts flattens a named class or an intersection of named classes.
// owl:Thing is dropped, so owl:Thing itself yields an empty list.
func conjuncts(ce ontology.ClassExpression) ([]string, bool) {
	switch c := ce.(type) {
	case ontology.Class:
		if c.IsTop() {
			return nil, true
		}
		return []string{c.IRI}, true
	case ontology.ObjectIntersectionOf:
		var out []string
		for _, op := range c.Operands {
			sub, ok := conjuncts(op)
			if !ok {
				return nil, false
			}
			out = append(out, sub...)
		}
		return program.Canonical(out), true
	default:
		return nil, false
	}
}

func subAtoms(classes []string, x datalog.Term) []datalog.Atom {
	return program.Restriction{Sub: classes}.SubAtoms(x)
}

func (c *compiler) subClass(ax ontology.Axiom, subExpr, super ontology.ClassExpression) error {
	sub, ok := conjuncts(subExpr)
	if !ok {
		if reason := horn(subExpr, false); reason != "" {
			return notHorn(ax, "%s", reason)
		}
		return unsupported(ax, "sub-class must be a named class or an intersection of named classes")
	}
	x, y, z := datalog.Var("x"), datalog.Var("y"), datalog.Var("z")

	switch s := super.(type) {
	case ontology.Class:
		if s.IsTop() {
			c.p.Count(program.KindTrivial)
			return nil
		}
		c.p.AddRule(datalog.NewRule(datalog.Unary(s.IRI, x), subAtoms(sub, x)...))
		c.p.Count(program.KindConceptInclusion)
		return nil

	case ontology.ObjectIntersectionOf:
		for _, op := range s.Operands {
			if err := c.subClass(ax, subExpr, op); err != nil {
				return err
			}
		}
		return nil

	case ontology.ObjectUnionOf:
		switch len(s.Operands) {
		case 0:
			return c.subClass(ax, subExpr, ontology.Bottom)
		case 1:
			return c.subClass(ax, subExpr, s.Operands[0])
		}
		return notHorn(ax, "union of %d disjuncts in super-class", len(s.Operands))

	case ontology.ObjectOneOf:
		switch len(s.Individuals) {
		case 0:
			return c.subClass(ax, subExpr, ontology.Bottom)
		case 1:
			a := s.Individuals[0]
			c.p.AddRule(datalog.NewRule(datalog.Binary(datalog.SameAs, datalog.Const(a), x), subAtoms(sub, x)...))
			c.p.MarkNamed(a)
			c.p.Count(program.KindNominal)
			return nil
		}
		return notHorn(ax, "nominal with %d individuals", len(s.Individuals))

	case ontology.ObjectMinCardinality:
		if s.N == 0 {
			c.p.Count(program.KindTrivial)
			return nil
		}
		if s.N > 1 {
			return notHorn(ax, "min cardinality %d", s.N)
		}
		filler, err := namedFiller(ax, s.Filler)
		if err != nil {
			return err
		}
		c.p.Defer(program.Restriction{Kind: program.Existential, Sub: sub, Role: s.Role, Filler: filler, Source: ax.String()})
		c.p.Count(program.KindExistential)
		return nil

	case ontology.ObjectMaxCardinality:
		if s.N > 1 {
			return notHorn(ax, "max cardinality %d", s.N)
		}
		filler, err := namedFiller(ax, s.Filler)
		if err != nil {
			return err
		}
		d := func(t datalog.Term) datalog.Atom { return datalog.Unary(filler, t) }
		r, rInv := s.Role.Predicate(), s.Role.Invert().Predicate()
		if s.N == 0 {
			// C ⊑ ≤0 R.D: an R-successor in D is a contradiction
			body := append(subAtoms(sub, x), datalog.Binary(r, x, y), d(y))
			c.p.AddRule(datalog.NewRule(datalog.Unary(datalog.Nothing, x), body...))
			c.p.Count(program.KindBottom)
			return nil
		}
		// 4.1: two named D-successors of a C-individual are equal
		body := []datalog.Atom{d(y), datalog.Binary(rInv, y, x)}
		body = append(body, subAtoms(sub, x)...)
		body = append(body, datalog.Binary(r, x, z), d(z), datalog.Unary(datalog.NamedIndividual, z))
		c.p.AddRule(datalog.NewRule(datalog.Binary(datalog.SameAs, y, z), body...))
		// 4.4: a D-successor of a named C-individual is named
		body = []datalog.Atom{d(y), datalog.Binary(rInv, y, x)}
		body = append(body, subAtoms(sub, x)...)
		body = append(body, datalog.Unary(datalog.NamedIndividual, x))
		c.p.AddRule(datalog.NewRule(datalog.Unary(datalog.NamedIndividual, y), body...))
		c.p.Defer(program.Restriction{Kind: program.AtMostOne, Sub: sub, Role: s.Role, Filler: filler, Source: ax.String()})
		c.p.Count(program.KindAtMostOne)
		return nil

	case ontology.ObjectAllValuesFrom:
		filler, err := namedFiller(ax, s.Filler)
		if err != nil {
			return err
		}
		if filler == datalog.Thing {
			c.p.Count(program.KindTrivial)
			return nil
		}
		// 3.1: D(x) :- R⁻(x,y), C(y)
		body := append([]datalog.Atom{datalog.Binary(s.Role.Invert().Predicate(), x, y)}, subAtoms(sub, y)...)
		c.p.AddRule(datalog.NewRule(datalog.Unary(filler, x), body...))
		c.p.Defer(program.Restriction{Kind: program.Universal, Sub: sub, Role: s.Role, Filler: filler, Source: ax.String()})
		c.p.Count(program.KindUniversal)
		return nil

	case ontology.ObjectHasSelf:
		return notHorn(ax, "self restriction")
	case ontology.ObjectComplementOf:
		return notHorn(ax, "complement")
	case ontology.UnsupportedClass:
		return unsupported(ax, "class expression %s", s.Text)
	default:
		return unsupported(ax, "unknown class expression %T", super)
	}
}

// namedFiller checks the filler of a restriction is a named class.
func namedFiller(ax ontology.Axiom, ce ontology.ClassExpression) (string, error) {
	if cls, ok := ce.(ontology.Class); ok {
		return cls.IRI, nil
	}
	if reason := horn(ce, true); reason != "" {
		return "", notHorn(ax, "%s", reason)
	}
	return "", unsupported(ax, "restriction filler %s is not a named class", ce)
}

// horn returns why ce is outside Horn-ALCHOIQ, or "" if nothing is wrong
// with it beyond its shape. positive is the polarity of ce.
func horn(ce ontology.ClassExpression, positive bool) string {
	switch c := ce.(type) {
	case ontology.ObjectUnionOf:
		if positive && len(c.Operands) > 1 {
			return fmt.Sprintf("union of %d disjuncts", len(c.Operands))
		}
		for _, op := range c.Operands {
			if r := horn(op, positive); r != "" {
				return r
			}
		}
	case ontology.ObjectIntersectionOf:
		for _, op := range c.Operands {
			if r := horn(op, positive); r != "" {
				return r
			}
		}
	case ontology.ObjectOneOf:
		if len(c.Individuals) > 1 {
			return fmt.Sprintf("nominal with %d individuals", len(c.Individuals))
		}
	case ontology.ObjectMinCardinality:
		if c.N > 1 {
			return fmt.Sprintf("min cardinality %d", c.N)
		}
		return horn(c.Filler, positive)
	case ontology.ObjectMaxCardinality:
		if c.N > 1 {
			return fmt.Sprintf("max cardinality %d", c.N)
		}
		return horn(c.Filler, !positive)
	case ontology.ObjectAllValuesFrom:
		return horn(c.Filler, positive)
	case ontology.ObjectHasSelf:
		return "self restriction"
	case ontology.ObjectComplementOf:
		return "complement"
	}
	return ""
}

// finish computes the role closure and emits the bookkeeping rules.
func (c *compiler) finish() {
	c.p.Closure.Compute()
	c.p.Registry.Seed(c.p.Closure)
	for _, conj := range c.p.Registry.Conjunctions() {
		c.p.AddBookkeeping(conj)
	}

	x, y := datalog.Var("x"), datalog.Var("y")
	for _, r := range c.p.Closure.Roles() {
		sup := c.p.Closure.SuperRoles(r)
		if sup.Len() == 1 {
			continue
		}
		name, _ := c.p.Registry.Lookup(sup)
		c.p.AddRule(datalog.NewRule(datalog.Binary(name.Predicate(), x, y), datalog.Binary(r.Predicate(), x, y)))
	}
	c.p.AddRule(datalog.NewRule(datalog.Unary(datalog.Thing, x), datalog.Unary(datalog.NamedIndividual, x)))
	c.p.AddRule(datalog.NewRule(datalog.Unary(datalog.Nothing, x), datalog.Binary(datalog.DifferentFrom, x, x)))
}
