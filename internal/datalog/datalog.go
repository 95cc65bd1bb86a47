// Package datalog holds the rule and fact model exchanged between the axiom
// compiler, the materialization driver and the deductive store.
//
// Atoms are unary (concept membership) or binary (role assertion). Constants
// are IRIs, blank nodes or synthetic witness ids; variables are written ?x.
package datalog

import (
	"fmt"
	"strings"
)

// Well-known predicate and vocabulary IRIs.
const (
	OWL = "http://www.w3.org/2002/07/owl#"
	RDF = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"

	Thing            = OWL + "Thing"
	Nothing          = OWL + "Nothing"
	SameAs           = OWL + "sameAs"
	DifferentFrom    = OWL + "differentFrom"
	NamedIndividual  = OWL + "NamedIndividual"
	Type             = RDF + "type"
	Internal         = "urn:hornmat:"
	Synthetic        = Internal + "Synthetic"
	WitnessPrefix    = Internal + "witness/"
	RoleSetPrefix    = Internal + "roleset/"
	InversePrefix    = Internal + "inverse/"
	blankNodePrefix  = "_:"
	variablePrefix   = "?"
)

// Term is either a variable or a constant.
type Term struct {
	Value string
	Var   bool
}

// Var returns a variable term. The leading '?' is optional.
func Var(name string) Term {
	return Term{Value: strings.TrimPrefix(name, variablePrefix), Var: true}
}

// Const returns a constant term for an IRI, blank node or witness id.
func Const(value string) Term {
	return Term{Value: value}
}

// String renders the term in rule-file syntax.
func (t Term) String() string {
	if t.Var {
		return variablePrefix + t.Value
	}
	return formatConstant(t.Value)
}

func formatConstant(value string) string {
	if strings.HasPrefix(value, blankNodePrefix) {
		return value
	}
	return "<" + value + ">"
}

// Atom is a predicate applied to one or two terms.
type Atom struct {
	Predicate string
	Args      []Term
}

// Unary builds a concept membership atom.
func Unary(predicate string, t Term) Atom {
	return Atom{Predicate: predicate, Args: []Term{t}}
}

// Binary builds a role atom.
func Binary(predicate string, a, b Term) Atom {
	return Atom{Predicate: predicate, Args: []Term{a, b}}
}

// Arity returns the number of arguments.
func (a Atom) Arity() int { return len(a.Args) }

// IsTop reports whether the atom asserts membership in owl:Thing.
func (a Atom) IsTop() bool {
	return a.Predicate == Thing && len(a.Args) == 1
}

// IsGround reports whether no argument is a variable.
func (a Atom) IsGround() bool {
	for _, t := range a.Args {
		if t.Var {
			return false
		}
	}
	return true
}

// Validate checks the arity invariant.
func (a Atom) Validate() error {
	if a.Predicate == "" {
		return fmt.Errorf("atom has empty predicate")
	}
	if n := len(a.Args); n != 1 && n != 2 {
		return fmt.Errorf("atom %s has arity %d, want 1 or 2", a.Predicate, n)
	}
	return nil
}

// String renders the atom in rule-file syntax, e.g. <R>(?x, ?y).
func (a Atom) String() string {
	var sb strings.Builder
	sb.WriteString(formatConstant(a.Predicate))
	sb.WriteByte('(')
	for i, t := range a.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(t.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// Variables returns the distinct variables of atoms in order of first use.
func Variables(atoms ...Atom) []string {
	seen := make(map[string]bool)
	var vars []string
	for _, a := range atoms {
		for _, t := range a.Args {
			if t.Var && !seen[t.Value] {
				seen[t.Value] = true
				vars = append(vars, t.Value)
			}
		}
	}
	return vars
}

// EliminateTop drops owl:Thing atoms unless one is the only atom left.
func EliminateTop(atoms []Atom) []Atom {
	out := make([]Atom, 0, len(atoms))
	var top *Atom
	for i := range atoms {
		if atoms[i].IsTop() {
			if top == nil {
				top = &atoms[i]
			}
			continue
		}
		out = append(out, atoms[i])
	}
	if len(out) == 0 && top != nil {
		out = append(out, *top)
	}
	return out
}

// Rule is one or more head atoms sharing a conjunctive body.
type Rule struct {
	Head []Atom
	Body []Atom
}

// NewRule builds a single-head rule with owl:Thing eliminated.
func NewRule(head Atom, body ...Atom) Rule {
	return NewMultiRule([]Atom{head}, body...)
}

// NewMultiRule builds a rule with several heads and owl:Thing eliminated.
func NewMultiRule(heads []Atom, body ...Atom) Rule {
	return Rule{Head: EliminateTop(heads), Body: EliminateTop(body)}
}

// String renders the rule in rule-file syntax.
func (r Rule) String() string {
	return joinAtoms(r.Head) + " :- " + joinAtoms(r.Body) + " ."
}

// Validate checks arities and range restriction.
func (r Rule) Validate() error {
	if len(r.Head) == 0 {
		return fmt.Errorf("rule has no head")
	}
	if len(r.Body) == 0 {
		return fmt.Errorf("rule %s has no body", joinAtoms(r.Head))
	}
	for _, a := range append(append([]Atom{}, r.Head...), r.Body...) {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	bound := make(map[string]bool)
	for _, v := range Variables(r.Body...) {
		bound[v] = true
	}
	for _, v := range Variables(r.Head...) {
		if !bound[v] {
			return fmt.Errorf("rule %s: head variable ?%s not bound in body", r, v)
		}
	}
	return nil
}

func joinAtoms(atoms []Atom) string {
	parts := make([]string, len(atoms))
	for i, a := range atoms {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

// Query asks for bindings of Vars satisfying Body with none of Without holding.
type Query struct {
	Vars    []string
	Body    []Atom
	Without []Atom
}

// NewQuery builds a query with owl:Thing eliminated from the body.
func NewQuery(vars []string, body []Atom, without ...Atom) Query {
	clean := make([]string, len(vars))
	for i, v := range vars {
		clean[i] = strings.TrimPrefix(v, variablePrefix)
	}
	return Query{Vars: clean, Body: EliminateTop(body), Without: without}
}

// String renders the query for logs.
func (q Query) String() string {
	vars := make([]string, len(q.Vars))
	for i, v := range q.Vars {
		vars[i] = variablePrefix + v
	}
	s := "SELECT " + strings.Join(vars, " ") + " WHERE " + joinAtoms(q.Body)
	for _, a := range q.Without {
		s += ", NOT " + a.String()
	}
	return s
}
