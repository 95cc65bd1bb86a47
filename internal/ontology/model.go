// Package ontology models Horn-ALCHOIQ axioms and reads them from OWL 2
// functional-syntax documents.
//
// Class expressions and axioms are closed sets of types: every consumer
// switches over them with a default arm that fails.
package ontology

import (
	"fmt"
	"sort"
	"strings"

	"hornmat/internal/datalog"
)

// Role is an object property or its inverse.
type Role struct {
	Name    string
	Inverse bool
}

// NewRole returns the named, non-inverted role.
func NewRole(name string) Role { return Role{Name: name} }

// Invert returns the inverse role.
func (r Role) Invert() Role { return Role{Name: r.Name, Inverse: !r.Inverse} }

// Predicate is the store predicate holding this role's facts.
func (r Role) Predicate() string {
	if r.Inverse {
		return datalog.InversePrefix + r.Name
	}
	return r.Name
}

// Key is a canonical string that orders and identifies roles.
func (r Role) Key() string { return r.Predicate() }

func (r Role) String() string {
	if r.Inverse {
		return "ObjectInverseOf(" + iri(r.Name) + ")"
	}
	return iri(r.Name)
}

// SortRoles sorts roles by key.
func SortRoles(roles []Role) {
	sort.Slice(roles, func(i, j int) bool { return roles[i].Key() < roles[j].Key() })
}

func iri(s string) string {
	if strings.HasPrefix(s, "_:") {
		return s
	}
	return "<" + s + ">"
}

// =============================================================================
// CLASS EXPRESSIONS
// =============================================================================

// ClassExpression is one of the class expression types in this file.
type ClassExpression interface {
	fmt.Stringer
	classExpression()
}

// Class is a named class. owl:Thing and owl:Nothing are Classes too.
type Class struct{ IRI string }

// Top is the universal class.
var Top = Class{IRI: datalog.Thing}

// Bottom is the empty class.
var Bottom = Class{IRI: datalog.Nothing}

// IsTop reports whether c is owl:Thing.
func (c Class) IsTop() bool { return c.IRI == datalog.Thing }

type ObjectIntersectionOf struct{ Operands []ClassExpression }

type ObjectUnionOf struct{ Operands []ClassExpression }

type ObjectComplementOf struct{ Operand ClassExpression }

// ObjectOneOf is a nominal set.
type ObjectOneOf struct{ Individuals []string }

// ObjectMinCardinality is ≥N R.Filler; ObjectSomeValuesFrom reads as N=1.
type ObjectMinCardinality struct {
	N      int
	Role   Role
	Filler ClassExpression
}

type ObjectMaxCardinality struct {
	N      int
	Role   Role
	Filler ClassExpression
}

type ObjectAllValuesFrom struct {
	Role   Role
	Filler ClassExpression
}

type ObjectHasSelf struct{ Role Role }

// UnsupportedClass holds a class expression outside the modelled set, such
// as data-property restrictions.
type UnsupportedClass struct{ Text string }

func (Class) classExpression()                {}
func (ObjectIntersectionOf) classExpression() {}
func (ObjectUnionOf) classExpression()        {}
func (ObjectComplementOf) classExpression()   {}
func (ObjectOneOf) classExpression()          {}
func (ObjectMinCardinality) classExpression() {}
func (ObjectMaxCardinality) classExpression() {}
func (ObjectAllValuesFrom) classExpression()  {}
func (ObjectHasSelf) classExpression()        {}
func (UnsupportedClass) classExpression()     {}

func (c Class) String() string { return iri(c.IRI) }

func (c ObjectIntersectionOf) String() string {
	return "ObjectIntersectionOf(" + joinExprs(c.Operands) + ")"
}

func (c ObjectUnionOf) String() string {
	return "ObjectUnionOf(" + joinExprs(c.Operands) + ")"
}

func (c ObjectComplementOf) String() string {
	return "ObjectComplementOf(" + c.Operand.String() + ")"
}

func (c ObjectOneOf) String() string {
	parts := make([]string, len(c.Individuals))
	for i, ind := range c.Individuals {
		parts[i] = iri(ind)
	}
	return "ObjectOneOf(" + strings.Join(parts, " ") + ")"
}

func (c ObjectMinCardinality) String() string {
	if c.N == 1 {
		return fmt.Sprintf("ObjectSomeValuesFrom(%s %s)", c.Role, c.Filler)
	}
	return fmt.Sprintf("ObjectMinCardinality(%d %s %s)", c.N, c.Role, c.Filler)
}

func (c ObjectMaxCardinality) String() string {
	return fmt.Sprintf("ObjectMaxCardinality(%d %s %s)", c.N, c.Role, c.Filler)
}

func (c ObjectAllValuesFrom) String() string {
	return fmt.Sprintf("ObjectAllValuesFrom(%s %s)", c.Role, c.Filler)
}

func (c ObjectHasSelf) String() string {
	return fmt.Sprintf("ObjectHasSelf(%s)", c.Role)
}

func (c UnsupportedClass) String() string { return c.Text }

func joinExprs(exprs []ClassExpression) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, " ")
}

// Roles returns every role mentioned in the expression.
func Roles(ce ClassExpression) []Role {
	var out []Role
	var walk func(ClassExpression)
	walk = func(ce ClassExpression) {
		switch c := ce.(type) {
		case ObjectIntersectionOf:
			for _, op := range c.Operands {
				walk(op)
			}
		case ObjectUnionOf:
			for _, op := range c.Operands {
				walk(op)
			}
		case ObjectComplementOf:
			walk(c.Operand)
		case ObjectMinCardinality:
			out = append(out, c.Role)
			walk(c.Filler)
		case ObjectMaxCardinality:
			out = append(out, c.Role)
			walk(c.Filler)
		case ObjectAllValuesFrom:
			out = append(out, c.Role)
			walk(c.Filler)
		case ObjectHasSelf:
			out = append(out, c.Role)
		}
	}
	walk(ce)
	return out
}

// =============================================================================
// AXIOMS
// =============================================================================

// Axiom is one of the axiom types in this file.
type Axiom interface {
	fmt.Stringer
	axiom()
}

type SubClassOf struct {
	Sub, Super ClassExpression
}

type SubObjectPropertyOf struct {
	Sub, Super Role
}

type ClassAssertion struct {
	Class      ClassExpression
	Individual string
}

type ObjectPropertyAssertion struct {
	Role            Role
	Subject, Object string
}

type SameIndividual struct{ Individuals []string }

type DifferentIndividuals struct{ Individuals []string }

// Unsupported is a logical axiom kept verbatim so the compiler can reject
// it with its source text.
type Unsupported struct {
	Kind string
	Text string
}

func (SubClassOf) axiom()              {}
func (SubObjectPropertyOf) axiom()     {}
func (ClassAssertion) axiom()          {}
func (ObjectPropertyAssertion) axiom() {}
func (SameIndividual) axiom()          {}
func (DifferentIndividuals) axiom()    {}
func (Unsupported) axiom()             {}

func (a SubClassOf) String() string {
	return fmt.Sprintf("SubClassOf(%s %s)", a.Sub, a.Super)
}

func (a SubObjectPropertyOf) String() string {
	return fmt.Sprintf("SubObjectPropertyOf(%s %s)", a.Sub, a.Super)
}

func (a ClassAssertion) String() string {
	return fmt.Sprintf("ClassAssertion(%s %s)", a.Class, iri(a.Individual))
}

func (a ObjectPropertyAssertion) String() string {
	return fmt.Sprintf("ObjectPropertyAssertion(%s %s %s)", a.Role, iri(a.Subject), iri(a.Object))
}

func (a SameIndividual) String() string {
	return "SameIndividual(" + joinIRIs(a.Individuals) + ")"
}

func (a DifferentIndividuals) String() string {
	return "DifferentIndividuals(" + joinIRIs(a.Individuals) + ")"
}

func (a Unsupported) String() string { return a.Text }

func joinIRIs(ids []string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = iri(id)
	}
	return strings.Join(parts, " ")
}

// IsABox reports whether the axiom is an assertion about individuals.
func IsABox(ax Axiom) bool {
	switch ax.(type) {
	case ClassAssertion, ObjectPropertyAssertion, SameIndividual, DifferentIndividuals:
		return true
	}
	return false
}

// Ontology is a loaded document with its imports merged in.
type Ontology struct {
	IRI     string
	Imports []string
	Axioms  []Axiom
	// Ignored counts non-logical axioms skipped while reading, by kind.
	Ignored map[string]int
}
