package ontology

import (
	"strconv"

	"hornmat/internal/datalog"
)

// AuxPrefix names the class IRIs introduced by Normalize.
const AuxPrefix = datalog.Internal + "aux/"

// Normalize applies equivalence-preserving rewrites so that class inclusions
// take the shapes the compiler handles:
//
//   - unions on the left and intersections on the right are split,
//   - ∃R.E ⊑ D becomes E ⊑ ∀R⁻.D,
//   - complex fillers of ∃ and ∀ on the right are named by fresh classes.
//
// Anything else is passed through unchanged.
func Normalize(axioms []Axiom) []Axiom {
	n := &normalizer{}
	for _, ax := range axioms {
		sc, ok := ax.(SubClassOf)
		if !ok {
			n.out = append(n.out, ax)
			continue
		}
		n.subClass(sc.Sub, sc.Super)
	}
	return n.out
}

type normalizer struct {
	next int
	out  []Axiom
}

func (n *normalizer) fresh() Class {
	c := Class{IRI: AuxPrefix + strconv.Itoa(n.next)}
	n.next++
	return c
}

func (n *normalizer) subClass(sub, sup ClassExpression) {
	switch s := sub.(type) {
	case ObjectUnionOf:
		for _, op := range s.Operands {
			n.subClass(op, sup)
		}
		return
	case ObjectMinCardinality:
		if s.N == 1 {
			target, ok := sup.(Class)
			if !ok {
				target = n.fresh()
				n.subClass(target, sup)
			}
			n.subClass(s.Filler, ObjectAllValuesFrom{Role: s.Role.Invert(), Filler: target})
			return
		}
	}

	switch s := sup.(type) {
	case ObjectIntersectionOf:
		for _, op := range s.Operands {
			n.subClass(sub, op)
		}
		return
	case ObjectUnionOf:
		if len(s.Operands) == 1 {
			n.subClass(sub, s.Operands[0])
			return
		}
	case ObjectMinCardinality:
		if _, named := s.Filler.(Class); !named && s.N == 1 {
			aux := n.fresh()
			n.out = append(n.out, SubClassOf{Sub: sub, Super: ObjectMinCardinality{N: 1, Role: s.Role, Filler: aux}})
			n.subClass(aux, s.Filler)
			return
		}
	case ObjectAllValuesFrom:
		if _, named := s.Filler.(Class); !named {
			aux := n.fresh()
			n.out = append(n.out, SubClassOf{Sub: sub, Super: ObjectAllValuesFrom{Role: s.Role, Filler: aux}})
			n.subClass(aux, s.Filler)
			return
		}
	}
	n.out = append(n.out, SubClassOf{Sub: sub, Super: sup})
}
