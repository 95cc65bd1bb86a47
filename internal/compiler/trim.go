package compiler

import (
	"errors"

	"hornmat/internal/ontology"
)

// Removal is an axiom dropped by Trim with the reason it would not compile.
type Removal struct {
	Axiom  ontology.Axiom
	Reason error
}

// Trim splits axioms into those that compile after normalization and those
// that fall outside Horn-ALCHOIQ. Each axiom is checked on its own.
func Trim(axioms []ontology.Axiom) ([]ontology.Axiom, []Removal) {
	var kept []ontology.Axiom
	var removed []Removal
	for _, ax := range axioms {
		if _, err := build(ontology.Normalize([]ontology.Axiom{ax})); err != nil {
			removed = append(removed, Removal{Axiom: ax, Reason: err})
			continue
		}
		kept = append(kept, ax)
	}
	return kept, removed
}

// IsNotHorn reports whether err marks an axiom outside Horn-ALCHOIQ.
func IsNotHorn(err error) bool { return errors.Is(err, ErrNotHorn) }
