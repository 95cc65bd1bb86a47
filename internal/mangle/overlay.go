package mangle

import (
	"github.com/google/mangle/ast"
	"github.com/google/mangle/factstore"
)

// overlayStore reads through to a base store and sends every write to a
// scratch store, leaving the base untouched.
type overlayStore struct {
	base    factstore.ReadOnlyFactStore
	scratch factstore.FactStore
}

func newOverlayStore(base factstore.ReadOnlyFactStore) *overlayStore {
	return &overlayStore{base: base, scratch: factstore.NewSimpleInMemoryStore()}
}

func (o *overlayStore) Add(atom ast.Atom) bool {
	if o.base.Contains(atom) {
		return false
	}
	return o.scratch.Add(atom)
}

func (o *overlayStore) Merge(other factstore.ReadOnlyFactStore) {
	o.scratch.Merge(other)
}

func (o *overlayStore) Contains(atom ast.Atom) bool {
	return o.base.Contains(atom) || o.scratch.Contains(atom)
}

func (o *overlayStore) ListPredicates() []ast.PredicateSym {
	seen := make(map[ast.PredicateSym]bool)
	var out []ast.PredicateSym
	for _, list := range [][]ast.PredicateSym{o.base.ListPredicates(), o.scratch.ListPredicates()} {
		for _, sym := range list {
			if !seen[sym] {
				seen[sym] = true
				out = append(out, sym)
			}
		}
	}
	return out
}

func (o *overlayStore) EstimateFactCount() int {
	return o.base.EstimateFactCount() + o.scratch.EstimateFactCount()
}

func (o *overlayStore) GetFacts(query ast.Atom, fn func(ast.Atom) error) error {
	if err := o.base.GetFacts(query, fn); err != nil {
		return err
	}
	return o.scratch.GetFacts(query, fn)
}
