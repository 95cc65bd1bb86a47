package mangle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/mangle/ast"

	"hornmat/internal/datalog"
)

// symbolKey identifies a predicate IRI at a given arity.
type symbolKey struct {
	iri   string
	arity int
}

// symbolTable maps predicate IRIs to generated Mangle identifiers. IRIs are
// not valid Mangle names, so every predicate gets a short lowercase alias.
type symbolTable struct {
	byKey  map[symbolKey]ast.PredicateSym
	byName map[string]symbolKey
}

func newSymbolTable() *symbolTable {
	return &symbolTable{
		byKey:  make(map[symbolKey]ast.PredicateSym),
		byName: make(map[string]symbolKey),
	}
}

// intern returns the Mangle predicate for iri/arity, allocating one if new.
func (t *symbolTable) intern(iri string, arity int) ast.PredicateSym {
	key := symbolKey{iri: iri, arity: arity}
	if sym, ok := t.byKey[key]; ok {
		return sym
	}
	sym := ast.PredicateSym{Symbol: fmt.Sprintf("p%d", len(t.byKey)), Arity: arity}
	t.byKey[key] = sym
	t.byName[sym.Symbol] = key
	return sym
}

// iri reverses intern.
func (t *symbolTable) iri(sym ast.PredicateSym) (string, bool) {
	key, ok := t.byName[sym.Symbol]
	return key.iri, ok
}

// symbols returns every interned predicate in allocation order.
func (t *symbolTable) symbols() []ast.PredicateSym {
	out := make([]ast.PredicateSym, 0, len(t.byKey))
	for _, sym := range t.byKey {
		out = append(out, sym)
	}
	sort.Slice(out, func(i, j int) bool {
		return len(out[i].Symbol) < len(out[j].Symbol) ||
			(len(out[i].Symbol) == len(out[j].Symbol) && out[i].Symbol < out[j].Symbol)
	})
	return out
}

// groundAtom registers the predicate of a and returns its ground Mangle form.
// Variables are rejected.
func (t *symbolTable) groundAtom(a datalog.Atom) (ast.Atom, error) {
	if !a.IsGround() {
		return ast.Atom{}, fmt.Errorf("fact %s is not ground", a)
	}
	sym := t.intern(a.Predicate, a.Arity())
	args := make([]ast.BaseTerm, len(a.Args))
	for i, term := range a.Args {
		args[i] = ast.String(term.Value)
	}
	return ast.Atom{Predicate: sym, Args: args}, nil
}

// fromMangle converts a stored fact back to a datalog atom.
func (t *symbolTable) fromMangle(a ast.Atom) (datalog.Atom, bool) {
	iri, ok := t.iri(a.Predicate)
	if !ok {
		return datalog.Atom{}, false
	}
	out := datalog.Atom{Predicate: iri, Args: make([]datalog.Term, len(a.Args))}
	for i, arg := range a.Args {
		c, ok := arg.(ast.Constant)
		if !ok {
			return datalog.Atom{}, false
		}
		out.Args[i] = datalog.Const(c.Symbol)
	}
	return out, true
}

// =============================================================================
// SOURCE RENDERING
// =============================================================================

// writeDecls emits a Decl for every interned predicate so analysis accepts
// extensional predicates that no rule defines.
func (t *symbolTable) writeDecls(sb *strings.Builder) {
	for _, sym := range t.symbols() {
		sb.WriteString("Decl ")
		sb.WriteString(sym.Symbol)
		sb.WriteByte('(')
		for i := 0; i < sym.Arity; i++ {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(sb, "X%d", i)
		}
		sb.WriteString(").\n")
	}
}

// writeRule renders r as one Mangle clause per head atom.
func (t *symbolTable) writeRule(sb *strings.Builder, r datalog.Rule) {
	body := make([]string, len(r.Body))
	for i, a := range r.Body {
		body[i] = t.renderAtom(a)
	}
	joined := strings.Join(body, ", ")
	for _, h := range r.Head {
		sb.WriteString(t.renderAtom(h))
		sb.WriteString(" :- ")
		sb.WriteString(joined)
		sb.WriteString(".\n")
	}
}

func (t *symbolTable) renderAtom(a datalog.Atom) string {
	sym := t.intern(a.Predicate, a.Arity())
	args := make([]string, len(a.Args))
	for i, term := range a.Args {
		args[i] = renderTerm(term)
	}
	return sym.Symbol + "(" + strings.Join(args, ", ") + ")"
}

// renderTerm maps ?x to the Mangle variable Vx and constants to strings.
func renderTerm(term datalog.Term) string {
	if term.Var {
		return "V" + term.Value
	}
	return quote(term.Value)
}

var quoter = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quote(s string) string {
	return `"` + quoter.Replace(s) + `"`
}
