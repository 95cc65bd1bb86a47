// Package mangle implements the deductive store on top of Google Mangle.
package mangle

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
	"golang.org/x/sync/errgroup"

	"hornmat/internal/datalog"
	"hornmat/internal/logging"
	"hornmat/internal/store"
)

// EqualityMode selects how owl:sameAs is treated.
type EqualityMode string

const (
	// EqualityAxiomatize adds symmetry, transitivity and replacement rules.
	EqualityAxiomatize EqualityMode = "axiomatize"
	// EqualityOff treats owl:sameAs as an ordinary predicate.
	EqualityOff EqualityMode = "off"
)

// ParseEqualityMode accepts the names used in config files and flags.
func ParseEqualityMode(s string) (EqualityMode, error) {
	switch EqualityMode(strings.ToLower(s)) {
	case "", EqualityAxiomatize:
		return EqualityAxiomatize, nil
	case EqualityOff:
		return EqualityOff, nil
	}
	return "", fmt.Errorf("unknown equality mode %q", s)
}

// Config holds Mangle store configuration.
type Config struct {
	Threads   int
	FactLimit int
	Equality  EqualityMode
}

// slowReason is the evaluation time above which Reason logs a warning.
const slowReason = 30 * time.Second

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Threads:   4,
		FactLimit: 5000000,
		Equality:  EqualityAxiomatize,
	}
}

// Engine is an in-memory deductive store. Rules accumulate across imports;
// Reason evaluates all of them to fixpoint over the current facts.
type Engine struct {
	config Config

	mu       sync.RWMutex
	store    factstore.FactStore
	symbols  *symbolTable
	rules    []datalog.Rule
	ruleKeys map[string]bool
	closed   bool
}

var _ store.DataStore = (*Engine)(nil)

// NewEngine creates an empty store.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Threads <= 0 {
		cfg.Threads = 1
	}
	if cfg.Equality == "" {
		cfg.Equality = EqualityAxiomatize
	}
	if _, err := ParseEqualityMode(string(cfg.Equality)); err != nil {
		return nil, err
	}
	e := &Engine{
		config:   cfg,
		store:    factstore.NewSimpleInMemoryStore(),
		symbols:  newSymbolTable(),
		ruleKeys: make(map[string]bool),
	}
	if cfg.Equality == EqualityAxiomatize {
		e.symbols.intern(datalog.SameAs, 2)
	}
	return e, nil
}

// ImportFiles parses the files concurrently and applies them in argument
// order.
func (e *Engine) ImportFiles(ctx context.Context, paths ...string) error {
	timer := logging.StartTimer(logging.CategoryStore, "ImportFiles")
	defer timer.Stop()

	parsed := make([]*store.File, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Threads)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := store.ReadFile(path)
			if err != nil {
				return err
			}
			parsed[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logging.Get(logging.CategoryStore).Error("Import failed: %v", err)
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("store is closed")
	}
	for _, f := range parsed {
		rules, facts := 0, 0
		for _, r := range f.Rules {
			if e.addRuleLocked(r) {
				rules++
			}
		}
		for _, a := range f.Facts {
			atom, err := e.symbols.groundAtom(a)
			if err != nil {
				return fmt.Errorf("%s: %w", f.Path, err)
			}
			if e.store.Add(atom) {
				facts++
			}
		}
		logging.StoreDebug("Imported %s: %d new rules, %d new facts", f.Path, rules, facts)
	}
	logging.Store("Imported %d files: %d rules, %d facts in store", len(parsed), len(e.rules), e.store.EstimateFactCount())
	return nil
}

func (e *Engine) addRuleLocked(r datalog.Rule) bool {
	key := r.String()
	if e.ruleKeys[key] {
		return false
	}
	e.ruleKeys[key] = true
	e.rules = append(e.rules, r)
	return true
}

// Reason evaluates every imported rule to fixpoint.
func (e *Engine) Reason(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timer := logging.StartTimer(logging.CategoryStore, "Reason")
	defer timer.StopWithThreshold(slowReason)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("store is closed")
	}

	if len(e.rules) == 0 && e.config.Equality != EqualityAxiomatize {
		return nil
	}
	var clauses strings.Builder
	for _, r := range e.rules {
		e.symbols.writeRule(&clauses, r)
	}
	if e.config.Equality == EqualityAxiomatize {
		e.writeEqualityLocked(&clauses)
	}

	info, err := e.analyzeLocked(clauses.String())
	if err != nil {
		return err
	}
	before := e.store.EstimateFactCount()
	if err := e.evalLocked(info, e.store); err != nil {
		return err
	}
	logging.StoreDebug("Reason: %d rules, estimated facts %d -> %d", len(e.rules), before, e.store.EstimateFactCount())
	return nil
}

// writeEqualityLocked emits the equality axioms for owl:sameAs: symmetry,
// transitivity and replacement in every argument position of every
// predicate known so far.
func (e *Engine) writeEqualityLocked(sb *strings.Builder) {
	same := e.symbols.intern(datalog.SameAs, 2).Symbol
	fmt.Fprintf(sb, "%s(Y, X) :- %s(X, Y).\n", same, same)
	fmt.Fprintf(sb, "%s(X, Z) :- %s(X, Y), %s(Y, Z).\n", same, same, same)
	for _, sym := range e.symbols.symbols() {
		switch {
		case sym.Symbol == same:
		case sym.Arity == 1:
			fmt.Fprintf(sb, "%s(Y) :- %s(X), %s(X, Y).\n", sym.Symbol, sym.Symbol, same)
		case sym.Arity == 2:
			fmt.Fprintf(sb, "%s(Y, Z) :- %s(X, Z), %s(X, Y).\n", sym.Symbol, sym.Symbol, same)
			fmt.Fprintf(sb, "%s(X, Z) :- %s(X, Y), %s(Y, Z).\n", sym.Symbol, sym.Symbol, same)
		}
	}
}

// analyzeLocked prefixes clauses with declarations for every interned
// predicate, then parses and analyzes the unit. Clauses must be rendered
// first so that their predicates are interned.
func (e *Engine) analyzeLocked(clauses string) (*analysis.ProgramInfo, error) {
	var sb strings.Builder
	e.symbols.writeDecls(&sb)
	sb.WriteString(clauses)

	unit, err := parse.Unit(strings.NewReader(sb.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse program: %w", err)
	}
	info, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze program: %w", err)
	}
	return info, nil
}

func (e *Engine) evalLocked(info *analysis.ProgramInfo, target factstore.FactStore) error {
	var opts []mengine.EvalOption
	if e.config.FactLimit > 0 {
		opts = append(opts, mengine.WithCreatedFactLimit(e.config.FactLimit))
	}
	if _, err := mengine.EvalProgramWithStats(info, target, opts...); err != nil {
		logging.Get(logging.CategoryStore).Error("Evaluation failed: %v", err)
		return fmt.Errorf("failed to evaluate program: %w", err)
	}
	return nil
}

// CountFacts counts stored facts exactly.
func (e *Engine) CountFacts(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	var n int64
	for _, sym := range e.store.ListPredicates() {
		err := e.store.GetFacts(ast.NewQuery(sym), func(ast.Atom) error {
			n++
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return n, nil
}

// Facts returns every stored fact sorted by its rendered form.
func (e *Engine) Facts(ctx context.Context) ([]datalog.Atom, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []datalog.Atom
	for _, sym := range e.store.ListPredicates() {
		err := e.store.GetFacts(ast.NewQuery(sym), func(a ast.Atom) error {
			if f, ok := e.symbols.fromMangle(a); ok {
				out = append(out, f)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

// Export writes every fact to path.
func (e *Engine) Export(ctx context.Context, path string, format store.Format) error {
	facts, err := e.Facts(ctx)
	if err != nil {
		return err
	}
	return store.WriteFacts(ctx, path, format, facts)
}

// Close releases the fact store.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.store = factstore.NewSimpleInMemoryStore()
	e.rules = nil
	e.ruleKeys = make(map[string]bool)
	return nil
}
