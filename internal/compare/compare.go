// Package compare reports facts of one materialization missing from another.
package compare

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"hornmat/internal/datalog"
	"hornmat/internal/logging"
	"hornmat/internal/store"
)

// Options selects which facts take part in a comparison.
type Options struct {
	// AllFacts compares role assertions too; by default only class
	// assertions are compared.
	AllFacts bool
}

// Report lists the facts of A that B lacks.
type Report struct {
	TotalA  int
	TotalB  int
	Missing []datalog.Atom
}

// Contained reports whether every compared fact of A is in B.
func (r *Report) Contained() bool { return len(r.Missing) == 0 }

// CompareFiles loads two fact files, N-Triples or SQLite exports, and
// reports the facts of a missing from b.
func CompareFiles(ctx context.Context, a, b string, opts Options) (*Report, error) {
	timer := logging.StartTimer(logging.CategoryExport, "CompareFiles")
	defer timer.Stop()

	factsA, err := load(ctx, a, opts)
	if err != nil {
		return nil, err
	}
	factsB, err := load(ctx, b, opts)
	if err != nil {
		return nil, err
	}
	r := Compare(factsA, factsB)
	logging.Export("Compared %s (%d) against %s (%d): %d missing", a, r.TotalA, b, r.TotalB, len(r.Missing))
	return r, nil
}

// Compare reports the facts of a missing from b. Duplicates count once.
func Compare(a, b []datalog.Atom) *Report {
	inB := make(map[string]bool, len(b))
	for _, f := range b {
		inB[f.String()] = true
	}
	seen := make(map[string]bool, len(a))
	r := &Report{TotalB: len(inB)}
	for _, f := range a {
		key := f.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		if !inB[key] {
			r.Missing = append(r.Missing, f)
		}
	}
	r.TotalA = len(seen)
	sort.Slice(r.Missing, func(i, j int) bool { return r.Missing[i].String() < r.Missing[j].String() })
	return r
}

func load(ctx context.Context, path string, opts Options) ([]datalog.Atom, error) {
	var facts []datalog.Atom
	if isSQLite(path) {
		var err error
		if facts, err = store.ReadSQLite(ctx, path); err != nil {
			return nil, err
		}
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		facts, err = datalog.ParseTriples(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	if opts.AllFacts {
		return facts, nil
	}
	out := facts[:0]
	for _, f := range facts {
		if f.Arity() == 1 {
			out = append(out, f)
		}
	}
	return out, nil
}

func isSQLite(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".db") || strings.HasSuffix(lower, ".sqlite")
}
