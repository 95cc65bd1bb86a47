// Package store defines the deductive store the materialization driver talks
// to, and the exporters shared by store implementations.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hornmat/internal/datalog"
)

// ErrArityMismatch is an internal invariant violation: a query returned rows
// whose width differs from its answer variables.
var ErrArityMismatch = errors.New("query arity mismatch")

// DataStore imports rule and fact files, saturates them and answers
// conjunctive queries over the current fact set.
type DataStore interface {
	// ImportFiles loads rule and fact files in order.
	ImportFiles(ctx context.Context, paths ...string) error
	// Reason computes the closure of all imported rules over all facts.
	Reason(ctx context.Context) error
	// CountFacts returns the exact number of facts.
	CountFacts(ctx context.Context) (int64, error)
	// Ask reports whether the query has any answer.
	Ask(ctx context.Context, q datalog.Query) (bool, error)
	// AnswerUnary returns the sorted, deduplicated bindings of one variable.
	AnswerUnary(ctx context.Context, q datalog.Query) ([]string, error)
	// AnswerBinary returns the sorted, deduplicated bindings of two variables.
	AnswerBinary(ctx context.Context, q datalog.Query) ([][2]string, error)
	// Export writes every fact to path.
	Export(ctx context.Context, path string, format Format) error
	Close() error
}

// Format selects an export encoding.
type Format string

const (
	NTriples Format = "ntriples"
	SQLite   Format = "sqlite"
)

// ParseFormat accepts the names used in config files and flags.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "ntriples", "nt", "turtle", "ttl":
		return NTriples, nil
	case "sqlite", "db":
		return SQLite, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Kind is the content type of an import file.
type Kind int

const (
	KindRules Kind = iota
	KindFacts
)

// DetectKind classifies a file by extension, falling back to looking for
// a rule arrow in head.
func DetectKind(path string, head []byte) Kind {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".txt"), strings.HasSuffix(lower, ".dlog"), strings.HasSuffix(lower, ".rules"):
		return KindRules
	case strings.HasSuffix(lower, ".ttl"), strings.HasSuffix(lower, ".nt"):
		return KindFacts
	}
	if strings.Contains(string(head), ":-") {
		return KindRules
	}
	return KindFacts
}
