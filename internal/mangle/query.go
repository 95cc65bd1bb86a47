package mangle

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/mangle/ast"

	"hornmat/internal/datalog"
	"hornmat/internal/logging"
	"hornmat/internal/store"
)

const (
	answerPredicate = "q_answer"
	askPredicate    = "q_ask"
)

// Ask reports whether the query has at least one answer.
func (e *Engine) Ask(ctx context.Context, q datalog.Query) (bool, error) {
	rows, err := e.answer(ctx, q, nil)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// AnswerUnary returns the distinct bindings of the single answer variable.
func (e *Engine) AnswerUnary(ctx context.Context, q datalog.Query) ([]string, error) {
	if len(q.Vars) != 1 {
		return nil, fmt.Errorf("%w: unary query %s has %d answer variables", store.ErrArityMismatch, q, len(q.Vars))
	}
	rows, err := e.answer(ctx, q, q.Vars)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = row[0]
	}
	return out, nil
}

// AnswerBinary returns the distinct bindings of the two answer variables.
func (e *Engine) AnswerBinary(ctx context.Context, q datalog.Query) ([][2]string, error) {
	if len(q.Vars) != 2 {
		return nil, fmt.Errorf("%w: binary query %s has %d answer variables", store.ErrArityMismatch, q, len(q.Vars))
	}
	rows, err := e.answer(ctx, q, q.Vars)
	if err != nil {
		return nil, err
	}
	out := make([][2]string, len(rows))
	for i, row := range rows {
		out[i] = [2]string{row[0], row[1]}
	}
	return out, nil
}

// answer compiles q into a single clause and evaluates it over an overlay of
// the fact store. Rows come back sorted and deduplicated. With no answer
// variables it yields at most one empty row.
func (e *Engine) answer(ctx context.Context, q datalog.Query, vars []string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(q.Body) == 0 {
		return nil, fmt.Errorf("query has an empty body")
	}
	bound := make(map[string]bool)
	for _, v := range datalog.Variables(q.Body...) {
		bound[v] = true
	}
	for _, v := range append(append([]string{}, vars...), datalog.Variables(q.Without...)...) {
		if !bound[v] {
			return nil, fmt.Errorf("query %s: variable ?%s not bound in body", q, v)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, fmt.Errorf("store is closed")
	}

	head := askPredicate + `("yes")`
	headSym := ast.PredicateSym{Symbol: askPredicate, Arity: 1}
	if len(vars) > 0 {
		args := make([]string, len(vars))
		for i, v := range vars {
			args[i] = renderTerm(datalog.Var(v))
		}
		head = answerPredicate + "(" + strings.Join(args, ", ") + ")"
		headSym = ast.PredicateSym{Symbol: answerPredicate, Arity: len(vars)}
	}
	premises := make([]string, 0, len(q.Body)+len(q.Without))
	for _, a := range q.Body {
		premises = append(premises, e.symbols.renderAtom(a))
	}
	for _, a := range q.Without {
		premises = append(premises, "!"+e.symbols.renderAtom(a))
	}
	clause := head + " :- " + strings.Join(premises, ", ") + ".\n"

	info, err := e.analyzeLocked(clause)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q, err)
	}
	overlay := newOverlayStore(e.store)
	if err := e.evalLocked(info, overlay); err != nil {
		return nil, fmt.Errorf("query %s: %w", q, err)
	}

	seen := make(map[string]bool)
	var rows [][]string
	err = overlay.scratch.GetFacts(ast.NewQuery(headSym), func(a ast.Atom) error {
		if len(vars) == 0 {
			if len(rows) == 0 {
				rows = append(rows, nil)
			}
			return nil
		}
		if len(a.Args) != len(vars) {
			return fmt.Errorf("%w: query %s returned %d columns, want %d", store.ErrArityMismatch, q, len(a.Args), len(vars))
		}
		row := make([]string, len(a.Args))
		for i, arg := range a.Args {
			c, ok := arg.(ast.Constant)
			if !ok {
				return fmt.Errorf("query %s returned non-constant %v", q, arg)
			}
			row[i] = c.Symbol
		}
		key := strings.Join(row, "\x00")
		if !seen[key] {
			seen[key] = true
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool {
		return strings.Join(rows[i], "\x00") < strings.Join(rows[j], "\x00")
	})
	logging.StoreDebug("Query %s: %d rows", q, len(rows))
	return rows, nil
}
