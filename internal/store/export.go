package store

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"hornmat/internal/datalog"
	"hornmat/internal/logging"
)

const factsSchema = `CREATE TABLE IF NOT EXISTS facts (
	subject   TEXT NOT NULL,
	predicate TEXT NOT NULL,
	object    TEXT NOT NULL,
	PRIMARY KEY (subject, predicate, object)
)`

// WriteFacts writes facts to path in the given format, replacing any
// existing file.
func WriteFacts(ctx context.Context, path string, format Format, facts []datalog.Atom) error {
	timer := logging.StartTimer(logging.CategoryExport, "WriteFacts")
	defer timer.Stop()

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	var err error
	switch format {
	case NTriples:
		err = writeNTriples(path, facts)
	case SQLite:
		err = writeSQLite(ctx, path, facts)
	default:
		err = fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		logging.Get(logging.CategoryExport).Error("Export to %s failed: %v", path, err)
		return err
	}
	logging.Export("Exported %d facts to %s (%s)", len(facts), path, format)
	return nil
}

func writeNTriples(path string, facts []datalog.Atom) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	if err := datalog.WriteFacts(w, facts); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeSQLite(ctx context.Context, path string, facts []datalog.Atom) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		logging.ExportDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.ExecContext(ctx, factsSchema); err != nil {
		return fmt.Errorf("failed to create facts table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO facts (subject, predicate, object) VALUES (?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, f := range facts {
		s, p, o, err := tripleOf(f)
		if err != nil {
			tx.Rollback()
			return err
		}
		if _, err := stmt.ExecContext(ctx, s, p, o); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert %s: %w", f, err)
		}
	}
	return tx.Commit()
}

func tripleOf(f datalog.Atom) (string, string, string, error) {
	switch f.Arity() {
	case 1:
		return f.Args[0].Value, datalog.Type, f.Predicate, nil
	case 2:
		return f.Args[0].Value, f.Predicate, f.Args[1].Value, nil
	}
	return "", "", "", fmt.Errorf("cannot export %s: arity %d", f, f.Arity())
}

// ReadSQLite loads facts previously written by WriteFacts in SQLite format.
func ReadSQLite(ctx context.Context, path string) ([]datalog.Atom, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, "SELECT subject, predicate, object FROM facts ORDER BY subject, predicate, object")
	if err != nil {
		return nil, fmt.Errorf("failed to query facts: %w", err)
	}
	defer rows.Close()

	var out []datalog.Atom
	for rows.Next() {
		var s, p, o string
		if err := rows.Scan(&s, &p, &o); err != nil {
			return nil, err
		}
		if p == datalog.Type {
			out = append(out, datalog.Unary(o, datalog.Const(s)))
			continue
		}
		out = append(out, datalog.Binary(p, datalog.Const(s), datalog.Const(o)))
	}
	return out, rows.Err()
}
