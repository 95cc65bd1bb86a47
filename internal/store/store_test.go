package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hornmat/internal/datalog"
)

const ex = "http://example.org/"

func sampleFacts() []datalog.Atom {
	a, b := datalog.Const(ex+"a"), datalog.Const(ex+"b")
	return []datalog.Atom{
		datalog.Unary(ex+"A", a),
		datalog.Binary(ex+"R", a, b),
		datalog.Unary(datalog.Synthetic, datalog.Const(datalog.WitnessPrefix+"0")),
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", NTriples, false},
		{"ntriples", NTriples, false},
		{"TTL", NTriples, false},
		{"sqlite", SQLite, false},
		{"db", SQLite, false},
		{"rdfxml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestDetectKind(t *testing.T) {
	assert.Equal(t, KindRules, DetectKind("Iteration0_x.txt", nil))
	assert.Equal(t, KindFacts, DetectKind("Iteration0_x.ttl", nil))
	assert.Equal(t, KindFacts, DetectKind("abox.nt", []byte("<a> <b> <c> .")))
	assert.Equal(t, KindRules, DetectKind("program", []byte("<B>(?x) :- <A>(?x) .")))
	assert.Equal(t, KindFacts, DetectKind("program", []byte("<a> <b> <c> .")))
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	rules := filepath.Join(dir, "rules.txt")
	require.NoError(t, os.WriteFile(rules, []byte("<"+ex+"B>(?x) :- <"+ex+"A>(?x) .\n<"+ex+"A>(<"+ex+"a>) .\n"), 0644))
	facts := filepath.Join(dir, "facts.ttl")
	require.NoError(t, os.WriteFile(facts, []byte("<"+ex+"a> <"+ex+"R> <"+ex+"b> .\n"), 0644))

	f, err := ReadFile(rules)
	require.NoError(t, err)
	assert.Equal(t, KindRules, f.Kind)
	assert.Len(t, f.Rules, 1)
	assert.Len(t, f.Facts, 1)

	f, err = ReadFile(facts)
	require.NoError(t, err)
	assert.Equal(t, KindFacts, f.Kind)
	assert.Equal(t, []datalog.Atom{datalog.Binary(ex+"R", datalog.Const(ex+"a"), datalog.Const(ex+"b"))}, f.Facts)

	bad := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte("<"+ex+"B>(?y) :- <"+ex+"A>(?x) .\n"), 0644))
	_, err = ReadFile(bad)
	assert.Error(t, err)

	_, err = ReadFile(filepath.Join(dir, "missing.ttl"))
	assert.Error(t, err)
}

func TestWriteFactsNTriples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "facts.ttl")
	require.NoError(t, WriteFacts(context.Background(), path, NTriples, sampleFacts()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 3)

	back, err := datalog.ParseTriples(strings.NewReader(string(data)))
	require.NoError(t, err)
	if diff := cmp.Diff(sampleFacts(), back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteFactsSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "facts.db")
	require.NoError(t, WriteFacts(ctx, path, SQLite, sampleFacts()))
	// rewriting replaces rather than appends
	require.NoError(t, WriteFacts(ctx, path, SQLite, sampleFacts()[:1]))

	got, err := ReadSQLite(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, sampleFacts()[:1], got)
}

func TestWriteFactsRejectsUnknownFormat(t *testing.T) {
	err := WriteFacts(context.Background(), filepath.Join(t.TempDir(), "x"), Format("xml"), nil)
	assert.Error(t, err)
}
