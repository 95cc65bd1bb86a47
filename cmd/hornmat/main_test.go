package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hornmat/internal/config"
	"hornmat/internal/datalog"
)

const ontologySrc = `Prefix(:=<http://example.org/>)
Ontology(<http://example.org/onto>
  Declaration(Class(:A))
  SubClassOf(:A ObjectSomeValuesFrom(:R :B))
  ClassAssertion(:A :i)
)
`

// resetFlags restores every flag so runs do not leak into each other.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the CLI with a config path that does not exist, so the
// defaults apply.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithConfig(t, filepath.Join(t.TempDir(), "absent.yaml"), args...)
}

func executeWithConfig(t *testing.T, configFile string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", configFile}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "hornmat dev\n", out)
}

func TestMaterialize(t *testing.T) {
	onto := writeTemp(t, "onto.ofn", ontologySrc)
	dir := t.TempDir()
	export := filepath.Join(dir, "out.nt")

	out, err := execute(t, "materialize", onto,
		"--work-dir", filepath.Join(dir, "work"),
		"--export", export,
		"--threads", "2",
		"--equality", "off",
		"--metrics-file", filepath.Join(dir, "metrics.prom"))
	require.NoError(t, err)
	assert.Contains(t, out, "Axioms:        ClassAssertion=1")
	assert.Contains(t, out, "Rounds:        2")
	assert.Contains(t, out, "Witnesses:     1")
	assert.NotContains(t, out, "inconsistent")

	data, err := os.ReadFile(export)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<"+datalog.WitnessPrefix)
	assert.Contains(t, string(data), "<http://example.org/B>")
	assert.FileExists(t, filepath.Join(dir, "metrics.prom"))

	work, err := os.ReadDir(filepath.Join(dir, "work"))
	require.NoError(t, err)
	assert.Len(t, work, 6)
}

func TestMaterializeRejectsBadFlags(t *testing.T) {
	onto := writeTemp(t, "onto.ofn", ontologySrc)
	_, err := execute(t, "materialize", onto, "--work-dir", t.TempDir(), "--export-format", "rdfxml")
	assert.Error(t, err)

	_, err = execute(t, "materialize", onto, "--work-dir", t.TempDir(), "--threads", "0")
	assert.Error(t, err)

	_, err = execute(t, "materialize", filepath.Join(t.TempDir(), "missing.ofn"))
	assert.Error(t, err)
}

func TestMaterializeRoundLimit(t *testing.T) {
	onto := writeTemp(t, "onto.ofn", ontologySrc)
	_, err := execute(t, "materialize", onto, "--work-dir", t.TempDir(), "--max-rounds", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "materialization failed")
}

func TestCompile(t *testing.T) {
	onto := writeTemp(t, "onto.ofn", ontologySrc)
	dir := t.TempDir()

	out, err := execute(t, "compile", onto, "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Deferred existential: 1")
	assert.Contains(t, out, "Deferred universal: 0")

	facts, err := os.ReadFile(filepath.Join(dir, "facts.ttl"))
	require.NoError(t, err)
	assert.Contains(t, string(facts), "<http://example.org/i> <"+datalog.Type+"> <http://example.org/A> .")
	assert.FileExists(t, filepath.Join(dir, "rules.txt"))
}

func TestTrim(t *testing.T) {
	onto := writeTemp(t, "onto.ofn", `Prefix(:=<http://example.org/>)
Ontology(<http://example.org/onto>
  SubClassOf(:A :B)
  SubClassOf(:A ObjectUnionOf(:B :C))
)
`)
	out, err := execute(t, "trim", onto)
	require.NoError(t, err)
	assert.Contains(t, out, "removed SubClassOf")
	assert.Contains(t, out, "SubClassOf(<http://example.org/A> <http://example.org/B>)")
	written := out[strings.Index(out, "Ontology("):]
	assert.NotContains(t, written, "ObjectUnionOf")

	dst := filepath.Join(t.TempDir(), "trimmed.ofn")
	out, err = execute(t, "trim", onto, "--out", dst)
	require.NoError(t, err)
	assert.Contains(t, out, "Kept 1 axioms, removed 1")
	assert.FileExists(t, dst)
}

func TestCompare(t *testing.T) {
	typ := " <" + datalog.Type + "> "
	a := writeTemp(t, "a.nt", "<http://example.org/i>"+typ+"<http://example.org/A> .\n")
	b := writeTemp(t, "b.nt", strings.Join([]string{
		"<http://example.org/i>" + typ + "<http://example.org/A> .",
		"<http://example.org/j>" + typ + "<http://example.org/A> .",
	}, "\n")+"\n")

	out, err := execute(t, "compare", a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "OK")

	out, err = execute(t, "compare", b, a)
	require.Error(t, err)
	assert.Contains(t, out, "missing")
	assert.Contains(t, out, "http://example.org/j")
}

func TestConfigInit(t *testing.T) {
	t.Setenv("HORNMAT_THREADS", "")
	path := filepath.Join(t.TempDir(), "hornmat.yaml")

	out, err := executeWithConfig(t, path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Store, loaded.Store)

	_, err = executeWithConfig(t, path, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = executeWithConfig(t, path, "config", "init", "--force")
	assert.NoError(t, err)
}
