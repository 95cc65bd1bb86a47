package ontology

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ex = "http://example.org/"

func cls(name string) Class { return Class{IRI: ex + name} }
func role(name string) Role { return NewRole(ex + name) }

func parseString(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := Parse(strings.NewReader(src), "test.ofn")
	require.NoError(t, err)
	return doc
}

func TestParseAxioms(t *testing.T) {
	doc := parseString(t, `
# a comment
Prefix(:=<http://example.org/>)
Prefix(ex:=<http://example.org/>)
Ontology(<http://example.org/onto>
  Declaration(Class(:A))
  Annotation(rdfs:label "test")
  SubClassOf(Annotation(rdfs:comment "x") :A ObjectSomeValuesFrom(:R :B))
  SubClassOf(ObjectIntersectionOf(:A ex:C) ObjectAllValuesFrom(ObjectInverseOf(:R) :B))
  SubClassOf(:A ObjectMaxCardinality(1 :R :B))
  SubClassOf(:A ObjectMinCardinality(2 :R))
  SubObjectPropertyOf(:R :S)
  ClassAssertion(:A :i)
  ObjectPropertyAssertion(:R :i _:b0)
  SameIndividual(:i :j :k)
  DataPropertyAssertion(:age :i "3"^^xsd:int)
)`)

	assert.Equal(t, ex+"onto", doc.IRI)
	assert.Equal(t, 1, doc.Ignored["Declaration"])
	assert.Equal(t, 1, doc.Ignored["DataPropertyAssertion"])

	want := []Axiom{
		SubClassOf{Sub: cls("A"), Super: ObjectMinCardinality{N: 1, Role: role("R"), Filler: cls("B")}},
		SubClassOf{Sub: ObjectIntersectionOf{Operands: []ClassExpression{cls("A"), cls("C")}}, Super: ObjectAllValuesFrom{Role: role("R").Invert(), Filler: cls("B")}},
		SubClassOf{Sub: cls("A"), Super: ObjectMaxCardinality{N: 1, Role: role("R"), Filler: cls("B")}},
		SubClassOf{Sub: cls("A"), Super: ObjectMinCardinality{N: 2, Role: role("R"), Filler: Top}},
		SubObjectPropertyOf{Sub: role("R"), Super: role("S")},
		ClassAssertion{Class: cls("A"), Individual: ex + "i"},
		ObjectPropertyAssertion{Role: role("R"), Subject: ex + "i", Object: "_:b0"},
		SameIndividual{Individuals: []string{ex + "i", ex + "j", ex + "k"}},
	}
	if diff := cmp.Diff(want, doc.Axioms); diff != "" {
		t.Errorf("axioms mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSugar(t *testing.T) {
	doc := parseString(t, `Prefix(:=<http://example.org/>)
Ontology(
  EquivalentClasses(:A :B)
  ObjectPropertyDomain(:R :D)
  ObjectPropertyRange(:R :C)
  FunctionalObjectProperty(:F)
  InverseObjectProperties(:P :Q)
  SymmetricObjectProperty(:S)
  SubClassOf(:A ObjectHasValue(:R :a))
)`)
	want := []Axiom{
		SubClassOf{Sub: cls("A"), Super: cls("B")},
		SubClassOf{Sub: cls("B"), Super: cls("A")},
		SubClassOf{Sub: Top, Super: ObjectAllValuesFrom{Role: role("R").Invert(), Filler: cls("D")}},
		SubClassOf{Sub: Top, Super: ObjectAllValuesFrom{Role: role("R"), Filler: cls("C")}},
		SubClassOf{Sub: Top, Super: ObjectMaxCardinality{N: 1, Role: role("F"), Filler: Top}},
		SubObjectPropertyOf{Sub: role("P"), Super: role("Q").Invert()},
		SubObjectPropertyOf{Sub: role("Q").Invert(), Super: role("P")},
		SubObjectPropertyOf{Sub: role("S"), Super: role("S").Invert()},
		SubClassOf{Sub: cls("A"), Super: ObjectMinCardinality{N: 1, Role: role("R"), Filler: ObjectOneOf{Individuals: []string{ex + "a"}}}},
	}
	if diff := cmp.Diff(want, doc.Axioms); diff != "" {
		t.Errorf("axioms mismatch (-want +got):\n%s", diff)
	}
}

func TestParseUnsupportedKeepsText(t *testing.T) {
	doc := parseString(t, `Prefix(:=<http://example.org/>)
Ontology(
  DisjointClasses(:A :B)
  SubObjectPropertyOf(ObjectPropertyChain(:R :S) :T)
  SubClassOf(:A DataSomeValuesFrom(:age xsd:int))
)`)
	require.Len(t, doc.Axioms, 3)
	assert.Equal(t, Unsupported{Kind: "DisjointClasses", Text: "DisjointClasses(<http://example.org/A> <http://example.org/B>)"}, doc.Axioms[0])
	assert.Equal(t, "SubObjectPropertyOf", doc.Axioms[1].(Unsupported).Kind)
	sc := doc.Axioms[2].(SubClassOf)
	_, isUnsupported := sc.Super.(UnsupportedClass)
	assert.True(t, isUnsupported)
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"undeclared prefix": `Ontology(SubClassOf(foo:A foo:B))`,
		"unterminated":      `Ontology(SubClassOf(<http://a> <http://b>)`,
		"no ontology":       `Prefix(:=<http://example.org/>)`,
		"bad cardinality":   `Ontology(SubClassOf(<http://a> ObjectMaxCardinality(x <http://r>)))`,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(src), "bad.ofn")
			var se *SyntaxError
			assert.True(t, errors.As(err, &se), "want SyntaxError, got %v", err)
		})
	}
}

func TestLoadImports(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.ofn"), `Prefix(:=<http://example.org/>)
Ontology(<http://example.org/main>
  Import(<http://example.org/shared.ofn>)
  Import(<extra.ofn>)
  SubClassOf(:A :B)
)`)
	writeFile(t, filepath.Join(dir, "shared.ofn"), `Ontology(<http://example.org/shared>
  Import(<main.ofn>)
  SubClassOf(<http://example.org/B> <http://example.org/C>)
)`)
	writeFile(t, filepath.Join(dir, "extra.ofn"), `Ontology(ClassAssertion(<http://example.org/A> <http://example.org/i>))`)

	o, err := Load(filepath.Join(dir, "main.ofn"))
	require.NoError(t, err)
	assert.Equal(t, ex+"main", o.IRI)
	assert.Len(t, o.Axioms, 3, "cyclic import of main must be loaded once")
	assert.Equal(t, []string{ex + "shared.ofn", "extra.ofn"}, o.Imports)
}

func TestLoadMissingImport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.ofn"), `Ontology(Import(<http://example.org/nowhere>))`)
	_, err := Load(filepath.Join(dir, "main.ofn"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingImport))
}

func TestNormalize(t *testing.T) {
	A, B, C, D := cls("A"), cls("B"), cls("C"), cls("D")
	R := role("R")
	in := []Axiom{
		SubClassOf{Sub: ObjectUnionOf{Operands: []ClassExpression{A, B}}, Super: C},
		SubClassOf{Sub: A, Super: ObjectIntersectionOf{Operands: []ClassExpression{B, C}}},
		SubClassOf{Sub: ObjectMinCardinality{N: 1, Role: R, Filler: B}, Super: D},
		SubClassOf{Sub: A, Super: ObjectMinCardinality{N: 1, Role: R, Filler: ObjectOneOf{Individuals: []string{ex + "a"}}}},
		ClassAssertion{Class: A, Individual: ex + "i"},
	}
	aux := Class{IRI: AuxPrefix + "0"}
	want := []Axiom{
		SubClassOf{Sub: A, Super: C},
		SubClassOf{Sub: B, Super: C},
		SubClassOf{Sub: A, Super: B},
		SubClassOf{Sub: A, Super: C},
		SubClassOf{Sub: B, Super: ObjectAllValuesFrom{Role: R.Invert(), Filler: D}},
		SubClassOf{Sub: A, Super: ObjectMinCardinality{N: 1, Role: R, Filler: aux}},
		SubClassOf{Sub: aux, Super: ObjectOneOf{Individuals: []string{ex + "a"}}},
		ClassAssertion{Class: A, Individual: ex + "i"},
	}
	if diff := cmp.Diff(want, Normalize(in)); diff != "" {
		t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	o := &Ontology{
		IRI: ex + "onto",
		Axioms: []Axiom{
			SubClassOf{Sub: cls("A"), Super: ObjectMinCardinality{N: 1, Role: role("R").Invert(), Filler: cls("B")}},
			SubClassOf{Sub: cls("A"), Super: ObjectMaxCardinality{N: 1, Role: role("R"), Filler: Top}},
			SubObjectPropertyOf{Sub: role("R"), Super: role("S")},
			ObjectPropertyAssertion{Role: role("R"), Subject: ex + "a", Object: ex + "b"},
			DifferentIndividuals{Individuals: []string{ex + "a", ex + "b"}},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, o))

	doc, err := Parse(&buf, "written.ofn")
	require.NoError(t, err)
	assert.Equal(t, o.IRI, doc.IRI)
	if diff := cmp.Diff(o.Axioms, doc.Axioms); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRoleHelpers(t *testing.T) {
	r := role("R")
	assert.Equal(t, r, r.Invert().Invert())
	assert.NotEqual(t, r.Key(), r.Invert().Key())
	assert.Equal(t, []Role{role("R"), role("S")}, Roles(ObjectIntersectionOf{Operands: []ClassExpression{
		ObjectMinCardinality{N: 1, Role: role("R"), Filler: ObjectAllValuesFrom{Role: role("S"), Filler: Top}},
		cls("A"),
	}}))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
