package datalog

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ex = "http://example.org/"

func TestEliminateTop(t *testing.T) {
	x := Var("x")
	tests := []struct {
		name string
		in   []Atom
		want []Atom
	}{
		{"drops top among others", []Atom{Unary(Thing, x), Unary(ex+"A", x)}, []Atom{Unary(ex+"A", x)}},
		{"keeps lone top", []Atom{Unary(Thing, x)}, []Atom{Unary(Thing, x)}},
		{"keeps one of several tops", []Atom{Unary(Thing, x), Unary(Thing, Var("y"))}, []Atom{Unary(Thing, x)}},
		{"binary untouched", []Atom{Binary(Thing, x, x)}, []Atom{Binary(Thing, x, x)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, EliminateTop(tt.in)); diff != "" {
				t.Errorf("EliminateTop mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewRuleEliminatesTopInHeadAndBody(t *testing.T) {
	x, y := Var("x"), Var("y")
	r := NewMultiRule(
		[]Atom{Unary(Thing, y), Binary(ex+"R", x, y)},
		Unary(Thing, x), Unary(ex+"A", x), Binary(ex+"S", x, y),
	)
	assert.Equal(t, "<http://example.org/R>(?x, ?y) :- <http://example.org/A>(?x), <http://example.org/S>(?x, ?y) .", r.String())
	require.NoError(t, r.Validate())
}

func TestRuleValidate(t *testing.T) {
	x, y := Var("x"), Var("y")
	assert.Error(t, NewRule(Binary(ex+"R", x, y), Unary(ex+"A", x)).Validate(), "unbound head variable")
	assert.Error(t, Rule{Head: []Atom{{Predicate: ex + "P", Args: []Term{x, y, x}}}, Body: []Atom{Unary(ex+"A", x)}}.Validate())
	assert.NoError(t, NewRule(Unary(ex+"B", x), Unary(ex+"A", x)).Validate())
}

func TestRuleFileRoundTrip(t *testing.T) {
	x, y := Var("x"), Var("y")
	rules := []Rule{
		NewRule(Unary(ex+"B", x), Unary(ex+"A", x), Unary(ex+"C", x)),
		NewRule(Binary(SameAs, Const(ex+"a"), x), Unary(ex+"A", x)),
		NewMultiRule([]Atom{Unary(ex+"B", y), Unary(ex+"C", y)}, Binary(ex+"R", x, y)),
		NewRule(Binary(ex+"R", x, Const(WitnessPrefix+"3")), Unary(ex+"A", x)),
	}
	var buf bytes.Buffer
	require.NoError(t, WriteRules(&buf, rules))

	got, facts, err := ParseRules(&buf)
	require.NoError(t, err)
	assert.Empty(t, facts)
	if diff := cmp.Diff(rules, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRulesFactsAndErrors(t *testing.T) {
	src := "# comment\n<http://example.org/A>(<http://example.org/a>) .\n<http://example.org/B>(?x) :-\n  <http://example.org/A>(?x) .\n"
	rules, facts, err := ParseRules(strings.NewReader(src))
	require.NoError(t, err)
	assert.Len(t, rules, 1)
	assert.Equal(t, []Atom{Unary(ex+"A", Const(ex+"a"))}, facts)

	_, _, err = ParseRules(strings.NewReader("<http://example.org/A>(?x) ."))
	var se *SyntaxError
	require.True(t, errors.As(err, &se), "non-ground fact must fail, got %v", err)

	_, _, err = ParseRules(strings.NewReader("<http://example.org/A>(?x :- <http://example.org/B>(?x) ."))
	assert.Error(t, err)
}

func TestTriplesRoundTrip(t *testing.T) {
	facts := []Atom{
		Unary(ex+"A", Const(ex+"i")),
		Binary(ex+"R", Const(ex+"i"), Const(WitnessPrefix+"0")),
		Unary(Synthetic, Const("_:b1")),
	}
	var buf bytes.Buffer
	require.NoError(t, WriteFacts(&buf, facts))
	assert.Contains(t, buf.String(), "<http://example.org/i> <"+Type+"> <http://example.org/A> .")

	got, err := ParseTriples(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(facts, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTriplesSkipsLiterals(t *testing.T) {
	src := `<http://example.org/i> <http://example.org/name> "Ann"@en .
<http://example.org/i> <http://example.org/age> "3"^^<http://www.w3.org/2001/XMLSchema#int> .
<http://example.org/i> <http://example.org/knows> <http://example.org/j> .
`
	got, err := ParseTriples(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []Atom{Binary(ex+"knows", Const(ex+"i"), Const(ex+"j"))}, got)

	_, err = ParseTriples(strings.NewReader("ex:i a ex:A ."))
	assert.Error(t, err, "prefixed names are not N-Triples")
}

func TestParseTriplesAcceptsValidNTriples(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []Atom
	}{
		{
			name: "blank node label with hyphen",
			src:  "_:node-1 <http://example.org/p> <http://example.org/o> .\n",
			want: []Atom{Binary(ex+"p", Const("_:node-1"), Const(ex+"o"))},
		},
		{
			name: "trailing comment",
			src:  "<http://example.org/s> <http://example.org/p> <http://example.org/o> . # comment\n",
			want: []Atom{Binary(ex+"p", Const(ex+"s"), Const(ex+"o"))},
		},
		{
			name: "blank node label with dot",
			src:  "<http://example.org/s> <http://example.org/p> _:b.1x .\n",
			want: []Atom{Binary(ex+"p", Const(ex+"s"), Const("_:b.1x"))},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTriples(strings.NewReader(tt.src))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteFactsRejectsNonGround(t *testing.T) {
	err := WriteFacts(&bytes.Buffer{}, []Atom{Unary(ex+"A", Var("x"))})
	assert.Error(t, err)
}

func TestQueryString(t *testing.T) {
	q := NewQuery([]string{"?y"}, []Atom{Unary(Thing, Var("x")), Binary(ex+"R", Var("x"), Var("y"))}, Unary(ex+"B", Var("y")))
	assert.Equal(t, []string{"y"}, q.Vars)
	assert.Len(t, q.Body, 1)
	assert.Equal(t, "SELECT ?y WHERE <http://example.org/R>(?x, ?y), NOT <http://example.org/B>(?y)", q.String())
	assert.Equal(t, []string{"x", "y"}, Variables(q.Body...))
}
