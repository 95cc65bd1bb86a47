package datalog

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/knakk/rdf"
)

// SyntaxError reports a malformed rule or fact file.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// =============================================================================
// WRITERS
// =============================================================================

// WriteRules writes one rule per line.
func WriteRules(w io.Writer, rules []Rule) error {
	bw := bufio.NewWriter(w)
	for _, r := range rules {
		if _, err := bw.WriteString(r.String() + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFacts writes ground atoms as N-Triples. Unary atoms become rdf:type
// triples.
func WriteFacts(w io.Writer, facts []Atom) error {
	bw := bufio.NewWriter(w)
	for _, f := range facts {
		line, err := Triple(f)
		if err != nil {
			return err
		}
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Triple renders a ground atom as one N-Triples statement.
func Triple(f Atom) (string, error) {
	if !f.IsGround() {
		return "", fmt.Errorf("fact %s is not ground", f)
	}
	switch f.Arity() {
	case 1:
		return fmt.Sprintf("%s <%s> <%s> .", formatConstant(f.Args[0].Value), Type, f.Predicate), nil
	case 2:
		return fmt.Sprintf("%s <%s> %s .", formatConstant(f.Args[0].Value), f.Predicate, formatConstant(f.Args[1].Value)), nil
	default:
		return "", fmt.Errorf("fact %s has arity %d", f.Predicate, f.Arity())
	}
}

// =============================================================================
// READERS
// =============================================================================

// ParseRules reads a rule file. Statements without a body are returned as
// facts and must be ground.
func ParseRules(r io.Reader) ([]Rule, []Atom, error) {
	lx, err := newLexer(r)
	if err != nil {
		return nil, nil, err
	}
	var rules []Rule
	var facts []Atom
	for !lx.done() {
		head, err := lx.atoms()
		if err != nil {
			return nil, nil, err
		}
		if lx.accept(":-") {
			body, err := lx.atoms()
			if err != nil {
				return nil, nil, err
			}
			if err := lx.expect("."); err != nil {
				return nil, nil, err
			}
			rule := Rule{Head: head, Body: body}
			if err := rule.Validate(); err != nil {
				return nil, nil, &SyntaxError{Line: lx.line(), Msg: err.Error()}
			}
			rules = append(rules, rule)
			continue
		}
		if err := lx.expect("."); err != nil {
			return nil, nil, err
		}
		for _, a := range head {
			if !a.IsGround() {
				return nil, nil, &SyntaxError{Line: lx.line(), Msg: fmt.Sprintf("fact %s is not ground", a)}
			}
			facts = append(facts, a)
		}
	}
	return rules, facts, nil
}

// ParseTriples reads N-Triples. rdf:type triples become unary atoms and
// triples with literal objects are skipped.
func ParseTriples(r io.Reader) ([]Atom, error) {
	dec := rdf.NewTripleDecoder(r, rdf.NTriples)
	var facts []Atom
	for {
		tr, err := dec.Decode()
		if err == io.EOF {
			return facts, nil
		}
		if err != nil {
			return nil, fmt.Errorf("invalid N-Triples: %w", err)
		}
		if _, literal := tr.Obj.(rdf.Literal); literal {
			continue
		}
		s, ok := resource(tr.Subj)
		if !ok {
			return nil, fmt.Errorf("subject %s is not an IRI or blank node", tr.Subj)
		}
		o, ok := resource(tr.Obj)
		if !ok {
			return nil, fmt.Errorf("object %s is not an IRI or blank node", tr.Obj)
		}
		p := tr.Pred.String()
		if _, blank := tr.Obj.(rdf.Blank); p == Type && !blank {
			facts = append(facts, Unary(o, Const(s)))
			continue
		}
		facts = append(facts, Binary(p, Const(s), Const(o)))
	}
}

// resource returns the constant value of an IRI or blank node term.
func resource(t interface{}) (string, bool) {
	switch v := t.(type) {
	case rdf.IRI:
		return v.String(), true
	case rdf.Blank:
		return blankNodePrefix + strings.TrimPrefix(v.String(), blankNodePrefix), true
	}
	return "", false
}

// =============================================================================
// LEXER
// =============================================================================

type tokKind int

const (
	tokIRI tokKind = iota
	tokBlank
	tokVar
	tokLiteral
	tokPunct
)

type token struct {
	kind tokKind
	text string
	line int
}

type lexer struct {
	toks []token
	pos  int
}

func newLexer(r io.Reader) (*lexer, error) {
	lx := &lexer{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := lx.scanLine(line, n); err != nil {
			return nil, err
		}
	}
	return lx, sc.Err()
}

func (lx *lexer) scanLine(line string, n int) error {
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '<':
			end := strings.IndexByte(line[i:], '>')
			if end < 0 {
				return &SyntaxError{Line: n, Msg: "unterminated IRI"}
			}
			lx.toks = append(lx.toks, token{kind: tokIRI, text: line[i+1 : i+end], line: n})
			i += end + 1
		case c == '?' || (c == '_' && i+1 < len(line) && line[i+1] == ':'):
			start := i
			if c == '_' {
				i += 2
			} else {
				i++
			}
			for i < len(line) && isNameChar(rune(line[i])) {
				i++
			}
			kind := tokVar
			text := line[start+1 : i]
			if c == '_' {
				kind = tokBlank
				text = line[start:i]
			}
			lx.toks = append(lx.toks, token{kind: kind, text: text, line: n})
		case c == '"':
			j := i + 1
			for j < len(line) && line[j] != '"' {
				if line[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(line) {
				return &SyntaxError{Line: n, Msg: "unterminated literal"}
			}
			j++
			// datatype or language tag
			if strings.HasPrefix(line[j:], "^^<") {
				end := strings.IndexByte(line[j:], '>')
				if end < 0 {
					return &SyntaxError{Line: n, Msg: "unterminated datatype IRI"}
				}
				j += end + 1
			} else if j < len(line) && line[j] == '@' {
				j++
				for j < len(line) && (isNameChar(rune(line[j])) || line[j] == '-') {
					j++
				}
			}
			lx.toks = append(lx.toks, token{kind: tokLiteral, text: line[i:j], line: n})
			i = j
		case c == ':' && i+1 < len(line) && line[i+1] == '-':
			lx.toks = append(lx.toks, token{kind: tokPunct, text: ":-", line: n})
			i += 2
		case c == '(' || c == ')' || c == ',' || c == '.':
			lx.toks = append(lx.toks, token{kind: tokPunct, text: string(c), line: n})
			i++
		default:
			return &SyntaxError{Line: n, Msg: fmt.Sprintf("unexpected character %q", c)}
		}
	}
	return nil
}

func isNameChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func (lx *lexer) done() bool { return lx.pos >= len(lx.toks) }

func (lx *lexer) line() int {
	if lx.pos < len(lx.toks) {
		return lx.toks[lx.pos].line
	}
	if len(lx.toks) > 0 {
		return lx.toks[len(lx.toks)-1].line
	}
	return 0
}

func (lx *lexer) accept(punct string) bool {
	if !lx.done() && lx.toks[lx.pos].kind == tokPunct && lx.toks[lx.pos].text == punct {
		lx.pos++
		return true
	}
	return false
}

func (lx *lexer) expect(punct string) error {
	if !lx.accept(punct) {
		return &SyntaxError{Line: lx.line(), Msg: fmt.Sprintf("expected %q", punct)}
	}
	return nil
}

func (lx *lexer) atoms() ([]Atom, error) {
	var out []Atom
	for {
		a, err := lx.atom()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
		if !lx.accept(",") {
			return out, nil
		}
	}
}

func (lx *lexer) atom() (Atom, error) {
	if lx.done() || lx.toks[lx.pos].kind != tokIRI {
		return Atom{}, &SyntaxError{Line: lx.line(), Msg: "expected predicate IRI"}
	}
	pred := lx.toks[lx.pos].text
	lx.pos++
	if err := lx.expect("("); err != nil {
		return Atom{}, err
	}
	a := Atom{Predicate: pred}
	for {
		if lx.done() {
			return Atom{}, &SyntaxError{Line: lx.line(), Msg: "unexpected end of input"}
		}
		tok := lx.toks[lx.pos]
		switch tok.kind {
		case tokVar:
			a.Args = append(a.Args, Var(tok.text))
		case tokIRI, tokBlank:
			a.Args = append(a.Args, Const(tok.text))
		default:
			return Atom{}, &SyntaxError{Line: tok.line, Msg: fmt.Sprintf("unexpected %q in argument list", tok.text)}
		}
		lx.pos++
		if lx.accept(")") {
			break
		}
		if err := lx.expect(","); err != nil {
			return Atom{}, err
		}
	}
	if err := a.Validate(); err != nil {
		return Atom{}, &SyntaxError{Line: lx.line(), Msg: err.Error()}
	}
	return a, nil
}
