package ontology

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"hornmat/internal/datalog"
)

// SyntaxError reports a malformed functional-syntax document.
type SyntaxError struct {
	Source string
	Line   int
	Msg    string
}

func (e *SyntaxError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Msg)
}

// Document is the result of parsing one file, before imports are resolved.
type Document struct {
	IRI      string
	Imports  []string
	Axioms   []Axiom
	Prefixes map[string]string
	Ignored  map[string]int
}

var defaultPrefixes = map[string]string{
	"owl:":  datalog.OWL,
	"rdf:":  datalog.RDF,
	"rdfs:": "http://www.w3.org/2000/01/rdf-schema#",
	"xsd:":  "http://www.w3.org/2001/XMLSchema#",
}

// ignoredAxioms carry no Horn-ALCHOIQ content and are skipped while reading.
var ignoredAxioms = map[string]bool{
	"Declaration":                   true,
	"AnnotationAssertion":           true,
	"SubAnnotationPropertyOf":       true,
	"AnnotationPropertyDomain":      true,
	"AnnotationPropertyRange":       true,
	"SubDataPropertyOf":             true,
	"EquivalentDataProperties":      true,
	"DisjointDataProperties":        true,
	"DataPropertyDomain":            true,
	"DataPropertyRange":             true,
	"FunctionalDataProperty":        true,
	"DataPropertyAssertion":         true,
	"NegativeDataPropertyAssertion": true,
	"DatatypeDefinition":            true,
	"HasKey":                        true,
}

// Parse reads an OWL 2 functional-syntax document. source names the input
// in error messages.
func Parse(r io.Reader, source string) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	nodes, err := readNodes(string(data), source)
	if err != nil {
		return nil, err
	}
	p := &docParser{
		source: source,
		doc: &Document{
			Prefixes: make(map[string]string, len(defaultPrefixes)),
			Ignored:  make(map[string]int),
		},
	}
	for k, v := range defaultPrefixes {
		p.doc.Prefixes[k] = v
	}
	sawOntology := false
	for _, n := range nodes {
		switch n.name {
		case "Prefix":
			if err := p.prefix(n); err != nil {
				return nil, err
			}
		case "Ontology":
			if sawOntology {
				return nil, p.errorf(n, "more than one Ontology")
			}
			sawOntology = true
			if err := p.ontology(n); err != nil {
				return nil, err
			}
		default:
			return nil, p.errorf(n, "unexpected %s at top level", n.label())
		}
	}
	if !sawOntology {
		return nil, &SyntaxError{Source: source, Line: 1, Msg: "missing Ontology(...)"}
	}
	return p.doc, nil
}

type docParser struct {
	source string
	doc    *Document
}

func (p *docParser) errorf(n *node, format string, args ...interface{}) error {
	return &SyntaxError{Source: p.source, Line: n.line, Msg: fmt.Sprintf(format, args...)}
}

func (p *docParser) prefix(n *node) error {
	// Prefix(ex:=<http://example.org/>)
	if len(n.args) != 3 || n.args[1].leaf != "=" || n.args[2].kind != leafIRI {
		return p.errorf(n, "malformed Prefix declaration")
	}
	name := n.args[0].leaf
	if !strings.HasSuffix(name, ":") {
		return p.errorf(n, "prefix name %q must end with ':'", name)
	}
	p.doc.Prefixes[name] = n.args[2].leaf
	return nil
}

func (p *docParser) ontology(n *node) error {
	for i, arg := range n.args {
		if arg.isLeaf() {
			if i == 0 && (arg.kind == leafIRI || arg.kind == leafName) {
				iri, err := p.iri(arg)
				if err != nil {
					return err
				}
				p.doc.IRI = iri
			}
			// version IRI
			continue
		}
		switch arg.name {
		case "Import":
			if len(arg.args) != 1 {
				return p.errorf(arg, "Import takes one IRI")
			}
			iri, err := p.iri(arg.args[0])
			if err != nil {
				return err
			}
			p.doc.Imports = append(p.doc.Imports, iri)
		case "Annotation":
		default:
			if ignoredAxioms[arg.name] {
				p.doc.Ignored[arg.name]++
				continue
			}
			axioms, err := p.axiom(arg)
			if err != nil {
				return err
			}
			p.doc.Axioms = append(p.doc.Axioms, axioms...)
		}
	}
	return nil
}

// iri expands a full or prefixed IRI leaf.
func (p *docParser) iri(n *node) (string, error) {
	switch n.kind {
	case leafIRI:
		return n.leaf, nil
	case leafName:
		idx := strings.IndexByte(n.leaf, ':')
		if idx < 0 {
			return "", p.errorf(n, "expected IRI, got %q", n.leaf)
		}
		ns, ok := p.doc.Prefixes[n.leaf[:idx+1]]
		if !ok {
			return "", p.errorf(n, "undeclared prefix in %q", n.leaf)
		}
		return ns + n.leaf[idx+1:], nil
	default:
		return "", p.errorf(n, "expected IRI, got %s", n.label())
	}
}

func (p *docParser) individual(n *node) (string, error) {
	if n.kind == leafBlank {
		return n.leaf, nil
	}
	return p.iri(n)
}

func (p *docParser) individuals(nodes []*node) ([]string, error) {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ind, err := p.individual(n)
		if err != nil {
			return nil, err
		}
		out = append(out, ind)
	}
	return out, nil
}

func (p *docParser) role(n *node) (Role, error) {
	if !n.isLeaf() {
		if n.name != "ObjectInverseOf" || len(n.args) != 1 {
			return Role{}, p.errorf(n, "expected object property, got %s", n.label())
		}
		r, err := p.role(n.args[0])
		if err != nil {
			return Role{}, err
		}
		return r.Invert(), nil
	}
	name, err := p.iri(n)
	if err != nil {
		return Role{}, err
	}
	return NewRole(name), nil
}

func (p *docParser) classes(nodes []*node) ([]ClassExpression, error) {
	out := make([]ClassExpression, 0, len(nodes))
	for _, n := range nodes {
		ce, err := p.class(n)
		if err != nil {
			return nil, err
		}
		out = append(out, ce)
	}
	return out, nil
}

func (p *docParser) class(n *node) (ClassExpression, error) {
	if n.isLeaf() {
		name, err := p.iri(n)
		if err != nil {
			return nil, err
		}
		return Class{IRI: name}, nil
	}
	args := n.args
	switch n.name {
	case "ObjectIntersectionOf":
		ops, err := p.classes(args)
		if err != nil {
			return nil, err
		}
		return ObjectIntersectionOf{Operands: ops}, nil
	case "ObjectUnionOf":
		ops, err := p.classes(args)
		if err != nil {
			return nil, err
		}
		return ObjectUnionOf{Operands: ops}, nil
	case "ObjectComplementOf":
		if len(args) != 1 {
			return nil, p.errorf(n, "ObjectComplementOf takes one operand")
		}
		op, err := p.class(args[0])
		if err != nil {
			return nil, err
		}
		return ObjectComplementOf{Operand: op}, nil
	case "ObjectOneOf":
		inds, err := p.individuals(args)
		if err != nil {
			return nil, err
		}
		return ObjectOneOf{Individuals: inds}, nil
	case "ObjectSomeValuesFrom", "ObjectAllValuesFrom":
		if len(args) != 2 {
			return nil, p.errorf(n, "%s takes a property and a class", n.name)
		}
		r, err := p.role(args[0])
		if err != nil {
			return nil, err
		}
		filler, err := p.class(args[1])
		if err != nil {
			return nil, err
		}
		if n.name == "ObjectAllValuesFrom" {
			return ObjectAllValuesFrom{Role: r, Filler: filler}, nil
		}
		return ObjectMinCardinality{N: 1, Role: r, Filler: filler}, nil
	case "ObjectHasValue":
		if len(args) != 2 {
			return nil, p.errorf(n, "ObjectHasValue takes a property and an individual")
		}
		r, err := p.role(args[0])
		if err != nil {
			return nil, err
		}
		ind, err := p.individual(args[1])
		if err != nil {
			return nil, err
		}
		return ObjectMinCardinality{N: 1, Role: r, Filler: ObjectOneOf{Individuals: []string{ind}}}, nil
	case "ObjectHasSelf":
		if len(args) != 1 {
			return nil, p.errorf(n, "ObjectHasSelf takes one property")
		}
		r, err := p.role(args[0])
		if err != nil {
			return nil, err
		}
		return ObjectHasSelf{Role: r}, nil
	case "ObjectMinCardinality", "ObjectMaxCardinality", "ObjectExactCardinality":
		if len(args) != 2 && len(args) != 3 {
			return nil, p.errorf(n, "%s takes a number, a property and an optional class", n.name)
		}
		num, err := strconv.Atoi(args[0].leaf)
		if err != nil || args[0].kind != leafName || num < 0 {
			return nil, p.errorf(n, "%s: invalid cardinality %q", n.name, args[0].leaf)
		}
		r, err := p.role(args[1])
		if err != nil {
			return nil, err
		}
		var filler ClassExpression = Top
		if len(args) == 3 {
			if filler, err = p.class(args[2]); err != nil {
				return nil, err
			}
		}
		switch n.name {
		case "ObjectMinCardinality":
			return ObjectMinCardinality{N: num, Role: r, Filler: filler}, nil
		case "ObjectMaxCardinality":
			return ObjectMaxCardinality{N: num, Role: r, Filler: filler}, nil
		}
		return ObjectIntersectionOf{Operands: []ClassExpression{
			ObjectMinCardinality{N: num, Role: r, Filler: filler},
			ObjectMaxCardinality{N: num, Role: r, Filler: filler},
		}}, nil
	default:
		return UnsupportedClass{Text: p.render(n)}, nil
	}
}

func (p *docParser) axiom(n *node) ([]Axiom, error) {
	var args []*node
	for _, a := range n.args {
		if !a.isLeaf() && a.name == "Annotation" {
			continue
		}
		args = append(args, a)
	}
	unsupported := []Axiom{Unsupported{Kind: n.name, Text: p.render(n)}}

	switch n.name {
	case "SubClassOf":
		if len(args) != 2 {
			return nil, p.errorf(n, "SubClassOf takes two class expressions")
		}
		ops, err := p.classes(args)
		if err != nil {
			return nil, err
		}
		return []Axiom{SubClassOf{Sub: ops[0], Super: ops[1]}}, nil
	case "EquivalentClasses":
		ops, err := p.classes(args)
		if err != nil {
			return nil, err
		}
		var out []Axiom
		for i := range ops {
			for j := i + 1; j < len(ops); j++ {
				out = append(out, SubClassOf{Sub: ops[i], Super: ops[j]}, SubClassOf{Sub: ops[j], Super: ops[i]})
			}
		}
		return out, nil
	case "SubObjectPropertyOf":
		if len(args) != 2 {
			return nil, p.errorf(n, "SubObjectPropertyOf takes two properties")
		}
		if !args[0].isLeaf() && args[0].name == "ObjectPropertyChain" {
			return unsupported, nil
		}
		sub, err := p.role(args[0])
		if err != nil {
			return nil, err
		}
		sup, err := p.role(args[1])
		if err != nil {
			return nil, err
		}
		return []Axiom{SubObjectPropertyOf{Sub: sub, Super: sup}}, nil
	case "EquivalentObjectProperties":
		rs, err := p.roles(args)
		if err != nil {
			return nil, err
		}
		var out []Axiom
		for i := range rs {
			for j := i + 1; j < len(rs); j++ {
				out = append(out, SubObjectPropertyOf{Sub: rs[i], Super: rs[j]}, SubObjectPropertyOf{Sub: rs[j], Super: rs[i]})
			}
		}
		return out, nil
	case "InverseObjectProperties":
		rs, err := p.roles(args)
		if err != nil {
			return nil, err
		}
		if len(rs) != 2 {
			return nil, p.errorf(n, "InverseObjectProperties takes two properties")
		}
		return []Axiom{
			SubObjectPropertyOf{Sub: rs[0], Super: rs[1].Invert()},
			SubObjectPropertyOf{Sub: rs[1].Invert(), Super: rs[0]},
		}, nil
	case "ObjectPropertyDomain", "ObjectPropertyRange":
		if len(args) != 2 {
			return nil, p.errorf(n, "%s takes a property and a class", n.name)
		}
		r, err := p.role(args[0])
		if err != nil {
			return nil, err
		}
		c, err := p.class(args[1])
		if err != nil {
			return nil, err
		}
		if n.name == "ObjectPropertyDomain" {
			r = r.Invert()
		}
		return []Axiom{SubClassOf{Sub: Top, Super: ObjectAllValuesFrom{Role: r, Filler: c}}}, nil
	case "FunctionalObjectProperty", "InverseFunctionalObjectProperty":
		if len(args) != 1 {
			return nil, p.errorf(n, "%s takes one property", n.name)
		}
		r, err := p.role(args[0])
		if err != nil {
			return nil, err
		}
		if n.name == "InverseFunctionalObjectProperty" {
			r = r.Invert()
		}
		return []Axiom{SubClassOf{Sub: Top, Super: ObjectMaxCardinality{N: 1, Role: r, Filler: Top}}}, nil
	case "SymmetricObjectProperty":
		if len(args) != 1 {
			return nil, p.errorf(n, "SymmetricObjectProperty takes one property")
		}
		r, err := p.role(args[0])
		if err != nil {
			return nil, err
		}
		return []Axiom{SubObjectPropertyOf{Sub: r, Super: r.Invert()}}, nil
	case "ClassAssertion":
		if len(args) != 2 {
			return nil, p.errorf(n, "ClassAssertion takes a class and an individual")
		}
		c, err := p.class(args[0])
		if err != nil {
			return nil, err
		}
		ind, err := p.individual(args[1])
		if err != nil {
			return nil, err
		}
		return []Axiom{ClassAssertion{Class: c, Individual: ind}}, nil
	case "ObjectPropertyAssertion":
		if len(args) != 3 {
			return nil, p.errorf(n, "ObjectPropertyAssertion takes a property and two individuals")
		}
		r, err := p.role(args[0])
		if err != nil {
			return nil, err
		}
		inds, err := p.individuals(args[1:])
		if err != nil {
			return nil, err
		}
		return []Axiom{ObjectPropertyAssertion{Role: r, Subject: inds[0], Object: inds[1]}}, nil
	case "SameIndividual", "DifferentIndividuals":
		inds, err := p.individuals(args)
		if err != nil {
			return nil, err
		}
		if n.name == "SameIndividual" {
			return []Axiom{SameIndividual{Individuals: inds}}, nil
		}
		return []Axiom{DifferentIndividuals{Individuals: inds}}, nil
	default:
		return unsupported, nil
	}
}

func (p *docParser) roles(nodes []*node) ([]Role, error) {
	out := make([]Role, 0, len(nodes))
	for _, n := range nodes {
		r, err := p.role(n)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// render prints a node back with prefixed names expanded where possible.
func (p *docParser) render(n *node) string {
	if n.isLeaf() {
		switch n.kind {
		case leafIRI:
			return "<" + n.leaf + ">"
		case leafName:
			if full, err := p.iri(n); err == nil {
				return "<" + full + ">"
			}
		}
		return n.leaf
	}
	parts := make([]string, len(n.args))
	for i, a := range n.args {
		parts[i] = p.render(a)
	}
	return n.name + "(" + strings.Join(parts, " ") + ")"
}

// =============================================================================
// S-EXPRESSION READER
// =============================================================================

type leafKind int

const (
	leafNone leafKind = iota
	leafIRI
	leafName
	leafBlank
	leafLiteral
	leafPunct
)

// node is either a leaf token or Name(args...).
type node struct {
	name string
	args []*node
	kind leafKind
	leaf string
	line int
}

func (n *node) isLeaf() bool { return n.kind != leafNone }

func (n *node) label() string {
	if n.isLeaf() {
		return strconv.Quote(n.leaf)
	}
	return n.name + "(...)"
}

type reader struct {
	src    string
	pos    int
	line   int
	source string
}

func readNodes(src, source string) ([]*node, error) {
	rd := &reader{src: src, line: 1, source: source}
	var out []*node
	for {
		rd.skipSpace()
		if rd.pos >= len(rd.src) {
			return out, nil
		}
		n, err := rd.node()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
}

func (rd *reader) errorf(format string, args ...interface{}) error {
	return &SyntaxError{Source: rd.source, Line: rd.line, Msg: fmt.Sprintf(format, args...)}
}

func (rd *reader) skipSpace() {
	for rd.pos < len(rd.src) {
		switch c := rd.src[rd.pos]; {
		case c == '\n':
			rd.line++
			rd.pos++
		case c == ' ' || c == '\t' || c == '\r':
			rd.pos++
		case c == '#':
			for rd.pos < len(rd.src) && rd.src[rd.pos] != '\n' {
				rd.pos++
			}
		default:
			return
		}
	}
}

func (rd *reader) node() (*node, error) {
	line := rd.line
	c := rd.src[rd.pos]
	switch {
	case c == '<':
		end := strings.IndexByte(rd.src[rd.pos:], '>')
		if end < 0 {
			return nil, rd.errorf("unterminated IRI")
		}
		text := rd.src[rd.pos+1 : rd.pos+end]
		rd.pos += end + 1
		return &node{kind: leafIRI, leaf: text, line: line}, nil
	case c == '"':
		start := rd.pos
		rd.pos++
		for rd.pos < len(rd.src) && rd.src[rd.pos] != '"' {
			if rd.src[rd.pos] == '\\' {
				rd.pos++
			}
			if rd.pos < len(rd.src) && rd.src[rd.pos] == '\n' {
				rd.line++
			}
			rd.pos++
		}
		if rd.pos >= len(rd.src) {
			return nil, rd.errorf("unterminated literal")
		}
		rd.pos++
		if strings.HasPrefix(rd.src[rd.pos:], "^^") {
			rd.pos += 2
			if _, err := rd.node(); err != nil {
				return nil, err
			}
		} else if rd.pos < len(rd.src) && rd.src[rd.pos] == '@' {
			for rd.pos < len(rd.src) && !isDelimiter(rd.src[rd.pos]) {
				rd.pos++
			}
		}
		return &node{kind: leafLiteral, leaf: rd.src[start:rd.pos], line: line}, nil
	case c == '=':
		rd.pos++
		return &node{kind: leafPunct, leaf: "=", line: line}, nil
	case c == '(' || c == ')':
		return nil, rd.errorf("unexpected %q", c)
	}

	start := rd.pos
	for rd.pos < len(rd.src) && !isDelimiter(rd.src[rd.pos]) {
		rd.pos++
	}
	word := rd.src[start:rd.pos]
	if rd.pos < len(rd.src) && rd.src[rd.pos] == '(' && !strings.Contains(word, ":") {
		rd.pos++
		n := &node{name: word, line: line}
		for {
			rd.skipSpace()
			if rd.pos >= len(rd.src) {
				return nil, rd.errorf("unterminated %s(", word)
			}
			if rd.src[rd.pos] == ')' {
				rd.pos++
				return n, nil
			}
			child, err := rd.node()
			if err != nil {
				return nil, err
			}
			n.args = append(n.args, child)
		}
	}
	kind := leafName
	if strings.HasPrefix(word, "_:") {
		kind = leafBlank
	}
	return &node{kind: kind, leaf: word, line: line}, nil
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '(', ')', '=', '<', '"', '#':
		return true
	}
	return false
}
