package program

import (
	"sort"
	"strconv"
	"strings"

	"hornmat/internal/datalog"
)

// Synthetics is the arena of witness individuals. Each witness is identified
// by its class conjunction; ids are handed out once and never reused.
type Synthetics struct {
	byKey   map[string]string
	classes map[string][]string
	ids     []string
}

// NewSynthetics returns an empty arena.
func NewSynthetics() *Synthetics {
	return &Synthetics{
		byKey:   make(map[string]string),
		classes: make(map[string][]string),
	}
}

// Canonical sorts and deduplicates classes and drops owl:Thing.
func Canonical(classes []string) []string {
	seen := make(map[string]bool, len(classes))
	out := make([]string, 0, len(classes))
	for _, c := range classes {
		if c == datalog.Thing || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Obtain returns the witness for the conjunction, minting it on first use.
// For a new witness it also returns its Top, Synthetic and class facts.
func (s *Synthetics) Obtain(classes []string) (string, []datalog.Atom, bool) {
	conj := Canonical(classes)
	key := strings.Join(conj, " ")
	if id, ok := s.byKey[key]; ok {
		return id, nil, false
	}
	id := datalog.WitnessPrefix + strconv.Itoa(len(s.ids))
	s.byKey[key] = id
	s.classes[id] = conj
	s.ids = append(s.ids, id)

	w := datalog.Const(id)
	facts := make([]datalog.Atom, 0, len(conj)+2)
	facts = append(facts, datalog.Unary(datalog.Thing, w), datalog.Unary(datalog.Synthetic, w))
	for _, c := range conj {
		facts = append(facts, datalog.Unary(c, w))
	}
	return id, facts, true
}

// ClassConjunction returns the conjunction a witness was created for.
func (s *Synthetics) ClassConjunction(id string) ([]string, bool) {
	c, ok := s.classes[id]
	if !ok {
		return nil, false
	}
	return append([]string(nil), c...), true
}

// Len returns the number of witnesses.
func (s *Synthetics) Len() int { return len(s.ids) }

// IDs returns witness ids in creation order.
func (s *Synthetics) IDs() []string { return append([]string(nil), s.ids...) }
