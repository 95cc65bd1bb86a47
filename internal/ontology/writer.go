package ontology

import (
	"bufio"
	"io"
)

// Write renders the ontology in functional syntax with full IRIs. Imports
// are not written since their axioms are already merged in.
func Write(w io.Writer, o *Ontology) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("Ontology(")
	if o.IRI != "" {
		bw.WriteString(iri(o.IRI))
	}
	bw.WriteString("\n")
	for _, ax := range o.Axioms {
		bw.WriteString("  ")
		bw.WriteString(ax.String())
		bw.WriteString("\n")
	}
	bw.WriteString(")\n")
	return bw.Flush()
}
