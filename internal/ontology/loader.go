package ontology

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"hornmat/internal/logging"
)

// ErrMissingImport is returned when an imported ontology cannot be found.
var ErrMissingImport = errors.New("missing import")

// importExtensions are tried when mapping an import IRI onto a local file.
var importExtensions = []string{"", ".ofn", ".owl", ".fss"}

// Load reads the ontology at path and every ontology it imports. Imports are
// resolved as file IRIs, as paths relative to the importing file, or by the
// last segment of the IRI looked up next to the importing file.
func Load(file string) (*Ontology, error) {
	timer := logging.StartTimer(logging.CategoryOntology, "load")
	defer timer.Stop()

	l := &loader{visited: make(map[string]bool)}
	o := &Ontology{Ignored: make(map[string]int)}
	if err := l.load(file, o, true); err != nil {
		return nil, err
	}
	logging.Ontology("loaded %s: %d axioms, %d imports", file, len(o.Axioms), len(o.Imports))
	return o, nil
}

type loader struct {
	visited map[string]bool
}

func (l *loader) load(file string, o *Ontology, root bool) error {
	abs, err := filepath.Abs(file)
	if err != nil {
		return err
	}
	if l.visited[abs] {
		return nil
	}
	l.visited[abs] = true

	f, err := os.Open(abs)
	if err != nil {
		return fmt.Errorf("open ontology: %w", err)
	}
	defer f.Close()

	doc, err := Parse(f, file)
	if err != nil {
		return err
	}
	if root {
		o.IRI = doc.IRI
	}
	o.Axioms = append(o.Axioms, doc.Axioms...)
	for k, v := range doc.Ignored {
		o.Ignored[k] += v
	}

	for _, imp := range doc.Imports {
		target, ok := resolveImport(imp, filepath.Dir(abs))
		if !ok {
			return fmt.Errorf("%w: %s imported by %s", ErrMissingImport, imp, file)
		}
		if abs, err := filepath.Abs(target); err == nil && l.visited[abs] {
			continue
		}
		logging.OntologyDebug("import %s -> %s", imp, target)
		o.Imports = append(o.Imports, imp)
		if err := l.load(target, o, false); err != nil {
			return err
		}
	}
	return nil
}

func resolveImport(iri, dir string) (string, bool) {
	var candidates []string
	if u, err := url.Parse(iri); err == nil && u.Scheme != "" {
		if u.Scheme == "file" {
			candidates = append(candidates, u.Path)
		}
		if base := path.Base(strings.TrimSuffix(u.Path, "/")); base != "." && base != "/" {
			candidates = append(candidates, filepath.Join(dir, base))
		}
	} else {
		p := iri
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		candidates = append(candidates, p)
	}
	for _, c := range candidates {
		for _, ext := range importExtensions {
			if st, err := os.Stat(c + ext); err == nil && !st.IsDir() {
				return c + ext, true
			}
		}
	}
	return "", false
}
