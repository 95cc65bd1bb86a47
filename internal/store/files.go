package store

import (
	"bytes"
	"fmt"
	"os"

	"hornmat/internal/datalog"
)

// File is a parsed import file.
type File struct {
	Path  string
	Kind  Kind
	Rules []datalog.Rule
	Facts []datalog.Atom
}

// ReadFile parses a rules or facts file. A rules file may carry ground
// facts as bodiless statements.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	head := data
	if len(head) > 4096 {
		head = head[:4096]
	}
	f := &File{Path: path, Kind: DetectKind(path, head)}
	switch f.Kind {
	case KindRules:
		f.Rules, f.Facts, err = datalog.ParseRules(bytes.NewReader(data))
	default:
		f.Facts, err = datalog.ParseTriples(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, r := range f.Rules {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return f, nil
}
