// Package recognizer locates network and filesystem artifacts in free text:
// MAC and IP addresses, host names, user names, email addresses, phone
// numbers, identifiers, file names and UNIX/Windows paths.
//
// Artifacts are described by a lattice of named patterns, each built from
// lower ones (OCTET -> IPv4 -> IP, FILE_NAME -> DIRECTORY -> PATH, ...).
// Alternatives inside a pattern are tried in a fixed priority order and the
// first one that matches wins, which gives the bounded behaviours the
// recognizer depends on:
//
//	r := recognizer.Default()
//	m, ok, _ := r.Match(recognizer.Octet, "256", 0) // m.Text == "25"
//
// A Recognizer is immutable and safe for concurrent use.
package recognizer

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"
)

// ErrUnknownPattern is returned when a pattern name is not part of the lattice.
var ErrUnknownPattern = errors.New("unknown pattern")

// Recognizer owns a compiled pattern lattice bound to one TLD table.
type Recognizer struct {
	lattice *lattice
	tlds    *TLDTable
}

type options struct {
	tlds    *TLDTable
	tldsSet bool
}

// Option configures a Recognizer.
type Option func(*options)

// WithTLDTable validates host names and email addresses against t instead of
// the embedded table. A nil t makes New fail with ErrInvalidTLDTable.
func WithTLDTable(t *TLDTable) Option {
	return func(o *options) {
		o.tlds = t
		o.tldsSet = true
	}
}

// New compiles the pattern lattice.
func New(opts ...Option) (*Recognizer, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	switch {
	case o.tldsSet && o.tlds == nil:
		return nil, fmt.Errorf("%w: nil table", ErrInvalidTLDTable)
	case o.tlds == nil:
		o.tlds = DefaultTLDTable()
	}
	if o.tlds.Len() == 0 {
		return nil, fmt.Errorf("%w: no labels", ErrInvalidTLDTable)
	}

	l, err := buildLattice(o.tlds)
	if err != nil {
		return nil, err
	}
	return &Recognizer{lattice: l, tlds: o.tlds}, nil
}

var defaultRecognizer = sync.OnceValue(func() *Recognizer {
	r, err := New()
	if err != nil {
		panic("recognizer: " + err.Error())
	}
	return r
})

// Default returns a shared Recognizer using the embedded TLD table.
func Default() *Recognizer {
	return defaultRecognizer()
}

// Names returns the pattern names in lattice order, lower layers first.
func (r *Recognizer) Names() []string {
	names := make([]string, len(r.lattice.order))
	for i, p := range r.lattice.order {
		names[i] = p.name
	}
	return names
}

// Has reports whether name is a pattern of the lattice.
func (r *Recognizer) Has(name string) bool {
	_, ok := r.lattice.byName[name]
	return ok
}

// Pattern looks up a compiled pattern by name.
func (r *Recognizer) Pattern(name string) (*Pattern, error) {
	p, ok := r.lattice.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPattern, name)
	}
	return p, nil
}

// TLDs returns the table host names are validated against.
func (r *Recognizer) TLDs() *TLDTable {
	return r.tlds
}

// Match applies the named pattern to text and returns the leftmost match
// that starts at or after offset. The boolean is false when nothing matches;
// an error is only returned for an unknown pattern name.
func (r *Recognizer) Match(name, text string, offset int) (Match, bool, error) {
	p, err := r.Pattern(name)
	if err != nil {
		return Match{}, false, err
	}
	m, ok := p.Find(text, offset)
	return m, ok, nil
}

// Scan returns every non-overlapping match of the named pattern in text.
func (r *Recognizer) Scan(name, text string) (iter.Seq[Match], error) {
	p, err := r.Pattern(name)
	if err != nil {
		return nil, err
	}
	return p.All(text), nil
}

// ScanAll is Scan collected into a slice.
func (r *Recognizer) ScanAll(name, text string) ([]Match, error) {
	seq, err := r.Scan(name, text)
	if err != nil {
		return nil, err
	}
	return slices.Collect(seq), nil
}

// PatternNames returns the names known to the default recognizer.
func PatternNames() []string {
	return Default().Names()
}
