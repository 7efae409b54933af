package recognizer

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"golang.org/x/net/idna"
)

// ErrInvalidTLDTable is returned when a TLD table is empty or contains a
// label that cannot be a top-level domain.
var ErrInvalidTLDTable = errors.New("invalid TLD table")

//go:embed tlds.txt
var embeddedTLDs string

// TLDTable is an immutable set of top-level domain labels. Labels are stored
// lower-cased in their ASCII (punycode) form.
type TLDTable struct {
	labels map[string]struct{}
}

// NewTLDTable builds a table from labels. Labels are trimmed, a leading dot is
// dropped, internationalized labels are converted to punycode and everything
// is lower-cased. Duplicates are ignored.
func NewTLDTable(labels []string) (*TLDTable, error) {
	set := make(map[string]struct{}, len(labels))
	for _, raw := range labels {
		label, err := normalizeTLD(raw)
		if err != nil {
			return nil, err
		}
		set[label] = struct{}{}
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("%w: no labels", ErrInvalidTLDTable)
	}
	return &TLDTable{labels: set}, nil
}

// LoadTLDTable reads a table in the IANA tlds-alpha-by-domain.txt format: one
// label per line, blank lines and lines starting with '#' are ignored.
func LoadTLDTable(r io.Reader) (*TLDTable, error) {
	var labels []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		labels = append(labels, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read TLD table: %w", err)
	}
	return NewTLDTable(labels)
}

var defaultTLDs = sync.OnceValue(func() *TLDTable {
	t, err := LoadTLDTable(strings.NewReader(embeddedTLDs))
	if err != nil {
		panic("recognizer: embedded TLD table: " + err.Error())
	}
	return t
})

// DefaultTLDTable returns the table compiled into the package. It is a subset
// of the IANA root zone list; use LoadTLDTable for the full list.
func DefaultTLDTable() *TLDTable {
	return defaultTLDs()
}

// Contains reports whether label is a known TLD. The comparison ignores case.
func (t *TLDTable) Contains(label string) bool {
	if t == nil || label == "" {
		return false
	}
	_, ok := t.labels[strings.ToLower(label)]
	return ok
}

// Len returns the number of labels in the table.
func (t *TLDTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.labels)
}

// Labels returns the labels in sorted order.
func (t *TLDTable) Labels() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, t.Len())
	for label := range t.labels {
		out = append(out, label)
	}
	slices.Sort(out)
	return out
}

func normalizeTLD(raw string) (string, error) {
	label := strings.TrimPrefix(strings.TrimSpace(raw), ".")
	if label == "" {
		return "", fmt.Errorf("%w: empty label", ErrInvalidTLDTable)
	}

	ascii, err := idna.Lookup.ToASCII(label)
	if err != nil {
		return "", fmt.Errorf("%w: label %q: %v", ErrInvalidTLDTable, raw, err)
	}
	ascii = strings.ToLower(ascii)

	if ascii == "" {
		return "", fmt.Errorf("%w: label %q maps to nothing", ErrInvalidTLDTable, raw)
	}
	if strings.Contains(ascii, ".") {
		return "", fmt.Errorf("%w: label %q has more than one component", ErrInvalidTLDTable, raw)
	}
	if ascii[0] == '-' || ascii[len(ascii)-1] == '-' {
		return "", fmt.Errorf("%w: label %q starts or ends with a hyphen", ErrInvalidTLDTable, raw)
	}
	for i := 0; i < len(ascii); i++ {
		c := ascii[i]
		if !('a' <= c && c <= 'z') && !('0' <= c && c <= '9') && c != '-' {
			return "", fmt.Errorf("%w: label %q contains %q", ErrInvalidTLDTable, raw, c)
		}
	}
	return ascii, nil
}
