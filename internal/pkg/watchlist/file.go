package watchlist

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// File is the YAML form of a watchlist:
//
//	phone_min_digits: 7
//	rules:
//	  - EMAIL_ADDR=*@example.com
//	  - pattern: HOST_NAME
//	    value: "*.internal.example.com"
//	    description: internal hosts
//	  - pattern: IP
//	    value: "10.*"
//	    enabled: false
type File struct {
	PhoneMinDigits int     `yaml:"phone_min_digits,omitempty"`
	Rules          []Entry `yaml:"rules"`
}

// Entry is one rule of a File. It is written either as a PATTERN=VALUE
// scalar or as a mapping.
type Entry struct {
	Pattern     string `yaml:"pattern"`
	Value       string `yaml:"value"`
	Description string `yaml:"description,omitempty"`
	Enabled     *bool  `yaml:"enabled,omitempty"`
}

// UnmarshalYAML accepts both the scalar and the mapping form.
func (e *Entry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		r, err := ParseRule(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*e = Entry{Pattern: r.Pattern, Value: r.Value}
		return nil
	}

	type plain Entry
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	if p.Pattern == "" || p.Value == "" {
		return fmt.Errorf("line %d: %w: pattern and value are required", node.Line, ErrInvalidRule)
	}
	*e = Entry(p)
	return nil
}

// IsEnabled reports whether the entry takes part in matching. Entries are
// enabled unless they say otherwise.
func (e Entry) IsEnabled() bool {
	return e.Enabled == nil || *e.Enabled
}

// String returns the entry in PATTERN=VALUE form.
func (e Entry) String() string {
	return e.Pattern + "=" + e.Value
}

// Decode reads a File.
func Decode(r io.Reader) (File, error) {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("decode watchlist: %w", err)
	}
	return f, nil
}

// RuleStrings returns the enabled rules in PATTERN=VALUE form.
func (f File) RuleStrings() []string {
	out := make([]string, 0, len(f.Rules))
	for _, e := range f.Rules {
		if e.IsEnabled() {
			out = append(out, e.String())
		}
	}
	return out
}

// Load decodes a File and compiles its enabled rules followed by extra.
func Load(r io.Reader, extra ...string) (*Watchlist, error) {
	f, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return Parse(append(f.RuleStrings(), extra...), WithPhoneMinDigits(f.PhoneMinDigits))
}
