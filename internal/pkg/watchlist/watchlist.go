// Package watchlist flags recognized artifacts whose value is on a list of
// rules, e.g. EMAIL_ADDR=*@example.com or IP=10.*.
//
// A rule is written PATTERN=VALUE. PATTERN is a recognizer pattern name
// (case-insensitive) or "*" for any pattern. VALUE uses wildcard syntax and
// is compared case-insensitively. PHONE_NUMBER rules compare digits by
// suffix, so 555-1212 also catches 1-800-555-1212x9.
package watchlist

import (
	"errors"
	"fmt"
	"strings"

	"github.com/coregx/ahocorasick"

	"github.com/endorses/lexicat/internal/pkg/phonematcher"
	"github.com/endorses/lexicat/pkg/recognizer"
)

// ErrInvalidRule is returned for a malformed rule.
var ErrInvalidRule = errors.New("invalid watch rule")

// AnyPattern is the rule pattern that applies to every artifact.
const AnyPattern = "*"

// Rule is one parsed watch rule.
type Rule struct {
	// Pattern is the canonical pattern name or AnyPattern.
	Pattern string
	// Value is the value as written, wildcards included.
	Value string
	// Type is derived from the wildcards in Value.
	Type MatchType

	needle string
}

// String returns the rule in PATTERN=VALUE form.
func (r Rule) String() string {
	return r.Pattern + "=" + r.Value
}

// Hit reports the rule that matched an artifact.
type Hit struct {
	Rule    Rule
	Pattern string
	Text    string
}

// ruleSet holds the rules of one pattern name.
type ruleSet struct {
	contains *ahocorasick.Automaton
	byNeedle map[string]Rule
	affixes  []Rule
}

// Watchlist is an immutable, compiled set of rules. It is safe for
// concurrent use.
type Watchlist struct {
	rules  []Rule
	sets   map[string]*ruleSet
	phones *phonematcher.Matcher
	byNum  map[string]Rule
}

type options struct {
	phoneMinDigits int
}

// Option configures Parse.
type Option func(*options)

// WithPhoneMinDigits sets the minimum digit count of a PHONE_NUMBER rule.
func WithPhoneMinDigits(n int) Option {
	return func(o *options) {
		o.phoneMinDigits = n
	}
}

// ParseRule parses a single PATTERN=VALUE rule.
func ParseRule(s string) (Rule, error) {
	name, value, ok := strings.Cut(strings.TrimSpace(s), "=")
	if !ok {
		return Rule{}, fmt.Errorf("%w: %q: expected PATTERN=VALUE", ErrInvalidRule, s)
	}
	pattern, err := canonicalPattern(strings.TrimSpace(name))
	if err != nil {
		return Rule{}, fmt.Errorf("%w: %q: %w", ErrInvalidRule, s, err)
	}

	value = strings.TrimSpace(value)
	needle, matchType := parseValue(value)
	if needle == "" {
		return Rule{}, fmt.Errorf("%w: %q: empty value", ErrInvalidRule, s)
	}
	return Rule{
		Pattern: pattern,
		Value:   value,
		Type:    matchType,
		needle:  strings.ToLower(needle),
	}, nil
}

// Parse compiles rules into a Watchlist. An empty list yields an empty
// Watchlist that matches nothing.
func Parse(rules []string, opts ...Option) (*Watchlist, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	w := &Watchlist{
		sets:   make(map[string]*ruleSet),
		phones: phonematcher.New(o.phoneMinDigits),
		byNum:  make(map[string]Rule),
	}

	contains := make(map[string][]Rule)
	var numbers []string
	for _, s := range rules {
		r, err := ParseRule(s)
		if err != nil {
			return nil, err
		}
		w.rules = append(w.rules, r)

		if r.Pattern == recognizer.PhoneNumber {
			number := phonematcher.NormalizeToDigits(r.needle)
			if _, dup := w.byNum[number]; !dup {
				w.byNum[number] = r
				numbers = append(numbers, number)
			}
			continue
		}

		set := w.set(r.Pattern)
		if r.Type == MatchContains {
			contains[r.Pattern] = append(contains[r.Pattern], r)
			continue
		}
		set.affixes = append(set.affixes, r)
	}

	if rejected := w.phones.Update(numbers); len(rejected) > 0 {
		r := w.byNum[rejected[0]]
		return nil, fmt.Errorf("%w: %q: phone numbers need at least %d digits",
			ErrInvalidRule, r.String(), w.phones.MinLength())
	}

	for pattern, rs := range contains {
		set := w.sets[pattern]
		set.byNeedle = make(map[string]Rule, len(rs))
		builder := ahocorasick.NewBuilder()
		for _, r := range rs {
			if _, dup := set.byNeedle[r.needle]; dup {
				continue
			}
			set.byNeedle[r.needle] = r
			builder.AddPattern([]byte(r.needle))
		}
		auto, err := builder.Build()
		if err != nil {
			return nil, fmt.Errorf("build %s watch rules: %w", pattern, err)
		}
		set.contains = auto
	}
	return w, nil
}

func (w *Watchlist) set(pattern string) *ruleSet {
	s, ok := w.sets[pattern]
	if !ok {
		s = &ruleSet{}
		w.sets[pattern] = s
	}
	return s
}

// Len returns the number of rules.
func (w *Watchlist) Len() int {
	if w == nil {
		return 0
	}
	return len(w.rules)
}

// Rules returns the parsed rules in the order they were given.
func (w *Watchlist) Rules() []Rule {
	if w == nil {
		return nil
	}
	return append([]Rule(nil), w.rules...)
}

// Check reports whether m is on the watchlist. Rules for the pattern that
// produced m are tried first, then rules for the alternative that matched,
// then AnyPattern rules.
func (w *Watchlist) Check(m recognizer.Match) (Hit, bool) {
	if w.Len() == 0 {
		return Hit{}, false
	}

	if m.Pattern == recognizer.PhoneNumber && w.phones.Size() > 0 {
		if res, ok := w.phones.Match(m.Text); ok {
			return Hit{Rule: w.byNum[res.Suffix], Pattern: m.Pattern, Text: m.Text}, true
		}
	}

	text := strings.ToLower(m.Text)
	for _, name := range []string{m.Pattern, m.Alternative, AnyPattern} {
		if name == "" {
			continue
		}
		set, ok := w.sets[name]
		if !ok {
			continue
		}
		if r, ok := set.match(text); ok {
			return Hit{Rule: r, Pattern: m.Pattern, Text: m.Text}, true
		}
	}
	return Hit{}, false
}

func (s *ruleSet) match(text string) (Rule, bool) {
	if s.contains != nil {
		if m := s.contains.Find([]byte(text), 0); m != nil {
			if r, ok := s.byNeedle[text[m.Start:m.End]]; ok {
				return r, true
			}
		}
	}
	for _, r := range s.affixes {
		if matchValue(text, r.needle, r.Type) {
			return r, true
		}
	}
	return Rule{}, false
}

// canonicalPattern maps a case-insensitive pattern name to the name used by
// the recognizer.
func canonicalPattern(name string) (string, error) {
	if name == AnyPattern {
		return AnyPattern, nil
	}
	for _, known := range recognizer.PatternNames() {
		if strings.EqualFold(name, known) {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %q", recognizer.ErrUnknownPattern, name)
}
