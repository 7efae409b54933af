package recognizer

import (
	"fmt"
	"iter"
	"strings"

	"github.com/coregx/coregex"
)

// acceptFunc inspects a candidate match in the context of the whole text and
// decides whether it is kept. A rejected candidate is discarded as a whole.
type acceptFunc func(text string, start, end int) bool

// resumeFunc returns the offset at which the search continues after the
// candidate text[start:end] was rejected. It must be greater than start, and
// no candidate beginning in between may be acceptable.
type resumeFunc func(text string, start, end int) int

// Pattern is a named, compiled grammar rule. Patterns are immutable once the
// owning Recognizer has been built and are safe for concurrent use.
type Pattern struct {
	name   string
	expr   string
	alts   []*Pattern
	accept acceptFunc
	resume resumeFunc
	re     *coregex.Regex
}

// Match is a located substring produced by applying a Pattern to a text.
type Match struct {
	Pattern     string `json:"pattern"`
	Alternative string `json:"alternative,omitempty"`
	Text        string `json:"text"`
	Start       int    `json:"start"`
	End         int    `json:"end"`
}

// Len returns the length of the match in bytes.
func (m Match) Len() int {
	return m.End - m.Start
}

// define declares a pattern from a regular expression fragment. The fragment
// must not contain capturing groups; composition relies on that.
func define(name, expr string) *Pattern {
	return &Pattern{name: name, expr: expr}
}

// union declares an ordered choice: at any position the first alternative
// that matches wins, even if a later one would match more text.
func union(name string, alts ...*Pattern) *Pattern {
	parts := make([]string, len(alts))
	for i, alt := range alts {
		parts[i] = alt.expr
	}
	return &Pattern{
		name: name,
		expr: "(?:" + strings.Join(parts, "|") + ")",
		alts: alts,
	}
}

// withAccept attaches a candidate filter to the pattern.
func (p *Pattern) withAccept(fn acceptFunc) *Pattern {
	p.accept = fn
	return p
}

// withResume sets where the search continues after a rejected candidate.
// Without it the search resumes one byte after the candidate's start.
func (p *Pattern) withResume(fn resumeFunc) *Pattern {
	p.resume = fn
	return p
}

// compile builds the regular expression backing the pattern. Union patterns
// wrap each alternative in its own group so the matching alternative can be
// reported. Plain patterns are wrapped in a single group: coregex v0.10.3
// overflows the stack building its reverse-inner searcher for a top-level
// concatenation such as the dotted quad, and a group at the root keeps the
// engine off that path.
func (p *Pattern) compile() error {
	src := "(" + p.expr + ")"
	if len(p.alts) > 0 {
		parts := make([]string, len(p.alts))
		for i, alt := range p.alts {
			parts[i] = "(" + alt.expr + ")"
		}
		src = strings.Join(parts, "|")
	}

	re, err := coregex.Compile(src)
	if err != nil {
		return fmt.Errorf("compile %s: %w", p.name, err)
	}
	p.re = re
	return nil
}

// Name returns the pattern's symbol, e.g. "IPv4".
func (p *Pattern) Name() string {
	return p.name
}

// Alternatives returns the names of the ordered alternatives of a union
// pattern, or nil for a plain pattern.
func (p *Pattern) Alternatives() []string {
	if len(p.alts) == 0 {
		return nil
	}
	names := make([]string, len(p.alts))
	for i, alt := range p.alts {
		names[i] = alt.name
	}
	return names
}

// String returns the regular expression source of the pattern.
func (p *Pattern) String() string {
	return p.expr
}

// Find returns the leftmost match starting at or after offset.
func (p *Pattern) Find(text string, offset int) (Match, bool) {
	if offset < 0 || offset > len(text) {
		return Match{}, false
	}

	for pos := offset; pos <= len(text); {
		var loc []int
		if len(p.alts) > 0 {
			loc = p.re.FindStringSubmatchIndex(text[pos:])
		} else {
			loc = p.re.FindStringIndex(text[pos:])
		}
		if loc == nil {
			return Match{}, false
		}

		start, end := pos+loc[0], pos+loc[1]
		if p.accept == nil || p.accept(text, start, end) {
			return Match{
				Pattern:     p.name,
				Alternative: p.alternative(loc),
				Text:        text[start:end],
				Start:       start,
				End:         end,
			}, true
		}
		if p.resume != nil {
			pos = max(p.resume(text, start, end), start+1)
		} else {
			pos = start + 1
		}
	}
	return Match{}, false
}

// MatchAt returns the match that begins exactly at offset, if any.
func (p *Pattern) MatchAt(text string, offset int) (Match, bool) {
	m, ok := p.Find(text, offset)
	if !ok || m.Start != offset {
		return Match{}, false
	}
	return m, true
}

// All returns the non-overlapping matches of the pattern in text, in
// ascending order of start offset. The sequence is computed lazily and may be
// iterated any number of times.
func (p *Pattern) All(text string) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		pos := 0
		for pos <= len(text) {
			m, ok := p.Find(text, pos)
			if !ok {
				return
			}
			if !yield(m) {
				return
			}
			if m.End > m.Start {
				pos = m.End
			} else {
				pos = m.End + 1
			}
		}
	}
}

// alternative maps submatch indices back to the alternative that produced
// the match.
func (p *Pattern) alternative(loc []int) string {
	for i, alt := range p.alts {
		if 2*i+3 < len(loc) && loc[2*i+2] >= 0 {
			return alt.name
		}
	}
	return ""
}
