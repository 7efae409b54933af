package watchlist

import "strings"

// MatchType is how a rule value is compared with a recognized artifact.
type MatchType int

const (
	// MatchContains matches if the value is found anywhere in the artifact.
	// This is the default for values without wildcards.
	MatchContains MatchType = iota
	// MatchPrefix matches if the artifact starts with the value.
	MatchPrefix
	// MatchSuffix matches if the artifact ends with the value.
	MatchSuffix
)

func (t MatchType) String() string {
	switch t {
	case MatchPrefix:
		return "prefix"
	case MatchSuffix:
		return "suffix"
	default:
		return "contains"
	}
}

// parseValue strips wildcards from a rule value and reports how it matches.
//
// Value syntax:
//   - "alice"    -> MatchContains
//   - "*.corp"   -> MatchSuffix
//   - "10.*"     -> MatchPrefix
//   - "*alice*"  -> MatchContains
//   - "\\*alice" -> MatchContains with a literal "*"
func parseValue(input string) (needle string, matchType MatchType) {
	// NUL never appears in a rule read from a flag or YAML scalar.
	const placeholder = "\x00"
	working := strings.ReplaceAll(input, `\*`, placeholder)

	leading := strings.HasPrefix(working, "*")
	trailing := strings.HasSuffix(working, "*")

	switch {
	case leading && trailing:
		matchType = MatchContains
		working = strings.TrimSuffix(strings.TrimPrefix(working, "*"), "*")
	case leading:
		matchType = MatchSuffix
		working = strings.TrimPrefix(working, "*")
	case trailing:
		matchType = MatchPrefix
		working = strings.TrimSuffix(working, "*")
	default:
		matchType = MatchContains
	}

	return strings.ReplaceAll(working, placeholder, "*"), matchType
}

// matchValue compares lower-cased text with a lower-cased needle.
func matchValue(text, needle string, matchType MatchType) bool {
	switch matchType {
	case MatchPrefix:
		return strings.HasPrefix(text, needle)
	case MatchSuffix:
		return strings.HasSuffix(text, needle)
	default:
		return strings.Contains(text, needle)
	}
}
