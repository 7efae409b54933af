package phonematcher

import "strings"

// NormalizeToDigits extracts the dialable digits of a phone number. An
// extension introduced by 'x' or 'X' is dropped, so
//
//   - 1-800-555-1212x42 → 18005551212
//   - +1 (800) 555-1212 → 18005551212
//   - 555-1212          → 5551212
func NormalizeToDigits(input string) string {
	if i := strings.IndexAny(input, "xX"); i >= 0 {
		input = input[:i]
	}

	var b strings.Builder
	b.Grow(len(input))
	for i := 0; i < len(input); i++ {
		if c := input[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Extension returns the digits after an 'x' extension marker, or "".
func Extension(input string) string {
	i := strings.IndexAny(input, "xX")
	if i < 0 {
		return ""
	}
	ext := input[i+1:]
	if !IsDigitsOnly(ext) {
		return ""
	}
	return ext
}

// IsDigitsOnly returns true if the string contains only ASCII digits.
func IsDigitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
