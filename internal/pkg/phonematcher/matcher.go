// Package phonematcher matches recognized phone numbers against a list of
// numbers by digit suffix, so "555-1212" on a watchlist also catches
// "1-800-555-1212" and "800-555-1212x9".
//
// Most observed numbers are not on the list; a bloom filter rejects them
// before the exact lookup.
package phonematcher

import (
	"slices"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/endorses/lexicat/internal/pkg/constants"
)

// Matcher performs phone number suffix matching.
//
// Thread-safe: reads are lock-free via atomic pointer swap.
// Update rebuilds the entire state and atomically swaps it in.
type Matcher struct {
	minLength int
	state     atomic.Pointer[matcherState]
}

// matcherState holds the immutable matching state.
type matcherState struct {
	bloom   *bloom.BloomFilter
	numbers map[string]string // normalized digits -> number as written
	lengths []int             // unique lengths, sorted descending
}

// Result describes a successful match.
type Result struct {
	// Number is the list entry as it was written.
	Number string
	// Suffix is the normalized digits that matched.
	Suffix string
	// Observed is the normalized digits of the observed number.
	Observed string
}

// New creates a Matcher that ignores numbers shorter than minLength digits.
// A minLength <= 0 selects constants.DefaultPhoneMinDigits.
func New(minLength int) *Matcher {
	if minLength <= 0 {
		minLength = constants.DefaultPhoneMinDigits
	}
	m := &Matcher{minLength: minLength}
	m.state.Store(emptyState())
	return m
}

func emptyState() *matcherState {
	return &matcherState{
		bloom:   bloom.NewWithEstimates(1, constants.DefaultBloomFPRate),
		numbers: make(map[string]string),
	}
}

// Update replaces the list of numbers. Entries are normalized to digits;
// entries shorter than the minimum length are returned as rejected.
// Readers see either the old or new list, never a partial one.
func (m *Matcher) Update(numbers []string) (rejected []string) {
	if len(numbers) == 0 {
		m.state.Store(emptyState())
		return nil
	}

	entries := make(map[string]string, len(numbers))
	lengthSet := make(map[int]struct{})
	for _, n := range numbers {
		digits := NormalizeToDigits(n)
		if len(digits) < m.minLength {
			rejected = append(rejected, n)
			continue
		}
		if _, dup := entries[digits]; !dup {
			entries[digits] = n
		}
		lengthSet[len(digits)] = struct{}{}
	}

	lengths := make([]int, 0, len(lengthSet))
	for l := range lengthSet {
		lengths = append(lengths, l)
	}
	slices.Sort(lengths)
	slices.Reverse(lengths)

	bf := bloom.NewWithEstimates(uint(max(len(entries), 1)*10), constants.DefaultBloomFPRate)
	for digits := range entries {
		bf.AddString(digits)
	}

	m.state.Store(&matcherState{bloom: bf, numbers: entries, lengths: lengths})
	return rejected
}

// Match checks observed against the list. The longest matching suffix wins.
func (m *Matcher) Match(observed string) (Result, bool) {
	state := m.state.Load()
	if len(state.numbers) == 0 {
		return Result{}, false
	}

	digits := NormalizeToDigits(observed)
	if len(digits) < m.minLength {
		return Result{}, false
	}

	for _, k := range state.lengths {
		if k > len(digits) {
			continue
		}
		suffix := digits[len(digits)-k:]

		// Fast path: bloom filter rejects most non-matches
		if !state.bloom.TestString(suffix) {
			continue
		}
		if number, ok := state.numbers[suffix]; ok {
			return Result{Number: number, Suffix: suffix, Observed: digits}, true
		}
	}
	return Result{}, false
}

// Size returns the number of distinct numbers on the list.
func (m *Matcher) Size() int {
	return len(m.state.Load().numbers)
}

// MinLength returns the minimum number of digits an entry must have.
func (m *Matcher) MinLength() int {
	return m.minLength
}
