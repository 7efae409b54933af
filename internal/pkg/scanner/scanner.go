// Package scanner runs the recognizer over texts, files and stdin and turns
// the matches into report records.
package scanner

import (
	"cmp"
	"context"
	"io"
	"os"
	"runtime"
	"slices"
	"sort"
	"sync/atomic"

	"github.com/endorses/lexicat/internal/pkg/constants"
	"github.com/endorses/lexicat/internal/pkg/report"
	"github.com/endorses/lexicat/internal/pkg/watchlist"
	"github.com/endorses/lexicat/pkg/recognizer"
)

// StdinName is the path that selects standard input.
const StdinName = "-"

// EmitFunc receives records. It is never called concurrently.
type EmitFunc func(report.Record) error

// Config configures a Scanner.
type Config struct {
	// Patterns to run. Empty means every pattern of the recognizer.
	Patterns []string
	// Watchlist marks records whose value matches a rule. May be nil.
	Watchlist *watchlist.Watchlist
	// OnlyWatched drops records without a watchlist hit.
	OnlyWatched bool
	// Workers is the number of files scanned in parallel. <= 0 uses GOMAXPROCS.
	Workers int
	// MaxFileSize is the largest input read. <= 0 uses constants.DefaultMaxFileSize.
	MaxFileSize int64
	// ScanID is stamped on every record. Empty generates one.
	ScanID string
	// Stdin replaces os.Stdin for the "-" path.
	Stdin io.Reader
}

// Stats counts what a scan did.
type Stats struct {
	Files   atomic.Int64
	Skipped atomic.Int64
	Errors  atomic.Int64
	Records atomic.Int64
	Watched atomic.Int64
}

// Scanner applies a set of patterns to inputs. It is safe for concurrent use.
type Scanner struct {
	rec      *recognizer.Recognizer
	patterns []*recognizer.Pattern
	rank     map[string]int
	cfg      Config
	stats    Stats
}

// New validates cfg against r.
func New(r *recognizer.Recognizer, cfg Config) (*Scanner, error) {
	names := cfg.Patterns
	if len(names) == 0 {
		names = r.Names()
	}

	s := &Scanner{rec: r, rank: make(map[string]int, len(names))}
	for i, name := range names {
		p, err := r.Pattern(name)
		if err != nil {
			return nil, err
		}
		s.patterns = append(s.patterns, p)
		s.rank[p.Name()] = i
	}

	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = constants.DefaultMaxFileSize
	}
	if cfg.ScanID == "" {
		cfg.ScanID = report.NewScanID()
	}
	if cfg.Stdin == nil {
		cfg.Stdin = os.Stdin
	}
	s.cfg = cfg
	return s, nil
}

// ScanID returns the identifier stamped on this scanner's records.
func (s *Scanner) ScanID() string {
	return s.cfg.ScanID
}

// Stats returns the running counters.
func (s *Scanner) Stats() *Stats {
	return &s.stats
}

// Records returns the records for text in ascending start order. Matches of
// different patterns that start at the same offset keep the configured
// pattern order.
func (s *Scanner) Records(source, text string) []report.Record {
	var records []report.Record
	var lines lineIndex
	for _, p := range s.patterns {
		for m := range p.All(text) {
			rec := report.FromMatch(s.cfg.ScanID, source, m)
			if hit, ok := s.cfg.Watchlist.Check(m); ok {
				rec.SetHit(hit)
			}
			if s.cfg.OnlyWatched && !rec.Watched() {
				continue
			}
			report.Enrich(&rec)
			if lines == nil {
				lines = newLineIndex(text)
			}
			rec.Line, rec.Column = lines.position(m.Start)
			records = append(records, rec)
		}
	}

	slices.SortStableFunc(records, func(a, b report.Record) int {
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return cmp.Compare(s.rank[a.Pattern], s.rank[b.Pattern])
	})
	return records
}

// ScanText scans text and passes its records to emit.
func (s *Scanner) ScanText(ctx context.Context, source, text string, emit EmitFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, rec := range s.Records(source, text) {
		if err := s.Emit(rec, emit); err != nil {
			return err
		}
	}
	return nil
}

// Emit passes rec to emit and counts it in Stats.
func (s *Scanner) Emit(rec report.Record, emit EmitFunc) error {
	if err := emit(rec); err != nil {
		return err
	}
	s.stats.Records.Add(1)
	if rec.Watched() {
		s.stats.Watched.Add(1)
	}
	return nil
}

// lineIndex holds the offset of every line start.
type lineIndex []int

func newLineIndex(text string) lineIndex {
	idx := lineIndex{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

// position converts a byte offset to a 1-based line and byte column.
func (l lineIndex) position(offset int) (line, column int) {
	i := sort.Search(len(l), func(i int) bool { return l[i] > offset }) - 1
	return i + 1, offset - l[i] + 1
}
