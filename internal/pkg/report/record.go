// Package report turns recognizer matches into output records and writes
// them as JSON lines or aligned text.
package report

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	"github.com/endorses/lexicat/internal/pkg/watchlist"
	"github.com/endorses/lexicat/pkg/recognizer"
)

// Record is one recognized artifact together with where it was found.
type Record struct {
	ScanID      string     `json:"scan_id"`
	Source      string     `json:"source"`
	Flow        string     `json:"flow,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	Line        int        `json:"line,omitempty"`
	Column      int        `json:"column,omitempty"`
	Pattern     string     `json:"pattern"`
	Alternative string     `json:"alternative,omitempty"`
	Value       string     `json:"value"`
	Start       int        `json:"start"`
	End         int        `json:"end"`
	Domain      string     `json:"domain,omitempty"`
	Watch       string     `json:"watch,omitempty"`
}

// NewScanID returns an identifier shared by every record of one run.
func NewScanID() string {
	return uuid.NewString()
}

// FromMatch builds a record for m found in source.
func FromMatch(scanID, source string, m recognizer.Match) Record {
	return Record{
		ScanID:      scanID,
		Source:      source,
		Pattern:     m.Pattern,
		Alternative: m.Alternative,
		Value:       m.Text,
		Start:       m.Start,
		End:         m.End,
	}
}

// Watched reports whether a watch rule matched the record.
func (r Record) Watched() bool {
	return r.Watch != ""
}

// SetHit records the watch rule that matched.
func (r *Record) SetHit(hit watchlist.Hit) {
	r.Watch = hit.Rule.String()
}

// Enrich fills Domain with the registrable domain of HOST_NAME and
// EMAIL_ADDR values, e.g. "example.co.uk" for "mail.example.co.uk". Value is
// left untouched. Names that have no registrable domain are skipped.
func Enrich(r *Record) {
	var host string
	switch r.Pattern {
	case recognizer.HostName:
		host = r.Value
	case recognizer.EmailAddr:
		_, host, _ = strings.Cut(r.Value, "@")
	default:
		return
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(strings.ToLower(host))
	if err != nil {
		return
	}
	r.Domain = domain
}
