package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/endorses/lexicat/internal/pkg/output"
)

// ErrUnknownFormat is returned by NewWriter for an unsupported format.
var ErrUnknownFormat = errors.New("unknown output format")

// Output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Writer writes records. Implementations are safe for concurrent use.
type Writer interface {
	Write(Record) error
	// Count returns the number of records written so far.
	Count() int
}

// NewWriter returns a writer for format. Text output is styled when w is a
// terminal.
func NewWriter(w io.Writer, format string) (Writer, error) {
	switch strings.ToLower(format) {
	case "", FormatJSON:
		return &jsonWriter{w: w}, nil
	case FormatText:
		return newTextWriter(w, output.IsTerminal(w)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

type jsonWriter struct {
	mu    sync.Mutex
	w     io.Writer
	count int
}

func (j *jsonWriter) Write(r Record) error {
	data, err := output.MarshalJSONPretty(r, false)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.w.Write(data); err != nil {
		return err
	}
	j.count++
	return nil
}

func (j *jsonWriter) Count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.count
}

type textWriter struct {
	mu    sync.Mutex
	w     io.Writer
	count int

	location lipgloss.Style
	pattern  lipgloss.Style
	watch    lipgloss.Style
	styled   bool
}

func newTextWriter(w io.Writer, styled bool) *textWriter {
	t := &textWriter{w: w, styled: styled}
	if styled {
		r := lipgloss.NewRenderer(w)
		t.location = r.NewStyle().Foreground(lipgloss.Color("#888888"))
		t.pattern = r.NewStyle().Foreground(lipgloss.Color("#5fafff")).Bold(true)
		t.watch = r.NewStyle().Foreground(lipgloss.Color("#ff5f5f")).Bold(true)
	}
	return t
}

func (t *textWriter) render(s lipgloss.Style, text string) string {
	if !t.styled {
		return text
	}
	return s.Render(text)
}

// Write emits "location<TAB>pattern<TAB>value[<TAB>watch=rule]". The
// location is source:line:column for text inputs and source flow for
// captures.
func (t *textWriter) Write(r Record) error {
	var b strings.Builder
	b.WriteString(t.render(t.location, location(r)))
	b.WriteByte('\t')

	pattern := r.Pattern
	if r.Alternative != "" {
		pattern += "/" + r.Alternative
	}
	b.WriteString(t.render(t.pattern, pattern))
	b.WriteByte('\t')
	b.WriteString(strconv.Quote(r.Value))
	if r.Domain != "" {
		b.WriteString("\tdomain=" + r.Domain)
	}
	if r.Watched() {
		b.WriteByte('\t')
		b.WriteString(t.render(t.watch, "watch="+r.Watch))
	}
	b.WriteByte('\n')

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := io.WriteString(t.w, b.String()); err != nil {
		return err
	}
	t.count++
	return nil
}

func (t *textWriter) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

func location(r Record) string {
	if r.Flow != "" {
		return r.Source + " " + r.Flow + " @" + strconv.Itoa(r.Start)
	}
	if r.Line > 0 {
		return r.Source + ":" + strconv.Itoa(r.Line) + ":" + strconv.Itoa(r.Column)
	}
	return r.Source + " @" + strconv.Itoa(r.Start)
}
