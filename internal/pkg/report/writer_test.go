package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = Record{
	ScanID:  "id",
	Source:  "notes.txt",
	Line:    3,
	Column:  7,
	Pattern: "EMAIL_ADDR",
	Value:   "alice@example.com",
	Start:   40,
	End:     57,
	Domain:  "example.com",
	Watch:   "EMAIL_ADDR=*@example.com",
}

func TestNewWriterUnknownFormat(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, "xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, FormatJSON)
	require.NoError(t, err)

	require.NoError(t, w.Write(sample))
	require.NoError(t, w.Write(Record{Source: "-", Pattern: "IPv4", Value: "10.0.0.1", End: 8}))
	assert.Equal(t, 2, w.Count())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var got Record
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	assert.Equal(t, sample, got)
	assert.NotContains(t, lines[1], "watch")
	assert.NotContains(t, lines[1], "timestamp")
}

func TestTextWriter(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, FormatText)
	require.NoError(t, err)

	require.NoError(t, w.Write(sample))
	require.NoError(t, w.Write(Record{
		Source:      "trace.pcap",
		Flow:        "10.0.0.1:1234->10.0.0.2:80",
		Pattern:     "PATH",
		Alternative: "ABSOLUTE_UNIX_PATH",
		Value:       "/index.html",
		Start:       4,
	}))

	want := "notes.txt:3:7\tEMAIL_ADDR\t\"alice@example.com\"\tdomain=example.com\twatch=EMAIL_ADDR=*@example.com\n" +
		"trace.pcap 10.0.0.1:1234->10.0.0.2:80 @4\tPATH/ABSOLUTE_UNIX_PATH\t\"/index.html\"\n"
	assert.Equal(t, want, buf.String())
}

func TestWritersAreConcurrent(t *testing.T) {
	for _, format := range []string{FormatJSON, FormatText} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(&buf, format)
			require.NoError(t, err)

			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < 50; j++ {
						assert.NoError(t, w.Write(sample))
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, 400, w.Count())
			assert.Equal(t, 400, strings.Count(buf.String(), "\n"))
		})
	}
}
