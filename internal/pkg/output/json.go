// Package output provides helpers for CLI output that adapt to whether the
// destination is a terminal.
package output

import (
	"encoding/json"
	"io"
	"os"

	"golang.org/x/term"
)

// IsTTY returns true if stdout is connected to a terminal.
func IsTTY() bool {
	return IsTerminal(os.Stdout)
}

// IsTerminal reports whether w is a file connected to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// MarshalJSONPretty marshals v, indented with 2 spaces when pretty is set.
func MarshalJSONPretty(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// WriteJSON writes v followed by a newline. Output is indented when w is a
// terminal and compact otherwise, which keeps piped output line-oriented.
func WriteJSON(w io.Writer, v any) error {
	data, err := MarshalJSONPretty(v, IsTerminal(w))
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
