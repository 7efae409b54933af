package cmdutil

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/endorses/lexicat/internal/pkg/logger"
	"github.com/endorses/lexicat/pkg/recognizer"
)

// LoadRecognizer returns the recognizer for this run. When tld_file is set
// the TLD table is read from it, otherwise the embedded table is used.
func LoadRecognizer() (*recognizer.Recognizer, error) {
	path := viper.GetString("tld_file")
	if path == "" {
		return recognizer.Default(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open TLD table: %w", err)
	}
	defer f.Close()

	tlds, err := recognizer.LoadTLDTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Debug("Loaded TLD table", "path", path, "labels", tlds.Len())

	return recognizer.New(recognizer.WithTLDTable(tlds))
}

// ValidatePatterns checks that every name is known to r. An empty list
// selects all patterns.
func ValidatePatterns(r *recognizer.Recognizer, names []string) ([]string, error) {
	if len(names) == 0 {
		return r.Names(), nil
	}
	for _, name := range names {
		if _, err := r.Pattern(name); err != nil {
			return nil, err
		}
	}
	return names, nil
}
