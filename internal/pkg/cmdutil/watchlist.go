package cmdutil

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/viper"

	"github.com/endorses/lexicat/internal/pkg/logger"
	"github.com/endorses/lexicat/internal/pkg/output"
	"github.com/endorses/lexicat/internal/pkg/report"
	"github.com/endorses/lexicat/internal/pkg/watchlist"
)

// LoadWatchlist combines the rules of file, the "watchlist" config key and
// flagRules. It returns nil when no rule is configured anywhere.
func LoadWatchlist(flagRules []string, file string) (*watchlist.Watchlist, error) {
	rules := append(viper.GetStringSlice("watchlist"), flagRules...)

	var (
		wl  *watchlist.Watchlist
		err error
	)
	if file != "" {
		f, openErr := os.Open(file)
		if openErr != nil {
			return nil, Validation(fmt.Errorf("open watchlist: %w", openErr))
		}
		defer f.Close()
		wl, err = watchlist.Load(f, rules...)
	} else {
		if len(rules) == 0 {
			return nil, nil
		}
		wl, err = watchlist.Parse(rules)
	}
	if err != nil {
		return nil, Validation(err)
	}

	logger.Debug("Loaded watchlist", "file", file, "rules", wl.Len())
	return wl, nil
}

// ReportWriter returns a record writer for w. The format comes from the
// flag, then output.format, and otherwise is text on a terminal and JSON
// lines everywhere else.
func ReportWriter(w io.Writer, flagFormat string) (report.Writer, error) {
	format := GetStringConfig("output.format", flagFormat)
	if format == "" {
		format = report.FormatJSON
		if output.IsTerminal(w) {
			format = report.FormatText
		}
	}

	rw, err := report.NewWriter(w, format)
	if err != nil {
		return nil, Validation(err)
	}
	return rw, nil
}
