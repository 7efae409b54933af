// Package scan implements "lexicat scan".
package scan

import (
	"github.com/spf13/cobra"

	"github.com/endorses/lexicat/internal/pkg/cmdutil"
	"github.com/endorses/lexicat/internal/pkg/constants"
	"github.com/endorses/lexicat/internal/pkg/logger"
	"github.com/endorses/lexicat/internal/pkg/report"
	"github.com/endorses/lexicat/internal/pkg/scanner"
	"github.com/endorses/lexicat/internal/pkg/signals"
)

type options struct {
	patterns      []string
	watch         []string
	watchlistFile string
	onlyWatched   bool
	format        string
	workers       int
	maxFileSize   string
}

// New returns the scan command.
func New() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "scan [FILE|DIR|-]...",
		Short: "Scan files for artifacts",
		Long: `Scan files, directories or standard input and report every artifact the
selected patterns recognize. Without arguments standard input is read.

Records are printed as JSON lines, or as text when writing to a terminal.
The exit status is 1 when nothing was reported.

Examples:
  lexicat scan /var/log/syslog
  lexicat scan -p EMAIL_ADDR,HOST_NAME ./mail
  cat notes.txt | lexicat scan -p IP -o text
  lexicat scan --watch 'IP=10.0.*' --watch 'EMAIL_ADDR=*@corp.example' --only-watched logs/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.patterns, "patterns", "p", nil, "patterns to run, comma separated (default all)")
	cmd.Flags().StringArrayVar(&opts.watch, "watch", nil, "watch rule PATTERN=VALUE, repeatable")
	cmd.Flags().StringVar(&opts.watchlistFile, "watchlist-file", "", "YAML file with watch rules")
	cmd.Flags().BoolVar(&opts.onlyWatched, "only-watched", false, "only report artifacts that match a watch rule")
	cmd.Flags().StringVarP(&opts.format, "output", "o", "", "output format: json or text")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "files scanned in parallel (default GOMAXPROCS)")
	cmd.Flags().StringVar(&opts.maxFileSize, "max-file-size", "", "skip inputs larger than this, e.g. 64M")
	return cmd
}

func run(cmd *cobra.Command, args []string, opts options) error {
	r, err := cmdutil.LoadRecognizer()
	if err != nil {
		return cmdutil.Validation(err)
	}
	names, err := cmdutil.ValidatePatterns(r, cmdutil.GetStringSliceConfig("scan.patterns", opts.patterns))
	if err != nil {
		return cmdutil.Validation(err)
	}
	wl, err := cmdutil.LoadWatchlist(opts.watch, opts.watchlistFile)
	if err != nil {
		return err
	}
	if opts.onlyWatched && wl == nil {
		return cmdutil.Validationf("--only-watched needs at least one watch rule")
	}
	maxSize, err := cmdutil.GetSizeConfig("scan.max_file_size", opts.maxFileSize, constants.DefaultMaxFileSize)
	if err != nil {
		return cmdutil.Validation(err)
	}
	rw, err := cmdutil.ReportWriter(cmd.OutOrStdout(), opts.format)
	if err != nil {
		return err
	}

	s, err := scanner.New(r, scanner.Config{
		Patterns:    names,
		Watchlist:   wl,
		OnlyWatched: opts.onlyWatched,
		Workers:     cmdutil.GetIntConfig("scan.workers", opts.workers, cmd.Flags().Changed("workers")),
		MaxFileSize: maxSize,
		Stdin:       cmd.InOrStdin(),
	})
	if err != nil {
		return cmdutil.Validation(err)
	}

	inputs := args
	if len(inputs) == 0 {
		inputs = []string{scanner.StdinName}
	}

	ctx, stop := signals.Context(cmd.Context())
	defer stop()

	err = s.ScanFiles(ctx, inputs, func(rec report.Record) error {
		return rw.Write(rec)
	})

	stats := s.Stats()
	logger.Info("Scan finished",
		"scan_id", s.ScanID(),
		"files", stats.Files.Load(),
		"skipped", stats.Skipped.Load(),
		"errors", stats.Errors.Load(),
		"records", stats.Records.Load(),
		"watched", stats.Watched.Load())

	if err != nil {
		return err
	}
	if rw.Count() == 0 {
		return cmdutil.ErrNoMatch
	}
	return nil
}
