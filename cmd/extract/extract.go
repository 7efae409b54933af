// Package extract implements "lexicat extract".
package extract

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/endorses/lexicat/internal/pkg/cmdutil"
	"github.com/endorses/lexicat/internal/pkg/constants"
	"github.com/endorses/lexicat/internal/pkg/logger"
	"github.com/endorses/lexicat/internal/pkg/payload"
	"github.com/endorses/lexicat/internal/pkg/pcapwriter"
	"github.com/endorses/lexicat/internal/pkg/scanner"
	"github.com/endorses/lexicat/internal/pkg/signals"
)

type options struct {
	readFile      string
	patterns      []string
	watch         []string
	watchlistFile string
	onlyWatched   bool
	format        string
	maxStreamSize string
	writeHits     string
}

// New returns the extract command.
func New() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Scan the payloads of a packet capture",
		Long: `Read a pcap or pcapng file, reassemble its TCP streams and scan every
stream direction and UDP datagram for artifacts.

Records carry the flow they were found in. With --write-hits the packets of
every payload that produced a record (a watched record when watch rules are
given) are written to a new pcap file.

Examples:
  lexicat extract -r capture.pcap
  lexicat extract -r capture.pcapng -p HOST_NAME,EMAIL_ADDR -o text
  lexicat extract -r capture.pcap --watch 'HOST_NAME=*.evil.example' --write-hits hits.pcap`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.readFile, "read-file", "r", "", "capture file to read, - for stdin (required)")
	cmd.Flags().StringSliceVarP(&opts.patterns, "patterns", "p", nil, "patterns to run, comma separated (default all)")
	cmd.Flags().StringArrayVar(&opts.watch, "watch", nil, "watch rule PATTERN=VALUE, repeatable")
	cmd.Flags().StringVar(&opts.watchlistFile, "watchlist-file", "", "YAML file with watch rules")
	cmd.Flags().BoolVar(&opts.onlyWatched, "only-watched", false, "only report artifacts that match a watch rule")
	cmd.Flags().StringVarP(&opts.format, "output", "o", "", "output format: json or text")
	cmd.Flags().StringVar(&opts.maxStreamSize, "max-stream-size", "", "bytes kept per TCP stream direction, e.g. 1M")
	cmd.Flags().StringVar(&opts.writeHits, "write-hits", "", "write the packets of matching payloads to this pcap file")

	_ = cmd.MarkFlagRequired("read-file")
	return cmd
}

func run(cmd *cobra.Command, opts options) error {
	r, err := cmdutil.LoadRecognizer()
	if err != nil {
		return cmdutil.Validation(err)
	}
	names, err := cmdutil.ValidatePatterns(r, cmdutil.GetStringSliceConfig("extract.patterns", opts.patterns))
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
	maxStream, err := cmdutil.GetSizeConfig("extract.max_stream_size", opts.maxStreamSize, constants.DefaultMaxStreamSize)
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
	})
	if err != nil {
		return cmdutil.Validation(err)
	}

	var in io.Reader = cmd.InOrStdin()
	if opts.readFile != scanner.StdinName {
		f, err := os.Open(opts.readFile)
		if err != nil {
			return cmdutil.Validation(err)
		}
		defer f.Close()
		in = f
	}

	capture, err := payload.Open(in)
	if err != nil {
		return cmdutil.Validation(err)
	}

	var hits *pcapwriter.Writer
	if opts.writeHits != "" {
		hits, err = pcapwriter.Create(opts.writeHits, capture.LinkType())
		if err != nil {
			return err
		}
		defer hits.Close()
	}

	ctx, stop := signals.Context(cmd.Context())
	defer stop()

	cfg := payload.Config{MaxStreamBytes: int(maxStream), KeepPackets: hits != nil}
	err = capture.Payloads(ctx, opts.readFile, cfg, func(p payload.Payload) error {
		if p.Truncated {
			logger.Debug("Stream truncated", "flow", p.Flow, "max_stream_size", cfg.MaxStreamBytes)
		}

		hit := false
		ts := p.Timestamp
		for _, rec := range s.Records(p.Source, string(p.Data)) {
			rec.Flow = p.Flow
			rec.Timestamp = &ts
			if err := s.Emit(rec, rw.Write); err != nil {
				return err
			}
			hit = hit || wl == nil || rec.Watched()
		}

		if hit && hits != nil {
			return writePackets(hits, p.Packets)
		}
		return nil
	})

	stats := capture.Stats()
	logger.Info("Extraction finished",
		"scan_id", s.ScanID(),
		"format", capture.Format(),
		"packets", stats.Packets,
		"tcp_streams", stats.TCPStreams,
		"udp_datagrams", stats.UDPDatagrams,
		"records", s.Stats().Records.Load(),
		"watched", s.Stats().Watched.Load())

	if err != nil {
		return err
	}
	if hits != nil {
		if err := hits.Close(); err != nil {
			return err
		}
		packets, _ := hits.Stats()
		logger.Info("Wrote matching packets", "path", opts.writeHits, "packets", packets)
	}
	if rw.Count() == 0 {
		return cmdutil.ErrNoMatch
	}
	return nil
}

func writePackets(w *pcapwriter.Writer, packets []payload.Packet) error {
	for _, p := range packets {
		if err := w.WritePacket(p.CaptureInfo, p.Data); err != nil {
			return err
		}
	}
	return nil
}
