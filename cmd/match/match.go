// Package match implements "lexicat match".
package match

import (
	"github.com/spf13/cobra"

	"github.com/endorses/lexicat/internal/pkg/cmdutil"
	"github.com/endorses/lexicat/internal/pkg/output"
	"github.com/endorses/lexicat/pkg/recognizer"
)

// New returns the match command.
func New() *cobra.Command {
	var (
		offset int
		at     bool
	)

	cmd := &cobra.Command{
		Use:   "match PATTERN TEXT",
		Short: "Find the first match of a pattern in a text",
		Long: `Apply one pattern to TEXT and print the leftmost match at or after
--offset as JSON. The exit status is 1 when nothing matches.

Examples:
  lexicat match IP "gateway is 192.168.1.1"
  lexicat match EMAIL_ADDR "mail alice@example.com" --offset 5
  lexicat match PATH 'C:\Windows\System32' --at`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := cmdutil.LoadRecognizer()
			if err != nil {
				return cmdutil.Validation(err)
			}
			p, err := r.Pattern(args[0])
			if err != nil {
				return cmdutil.Validation(err)
			}

			text := args[1]
			if offset < 0 || offset > len(text) {
				return cmdutil.Validationf("offset %d out of range [0, %d]", offset, len(text))
			}

			var (
				m  recognizer.Match
				ok bool
			)
			if at {
				m, ok = p.MatchAt(text, offset)
			} else {
				m, ok = p.Find(text, offset)
			}
			if !ok {
				return cmdutil.ErrNoMatch
			}
			return output.WriteJSON(cmd.OutOrStdout(), m)
		},
	}

	cmd.Flags().IntVar(&offset, "offset", 0, "byte offset to start searching at")
	cmd.Flags().BoolVar(&at, "at", false, "only accept a match that begins exactly at --offset")
	return cmd
}
