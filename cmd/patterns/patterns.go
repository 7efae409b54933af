// Package patterns implements "lexicat patterns".
package patterns

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/endorses/lexicat/internal/pkg/cmdutil"
	"github.com/endorses/lexicat/internal/pkg/output"
)

// Info describes one pattern in JSON output.
type Info struct {
	Name         string   `json:"name"`
	Alternatives []string `json:"alternatives,omitempty"`
	Regex        string   `json:"regex,omitempty"`
}

// New returns the patterns command.
func New() *cobra.Command {
	var (
		showRegex  bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "List the patterns lexicat recognizes",
		Long: `List every pattern name in lattice order, simplest first, together with
the alternatives of union patterns.

Examples:
  lexicat patterns
  lexicat patterns --regex
  lexicat patterns --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := cmdutil.LoadRecognizer()
			if err != nil {
				return cmdutil.Validation(err)
			}

			var infos []Info
			for _, name := range r.Names() {
				p, err := r.Pattern(name)
				if err != nil {
					return err
				}
				info := Info{Name: p.Name(), Alternatives: p.Alternatives()}
				if showRegex {
					info.Regex = p.String()
				}
				infos = append(infos, info)
			}

			if jsonOutput {
				return output.WriteJSON(cmd.OutOrStdout(), infos)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			header := "NAME\tALTERNATIVES"
			if showRegex {
				header += "\tREGEX"
			}
			fmt.Fprintln(w, header)
			for _, info := range infos {
				line := info.Name + "\t" + strings.Join(info.Alternatives, ",")
				if showRegex {
					line += "\t" + info.Regex
				}
				fmt.Fprintln(w, line)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&showRegex, "regex", false, "include the compiled regular expression")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON instead of a table")
	return cmd
}
