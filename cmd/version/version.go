// Package version implements "lexicat version".
package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/endorses/lexicat/internal/pkg/output"
	"github.com/endorses/lexicat/internal/pkg/version"
)

// New returns the version command.
func New() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if jsonOutput {
				return output.WriteJSON(cmd.OutOrStdout(), info)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "lexicat %s\n", info)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
	return cmd
}
