package cmd

import (
	"fmt"
	"runtime"

	"github.com/bnema/snippets-cli/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "snip %s (%s)\n", version.Version, runtime.Version())
			return err
		},
	}
}
