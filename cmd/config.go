package cmd

import (
	"fmt"

	tomlrepo "github.com/bnema/snippets-cli/internal/adapters/repo/toml"
	"github.com/spf13/cobra"
)

func newConfigCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
	}

	cmd.AddCommand(newConfigShowCmd(app), newConfigSetCmd(app))

	return cmd
}

func newConfigShowCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			values := app.settingsRepo.Values()
			if asJSON {
				return writeJSON(cmd, values)
			}

			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(out, "# %s\n", app.settingsRepo.Path()); err != nil {
				return err
			}
			for _, key := range tomlrepo.Keys() {
				if _, err := fmt.Fprintf(out, "%s = %s\n", key, values[key]); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newConfigSetCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:       "set KEY VALUE",
		Short:     "Persist one setting in the settings file",
		Args:      cobra.ExactArgs(2),
		ValidArgs: tomlrepo.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.settingsRepo.Set(cmd.Context(), args[0], args[1]); err != nil {
				return fmt.Errorf("set %s: %w", args[0], err)
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s updated in %s\n", args[0], app.settingsRepo.Path())
			return err
		},
	}
}
