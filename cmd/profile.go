package cmd

import (
	"context"
	"fmt"

	"github.com/bnema/snippets-cli/internal/application"
	"github.com/bnema/snippets-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newProfileCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the signed-in user's profile",
	}

	cmd.AddCommand(newProfileUpdateCmd(app))

	return cmd
}

func newProfileUpdateCmd(app *app) *cobra.Command {
	var username, email, firstName, lastName string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change username, email or name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			update := application.UpdateProfileCommand{
				Username:  changedFlag(cmd, "username", username),
				Email:     changedFlag(cmd, "email", email),
				FirstName: changedFlag(cmd, "first-name", firstName),
				LastName:  changedFlag(cmd, "last-name", lastName),
			}

			if err := restoreSession(cmd, app); err != nil {
				return notLoggedIn(err)
			}

			var user domain.User
			if err := app.call(cmd, "Updating profile...", func(ctx context.Context) error {
				var err error
				user, err = app.service.UpdateProfile(ctx, update)
				return err
			}); err != nil {
				return notLoggedIn(err)
			}

			if asJSON {
				return writeJSON(cmd, user)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Profile updated: %s (@%s) <%s>\n", user.DisplayName(), user.Username, user.Email)
			return err
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "New username")
	cmd.Flags().StringVar(&email, "email", "", "New email")
	cmd.Flags().StringVar(&firstName, "first-name", "", "New first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "New last name")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

// changedFlag returns nil for flags left unset so the server keeps the old value.
func changedFlag(cmd *cobra.Command, name, value string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}
