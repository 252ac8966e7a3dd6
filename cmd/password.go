package cmd

import (
	"context"
	"fmt"

	"github.com/bnema/snippets-cli/internal/application"
	"github.com/spf13/cobra"
)

func newPasswordCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Reset a forgotten password",
	}

	cmd.AddCommand(newPasswordResetCmd(app), newPasswordConfirmCmd(app))

	return cmd
}

func newPasswordResetCmd(app *app) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Ask the server to email a reset link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.call(cmd, "Requesting password reset...", func(ctx context.Context) error {
				return app.service.RequestPasswordReset(ctx, email)
			}); err != nil {
				return err
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), "If the address is registered, a reset link is on its way.")
			return err
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newPasswordConfirmCmd(app *app) *cobra.Command {
	var input application.ConfirmPasswordResetCommand

	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Set a new password with the uid and token from the reset link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, err := readPassword(cmd, input.NewPassword, "New password")
			if err != nil {
				return err
			}
			input.NewPassword = secret
			if input.NewPassword2 == "" {
				input.NewPassword2 = secret
			}

			if err := app.call(cmd, "Setting new password...", func(ctx context.Context) error {
				return app.service.ConfirmPasswordReset(ctx, input)
			}); err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Password changed. Sign in with: snip login --email <email>")
			return err
		},
	}

	cmd.Flags().StringVar(&input.UID, "uid", "", "User id from the reset link")
	cmd.Flags().StringVar(&input.Token, "token", "", "Token from the reset link")
	cmd.Flags().StringVar(&input.NewPassword, "password", "", "New password (default: $"+passwordEnv+" or stdin)")
	cmd.Flags().StringVar(&input.NewPassword2, "password-confirm", "", "New password confirmation (default: same as --password)")
	_ = cmd.MarkFlagRequired("uid")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}
