package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bnema/snippets-cli/internal/application"
	"github.com/spf13/cobra"
)

const passwordEnv = "SNIP_PASSWORD"

func newLoginCmd(app *app) *cobra.Command {
	var email string
	var password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, err := readPassword(cmd, password, "Password")
			if err != nil {
				return err
			}

			login := application.LoginCommand{Email: email, Password: secret}
			if err := app.call(cmd, "Signing in...", func(ctx context.Context) error {
				return app.service.Login(ctx, login)
			}); err != nil {
				return err
			}

			return printSignedIn(cmd, app)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (default: $"+passwordEnv+" or stdin)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newRegisterCmd(app *app) *cobra.Command {
	var input application.RegisterCommand

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, err := readPassword(cmd, input.Password, "Password")
			if err != nil {
				return err
			}
			input.Password = secret
			if input.Password2 == "" {
				input.Password2 = secret
			}

			if err := app.call(cmd, "Creating account...", func(ctx context.Context) error {
				return app.service.Register(ctx, input)
			}); err != nil {
				return err
			}

			return printSignedIn(cmd, app)
		},
	}

	cmd.Flags().StringVar(&input.Username, "username", "", "Username")
	cmd.Flags().StringVar(&input.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&input.Password, "password", "", "Password (default: $"+passwordEnv+" or stdin)")
	cmd.Flags().StringVar(&input.Password2, "password-confirm", "", "Password confirmation (default: same as --password)")
	cmd.Flags().StringVar(&input.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&input.LastName, "last-name", "", "Last name")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newLogoutCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.service.Logout(cmd.Context()); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return err
		},
	}
}

func printSignedIn(cmd *cobra.Command, app *app) error {
	session := app.service.Session()
	if session.User == nil {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "Logged in.")
		return err
	}

	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s.\n", session.User.DisplayName())
	return err
}

// readPassword takes the flag value, then $SNIP_PASSWORD, then one line of stdin.
func readPassword(cmd *cobra.Command, flagValue, prompt string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if value := os.Getenv(passwordEnv); value != "" {
		return value, nil
	}

	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: ", prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(prompt), err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}
