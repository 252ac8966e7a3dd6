package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	statusadapter "github.com/bnema/snippets-cli/internal/adapters/render/status"
	"github.com/bnema/snippets-cli/internal/application"
	"github.com/bnema/snippets-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newWhoamiCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := restoreSession(cmd, app); err != nil {
				return notLoggedIn(err)
			}

			session := app.service.Session()
			if session.User == nil {
				return notLoggedIn(domain.ErrNotAuthenticated)
			}
			user := *session.User

			if asJSON {
				return writeJSON(cmd, user)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s (@%s) <%s>\n", user.DisplayName(), user.Username, user.Email)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

type statusOutput struct {
	Status       domain.SessionStatus `json:"status"`
	Error        string               `json:"error,omitempty"`
	User         *domain.User         `json:"user,omitempty"`
	Profile      string               `json:"profile"`
	BaseURL      string               `json:"base_url"`
	ExpiresAt    *time.Time           `json:"access_token_expires_at,omitempty"`
	Expired      bool                 `json:"access_token_expired"`
	Degraded     bool                 `json:"storage_degraded,omitempty"`
	RestoreError string               `json:"restore_error,omitempty"`
}

func newStatusCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the session state for the active profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			restoreErr := restoreSession(cmd, app)
			status := app.service.Status()

			if asJSON {
				out := statusOutput{
					Status:    status.Session.Status,
					Error:     status.Session.Error,
					User:      status.Session.User,
					Profile:   status.Profile,
					BaseURL:   status.BaseURL,
					ExpiresAt: status.AccessToken.ExpiresAt,
					Expired:   status.AccessToken.Expired(app.now()),
					Degraded:  app.tokens.Degraded(),
				}
				if restoreErr != nil {
					out.RestoreError = domain.Message(restoreErr)
				}
				return writeJSON(cmd, out)
			}

			if err := writeStatus(cmd, app, status); err != nil {
				return err
			}
			return restoreErr
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func writeStatus(cmd *cobra.Command, app *app, status application.Status) error {
	rendered, err := app.statusRenderer(status, statusadapter.RenderOptions{Now: app.now()})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

func restoreSession(cmd *cobra.Command, app *app) error {
	return app.call(cmd, "Restoring session...", app.service.Restore)
}

func notLoggedIn(err error) error {
	if errors.Is(err, domain.ErrNotAuthenticated) {
		return fmt.Errorf("%w (run: snip login --email <email>)", err)
	}
	return err
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
