package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/bnema/snippets-cli/internal/application"
	"github.com/bnema/snippets-cli/internal/domain"
	"github.com/bnema/snippets-cli/internal/ports"
	"github.com/spf13/cobra"
)

func newAPICmd(app *app) *cobra.Command {
	var data string
	var include bool

	cmd := &cobra.Command{
		Use:   "api METHOD PATH",
		Short: "Send an authenticated request to the server",
		Long:  "api sends METHOD PATH relative to api.base_url with the stored session, refreshing it once if the server reports it expired. --data takes a JSON document, or @- to read it from stdin.",
		Example: `  snip api GET /snippets/
  snip api POST /snippets/ --data '{"title":"hello","code":"print(1)"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			request := application.RequestCommand{Method: args[0], Path: args[1]}

			body, err := readRequestBody(cmd, data)
			if err != nil {
				return err
			}
			if body != nil {
				request.Body = body
			}

			var resp *ports.Response
			if err := app.call(cmd, fmt.Sprintf("%s %s...", strings.ToUpper(args[0]), args[1]), func(ctx context.Context) error {
				var err error
				resp, err = app.service.Request(ctx, request)
				return err
			}); err != nil {
				return notLoggedIn(err)
			}

			return writeResponse(cmd.OutOrStdout(), resp, include)
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body, or @- for stdin")
	cmd.Flags().BoolVarP(&include, "include", "i", false, "Print the response status line")

	return cmd
}

func readRequestBody(cmd *cobra.Command, data string) (json.RawMessage, error) {
	if data == "" {
		return nil, nil
	}

	raw := []byte(data)
	if data == "@-" {
		var err error
		raw, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
	}

	raw = bytes.TrimSpace(raw)
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: --data is not valid JSON", domain.ErrInvalidInput)
	}
	return json.RawMessage(raw), nil
}

func writeResponse(w io.Writer, resp *ports.Response, include bool) error {
	if include {
		if _, err := fmt.Fprintf(w, "HTTP %d\n", resp.StatusCode); err != nil {
			return err
		}
	}
	if len(resp.Body) == 0 {
		return nil
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, resp.Body, "", "  "); err != nil {
		_, err = fmt.Fprintln(w, string(resp.Body))
		return err
	}
	_, err := fmt.Fprintln(w, pretty.String())
	return err
}
