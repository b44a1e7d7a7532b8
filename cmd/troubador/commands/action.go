package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Victoriakaey/troubador2/internal/core/domain"
)

func newActionCmd(opts *rootOptions) *cobra.Command {
	var (
		endpoint string
		payload  string
		headers  map[string]string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "action",
		Short: "POST a game action and print the normalized result",
		Long: `POST a JSON payload to a game API endpoint exactly once and print the
uniform result object: success, response_data, error_message, status_code.

Failures are part of the printed result; the command itself only fails when
the configuration cannot be loaded.

Example:
  troubador action --endpoint http://localhost:9000/spawn \
    --payload '{"enemy":"orc","count":3}' --header X-Game-Key=abc --timeout 5s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}

			exec := newExecutor(cmd.Context(), cfg, logger)
			result := exec.Execute(cmd.Context(), domain.ActionRequest{
				Endpoint: endpoint,
				Payload:  payload,
				Headers:  headers,
				Timeout:  timeout,
			})
			printLine(cmd, result.JSON())
			return nil
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", "", "game API endpoint URL")
	cmd.Flags().StringVar(&payload, "payload", "", "JSON payload text")
	cmd.Flags().StringToStringVar(&headers, "header", nil, "request header as key=value (repeatable; replaces the defaults)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "request timeout (default action.default_timeout)")
	return cmd
}
