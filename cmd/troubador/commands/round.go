package commands

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func newRoundCmd(opts *rootOptions) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "round <game state>",
		Short: "Run one orchestration round and print the stored round",
		Long: `Run one orchestration round for a session. The session's captured
history is loaded from storage and the new round is saved back.

Without --session a fresh session id is generated and printed on stderr.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg, prometheus.NewRegistry(), logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if sessionID == "" {
				sessionID = uuid.NewString()
				logger.Info("round: new session", "session_id", sessionID)
			}

			round, err := a.orchestrator.Play(cmd.Context(), sessionID, strings.Join(args, " "))
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(round, "", "  ")
			if err != nil {
				return err
			}
			printLine(cmd, string(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id (generated when empty)")
	return cmd
}
