package commands

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <session id>",
		Short: "Print the captured tool responses of a session, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}

			repo, closer, err := newRepository(cfg)
			if err != nil {
				return err
			}
			if closer != nil {
				defer closer()
			}

			h, err := repo.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			logger.Debug("history: loaded", "session_id", args[0], "entries", h.Len())

			out, err := json.MarshalIndent(h, "", "  ")
			if err != nil {
				return err
			}
			printLine(cmd, string(out))
			return nil
		},
	}
}
