package commands

import (
	"strings"

	"github.com/spf13/cobra"
)

func newMusicCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "music <game state>",
		Short: "Forward a game state to the music service and print its reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}

			result := newForwarder(cfg, logger).Generate(cmd.Context(), strings.Join(args, " "))
			printLine(cmd, result.String())
			return nil
		},
	}
}
