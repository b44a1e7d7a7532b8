// Package commands implements the troubador CLI.
package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Victoriakaey/troubador2/internal/config"
	"github.com/Victoriakaey/troubador2/internal/logging"
)

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

type rootOptions struct {
	configPath string
	verbose    bool
}

// NewRootCmd builds the command tree. Each call returns independent flag
// state.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "troubador",
		Short: "LLM-driven soundtrack and action engine for games",
		Long: `troubador - an agent that turns live game state into music and in-game actions.

Configuration is layered: built-in defaults, then the YAML file given with
--config (or TROUBADOR_CONFIG), then environment variables such as
OPENAI_API_KEY, TROUBADOR_MODEL_PROVIDER and TROUBADOR_DB_PATH.

Examples:
  # Serve the HTTP API
  troubador serve --config troubador.yaml

  # Run one round from the terminal
  troubador round --session demo "player enters the boss arena at 10% health"

  # Exercise the action normalizer directly
  troubador action --endpoint http://localhost:9000/spawn --payload '{"enemy":"orc"}'`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (or TROUBADOR_CONFIG env)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newServeCmd(opts),
		newRoundCmd(opts),
		newActionCmd(opts),
		newMusicCmd(opts),
		newHistoryCmd(opts),
		newVersionCmd(),
	)
	return root
}

// load reads the configuration and builds the logger. Logs go to the
// command's error stream so stdout stays clean for results.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path := o.configPath
	if path == "" {
		path = os.Getenv("TROUBADOR_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Log.Level
	if o.verbose {
		level = "debug"
	}
	return cfg, logging.New(level, cfg.Log.Format, cmd.ErrOrStderr()), nil
}

func printLine(cmd *cobra.Command, s string) {
	fmt.Fprintln(cmd.OutOrStdout(), s)
}
