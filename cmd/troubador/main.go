// Command troubador runs the game soundtrack and action engine.
//
// Usage:
//
//	troubador [--config file] <command> [args]
//
// Commands:
//
//	serve    - HTTP API with background round queue
//	round    - run one orchestration round for a session
//	action   - POST a game action through the action normalizer
//	music    - forward a game state to the music service
//	history  - print the captured history of a session
//	version  - print build information
package main

import (
	"fmt"
	"os"

	"github.com/Victoriakaey/troubador2/cmd/troubador/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
