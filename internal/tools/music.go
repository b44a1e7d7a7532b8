package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Victoriakaey/troubador2/internal/core/domain"
	"github.com/Victoriakaey/troubador2/internal/core/ports"
	"github.com/Victoriakaey/troubador2/internal/metrics"
)

const MusicToolName = "music_generator"

const musicToolDescription = "Generates game music by calling the music generation API. " +
	"Takes a game_state and returns generated music data."

type musicArgs struct {
	GameState string `json:"game_state" jsonschema:"The current game state, e.g. 'Player enters a dimly lit dungeon'"`
}

// MusicTool is the music_generator tool.
type MusicTool struct {
	generator ports.MusicGenerator
	metrics   *metrics.Recorder
	spec      domain.ToolSpec
}

var _ ports.Tool = (*MusicTool)(nil)

func NewMusicTool(generator ports.MusicGenerator, rec *metrics.Recorder) (*MusicTool, error) {
	params, err := schemaFor[musicArgs]()
	if err != nil {
		return nil, err
	}
	return &MusicTool{
		generator: generator,
		metrics:   rec,
		spec: domain.ToolSpec{
			Name:        MusicToolName,
			Description: musicToolDescription,
			Parameters:  params,
		},
	}, nil
}

func (t *MusicTool) Spec() domain.ToolSpec { return t.spec }

// Call returns the generated music text or an {"error": ...} record.
func (t *MusicTool) Call(ctx context.Context, arguments string) string {
	start := time.Now()

	var fields map[string]json.RawMessage
	var result domain.MusicResult
	if err := decodeArguments(arguments, &fields); err != nil {
		result = domain.MusicResult{Error: "invalid tool arguments: " + err.Error()}
	} else if state, ok := stringField(fields, "game_state"); !ok {
		result = domain.MusicResult{Error: "game_state must be a string"}
	} else {
		result = t.generator.Generate(ctx, state)
	}

	outcome := "success"
	if result.Failed() {
		outcome = "error"
	}
	t.metrics.ObserveTool(MusicToolName, outcome, time.Since(start))
	return result.String()
}
