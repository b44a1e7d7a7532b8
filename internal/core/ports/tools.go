package ports

import (
	"context"

	"github.com/Victoriakaey/troubador2/internal/core/domain"
)

// Tool is a capability the agent can invoke. Call takes the model-produced
// JSON arguments and always answers with a string; failures are part of the
// string, never an error.
type Tool interface {
	Spec() domain.ToolSpec
	Call(ctx context.Context, arguments string) string
}

// ActionExecutor delivers a game action and classifies the outcome.
type ActionExecutor interface {
	Execute(ctx context.Context, req domain.ActionRequest) domain.ActionResult
}

// MusicGenerator forwards a game state to the music service.
type MusicGenerator interface {
	Generate(ctx context.Context, gameState string) domain.MusicResult
}

// ToolSet is the catalogue of tools offered to the model.
type ToolSet interface {
	Get(name string) (Tool, bool)
	Specs() []domain.ToolSpec
	Names() []string
}
