package ports

import (
	"context"

	"github.com/Victoriakaey/troubador2/internal/core/domain"
)

// Model is the external reasoning capability: it picks tools, supplies their
// arguments and produces the final answer.
type Model interface {
	Name() string
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)
}
