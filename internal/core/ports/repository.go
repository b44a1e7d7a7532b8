package ports

import (
	"context"

	"github.com/Victoriakaey/troubador2/internal/core/domain"
)

type RoundRepository interface {
	SaveRound(ctx context.Context, r domain.Round) error
	GetRound(ctx context.Context, id string) (domain.Round, error)
	History(ctx context.Context, sessionID string) (domain.History, error)
}
