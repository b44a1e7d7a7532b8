// Package memory is an in-process round repository for tests and ephemeral
// runs.
package memory

import (
	"context"
	"sync"

	"github.com/Victoriakaey/troubador2/internal/core/domain"
	"github.com/Victoriakaey/troubador2/internal/core/ports"
)

type Repository struct {
	mu     sync.RWMutex
	rounds map[string]domain.Round
	order  []string
}

var _ ports.RoundRepository = (*Repository)(nil)

func NewRepository() *Repository {
	return &Repository{rounds: make(map[string]domain.Round)}
}

// SaveRound stores a copy of r. Re-saving an id keeps its original position.
func (m *Repository) SaveRound(_ context.Context, r domain.Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.rounds[r.ID]; !exists {
		m.order = append(m.order, r.ID)
	}
	m.rounds[r.ID] = cloneRound(r)
	return nil
}

func (m *Repository) GetRound(_ context.Context, id string) (domain.Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rounds[id]
	if !ok {
		return domain.Round{}, domain.ErrNotFound
	}
	return cloneRound(r), nil
}

func (m *Repository) History(_ context.Context, sessionID string) (domain.History, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []string
	for _, id := range m.order {
		r := m.rounds[id]
		if r.SessionID == sessionID && r.ToolResponse != nil {
			entries = append(entries, *r.ToolResponse)
		}
	}
	return domain.NewHistory(entries...), nil
}

func cloneRound(r domain.Round) domain.Round {
	if r.ToolResponse != nil {
		s := *r.ToolResponse
		r.ToolResponse = &s
	}
	if r.Invocations != nil {
		r.Invocations = append([]domain.ToolInvocation(nil), r.Invocations...)
	}
	return r
}
