package services

import (
	"context"
	"sync"

	"github.com/Victoriakaey/troubador2/internal/core/domain"
	"github.com/Victoriakaey/troubador2/internal/core/ports"
)

// --- Mocks ---

// scriptedModel replies with completions in order and records every request.
// Once the script runs out it repeats the last entry.
type scriptedModel struct {
	mu       sync.Mutex
	replies  []domain.Completion
	err      error
	requests []domain.CompletionRequest
}

func (m *scriptedModel) Name() string { return "scripted" }

func (m *scriptedModel) Complete(_ context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return domain.Completion{}, m.err
	}
	i := len(m.requests) - 1
	if i >= len(m.replies) {
		i = len(m.replies) - 1
	}
	return m.replies[i], nil
}

// echoTool answers every call with a fixed string and records the arguments.
type echoTool struct {
	name  string
	reply string
	args  []string
}

func (e *echoTool) Spec() domain.ToolSpec {
	return domain.ToolSpec{Name: e.name, Description: "test tool", Parameters: []byte(`{"type":"object"}`)}
}

func (e *echoTool) Call(_ context.Context, arguments string) string {
	e.args = append(e.args, arguments)
	return e.reply
}

// toolList is a minimal ports.ToolSet.
type toolList []ports.Tool

func (l toolList) Get(name string) (ports.Tool, bool) {
	for _, t := range l {
		if t.Spec().Name == name {
			return t, true
		}
	}
	return nil, false
}

func (l toolList) Specs() []domain.ToolSpec {
	specs := make([]domain.ToolSpec, 0, len(l))
	for _, t := range l {
		specs = append(specs, t.Spec())
	}
	return specs
}

func (l toolList) Names() []string {
	names := make([]string, 0, len(l))
	for _, t := range l {
		names = append(names, t.Spec().Name)
	}
	return names
}

// mockRepo keeps rounds in memory, in save order.
type mockRepo struct {
	rounds  []domain.Round
	getErr  error
	saveErr error
}

func (m *mockRepo) SaveRound(_ context.Context, r domain.Round) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.rounds = append(m.rounds, r)
	return nil
}

func (m *mockRepo) GetRound(_ context.Context, id string) (domain.Round, error) {
	for _, r := range m.rounds {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Round{}, domain.ErrNotFound
}

func (m *mockRepo) History(_ context.Context, sessionID string) (domain.History, error) {
	if m.getErr != nil {
		return domain.History{}, m.getErr
	}
	var h domain.History
	for _, r := range m.rounds {
		if r.SessionID == sessionID && r.ToolResponse != nil {
			h = h.Append(*r.ToolResponse)
		}
	}
	return h, nil
}
