package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Victoriakaey/troubador2/internal/core/domain"
)

func newTestOrchestrator(t *testing.T, model *scriptedModel, repo *mockRepo) *Orchestrator {
	t.Helper()
	agent := newTestAgent(model, toolList{&echoTool{name: "music_generator", reply: "ok"}}, testAgentConfig())
	o, err := NewOrchestrator(agent, repo, OrchestratorConfig{GameDescription: "first person shooter"}, nil, nil)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return o
}

func answer(content string) *scriptedModel {
	return &scriptedModel{replies: []domain.Completion{{Content: content}}}
}

// TestOrchestrator_Capture verifies which final answers extend the history.
func TestOrchestrator_Capture(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		want     string
		captured bool
	}{
		{name: "string response", output: `{"tool_invocation":{"tool_response":"s(\"bd\")"}}`, want: `s("bd")`, captured: true},
		{name: "object response as compact json", output: `{"tool_invocation":{"tool_response":{"pattern": "bd sd"}}}`, want: `{"pattern":"bd sd"}`, captured: true},
		{name: "number response", output: `{"tool_invocation":{"tool_response":3}}`, want: "3", captured: true},
		{name: "true response", output: `{"tool_invocation":{"tool_response":true}}`, want: "true", captured: true},
		{name: "null response", output: `{"tool_invocation":{"tool_response":null}}`},
		{name: "empty string", output: `{"tool_invocation":{"tool_response":""}}`},
		{name: "false", output: `{"tool_invocation":{"tool_response":false}}`},
		{name: "zero", output: `{"tool_invocation":{"tool_response":0}}`},
		{name: "empty array", output: `{"tool_invocation":{"tool_response":[]}}`},
		{name: "empty object", output: `{"tool_invocation":{"tool_response":{}}}`},
		{name: "missing tool_invocation", output: `{"decision":"keep"}`},
		{name: "tool_invocation not an object", output: `{"tool_invocation":"music_generator"}`},
		{name: "answer is an array", output: `["tool_invocation"]`},
		{name: "answer is not json", output: "I changed the music."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOrchestrator(t, answer(tt.output), &mockRepo{})
			base := domain.NewHistory("earlier")

			round, next, err := o.RunRound(context.Background(), domain.RoundInput{SessionID: "s1", GameState: "boss fight", History: base})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if base.Len() != 1 {
				t.Fatalf("input history mutated: %v", base.Entries())
			}

			if !tt.captured {
				if round.ToolResponse != nil || next.Len() != 1 {
					t.Fatalf("unexpected capture: %v / %v", round.ToolResponse, next.Entries())
				}
				return
			}
			if round.ToolResponse == nil || *round.ToolResponse != tt.want {
				t.Fatalf("ToolResponse: got %v, want %q", round.ToolResponse, tt.want)
			}
			if got := next.Entries(); len(got) != 2 || got[1] != tt.want {
				t.Fatalf("next history: %v", got)
			}
		})
	}
}

func TestOrchestrator_RunRoundInterpolation(t *testing.T) {
	model := answer(`{}`)
	o := newTestOrchestrator(t, model, &mockRepo{})

	round, _, err := o.RunRound(context.Background(), domain.RoundInput{
		SessionID: "s1",
		GameState: "player low on health",
		History:   domain.NewHistory(`s("bd")`, "n(1)"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if round.ID == "" || round.SessionID != "s1" || round.Iterations != 1 || round.CreatedAt.IsZero() {
		t.Fatalf("round metadata: %+v", round)
	}

	user := model.requests[0].Messages[1].Content
	if !strings.Contains(user, "State: player low on health") {
		t.Errorf("game state not interpolated: %s", user)
	}
	if !strings.Contains(user, `History: ["s(\"bd\")","n(1)"]`) {
		t.Errorf("history not interpolated as a JSON array: %s", user)
	}
	if !strings.Contains(model.requests[0].Messages[0].Content, "score the first person shooter") {
		t.Errorf("game description not interpolated")
	}
}

func TestOrchestrator_EmptyGameState(t *testing.T) {
	model := answer("x")
	o := newTestOrchestrator(t, model, &mockRepo{})

	_, _, err := o.RunRound(context.Background(), domain.RoundInput{GameState: "  "})
	if !errors.Is(err, domain.ErrEmptyGameState) {
		t.Fatalf("expected ErrEmptyGameState, got %v", err)
	}
	if len(model.requests) != 0 {
		t.Fatalf("model called for empty game state")
	}
}

func TestOrchestrator_Play(t *testing.T) {
	repo := &mockRepo{}
	model := &scriptedModel{replies: []domain.Completion{
		{Content: `{"tool_invocation":{"tool_response":"first"}}`},
		{Content: `{"tool_invocation":{"tool_response":"second"}}`},
		{Content: `{"decision":"no change"}`},
	}}
	o := newTestOrchestrator(t, model, repo)
	ctx := context.Background()

	for _, state := range []string{"start", "boss", "victory"} {
		if _, err := o.Play(ctx, "session-1", state); err != nil {
			t.Fatalf("Play(%q): %v", state, err)
		}
	}

	if len(repo.rounds) != 3 {
		t.Fatalf("expected 3 saved rounds, got %d", len(repo.rounds))
	}
	third := model.requests[2].Messages[1].Content
	if !strings.Contains(third, `History: ["first","second"]`) {
		t.Errorf("third round did not see prior history: %s", third)
	}

	h, err := o.History(ctx, "session-1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if got := h.Entries(); len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Fatalf("history: %v", got)
	}

	got, err := o.Round(ctx, repo.rounds[1].ID)
	if err != nil || got.GameState != "boss" {
		t.Fatalf("Round: %+v, %v", got, err)
	}
	if n := o.sessions.len(); n != 0 {
		t.Errorf("session locks left behind: %d", n)
	}
}

func TestOrchestrator_PlayErrors(t *testing.T) {
	tests := []struct {
		name      string
		sessionID string
		repo      *mockRepo
		model     *scriptedModel
		wantIs    error
	}{
		{name: "blank session", sessionID: "", repo: &mockRepo{}, model: answer("x"), wantIs: domain.ErrInvalidSession},
		{name: "history load fails", sessionID: "s", repo: &mockRepo{getErr: errors.New("db locked")}, model: answer("x")},
		{name: "model fails", sessionID: "s", repo: &mockRepo{}, model: &scriptedModel{err: errors.New("offline")}},
		{name: "save fails", sessionID: "s", repo: &mockRepo{saveErr: errors.New("disk full")}, model: answer("x")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			o := newTestOrchestrator(t, tc.model, tc.repo)
			_, err := o.Play(context.Background(), tc.sessionID, "state")
			if err == nil {
				t.Fatalf("expected error")
			}
			if tc.wantIs != nil && !errors.Is(err, tc.wantIs) {
				t.Fatalf("expected %v, got %v", tc.wantIs, err)
			}
			if len(tc.repo.rounds) != 0 {
				t.Fatalf("round saved despite error")
			}
			if n := o.sessions.len(); n != 0 {
				t.Fatalf("session locks left behind: %d", n)
			}
		})
	}
}

func TestOrchestrator_RoundNotFound(t *testing.T) {
	o := newTestOrchestrator(t, answer("x"), &mockRepo{})
	if _, err := o.Round(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNewOrchestrator_BadCaptureExpr(t *testing.T) {
	agent := newTestAgent(answer("x"), nil, testAgentConfig())
	if _, err := NewOrchestrator(agent, &mockRepo{}, OrchestratorConfig{CaptureExpr: ".tool_invocation["}, nil, nil); err == nil {
		t.Fatalf("expected parse error")
	}
}
