package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/itchyny/gojq"

	"github.com/Victoriakaey/troubador2/internal/core/domain"
	"github.com/Victoriakaey/troubador2/internal/core/ports"
	"github.com/Victoriakaey/troubador2/internal/logging"
	"github.com/Victoriakaey/troubador2/internal/metrics"
)

// DefaultCaptureExpr selects the tool response recorded into a session's
// history from the agent's final JSON answer.
const DefaultCaptureExpr = ".tool_invocation.tool_response"

// OrchestratorConfig holds the values shared by every round.
type OrchestratorConfig struct {
	GameDescription string
	CaptureExpr     string
}

// Orchestrator runs agent rounds and threads a session's history through them.
type Orchestrator struct {
	agent           *Agent
	repo            ports.RoundRepository
	gameDescription string
	capture         *gojq.Query
	metrics         *metrics.Recorder
	logger          *slog.Logger

	sessions sessionLocks
}

// NewOrchestrator constructs an Orchestrator. It fails when the capture
// expression does not parse.
func NewOrchestrator(agent *Agent, repo ports.RoundRepository, cfg OrchestratorConfig, rec *metrics.Recorder, logger *slog.Logger) (*Orchestrator, error) {
	expr := cfg.CaptureExpr
	if strings.TrimSpace(expr) == "" {
		expr = DefaultCaptureExpr
	}
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("service: parse capture expression %q: %w", expr, err)
	}
	return &Orchestrator{
		agent:           agent,
		repo:            repo,
		gameDescription: cfg.GameDescription,
		capture:         query,
		metrics:         rec,
		logger:          logging.OrDiscard(logger),
	}, nil
}

// RunRound runs one round against an explicit history and returns the round
// with the history it produced. The input history is never modified.
func (o *Orchestrator) RunRound(ctx context.Context, in domain.RoundInput) (domain.Round, domain.History, error) {
	if strings.TrimSpace(in.GameState) == "" {
		return domain.Round{}, in.History, domain.ErrEmptyGameState
	}

	strudel, err := json.Marshal(in.History)
	if err != nil {
		return domain.Round{}, in.History, fmt.Errorf("service: encode history: %w", err)
	}

	res, err := o.agent.Run(ctx, map[string]string{
		"game_state":           in.GameState,
		"game_description":     o.gameDescription,
		"current_strudel_code": string(strudel),
	})
	if err != nil {
		o.metrics.ObserveRound("error", res.Iterations)
		return domain.Round{}, in.History, err
	}

	round := domain.Round{
		ID:                uuid.NewString(),
		SessionID:         in.SessionID,
		GameState:         in.GameState,
		Output:            res.Output,
		Iterations:        res.Iterations,
		HitIterationLimit: res.HitIterationLimit,
		Invocations:       res.Invocations,
		CreatedAt:         time.Now().UTC(),
	}

	next := in.History
	if captured, ok := o.captureToolResponse(res.Output); ok {
		round.ToolResponse = &captured
		next = in.History.Append(captured)
	}

	status := "ok"
	if res.HitIterationLimit {
		status = "iteration_limit"
	}
	o.metrics.ObserveRound(status, res.Iterations)
	o.logger.Info("service: round complete",
		"round_id", round.ID,
		"session_id", round.SessionID,
		"iterations", round.Iterations,
		"tool_calls", len(round.Invocations),
		"captured", round.ToolResponse != nil)

	return round, next, nil
}

// Play runs a round for a stored session: it loads the history, runs the
// round and persists the result.
func (o *Orchestrator) Play(ctx context.Context, sessionID, gameState string) (domain.Round, error) {
	if strings.TrimSpace(sessionID) == "" {
		return domain.Round{}, domain.ErrInvalidSession
	}

	unlock := o.sessions.lock(sessionID)
	defer unlock()

	history, err := o.repo.History(ctx, sessionID)
	if err != nil {
		return domain.Round{}, fmt.Errorf("service: failed to load history: %w", err)
	}

	round, _, err := o.RunRound(ctx, domain.RoundInput{SessionID: sessionID, GameState: gameState, History: history})
	if err != nil {
		return domain.Round{}, err
	}

	if err := o.repo.SaveRound(ctx, round); err != nil {
		return domain.Round{}, fmt.Errorf("service: failed to save round: %w", err)
	}
	return round, nil
}

// History returns the captured tool responses of a session, oldest first.
func (o *Orchestrator) History(ctx context.Context, sessionID string) (domain.History, error) {
	if strings.TrimSpace(sessionID) == "" {
		return domain.History{}, domain.ErrInvalidSession
	}
	h, err := o.repo.History(ctx, sessionID)
	if err != nil {
		return domain.History{}, fmt.Errorf("service: failed to load history: %w", err)
	}
	return h, nil
}

// Round returns a stored round.
func (o *Orchestrator) Round(ctx context.Context, id string) (domain.Round, error) {
	r, err := o.repo.GetRound(ctx, id)
	if err != nil {
		return domain.Round{}, fmt.Errorf("service: failed to load round: %w", err)
	}
	return r, nil
}

// captureToolResponse evaluates the capture expression against the final
// answer. Answers that are not JSON, expressions that fail and falsy values
// capture nothing.
func (o *Orchestrator) captureToolResponse(output string) (string, bool) {
	var doc any
	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		return "", false
	}

	iter := o.capture.Run(doc)
	v, ok := iter.Next()
	if !ok {
		return "", false
	}
	if err, isErr := v.(error); isErr {
		o.logger.Debug("service: capture expression failed", "error", err)
		return "", false
	}
	if !truthy(v) {
		return "", false
	}

	if s, isString := v.(string); isString {
		return s, true
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	return string(b), true
}

// truthy follows the usual dynamic-language rules: null, false, zero, and
// empty strings, arrays and objects are false.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case int:
		return x != 0
	case *big.Int:
		return x.Sign() != 0
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}
