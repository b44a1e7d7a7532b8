package domain

import (
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("domain: not found")
	ErrEmptyGameState = errors.New("domain: game state cannot be empty")
	ErrInvalidSession = errors.New("domain: session id cannot be empty")
)

// ToolInvocation records one tool call made by the agent during a round.
type ToolInvocation struct {
	Tool      string        `json:"tool"`
	Arguments string        `json:"arguments"`
	Result    string        `json:"result"`
	Duration  time.Duration `json:"duration_ns"`
}

// RoundInput is everything a round needs. History is owned by the caller.
type RoundInput struct {
	SessionID string
	GameState string
	History   History
}

// Round is the persisted record of a single orchestration round.
type Round struct {
	ID                string           `json:"id"`
	SessionID         string           `json:"session_id"`
	GameState         string           `json:"game_state"`
	Output            string           `json:"output"`
	ToolResponse      *string          `json:"tool_response,omitempty"`
	Iterations        int              `json:"iterations"`
	HitIterationLimit bool             `json:"hit_iteration_limit"`
	Invocations       []ToolInvocation `json:"invocations"`
	CreatedAt         time.Time        `json:"created_at"`
}
