package anthropicmodel

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Victoriakaey/troubador2/internal/core/domain"
)

const toolUseResponse = `{
  "id": "msg_01",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4-20250514",
  "content": [
    {"type": "text", "text": "Switching to combat music."},
    {"type": "tool_use", "id": "toolu_01", "name": "music_generator", "input": {"game_state": "boss fight"}}
  ],
  "stop_reason": "tool_use",
  "stop_sequence": null,
  "usage": {"input_tokens": 200, "output_tokens": 40}
}`

func TestClient_Complete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("X-Api-Key"))
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, toolUseResponse)
	}))
	defer srv.Close()

	c := NewClient("sk-ant-test", srv.URL, "", option.WithMaxRetries(0))
	got, err := c.Complete(context.Background(), domain.CompletionRequest{
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: "You are a game music director."},
			{Role: domain.RoleUser, Content: "Boss appears."},
			{Role: domain.RoleAssistant, ToolCalls: []domain.ToolCall{
				{ID: "toolu_a", Name: "music_generator", Arguments: `{"game_state":"a"}`},
				{ID: "toolu_b", Name: "game_action_executor_tool", Arguments: `{}`},
			}},
			{Role: domain.RoleTool, Content: "ok", ToolCallID: "toolu_a"},
			{Role: domain.RoleTool, Content: "fail", ToolCallID: "toolu_b"},
			{Role: domain.RoleUser, Content: "Give your final answer."},
		},
		Tools: []domain.ToolSpec{{
			Name:        "music_generator",
			Description: "Generates game music.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"game_state":{"type":"string"}},"required":["game_state"]}`),
		}},
		Temperature: 0.7,
	})
	require.NoError(t, err)

	assert.Equal(t, "Switching to combat music.", got.Content)
	require.Len(t, got.ToolCalls, 1)
	assert.Equal(t, "toolu_01", got.ToolCalls[0].ID)
	assert.Equal(t, "music_generator", got.ToolCalls[0].Name)
	assert.JSONEq(t, `{"game_state":"boss fight"}`, got.ToolCalls[0].Arguments)
	assert.Equal(t, int64(200), got.Usage.PromptTokens)
	assert.Equal(t, int64(40), got.Usage.CompletionTokens)

	assert.Equal(t, DefaultModel, body["model"])
	assert.EqualValues(t, defaultMaxTokens, body["max_tokens"])

	system := body["system"].([]any)
	assert.Equal(t, "You are a game music director.", system[0].(map[string]any)["text"])

	// user, assistant, then the two tool results merged with the follow-up text.
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 3)
	assert.Equal(t, "assistant", msgs[1].(map[string]any)["role"])
	last := msgs[2].(map[string]any)
	assert.Equal(t, "user", last["role"])
	content := last["content"].([]any)
	require.Len(t, content, 3)
	assert.Equal(t, "tool_result", content[0].(map[string]any)["type"])
	assert.Equal(t, "toolu_b", content[1].(map[string]any)["tool_use_id"])
	assert.Equal(t, "text", content[2].(map[string]any)["type"])

	tools := body["tools"].([]any)
	require.Len(t, tools, 1)
	tool := tools[0].(map[string]any)
	assert.Equal(t, "music_generator", tool["name"])
	assert.Equal(t, "Generates game music.", tool["description"])
	assert.Equal(t, []any{"game_state"}, tool["input_schema"].(map[string]any)["required"])
}

func TestClient_CompleteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`)
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, "", option.WithMaxRetries(0))
	_, err := c.Complete(context.Background(), domain.CompletionRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
	})
	assert.ErrorContains(t, err, "anthropic: messages")
}

func TestToolInput(t *testing.T) {
	assert.JSONEq(t, `{"a":1}`, string(toolInput(` {"a":1} `)))
	assert.Equal(t, `{}`, string(toolInput(`[1]`)))
	assert.Equal(t, `{}`, string(toolInput(`oops`)))
}
