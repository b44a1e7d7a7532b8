package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Victoriakaey/troubador2/internal/adapters/gameapi"
	"github.com/Victoriakaey/troubador2/internal/core/domain"
	"github.com/Victoriakaey/troubador2/internal/metrics"
)

// --- Fakes ---

type fakeExecutor struct {
	got   []domain.ActionRequest
	panic bool
}

func (f *fakeExecutor) Execute(_ context.Context, req domain.ActionRequest) domain.ActionResult {
	if f.panic {
		panic("executor blew up")
	}
	f.got = append(f.got, req)
	code := 200
	return domain.ActionResult{Success: true, ResponseData: "ok", StatusCode: &code, Outcome: domain.OutcomeSuccess}
}

type fakeGenerator struct {
	got    []string
	result domain.MusicResult
}

func (f *fakeGenerator) Generate(_ context.Context, gameState string) domain.MusicResult {
	f.got = append(f.got, gameState)
	return f.result
}

func decodeResult(t *testing.T, out string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &m), "tool output must be JSON: %s", out)
	return m
}

// --- Tests ---

func TestActionTool_Arguments(t *testing.T) {
	tests := []struct {
		name      string
		args      string
		wantMsg   string
		wantReq   *domain.ActionRequest
		wantCalls int
	}{
		{
			name:      "minimal arguments",
			args:      `{"api_endpoint":"http://game/act","action_payload":"{\"action\":\"jump\"}"}`,
			wantReq:   &domain.ActionRequest{Endpoint: "http://game/act", Payload: `{"action":"jump"}`},
			wantCalls: 1,
		},
		{
			name: "headers and fractional timeout",
			args: `{"api_endpoint":"http://game/act","action_payload":"{}","headers":{"X-Key":"k"},"timeout":2.5}`,
			wantReq: &domain.ActionRequest{
				Endpoint: "http://game/act", Payload: "{}",
				Headers: map[string]string{"X-Key": "k"}, Timeout: 2500 * time.Millisecond,
			},
			wantCalls: 1,
		},
		{
			name:      "numeric string timeout and null headers",
			args:      `{"api_endpoint":"http://game/act","action_payload":"{}","headers":null,"timeout":"10"}`,
			wantReq:   &domain.ActionRequest{Endpoint: "http://game/act", Payload: "{}", Timeout: 10 * time.Second},
			wantCalls: 1,
		},
		{
			name:      "malformed envelope is repaired",
			args:      `{"api_endpoint":"http://game/act","action_payload":"{}",}`,
			wantReq:   &domain.ActionRequest{Endpoint: "http://game/act", Payload: "{}"},
			wantCalls: 1,
		},
		{
			name:    "missing endpoint",
			args:    `{"action_payload":"{}"}`,
			wantMsg: "Invalid API endpoint provided",
		},
		{
			name:    "empty endpoint",
			args:    `{"api_endpoint":"","action_payload":"{}"}`,
			wantMsg: "Invalid API endpoint provided",
		},
		{
			name:    "endpoint not a string",
			args:    `{"api_endpoint":42,"action_payload":"{}"}`,
			wantMsg: "Invalid API endpoint provided",
		},
		{
			name:    "endpoint checked before payload",
			args:    `{"api_endpoint":null,"action_payload":{"action":"jump"}}`,
			wantMsg: "Invalid API endpoint provided",
		},
		{
			name:    "payload as object",
			args:    `{"api_endpoint":"http://game/act","action_payload":{"action":"jump"}}`,
			wantMsg: "Action payload must be a JSON string",
		},
		{
			name:      "negative timeout uses the default",
			args:      `{"api_endpoint":"http://game/act","action_payload":"{}","timeout":-5}`,
			wantReq:   &domain.ActionRequest{Endpoint: "http://game/act", Payload: "{}"},
			wantCalls: 1,
		},
		{
			name:    "timeout too large for a duration",
			args:    `{"api_endpoint":"http://game/act","action_payload":"{}","timeout":1e10}`,
			wantMsg: "Unexpected error: timeout must be at most ",
		},
		{
			name:    "infinite timeout string",
			args:    `{"api_endpoint":"http://game/act","action_payload":"{}","timeout":"Inf"}`,
			wantMsg: "Unexpected error: timeout must be at most ",
		},
		{
			name:    "NaN timeout string",
			args:    `{"api_endpoint":"http://game/act","action_payload":"{}","timeout":"NaN"}`,
			wantMsg: "Unexpected error: timeout must be a number of seconds",
		},
		{
			name:    "headers with non-string values",
			args:    `{"api_endpoint":"http://game/act","action_payload":"{}","headers":{"X-Retry":3}}`,
			wantMsg: "Unexpected error: headers must be an object of strings: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecutor{}
			tool, err := NewActionTool(exec, nil)
			require.NoError(t, err)

			out := decodeResult(t, tool.Call(context.Background(), tt.args))

			assert.Len(t, exec.got, tt.wantCalls)
			if tt.wantReq != nil {
				require.Len(t, exec.got, 1)
				assert.Equal(t, *tt.wantReq, exec.got[0])
				assert.Equal(t, true, out["success"])
				return
			}
			assert.Equal(t, false, out["success"])
			msg, _ := out["error_message"].(string)
			assert.True(t, strings.HasPrefix(msg, tt.wantMsg), "error_message %q, want prefix %q", msg, tt.wantMsg)
			assert.Nil(t, out["status_code"])
		})
	}
}

func TestActionTool_PanicIsReported(t *testing.T) {
	tool, err := NewActionTool(&fakeExecutor{panic: true}, nil)
	require.NoError(t, err)

	out := decodeResult(t, tool.Call(context.Background(), `{"api_endpoint":"http://game","action_payload":"{}"}`))
	assert.Equal(t, "Unexpected error: executor blew up", out["error_message"])
}

func TestActionTool_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"no such room"}`))
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	tool, err := NewActionTool(gameapi.NewExecutor(srv.Client(), 0, nil), metrics.NewRecorder(reg))
	require.NoError(t, err)

	args, _ := json.Marshal(map[string]any{
		"api_endpoint":   srv.URL,
		"action_payload": `{"action":"enter","room":7}`,
	})
	got := tool.Call(context.Background(), string(args))

	want := `{
  "success": false,
  "response_data": {
    "message": "no such room"
  },
  "error_message": "Client error (HTTP 404): no such room",
  "status_code": 404
}`
	assert.Equal(t, want, got)

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range families {
		if mf.GetName() == "troubador_tool_calls_total" {
			found = true
			require.Len(t, mf.GetMetric(), 1)
			assert.Equal(t, 1.0, mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found, "tool call metric not recorded")
}

func TestMusicTool(t *testing.T) {
	tests := []struct {
		name      string
		args      string
		result    domain.MusicResult
		want      string
		wantState []string
	}{
		{
			name:      "forwards game state",
			args:      `{"game_state":"boss appears"}`,
			result:    domain.MusicResult{Body: `s("bd*4")`},
			want:      `s("bd*4")`,
			wantState: []string{"boss appears"},
		},
		{
			name:      "upstream error record",
			args:      `{"game_state":"calm"}`,
			result:    domain.MusicResult{Error: "503 Server Error: Service Unavailable for url: http://x"},
			want:      `{"error":"503 Server Error: Service Unavailable for url: http://x"}`,
			wantState: []string{"calm"},
		},
		{
			name: "missing game state",
			args: `{}`,
			want: `{"error":"game_state must be a string"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{result: tt.result}
			tool, err := NewMusicTool(gen, nil)
			require.NoError(t, err)

			assert.Equal(t, tt.want, tool.Call(context.Background(), tt.args))
			assert.Equal(t, tt.wantState, gen.got)
		})
	}
}

func TestSet(t *testing.T) {
	action, err := NewActionTool(&fakeExecutor{}, nil)
	require.NoError(t, err)
	music, err := NewMusicTool(&fakeGenerator{}, nil)
	require.NoError(t, err)

	set, err := NewSet(music, action)
	require.NoError(t, err)

	assert.Equal(t, []string{ActionToolName, MusicToolName}, set.Names())
	assert.Equal(t, "game_action_executor_tool, music_generator", set.String())

	specs := set.Specs()
	require.Len(t, specs, 2)
	assert.Equal(t, MusicToolName, specs[0].Name)

	var schema struct {
		Type       string                     `json:"type"`
		Properties map[string]json.RawMessage `json:"properties"`
		Required   []string                   `json:"required"`
	}
	require.NoError(t, json.Unmarshal(specs[1].Parameters, &schema))
	assert.Equal(t, "object", schema.Type)
	assert.Contains(t, schema.Properties, "api_endpoint")
	assert.Contains(t, schema.Properties, "timeout")
	assert.ElementsMatch(t, []string{"api_endpoint", "action_payload"}, schema.Required)

	got, ok := set.Get(MusicToolName)
	assert.True(t, ok)
	assert.Equal(t, music, got)
	_, ok = set.Get("nope")
	assert.False(t, ok)

	_, err = NewSet(music, music)
	assert.ErrorContains(t, err, "duplicate tool")
}
