package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Victoriakaey/troubador2/internal/adapters/gameapi"
	"github.com/Victoriakaey/troubador2/internal/core/domain"
	"github.com/Victoriakaey/troubador2/internal/core/ports"
	"github.com/Victoriakaey/troubador2/internal/metrics"
)

const ActionToolName = "game_action_executor_tool"

const actionToolDescription = "Executes game actions by making HTTP POST requests to game API endpoints. " +
	"Takes a JSON string as action_payload parameter. " +
	"Handles various response codes and network errors gracefully, returning structured responses " +
	"with success status, response data, error messages, and HTTP status codes."

// actionArgs documents the tool parameters. Call decodes loosely so that
// wrongly typed values map onto the right validation message.
type actionArgs struct {
	APIEndpoint   string            `json:"api_endpoint" jsonschema:"The URL endpoint for the game action API"`
	ActionPayload string            `json:"action_payload" jsonschema:"JSON string containing the action data to send (e.g. '{\"action\": \"move\", \"direction\": \"north\"}')"`
	Headers       map[string]string `json:"headers,omitempty" jsonschema:"Custom headers for the request. Defaults to Content-Type: application/json"`
	Timeout       float64           `json:"timeout,omitempty" jsonschema:"Request timeout in seconds. Defaults to 30"`
}

// ActionTool is the game_action_executor_tool.
type ActionTool struct {
	executor ports.ActionExecutor
	metrics  *metrics.Recorder
	spec     domain.ToolSpec
}

var _ ports.Tool = (*ActionTool)(nil)

func NewActionTool(executor ports.ActionExecutor, rec *metrics.Recorder) (*ActionTool, error) {
	params, err := schemaFor[actionArgs]()
	if err != nil {
		return nil, err
	}
	return &ActionTool{
		executor: executor,
		metrics:  rec,
		spec: domain.ToolSpec{
			Name:        ActionToolName,
			Description: actionToolDescription,
			Parameters:  params,
		},
	}, nil
}

func (t *ActionTool) Spec() domain.ToolSpec { return t.spec }

// Call always returns the pretty-printed ActionResult, including for panics.
func (t *ActionTool) Call(ctx context.Context, arguments string) (out string) {
	start := time.Now()
	var result domain.ActionResult

	defer func() {
		if r := recover(); r != nil {
			result = domain.NewActionFailure(domain.OutcomeUnexpectedError, fmt.Sprintf("Unexpected error: %v", r))
		}
		t.metrics.ObserveTool(ActionToolName, string(result.Outcome), time.Since(start))
		out = result.JSON()
	}()

	req, failure, ok := parseActionArgs(arguments)
	if !ok {
		result = failure
		return
	}
	result = t.executor.Execute(ctx, req)
	return
}

// parseActionArgs turns raw tool arguments into a request. The endpoint is
// checked before the payload, matching the order of validation messages.
func parseActionArgs(arguments string) (domain.ActionRequest, domain.ActionResult, bool) {
	var fields map[string]json.RawMessage
	if err := decodeArguments(arguments, &fields); err != nil {
		return domain.ActionRequest{}, domain.NewActionFailure(domain.OutcomeUnexpectedError,
			"Unexpected error: invalid tool arguments: "+err.Error()), false
	}

	endpoint, ok := stringField(fields, "api_endpoint")
	if !ok || endpoint == "" {
		return domain.ActionRequest{}, gameapi.InvalidEndpoint(), false
	}

	payload, ok := stringField(fields, "action_payload")
	if !ok {
		return domain.ActionRequest{}, gameapi.InvalidPayloadType(), false
	}

	headers, err := headersField(fields)
	if err != nil {
		return domain.ActionRequest{}, domain.NewActionFailure(domain.OutcomeUnexpectedError,
			"Unexpected error: "+err.Error()), false
	}

	timeout, err := timeoutField(fields)
	if err != nil {
		return domain.ActionRequest{}, domain.NewActionFailure(domain.OutcomeUnexpectedError,
			"Unexpected error: "+err.Error()), false
	}

	return domain.ActionRequest{
		Endpoint: endpoint,
		Payload:  payload,
		Headers:  headers,
		Timeout:  timeout,
	}, domain.ActionResult{}, true
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, found := fields[key]
	if !found {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// headersField returns nil when headers are absent or null so the executor
// applies its defaults.
func headersField(fields map[string]json.RawMessage) (map[string]string, error) {
	raw, found := fields["headers"]
	if !found || isNull(raw) {
		return nil, nil
	}
	var headers map[string]string
	if err := json.Unmarshal(raw, &headers); err != nil {
		return nil, fmt.Errorf("headers must be an object of strings: %w", err)
	}
	return headers, nil
}

// timeoutField accepts a number of seconds or a numeric string.
func timeoutField(fields map[string]json.RawMessage) (time.Duration, error) {
	raw, found := fields["timeout"]
	if !found || isNull(raw) {
		return 0, nil
	}

	var seconds float64
	if err := json.Unmarshal(raw, &seconds); err != nil {
		var text string
		if json.Unmarshal(raw, &text) != nil {
			return 0, fmt.Errorf("timeout must be a number of seconds, got %s", raw)
		}
		seconds, err = strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return 0, fmt.Errorf("timeout must be a number of seconds, got %q", text)
		}
	}
	switch {
	case math.IsNaN(seconds):
		return 0, fmt.Errorf("timeout must be a number of seconds, got %s", raw)
	case seconds <= 0:
		// Non-positive timeouts fall back to the executor default.
		return 0, nil
	case seconds > maxTimeoutSeconds:
		return 0, fmt.Errorf("timeout must be at most %.0f seconds, got %s", maxTimeoutSeconds, raw)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// maxTimeoutSeconds is the largest whole number of seconds a time.Duration holds.
var maxTimeoutSeconds = math.Floor(float64(math.MaxInt64) / float64(time.Second))

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}
