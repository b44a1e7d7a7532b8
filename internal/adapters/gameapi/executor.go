// Package gameapi delivers game actions to caller-supplied HTTP endpoints and
// folds every outcome into a domain.ActionResult.
package gameapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Victoriakaey/troubador2/internal/core/domain"
	"github.com/Victoriakaey/troubador2/internal/core/ports"
	"github.com/Victoriakaey/troubador2/internal/logging"
)

const (
	msgInvalidEndpoint = "Invalid API endpoint provided"
	msgPayloadNotText  = "Action payload must be a JSON string"
)

// Executor sends one POST per action. It never retries.
type Executor struct {
	httpClient     *http.Client
	defaultTimeout time.Duration
	logger         *slog.Logger
}

var _ ports.ActionExecutor = (*Executor)(nil)

// NewExecutor constructs an Executor. A nil client uses http.DefaultClient and
// a non-positive defaultTimeout uses domain.DefaultActionTimeout.
func NewExecutor(httpClient *http.Client, defaultTimeout time.Duration, logger *slog.Logger) *Executor {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if defaultTimeout <= 0 {
		defaultTimeout = domain.DefaultActionTimeout
	}
	return &Executor{
		httpClient:     httpClient,
		defaultTimeout: defaultTimeout,
		logger:         logging.OrDiscard(logger),
	}
}

// InvalidPayloadType is the result for a payload that was not JSON text.
// Executor.Execute cannot receive one; tool adapters decoding loosely typed
// arguments use it.
func InvalidPayloadType() domain.ActionResult {
	return domain.NewActionFailure(domain.OutcomeInvalidInput, msgPayloadNotText)
}

// InvalidEndpoint is the result for a missing or non-string endpoint.
func InvalidEndpoint() domain.ActionResult {
	return domain.NewActionFailure(domain.OutcomeInvalidInput, msgInvalidEndpoint)
}

// Execute validates req, performs the POST and classifies the response.
func (e *Executor) Execute(ctx context.Context, req domain.ActionRequest) (result domain.ActionResult) {
	defer func() {
		if r := recover(); r != nil {
			result = domain.NewActionFailure(domain.OutcomeUnexpectedError, fmt.Sprintf("Unexpected error: %v", r))
		}
	}()

	if req.Endpoint == "" {
		return InvalidEndpoint()
	}

	var payload json.RawMessage
	if err := json.Unmarshal([]byte(req.Payload), &payload); err != nil {
		return domain.NewActionFailure(domain.OutcomeInvalidInput, "Invalid JSON in action_payload: "+err.Error())
	}
	var body bytes.Buffer
	if err := json.Compact(&body, payload); err != nil {
		return domain.NewActionFailure(domain.OutcomeInvalidInput, "Invalid JSON in action_payload: "+err.Error())
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}

	status, raw, err := e.post(ctx, req.Endpoint, resolveHeaders(req.Headers), body.Bytes(), timeout)
	if err != nil {
		result = classifyTransport(err, req.Endpoint, timeout)
		e.logger.Warn("gameapi: action delivery failed",
			"endpoint", req.Endpoint, "outcome", result.Outcome, "error", err)
		return result
	}

	result = classifyResponse(status, raw)
	e.logger.Debug("gameapi: action delivered",
		"endpoint", req.Endpoint, "status", status, "outcome", result.Outcome)
	return result
}

// post performs the request and reads the whole body before the deadline is
// released.
func (e *Executor) post(ctx context.Context, endpoint string, headers http.Header, body []byte, timeout time.Duration) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	httpReq.Header = headers

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, raw, nil
}

// resolveHeaders uses the caller's headers in place of the defaults and adds
// a JSON content type when the caller left it out.
func resolveHeaders(custom map[string]string) http.Header {
	if custom == nil {
		custom = domain.DefaultActionHeaders()
	}
	h := make(http.Header, len(custom)+1)
	for k, v := range custom {
		h.Set(k, v)
	}
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", "application/json")
	}
	return h
}

// FormatTimeout renders a timeout in seconds without trailing zeros.
func FormatTimeout(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
