package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// DefaultActionTimeout applies when a caller does not supply a timeout.
const DefaultActionTimeout = 30 * time.Second

// DefaultActionHeaders returns the headers used when a caller supplies none.
func DefaultActionHeaders() map[string]string {
	return map[string]string{"Content-Type": "application/json"}
}

// Outcome names the branch that produced an ActionResult.
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeInvalidInput     Outcome = "invalid_input"
	OutcomeClientError      Outcome = "client_error"
	OutcomeServerError      Outcome = "server_error"
	OutcomeUnexpectedStatus Outcome = "unexpected_status"
	OutcomeConnectionError  Outcome = "connection_error"
	OutcomeTimeout          Outcome = "timeout"
	OutcomeRequestError     Outcome = "request_error"
	OutcomeUnexpectedError  Outcome = "unexpected_error"
)

// ActionRequest is a single game action delivery.
// Payload holds JSON text exactly as the caller supplied it.
type ActionRequest struct {
	Endpoint string
	Payload  string
	Headers  map[string]string
	Timeout  time.Duration
}

// ActionResult is the uniform outcome of an action delivery.
// Field order matters: it is the order of keys in the serialized form.
type ActionResult struct {
	Success      bool    `json:"success"`
	ResponseData any     `json:"response_data"`
	ErrorMessage *string `json:"error_message"`
	StatusCode   *int    `json:"status_code"`

	Outcome Outcome `json:"-"`
}

// NewActionFailure builds a failed result that carries no HTTP status.
func NewActionFailure(outcome Outcome, message string) ActionResult {
	return ActionResult{
		Outcome:      outcome,
		ErrorMessage: &message,
	}
}

// Message returns the error message, or "" on success.
func (r ActionResult) Message() string {
	if r.ErrorMessage == nil {
		return ""
	}
	return *r.ErrorMessage
}

// JSON renders the result as 2-space indented JSON text.
func (r ActionResult) JSON() string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		// response_data came from a JSON decoder or is a string, so this only
		// trips on programmer error. Fall back to a result without it.
		msg := "Unexpected error: " + err.Error()
		fallback := ActionResult{ErrorMessage: &msg, StatusCode: r.StatusCode}
		buf.Reset()
		_ = enc.Encode(fallback)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}
