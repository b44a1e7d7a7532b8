package gameapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"
	"time"

	"github.com/Victoriakaey/troubador2/internal/core/domain"
)

// classifyResponse maps an HTTP status and body onto a result.
func classifyResponse(status int, raw []byte) domain.ActionResult {
	code := status
	result := domain.ActionResult{StatusCode: &code}

	parsed, isJSON := decodeBody(raw)

	switch {
	case status >= 200 && status <= 299:
		result.Success = true
		result.Outcome = domain.OutcomeSuccess
		result.ResponseData = bodyOrText(isJSON, raw)

	case status >= 400 && status <= 499:
		result.Outcome = domain.OutcomeClientError
		msg := fmt.Sprintf("Client error (HTTP %d)", status) + errorDetail(parsed, isJSON, raw)
		result.ErrorMessage = &msg
		if isJSON {
			result.ResponseData = json.RawMessage(raw)
		}

	case status >= 500 && status <= 599:
		result.Outcome = domain.OutcomeServerError
		msg := fmt.Sprintf("Server error (HTTP %d)", status) + errorDetail(parsed, isJSON, raw)
		result.ErrorMessage = &msg
		if isJSON {
			result.ResponseData = json.RawMessage(raw)
		}

	default:
		result.Outcome = domain.OutcomeUnexpectedStatus
		msg := fmt.Sprintf("Unexpected HTTP status code: %d", status)
		result.ErrorMessage = &msg
		result.ResponseData = bodyOrText(isJSON, raw)
	}

	return result
}

// decodeBody parses raw as a single JSON value. Numbers keep their original
// text.
func decodeBody(raw []byte) (any, bool) {
	if !json.Valid(raw) {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	return v, true
}

// bodyOrText keeps JSON bodies as raw messages so key order and number
// formatting survive re-encoding.
func bodyOrText(isJSON bool, raw []byte) any {
	if isJSON {
		return json.RawMessage(raw)
	}
	return string(raw)
}

// errorDetail is the suffix appended to 4xx/5xx messages: the body's
// "message", else its "error", else the raw text when the body is not JSON.
func errorDetail(parsed any, isJSON bool, raw []byte) string {
	if !isJSON {
		return ": " + string(raw)
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"message", "error"} {
		if v, found := obj[key]; found {
			return ": " + detailText(v)
		}
	}
	return ""
}

// detailText renders a message/error value for the status line. Strings are
// used as-is; anything else is written as compact JSON (null, true, {...}).
func detailText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// classifyTransport maps a failed round trip onto a result. Connection
// failures win over timeouts, so a dial that runs out of time reports as a
// connection error.
func classifyTransport(err error, endpoint string, timeout time.Duration) domain.ActionResult {
	switch {
	case errors.Is(err, context.Canceled):
		return domain.NewActionFailure(domain.OutcomeRequestError, "Request error: "+err.Error())

	case isConnectionError(err):
		return domain.NewActionFailure(domain.OutcomeConnectionError,
			fmt.Sprintf("Connection error: Unable to connect to %s. %s", endpoint, err))

	case isTimeout(err):
		return domain.NewActionFailure(domain.OutcomeTimeout,
			fmt.Sprintf("Request timeout: The request to %s timed out after %s seconds. %s",
				endpoint, FormatTimeout(timeout), err))
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return domain.NewActionFailure(domain.OutcomeRequestError, "Request error: "+err.Error())
	}
	return domain.NewActionFailure(domain.OutcomeUnexpectedError, "Unexpected error: "+err.Error())
}

func isConnectionError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	// The peer closed the connection before sending a response.
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var certErr *tls.CertificateVerificationError
	var authErr x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var recordErr tls.RecordHeaderError
	return errors.As(err, &certErr) || errors.As(err, &authErr) ||
		errors.As(err, &hostErr) || errors.As(err, &recordErr)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
