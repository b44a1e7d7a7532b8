// Package music forwards game states to the Strudel music generation service.
package music

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Victoriakaey/troubador2/internal/core/domain"
	"github.com/Victoriakaey/troubador2/internal/core/ports"
	"github.com/Victoriakaey/troubador2/internal/logging"
)

// DefaultTimeout bounds a single generation request.
const DefaultTimeout = 60 * time.Second

// Forwarder posts {game_description, game_state} to the music endpoint.
type Forwarder struct {
	httpClient      *http.Client
	endpoint        string
	gameDescription string
	timeout         time.Duration
	logger          *slog.Logger
}

var _ ports.MusicGenerator = (*Forwarder)(nil)

type generateRequest struct {
	GameDescription string `json:"game_description"`
	GameState       string `json:"game_state"`
}

// NewForwarder constructs a Forwarder. A nil client uses http.DefaultClient and
// a non-positive timeout uses DefaultTimeout.
func NewForwarder(httpClient *http.Client, endpoint, gameDescription string, timeout time.Duration, logger *slog.Logger) *Forwarder {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Forwarder{
		httpClient:      httpClient,
		endpoint:        endpoint,
		gameDescription: gameDescription,
		timeout:         timeout,
		logger:          logging.OrDiscard(logger),
	}
}

// Generate returns the service body verbatim, or an error record when the
// request fails or the service answers 4xx/5xx.
func (f *Forwarder) Generate(ctx context.Context, gameState string) domain.MusicResult {
	body, err := json.Marshal(generateRequest{GameDescription: f.gameDescription, GameState: gameState})
	if err != nil {
		return domain.MusicResult{Error: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		return f.fail(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return f.fail(err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return f.fail(err.Error())
	}

	if msg := statusError(resp); msg != "" {
		return f.fail(msg)
	}
	return domain.MusicResult{Body: string(raw)}
}

func (f *Forwarder) fail(msg string) domain.MusicResult {
	f.logger.Warn("music: generation failed", "endpoint", f.endpoint, "error", msg)
	return domain.MusicResult{Error: msg}
}

// statusError describes a 4xx/5xx response as
// "<code> Client Error|Server Error: <reason> for url: <url>".
func statusError(resp *http.Response) string {
	var kind string
	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		kind = "Client Error"
	case resp.StatusCode >= 500 && resp.StatusCode < 600:
		kind = "Server Error"
	default:
		return ""
	}

	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return fmt.Sprintf("%d %s: %s for url: %s", resp.StatusCode, kind, reason, resp.Request.URL)
}
