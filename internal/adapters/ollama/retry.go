package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultBackoff     = 500 * time.Millisecond
)

// doWithRetry sends a request built by newReq, retrying transport failures,
// 429 and 5xx. Ollama answers 503 while a model is still loading.
func (c *Client) doWithRetry(ctx context.Context, newReq func() (*http.Request, error)) (*http.Response, error) {
	attempts := c.maxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	backoff := c.backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("ollama: request canceled: %w", err)
		}

		req, err := newReq()
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		retryAfter, retry := shouldRetry(resp, err)
		if !retry {
			return resp, err
		}

		if attempt == attempts-1 {
			if err != nil {
				return nil, fmt.Errorf("ollama: request failed after %d attempts: %w", attempts, err)
			}
			_ = resp.Body.Close()
			return nil, fmt.Errorf("ollama: request failed after %d attempts: status %d", attempts, resp.StatusCode)
		}

		if err != nil {
			c.logger.Warn("ollama: retrying after error", "attempt", attempt+1, "max", attempts, "error", err)
		} else {
			c.logger.Warn("ollama: retrying after status", "attempt", attempt+1, "max", attempts, "status", resp.StatusCode)
			_ = resp.Body.Close()
		}

		delay := backoff * time.Duration(1<<attempt)
		if retryAfter > 0 {
			delay = retryAfter
		}
		if err := sleepWithContext(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func shouldRetry(resp *http.Response, err error) (time.Duration, bool) {
	if err != nil {
		return 0, true
	}
	if resp == nil {
		return 0, false
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return parseRetryAfter(resp), true
	}
	return 0, false
}

func parseRetryAfter(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(raw); err == nil {
		if until := time.Until(when); until > 0 {
			return until
		}
	}
	return 0
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("ollama: request canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
