package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	baseRetryDelay    = 2 * time.Second
	minRateLimitDelay = 5 * time.Second // minimum delay for 429 errors
)

// statusError is a non-200 HTTP response.
type statusError struct {
	Code int
	Body string
	// RetryAfter is the server-requested delay, zero when absent.
	RetryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("LLM API error %d: %s", e.Code, e.Body)
}

// retryableStatusCode returns true for HTTP status codes that warrant a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// attemptFunc performs one request. retryable reports whether a failure is
// transient.
type attemptFunc func(ctx context.Context) (retryable bool, err error)

// withRetries runs fn up to 1+maxRetries times. Transient failures that
// survive every attempt are wrapped in ErrUnavailable; other failures are
// returned as they are. Context errors always win.
func withRetries(ctx context.Context, name string, maxRetries int, fn attemptFunc) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseRetryDelay * time.Duration(1<<(attempt-1))
			if se, ok := lastErr.(*statusError); ok && se.Code == http.StatusTooManyRequests {
				delay = max(minRateLimitDelay*time.Duration(1<<(attempt-1)), se.RetryAfter)
			}
			slog.Warn("llm: retrying request",
				"provider", name,
				"attempt", attempt,
				"delay", delay,
				"error", lastErr,
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		retryable, err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !retryable {
			return err
		}
		lastErr = err
	}
	if maxRetries > 0 {
		return fmt.Errorf("%w: max retries exceeded: %v", ErrUnavailable, lastErr)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}
