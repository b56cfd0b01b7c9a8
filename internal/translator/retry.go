package translator

import (
	"context"
	"errors"
	"strings"
	"time"

	"layout-translator/internal/logger"
)

const (
	// DefaultMaxRetries is how many times a failed model call is repeated.
	DefaultMaxRetries = 2
	// BaseRetryDelay is the first backoff delay.
	BaseRetryDelay = 2 * time.Second
	// MaxRetryDelay caps the backoff.
	MaxRetryDelay = 30 * time.Second
)

// isRetryableError reports whether a failed model call is worth repeating.
// Deadlines and cancellations are final: a timed-out call falls back to
// the source text instead of being retried.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrNotLoaded) {
		return false
	}

	msg := strings.ToLower(err.Error())

	// authentication and malformed requests never succeed on retry
	for _, s := range []string{"status code: 401", "status code: 400", "status code: 403",
		"unauthorized", "invalid api key", "authentication failed", "invalid_request_error"} {
		if strings.Contains(msg, s) {
			return false
		}
	}
	for _, s := range []string{"rate limit", "status code: 429", "status code: 5",
		"server error", "connection", "timeout", "network", "eof", "reset by peer"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// backoffDelay doubles base per attempt, capped at MaxRetryDelay.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= MaxRetryDelay {
			return MaxRetryDelay
		}
	}
	return delay
}

// withRetry runs fn up to attempts times, sleeping between retryable
// failures. The sleep is interrupted by ctx.
func withRetry(ctx context.Context, attempts int, base time.Duration, fn func(context.Context) (string, error)) (string, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !isRetryableError(err) || attempt == attempts {
			break
		}

		delay := backoffDelay(base, attempt)
		logger.Debug("retrying model call",
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Err(err))

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return "", ctx.Err()
		case <-t.C:
		}
	}
	return "", lastErr
}
