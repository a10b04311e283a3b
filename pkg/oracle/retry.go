package oracle

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-errors/errors"
)

// Retrying wraps a Client with a fixed-delay retry policy. Transport errors
// and empty completions are retried; the last error is returned once the
// attempts are exhausted.
type Retrying struct {
	inner    Client
	attempts int
	delay    time.Duration
}

// WithRetry wraps a client with up to attempts tries separated by delay.
func WithRetry(inner Client, attempts int, delay time.Duration) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	return &Retrying{inner: inner, attempts: attempts, delay: delay}
}

func (r *Retrying) Query(ctx context.Context, req QueryRequest) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		text, err := r.inner.Query(ctx, req)
		if err == nil && text != "" {
			return text, nil
		}
		if err == nil {
			err = errors.Errorf("empty completion")
		}
		lastErr = err
		slog.Warn("oracle query failed",
			"attempt", attempt,
			"attempts", r.attempts,
			"error", err)

		if attempt == r.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", errors.Errorf("query canceled: %w", ctx.Err())
		case <-time.After(r.delay):
		}
	}
	return "", errors.Errorf("query failed after %d attempts: %w", r.attempts, lastErr)
}
