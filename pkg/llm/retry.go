package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrUnavailable is returned once every retry attempt against the backend has
// failed. Callers treat it as "no trustworthy generation available".
var ErrUnavailable = errors.New("llm provider unavailable")

// RetryingProvider wraps another provider with bounded retries and
// exponential backoff on transient errors.
type RetryingProvider struct {
	inner       LLMProvider
	maxAttempts int
	baseBackoff time.Duration
}

var _ LLMProvider = &RetryingProvider{}

func NewRetryingProvider(inner LLMProvider, maxAttempts int, baseBackoff time.Duration) *RetryingProvider {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseBackoff <= 0 {
		baseBackoff = 500 * time.Millisecond
	}
	return &RetryingProvider{
		inner:       inner,
		maxAttempts: maxAttempts,
		baseBackoff: baseBackoff,
	}
}

func (r *RetryingProvider) Chat(ctx context.Context, history []Message, options ...Option) (string, error) {
	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		reply, err := r.inner.Chat(ctx, history, options...)
		if err == nil {
			return reply, nil
		}
		// Context cancellation is not transient; give up immediately.
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err

		if attempt < r.maxAttempts-1 {
			backoff := time.Duration(float64(r.baseBackoff) * math.Pow(2, float64(attempt)))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return "", fmt.Errorf("%w: %d attempts failed: %v", ErrUnavailable, r.maxAttempts, lastErr)
}

func (r *RetryingProvider) Generate(ctx context.Context, prompt string, options ...Option) (string, error) {
	return r.Chat(ctx, []Message{{Role: "user", Content: prompt}}, options...)
}
