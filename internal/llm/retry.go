package llm

import (
	"context"
	"fmt"
	"time"
)

// RetryProvider wraps a Provider with bounded exponential backoff.
// Only transient failures are retried; unavailable and generic errors
// surface immediately so callers can apply the error taxonomy.
type RetryProvider struct {
	provider    Provider
	maxRetries  int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

// NewRetryProvider wraps the given provider. With maxRetries <= 0 a
// default of 3 is used.
func NewRetryProvider(provider Provider, maxRetries int) *RetryProvider {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &RetryProvider{
		provider:    provider,
		maxRetries:  maxRetries,
		baseBackoff: 2 * time.Second,
		maxBackoff:  time.Minute,
	}
}

func (r *RetryProvider) Name() string {
	return r.provider.Name()
}

func (r *RetryProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	backoff := r.baseBackoff
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		resp, err := r.provider.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if Classify(err) != KindTransient {
			return nil, err
		}
		if attempt == r.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > r.maxBackoff {
				backoff = r.maxBackoff
			}
		}
	}
	return nil, fmt.Errorf("retries exhausted after %d attempts: %w", r.maxRetries, lastErr)
}

// CompleteStream delegates streaming to the wrapped provider when it
// supports it. Stream setup failures are retried like completions;
// failures mid-stream are not, the session layer recovers those.
func (r *RetryProvider) CompleteStream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error) {
	sp, ok := r.provider.(StreamProvider)
	if !ok {
		return nil, fmt.Errorf("provider %s does not support streaming", r.provider.Name())
	}

	backoff := r.baseBackoff
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		ch, err := sp.CompleteStream(ctx, req)
		if err == nil {
			return ch, nil
		}
		lastErr = err

		if Classify(err) != KindTransient {
			return nil, err
		}
		if attempt == r.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > r.maxBackoff {
				backoff = r.maxBackoff
			}
		}
	}
	return nil, fmt.Errorf("retries exhausted after %d attempts: %w", r.maxRetries, lastErr)
}
