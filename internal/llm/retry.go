package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	maxAttempts       = 5
	initialRetryDelay = 500 * time.Millisecond
	maxRetryDelay     = 8 * time.Second
)

// RetryingProvider wraps a Provider with exponential-backoff retries
// for transient API and network failures.
type RetryingProvider struct {
	provider Provider
}

func NewRetryingProvider(provider Provider) Provider {
	return &RetryingProvider{provider: provider}
}

func (r *RetryingProvider) Name() string {
	return r.provider.Name()
}

func (r *RetryingProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	delay := initialRetryDelay
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := r.provider.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !retryable(err) || attempt == maxAttempts {
			return nil, err
		}

		log.Printf("llm: attempt %d/%d failed, retrying in %s: %v", attempt, maxAttempts, delay, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}

	return nil, fmt.Errorf("exhausted %d attempts: %w", maxAttempts, lastErr)
}

// retryable reports whether the failure is worth another attempt:
// rate limits, server-side errors and network-level failures.
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooEarly, http.StatusTooManyRequests:
			return true
		}
		return apiErr.HTTPStatusCode >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
