package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dekker/factuurstroom/internal/common"
	"github.com/dekker/factuurstroom/internal/service"
)

// statusError classifies a non-200 provider response. Rate limits and
// server-side failures are retryable; everything else is not.
func statusError(provider string, status int, body []byte) error {
	err := fmt.Errorf("%s API error (status %d): %s", provider, status, string(body))
	switch {
	case status == http.StatusTooManyRequests:
		return &common.RetryableError{
			Err:       fmt.Errorf("%w: %v", common.ErrRateLimit, err),
			Retryable: true,
		}
	case status >= 500:
		return &common.RetryableError{Err: err, Retryable: true}
	default:
		return &common.RetryableError{Err: err, Retryable: false}
	}
}

// retryClient wraps a Client with exponential-backoff retries.
type retryClient struct {
	inner Client
	opts  service.RetryOptions
}

func newRetryClient(inner Client) *retryClient {
	return &retryClient{
		inner: inner,
		opts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// Close releases the wrapped client's resources, if any.
func (c *retryClient) Close() {
	if closer, ok := c.inner.(interface{ Close() }); ok {
		closer.Close()
	}
}

func (c *retryClient) Complete(ctx context.Context, prompt string) (string, error) {
	var result string
	err := common.WithRetry(ctx, func() error {
		var callErr error
		result, callErr = c.inner.Complete(ctx, prompt)
		return callErr
	}, c.opts)
	return result, err
}

func (c *retryClient) CompleteVision(ctx context.Context, prompt string, doc Document) (string, error) {
	var result string
	err := common.WithRetry(ctx, func() error {
		var callErr error
		result, callErr = c.inner.CompleteVision(ctx, prompt, doc)
		return callErr
	}, c.opts)
	return result, err
}
