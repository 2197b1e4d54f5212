package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekker/factuurstroom/internal/common"
	"github.com/dekker/factuurstroom/internal/service"
)

// flakyClient fails a configured number of times before succeeding.
type flakyClient struct {
	failures int
	err      error
	calls    int
}

func (c *flakyClient) Complete(_ context.Context, _ string) (string, error) {
	c.calls++
	if c.calls <= c.failures {
		return "", c.err
	}
	return "ok", nil
}

func (c *flakyClient) CompleteVision(ctx context.Context, prompt string, _ Document) (string, error) {
	return c.Complete(ctx, prompt)
}

func fastRetryOptions() service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetryClientRecoversFromTransientFailure(t *testing.T) {
	inner := &flakyClient{
		failures: 2,
		err:      &common.RetryableError{Err: errors.New("upstream unavailable"), Retryable: true},
	}
	client := &retryClient{inner: inner, opts: fastRetryOptions()}

	result, err := client.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryClientStopsOnPermanentFailure(t *testing.T) {
	inner := &flakyClient{
		failures: 10,
		err:      &common.RetryableError{Err: errors.New("invalid request"), Retryable: false},
	}
	client := &retryClient{inner: inner, opts: fastRetryOptions()}

	_, err := client.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestRetryClientExhaustsAttempts(t *testing.T) {
	inner := &flakyClient{
		failures: 10,
		err:      &common.RetryableError{Err: errors.New("upstream unavailable"), Retryable: true},
	}
	client := &retryClient{inner: inner, opts: fastRetryOptions()}

	_, err := client.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMaxRetries)
	assert.Equal(t, 3, inner.calls)
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
		rateLimit bool
	}{
		{name: "rate limit", status: 429, retryable: true, rateLimit: true},
		{name: "server error", status: 503, retryable: true},
		{name: "bad request", status: 400, retryable: false},
		{name: "unauthorized", status: 401, retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := statusError("anthropic", tt.status, []byte("details"))

			var retryableErr *common.RetryableError
			require.ErrorAs(t, err, &retryableErr)
			assert.Equal(t, tt.retryable, retryableErr.Retryable)
			assert.Equal(t, tt.rateLimit, errors.Is(err, common.ErrRateLimit))
		})
	}
}
