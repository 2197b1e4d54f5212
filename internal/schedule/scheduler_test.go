package schedule

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	runs    atomic.Int32
	block   chan struct{}
	started sync.WaitGroup
}

func (r *countingRunner) RunOnce(_ context.Context) error {
	r.runs.Add(1)
	if r.block != nil {
		r.started.Done()
		<-r.block
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunOnce(t *testing.T) {
	runner := &countingRunner{}
	s := New(runner, testLogger())

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, int32(1), runner.runs.Load())
}

func TestRunOnceSkipsWhileRunning(t *testing.T) {
	runner := &countingRunner{block: make(chan struct{})}
	runner.started.Add(1)
	s := New(runner, testLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.RunOnce(context.Background())
	}()
	runner.started.Wait()

	// A second trigger while the first is in flight is a no-op.
	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, int32(1), runner.runs.Load())

	close(runner.block)
	<-done

	// After the first run finishes, triggering works again.
	runner.started.Add(1)
	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, int32(2), runner.runs.Load())
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := New(&countingRunner{}, testLogger())
	assert.Error(t, s.Start(context.Background(), "not a cron spec"))
}

func TestScheduledTicks(t *testing.T) {
	runner := &countingRunner{}
	s := New(runner, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Every-second spec keeps the test short.
	require.NoError(t, s.Start(ctx, "@every 1s"))
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return runner.runs.Load() >= 1
	}, 3*time.Second, 50*time.Millisecond)
}
