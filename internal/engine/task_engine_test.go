// internal/engine/task_engine_test.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xkilldash9x/autopilot/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newEngine(t *testing.T, workers, queue int) *TaskEngine {
	t.Helper()
	e, err := New(config.EngineConfig{
		WorkerConcurrency:  workers,
		QueueSize:          queue,
		DefaultTaskTimeout: 5 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	return e
}

func TestNew_Validation(t *testing.T) {
	_, err := New(config.EngineConfig{WorkerConcurrency: 1}, nil)
	assert.Error(t, err)

	_, err = New(config.EngineConfig{WorkerConcurrency: 0}, zap.NewNop())
	assert.Error(t, err)

	_, err = New(config.EngineConfig{WorkerConcurrency: 1, QueueSize: -1}, zap.NewNop())
	assert.Error(t, err)
}

func TestTaskEngine_RunsAllTasks(t *testing.T) {
	e := newEngine(t, 2, 10)
	e.Start(context.Background())
	defer e.Stop()

	var wg sync.WaitGroup
	var ran atomic.Int32
	for i := 0; i < 6; i++ {
		wg.Add(1)
		require.NoError(t, e.Submit(Task{
			ID:     fmt.Sprintf("t%d", i),
			UserID: fmt.Sprintf("user-%d", i),
			Run: func(ctx context.Context) error {
				defer wg.Done()
				ran.Add(1)
				return nil
			},
		}))
	}
	wg.Wait()
	assert.Equal(t, int32(6), ran.Load())
}

// Concurrency never exceeds the worker count; excess work waits in the queue.
func TestTaskEngine_BoundsConcurrency(t *testing.T) {
	const workers = 2
	e := newEngine(t, workers, 8)
	e.Start(context.Background())
	defer e.Stop()

	release := make(chan struct{})
	var current, peak atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		require.NoError(t, e.Submit(Task{ID: fmt.Sprint(i), Run: func(ctx context.Context) error {
			defer wg.Done()
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			current.Add(-1)
			return nil
		}}))
	}

	require.Eventually(t, func() bool { return current.Load() == workers }, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(workers), peak.Load())
}

func TestTaskEngine_QueueFull(t *testing.T) {
	e := newEngine(t, 1, 1)
	e.Start(context.Background())
	defer e.Stop()

	block := make(chan struct{})
	defer close(block)
	started := make(chan struct{})

	require.NoError(t, e.Submit(Task{ID: "running", Run: func(ctx context.Context) error {
		close(started)
		<-block
		return nil
	}}))
	<-started

	require.NoError(t, e.Submit(Task{ID: "queued", Run: func(ctx context.Context) error { return nil }}))
	err := e.Submit(Task{ID: "overflow", Run: func(ctx context.Context) error { return nil }})
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestTaskEngine_SubmitLifecycle(t *testing.T) {
	e := newEngine(t, 1, 1)
	noop := Task{ID: "x", Run: func(ctx context.Context) error { return nil }}

	assert.ErrorIs(t, e.Submit(noop), ErrNotStarted)

	e.Start(context.Background())
	e.Stop()
	assert.ErrorIs(t, e.Submit(noop), ErrStopped)

	// Stop is idempotent and Start after Stop is ignored.
	e.Stop()
	e.Start(context.Background())
	assert.ErrorIs(t, e.Submit(noop), ErrStopped)
}

func TestTaskEngine_StopCancelsRunningTasks(t *testing.T) {
	e := newEngine(t, 1, 0)
	e.Start(context.Background())

	started := make(chan struct{})
	result := make(chan error, 1)

	require.Eventually(t, func() bool {
		return e.Submit(Task{ID: "long", Run: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			result <- ctx.Err()
			return ctx.Err()
		}}) == nil
	}, time.Second, 5*time.Millisecond, "an idle worker should accept the task")

	<-started
	e.Stop()
	assert.ErrorIs(t, <-result, context.Canceled)
}

func TestTaskEngine_TaskTimeout(t *testing.T) {
	e, err := New(config.EngineConfig{
		WorkerConcurrency:  1,
		QueueSize:          1,
		DefaultTaskTimeout: 20 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, err)
	e.Start(context.Background())
	defer e.Stop()

	result := make(chan error, 1)
	require.NoError(t, e.Submit(Task{ID: "slow", Run: func(ctx context.Context) error {
		<-ctx.Done()
		result <- ctx.Err()
		return ctx.Err()
	}}))
	assert.ErrorIs(t, <-result, context.DeadlineExceeded)
}

func TestTaskEngine_PanicDoesNotKillWorker(t *testing.T) {
	e := newEngine(t, 1, 2)
	e.Start(context.Background())
	defer e.Stop()

	done := make(chan struct{})
	require.NoError(t, e.Submit(Task{ID: "boom", Run: func(ctx context.Context) error { panic("boom") }}))
	require.NoError(t, e.Submit(Task{ID: "after", Run: func(ctx context.Context) error {
		close(done)
		return errors.New("still reported")
	}}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive a panicking task")
	}
}
