// internal/engine/task_engine.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/autopilot/internal/config"
)

var (
	// ErrQueueFull is returned when every worker is busy and the queue is at capacity.
	ErrQueueFull = errors.New("task queue is full")
	// ErrStopped is returned by Submit once the engine has been stopped.
	ErrStopped = errors.New("task engine is stopped")
	// ErrNotStarted is returned by Submit before Start.
	ErrNotStarted = errors.New("task engine is not started")
)

// Task is one unit of work: here, one user's automation session.
type Task struct {
	ID     string
	UserID string
	Run    func(ctx context.Context) error
}

// TaskEngine runs submitted tasks on a fixed number of workers. Tasks beyond
// the worker count wait in a FIFO queue instead of being rejected.
type TaskEngine struct {
	cfg    config.EngineConfig
	logger *zap.Logger
	queue  chan Task
	wg     sync.WaitGroup

	stateLock sync.Mutex
	isRunning bool
	stopped   bool
	cancel    context.CancelFunc
}

// New creates a TaskEngine. It does not start any workers.
func New(cfg config.EngineConfig, logger *zap.Logger) (*TaskEngine, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.WorkerConcurrency <= 0 {
		return nil, fmt.Errorf("worker concurrency must be positive, got %d", cfg.WorkerConcurrency)
	}
	if cfg.QueueSize < 0 {
		return nil, fmt.Errorf("queue size must not be negative, got %d", cfg.QueueSize)
	}
	return &TaskEngine{
		cfg:    cfg,
		logger: logger.Named("task_engine"),
		queue:  make(chan Task, cfg.QueueSize),
	}, nil
}

// Start launches the worker pool. Workers exit when Stop is called or ctx ends.
func (e *TaskEngine) Start(ctx context.Context) {
	e.stateLock.Lock()
	if e.isRunning || e.stopped {
		e.stateLock.Unlock()
		e.logger.Warn("TaskEngine.Start called, but engine is already running or stopped.")
		return
	}
	ctx, e.cancel = context.WithCancel(ctx)
	e.isRunning = true
	e.stateLock.Unlock()

	e.logger.Info("Starting task engine worker pool",
		zap.Int("concurrency", e.cfg.WorkerConcurrency),
		zap.Int("queue_size", e.cfg.QueueSize))

	for i := 0; i < e.cfg.WorkerConcurrency; i++ {
		e.wg.Add(1)
		go e.runWorker(ctx, i+1)
	}
}

// Submit hands a task to an idle worker or queues it. It never blocks; when no
// worker is idle and the queue is at capacity it returns ErrQueueFull.
func (e *TaskEngine) Submit(task Task) error {
	e.stateLock.Lock()
	defer e.stateLock.Unlock()

	switch {
	case e.stopped:
		return ErrStopped
	case !e.isRunning:
		return ErrNotStarted
	}

	select {
	case e.queue <- task:
		e.logger.Debug("Task queued", zap.String("task_id", task.ID), zap.String("user_id", task.UserID))
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop cancels running tasks, discards queued ones and waits for workers.
func (e *TaskEngine) Stop() {
	e.stateLock.Lock()
	if e.stopped {
		e.stateLock.Unlock()
		return
	}
	e.stopped = true
	wasRunning := e.isRunning
	e.isRunning = false
	if e.cancel != nil {
		e.cancel()
	}
	e.stateLock.Unlock()

	if !wasRunning {
		return
	}
	e.logger.Info("Stopping task engine... waiting for workers to finish.")
	e.wg.Wait()
	e.logger.Info("Task engine stopped gracefully.")
}

func (e *TaskEngine) runWorker(ctx context.Context, workerID int) {
	defer e.wg.Done()
	logger := e.logger.With(zap.Int("worker_id", workerID))
	logger.Debug("Worker goroutine started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Context cancelled, worker shutting down.", zap.Error(ctx.Err()))
			return
		case task := <-e.queue:
			e.process(ctx, task, logger)
		}
	}
}

// process runs one task with the configured timeout and recovers from panics
// so one broken session cannot take a worker down.
func (e *TaskEngine) process(ctx context.Context, task Task, logger *zap.Logger) {
	logger = logger.With(zap.String("task_id", task.ID), zap.String("user_id", task.UserID))

	if ctx.Err() != nil {
		logger.Warn("Context cancelled before task processing started", zap.Error(ctx.Err()))
		return
	}

	timeout := e.cfg.DefaultTaskTimeout
	if timeout <= 0 {
		timeout = 12 * time.Hour
	}
	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Task panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	start := time.Now()
	logger.Info("Processing task")
	if err := task.Run(taskCtx); err != nil {
		logger.Warn("Task finished with error", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return
	}
	logger.Info("Task finished", zap.Duration("elapsed", time.Since(start)))
}
