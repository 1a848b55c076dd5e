// internal/service/controller.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/autopilot/internal/autopilot"
	"github.com/xkilldash9x/autopilot/internal/config"
	"github.com/xkilldash9x/autopilot/internal/engine"
	"github.com/xkilldash9x/autopilot/internal/llmclient"
	"github.com/xkilldash9x/autopilot/internal/registry"
	"github.com/xkilldash9x/autopilot/internal/status"
)

// Submitter queues a task for a worker.
type Submitter interface {
	Submit(task engine.Task) error
}

// ControllerDeps wires a Controller.
type ControllerDeps struct {
	Registry *registry.Registry
	Engine   Submitter
	Pages    Pages
	Configs  autopilot.ConfigSource
	LLM      llmclient.Client
	// Renderer is optional.
	Renderer autopilot.Renderer
	Config   config.AutopilotConfig
	Clock    autopilot.Clock
	Logger   *zap.Logger
}

// Controller connects viewers, the session registry and the worker pool.
// Every method is safe for concurrent use.
type Controller struct {
	deps     ControllerDeps
	registry *registry.Registry
	hub      *status.Hub
	logger   *zap.Logger
}

// NewController builds a controller. Status updates of every user are
// forwarded to whichever viewer is attached at the time.
func NewController(deps ControllerDeps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Registry == nil {
		deps.Registry = registry.New()
	}
	c := &Controller{
		deps:     deps,
		registry: deps.Registry,
		logger:   logger.Named("controller"),
	}
	c.hub = status.NewHub(func(userID string) status.Sink {
		return func(u status.Update) { c.send(userID, StatusUpdate(u)) }
	})
	return c
}

// Log returns the user's status log.
func (c *Controller) Log(userID string) *status.Log {
	return c.hub.For(userID)
}

func (c *Controller) send(userID string, msg any) {
	e, ok := c.registry.Get(userID)
	if !ok || e.Sender == nil {
		return
	}
	if err := e.Sender.Send(msg); err != nil {
		c.logger.Debug("Dropping message for viewer.", zap.String("user_id", userID), zap.Error(err))
	}
}

// Connect attaches sender as the user's viewer, replacing any previous one.
// A viewer joining a live session is caught up with its state and log. The
// snapshot and the attach happen under the log's lock, so every later status
// reaches the viewer exactly once.
func (c *Controller) Connect(userID string, sender registry.Sender) {
	c.hub.For(userID).Attach(func(snapshot []status.Update) {
		active := false
		c.registry.Update(userID, func(e *registry.Entry) {
			e.Sender = sender
			active = e.Active()
		})
		if !active {
			return
		}
		c.logger.Debug("Viewer joined running session.", zap.String("user_id", userID))
		if err := sender.Send(NewState(StatusRunning)); err != nil {
			return
		}
		_ = sender.Send(StatusList(snapshot))
	})
}

// Disconnect detaches sender if it is still the user's viewer.
func (c *Controller) Disconnect(userID string, sender registry.Sender) {
	c.registry.Update(userID, func(e *registry.Entry) {
		if e.Sender == sender {
			e.Sender = nil
		}
	})
}

// Start queues a session for the user. Starting while one is already active
// only repeats the running state.
func (c *Controller) Start(userID string) error {
	task, taskCtx, ok := c.reserve(userID)
	if !ok {
		c.send(userID, NewState(StatusRunning))
		return nil
	}
	c.send(userID, NewState(StatusRunning))

	err := c.deps.Engine.Submit(engine.Task{
		ID:     task.ID,
		UserID: userID,
		Run:    c.job(userID, task, taskCtx),
	})
	if err != nil {
		task.Cancel()
		c.registry.Remove(userID, task.ID)
		c.hub.For(userID).Push(status.Error, "Automation failed", fmt.Sprintf("Could not schedule the session: %v", err))
		c.send(userID, NewState(StatusStopped))
		return fmt.Errorf("scheduling session for %s: %w", userID, err)
	}
	c.logger.Info("Session queued.", zap.String("user_id", userID), zap.String("task_id", task.ID))
	return nil
}

// RunSession runs a session in the calling goroutine, bypassing the worker
// pool. It fails if the user already has an active session.
func (c *Controller) RunSession(ctx context.Context, userID string) error {
	task, taskCtx, ok := c.reserve(userID)
	if !ok {
		return ErrSessionActive
	}
	c.send(userID, NewState(StatusRunning))
	return c.job(userID, task, taskCtx)(ctx)
}

// ErrSessionActive is returned when a user already has a session.
var ErrSessionActive = errors.New("session already active")

// reserve installs a new task for the user and clears the log. It returns
// false if a task is already active.
func (c *Controller) reserve(userID string) (*registry.Task, context.Context, bool) {
	taskCtx, cancel := context.WithCancel(context.Background())
	task := &registry.Task{
		ID:        uuid.NewString(),
		Cancel:    cancel,
		StartedAt: c.now(),
	}
	if !c.registry.TryInsert(userID, task) {
		cancel()
		return nil, nil, false
	}
	c.hub.For(userID).Clear()
	return task, taskCtx, true
}

// Stop tells the viewer the session stopped, then cancels it and closes its
// page. A session still waiting in the queue is withdrawn at once, so the
// user can start again before a worker reaches it. A running session's own
// cleanup follows asynchronously.
func (c *Controller) Stop(userID string) {
	var (
		known  bool
		task   registry.Task
		active bool
		queued bool
	)
	c.registry.Update(userID, func(e *registry.Entry) {
		known = e.Task != nil || e.Sender != nil
		if e.Task == nil {
			return
		}
		task, active = *e.Task, true
		if !e.Task.Started {
			e.Task = nil
			queued = true
		}
	})
	if !known {
		return
	}
	c.send(userID, NewState(StatusStopped))
	if !active {
		return
	}
	logger := c.logger.With(zap.String("user_id", userID), zap.String("task_id", task.ID))
	task.Cancel()
	if queued {
		logger.Info("Withdrew queued session.")
		return
	}
	logger.Info("Stopping session.")
	if task.Page != nil {
		if err := task.Page.Close(); err != nil {
			logger.Debug("Closing page on stop.", zap.Error(err))
		}
	}
}

// StopAll cancels every active session.
func (c *Controller) StopAll() {
	for userID := range c.registry.ActiveTasks() {
		c.Stop(userID)
	}
}

// job is the unit the worker pool runs for one session. A job whose task was
// withdrawn while queued returns without touching the registry or the
// viewer. Otherwise, however it ends, the task is removed and the viewer is
// told the session stopped.
func (c *Controller) job(userID string, task *registry.Task, taskCtx context.Context) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		logger := c.logger.With(zap.String("user_id", userID), zap.String("task_id", task.ID))
		if !c.claim(userID, task.ID) {
			task.Cancel()
			logger.Debug("Skipping withdrawn session.")
			return context.Canceled
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		defer context.AfterFunc(taskCtx, cancel)()

		defer func() {
			task.Cancel()
			c.registry.Remove(userID, task.ID)
			c.send(userID, NewState(StatusStopped))
			logger.Info("Session ended.")
		}()

		if err := ctx.Err(); err != nil {
			return err
		}

		log := c.hub.For(userID)
		page, downloader, err := c.deps.Pages.Open(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Push(status.Error, "Automation failed", fmt.Sprintf("Could not open a browser: %v", err))
			return fmt.Errorf("opening page: %w", err)
		}
		c.registry.Update(userID, func(e *registry.Entry) {
			if e.Task != nil && e.Task.ID == task.ID {
				e.Task.Page = page
			}
		})

		driver := autopilot.NewDriver(userID, c.deps.Configs, autopilot.Deps{
			Page:       page,
			LLM:        c.deps.LLM,
			Status:     log,
			Downloader: downloader,
			Renderer:   c.deps.Renderer,
			Config:     c.deps.Config,
			Clock:      c.deps.Clock,
			Logger:     logger,
		})
		return driver.Run(ctx)
	}
}

// claim marks the user's task as started if it is still taskID.
func (c *Controller) claim(userID, taskID string) bool {
	claimed := false
	c.registry.Update(userID, func(e *registry.Entry) {
		if e.Task != nil && e.Task.ID == taskID {
			e.Task.Started = true
			claimed = true
		}
	})
	return claimed
}

func (c *Controller) now() time.Time {
	if c.deps.Clock != nil {
		return c.deps.Clock.Now()
	}
	return time.Now()
}
