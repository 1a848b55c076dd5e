// internal/autopilot/driver.go
package autopilot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/autopilot/internal/status"
	"github.com/xkilldash9x/autopilot/internal/store"
)

// State is the lifecycle position of a session.
type State int

const (
	Idle State = iota
	Authenticating
	Running
	Stopped
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Authenticating:
		return "authenticating"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case Errored:
		return "errored"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var transitions = map[State][]State{
	Idle:           {Authenticating},
	Authenticating: {Running, Stopped, Errored},
	Running:        {Stopped, Errored},
}

// CanTransition reports whether the lifecycle allows from -> to.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ConfigSource loads a user's stored configuration.
type ConfigSource interface {
	GetUserConfig(ctx context.Context, userID string) (store.UserConfig, error)
}

// Driver runs one user's session from login to the end of the activity loop.
type Driver struct {
	userID  string
	configs ConfigSource
	deps    Deps
	logger  *zap.Logger

	mu    sync.Mutex
	state State
}

// NewDriver prepares a session for userID. deps.TimePerWord is replaced by
// the user's stored value when the session runs.
func NewDriver(userID string, configs ConfigSource, deps Deps) *Driver {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	deps.Logger = logger
	return &Driver{
		userID:  userID,
		configs: configs,
		deps:    deps,
		logger:  logger.Named("driver"),
	}
}

// State returns the current lifecycle state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Driver) transition(to State) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !CanTransition(d.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.state, to)
	}
	d.logger.Debug("Session state changed.", zap.Stringer("from", d.state), zap.Stringer("to", to))
	d.state = to
	return nil
}

// Run drives the session until the activity loop stops, an error occurs or
// ctx is cancelled. Cancellation ends in Stopped and returns the context's
// error; any other failure ends in Errored. The page is closed on every exit
// path. Pending statuses are failed only when the session was cancelled or
// errored; a loop that stops on its own leaves them for the student.
func (d *Driver) Run(ctx context.Context) (err error) {
	if err := d.transition(Authenticating); err != nil {
		return err
	}
	defer func() {
		if err != nil || ctx.Err() != nil {
			d.deps.Status.FailPending(status.StoppedDescription)
		}
		if err := d.deps.Page.Close(); err != nil {
			d.logger.Debug("Closing page.", zap.Error(err))
		}
	}()

	creds, err := d.configs.GetUserConfig(ctx, d.userID)
	switch {
	case err == nil && creds.Valid():
	case err == nil, errors.Is(err, store.ErrNotFound):
		d.deps.Status.Push(status.Error, "Configuration Error", "Platform credentials are missing")
		_ = d.transition(Errored)
		return ErrConfiguration
	default:
		return d.fail(ctx, fmt.Errorf("loading user configuration: %w", err))
	}
	creds.Normalize()

	if err := Login(ctx, d.deps.Page, creds, d.deps.Config, d.logger); err != nil {
		return d.fail(ctx, err)
	}
	if err := d.transition(Running); err != nil {
		return err
	}

	deps := d.deps
	deps.TimePerWord = creds.TimePerWord
	dispatcher := NewDispatcher(deps)
	for {
		t, err := dispatcher.Step(ctx)
		if err != nil {
			return d.fail(ctx, err)
		}
		if t == Stop {
			break
		}
	}
	d.logger.Info("Activity loop finished.")
	return d.transition(Stopped)
}

func (d *Driver) fail(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		_ = d.transition(Stopped)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return context.Canceled
	}
	d.logger.Error("Session failed.", zap.Error(err))
	d.deps.Status.Push(status.Error, "Automation failed", err.Error())
	_ = d.transition(Errored)
	return err
}
