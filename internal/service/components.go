// internal/service/components.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/autopilot/internal/llmclient"
	"github.com/xkilldash9x/autopilot/internal/store"
)

// Engine is the lifecycle surface of the worker pool.
type Engine interface {
	Submitter
	Start(ctx context.Context)
	Stop()
}

// BrowserManager is the lifecycle surface of the browser.
type BrowserManager interface {
	Shutdown(ctx context.Context) error
}

// Components holds every long-lived dependency of the control plane and
// releases them in order.
type Components struct {
	Store      store.Repository
	Browser    BrowserManager
	LLM        llmclient.Client
	Engine     Engine
	Controller *Controller

	logger *zap.Logger
}

const browserShutdownTimeout = 30 * time.Second

// Shutdown stops running sessions, then the pool that runs them, then the
// browser, the model client and the store.
func (c *Components) Shutdown() {
	logger := c.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("Beginning components shutdown sequence.")

	if c.Controller != nil {
		c.Controller.StopAll()
	}
	if c.Engine != nil {
		c.Engine.Stop()
		logger.Debug("Task engine stopped.")
	}

	if c.Browser != nil {
		// The caller's context may already be cancelled; shutdown gets its own.
		ctx, cancel := context.WithTimeout(context.Background(), browserShutdownTimeout)
		defer cancel()
		if err := c.Browser.Shutdown(ctx); err != nil {
			logger.Warn("Error during browser manager shutdown.", zap.Error(err))
		} else {
			logger.Debug("Browser manager shut down.")
		}
	}

	if c.LLM != nil {
		if err := c.LLM.Close(); err != nil {
			logger.Warn("Error closing LLM client.", zap.Error(err))
		}
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			logger.Warn("Error closing store.", zap.Error(err))
		}
	}
	logger.Info("All components shut down.")
}
