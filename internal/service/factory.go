// internal/service/factory.go
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/autopilot/internal/autopilot"
	"github.com/xkilldash9x/autopilot/internal/browser"
	"github.com/xkilldash9x/autopilot/internal/config"
	"github.com/xkilldash9x/autopilot/internal/engine"
	"github.com/xkilldash9x/autopilot/internal/llmclient"
	"github.com/xkilldash9x/autopilot/internal/registry"
	"github.com/xkilldash9x/autopilot/internal/store"
)

// NewComponents opens the store, launches the browser, builds the model
// client and starts the worker pool. On failure everything created so far
// is released.
func NewComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *Components, err error) {
	c := &Components{logger: logger}
	defer func() {
		if err != nil {
			logger.Warn("Initialization failed, shutting down partially created components.", zap.Error(err))
			c.Shutdown()
		}
	}()

	repo, err := store.New(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	c.Store = repo
	logger.Debug("Store initialized.", zap.String("driver", cfg.Database.Driver))

	llm, err := llmclient.NewClient(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	c.LLM = llm

	manager, err := browser.NewManager(ctx, cfg.Browser, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize browser manager: %w", err)
	}
	c.Browser = manager

	pool, err := engine.New(cfg.Engine, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize task engine: %w", err)
	}
	pool.Start(ctx)
	c.Engine = pool

	var renderer autopilot.Renderer
	if cfg.Autopilot.RenderPDF {
		renderer = manager.Renderer()
	}
	c.Controller = NewController(ControllerDeps{
		Registry: registry.New(),
		Engine:   pool,
		Pages:    BrowserPages{Manager: manager},
		Configs:  repo,
		LLM:      llm,
		Renderer: renderer,
		Config:   cfg.Autopilot,
		Logger:   logger,
	})
	logger.Info("Components initialized.")
	return c, nil
}
