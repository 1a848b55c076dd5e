// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/autopilot/internal/browser/stealth"
	"github.com/xkilldash9x/autopilot/internal/config"
)

const browserStartTimeout = 30 * time.Second

// Manager owns the browser process. Sessions are isolated browser contexts
// inside it.
type Manager struct {
	cfg     config.BrowserConfig
	persona stealth.Persona
	logger  *zap.Logger

	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	wg sync.WaitGroup
}

// NewManager launches the browser and confirms it responds.
func NewManager(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		cfg:     cfg,
		persona: stealth.FromConfig(cfg.Persona),
		logger:  logger.Named("browser_manager"),
	}

	m.allocCtx, m.allocCancel = chromedp.NewExecAllocator(Detach(ctx), buildAllocatorOptions(cfg, m.persona)...)
	var ctxOpts []chromedp.ContextOption
	if cfg.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithDebugf(m.logger.Sugar().Debugf))
	}
	m.browserCtx, m.browserCancel = chromedp.NewContext(m.allocCtx, ctxOpts...)

	started := make(chan error, 1)
	go func() { started <- chromedp.Run(m.browserCtx) }()
	select {
	case err := <-started:
		if err != nil {
			m.stop()
			return nil, fmt.Errorf("browser failed to start: %w", err)
		}
	case <-time.After(browserStartTimeout):
		m.stop()
		return nil, fmt.Errorf("browser failed to start within %s", browserStartTimeout)
	case <-ctx.Done():
		m.stop()
		return nil, ctx.Err()
	}

	m.logger.Info("Browser launched", zap.Bool("headless", cfg.Headless))
	return m, nil
}

// launchFlag is one Chrome command-line switch. A false value removes a
// switch set earlier.
type launchFlag struct {
	name  string
	value any
}

// launchFlags lists the switches layered over the chromedp defaults: the
// automation banner removed, the persona, media autoplay, and any configured
// extras, which win over everything before them.
func launchFlags(cfg config.BrowserConfig, persona stealth.Persona, goos string) []launchFlag {
	width, height := viewportSize(cfg)
	flags := []launchFlag{
		{"enable-automation", false},
		{"headless", cfg.Headless},
		{"disable-blink-features", "AutomationControlled"},
		{"disable-infobars", true},
		{"mute-audio", true},
		{"autoplay-policy", "no-user-gesture-required"},
		{"window-position", "0,0"},
		{"window-size", fmt.Sprintf("%d,%d", width, height)},
		// Keep cross-origin activity frames in-process so they can be queried.
		{"disable-site-isolation-trials", true},
		{"disable-features", "IsolateOrigins,site-per-process"},
		{"user-agent", persona.UserAgent},
	}
	if goos == "linux" {
		flags = append(flags,
			launchFlag{"no-sandbox", true},
			launchFlag{"disable-dev-shm-usage", true},
			launchFlag{"disable-setuid-sandbox", true},
		)
	}
	for _, arg := range cfg.Args {
		name, value, hasValue := strings.Cut(arg, "=")
		name = strings.TrimLeft(name, "-")
		if name == "" {
			continue
		}
		if hasValue {
			flags = append(flags, launchFlag{name, value})
		} else {
			flags = append(flags, launchFlag{name, true})
		}
	}
	return flags
}

func buildAllocatorOptions(cfg config.BrowserConfig, persona stealth.Persona) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for _, f := range launchFlags(cfg, persona, runtime.GOOS) {
		opts = append(opts, chromedp.Flag(f.name, f.value))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

func viewportSize(cfg config.BrowserConfig) (int, int) {
	if cfg.Viewport.Width <= 0 || cfg.Viewport.Height <= 0 {
		return 1400, 800
	}
	return cfg.Viewport.Width, cfg.Viewport.Height
}

// NewSession opens an isolated browser context with the persona applied.
func (m *Manager) NewSession(ctx context.Context) (*Session, error) {
	tabCtx, cancel := chromedp.NewContext(m.browserCtx, chromedp.WithNewBrowserContext())
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("opening session tab: %w", err)
	}

	width, height := viewportSize(m.cfg)
	initCtx, stop := CombineContext(tabCtx, ctx)
	defer stop()
	err := chromedp.Run(initCtx,
		stealth.Apply(m.persona, m.logger),
		chromedp.EmulateViewport(int64(width), int64(height)),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("preparing session tab: %w", err)
	}

	s := newSession(uuid.NewString(), tabCtx, cancel, m.persona.UserAgent, m.logger)
	m.wg.Add(1)
	s.onClose = m.wg.Done
	m.logger.Info("Session opened", zap.String("session_id", s.ID()))
	return s, nil
}

// Renderer returns a PDF renderer backed by this browser.
func (m *Manager) Renderer() *Renderer {
	return &Renderer{browserCtx: m.browserCtx, logger: m.logger.Named("renderer")}
}

// Shutdown waits for open sessions to close, bounded by ctx, then
// terminates the browser.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Browser shutdown initiated, waiting for sessions")
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("All sessions closed")
	case <-ctx.Done():
		m.logger.Warn("Shutdown deadline exceeded, forcing browser termination", zap.Error(ctx.Err()))
	}
	m.stop()
	return nil
}

func (m *Manager) stop() {
	if m.browserCancel != nil {
		_ = chromedp.Cancel(m.browserCtx)
		m.browserCancel()
	}
	if m.allocCancel != nil {
		m.allocCancel()
		<-m.allocCtx.Done()
	}
}
