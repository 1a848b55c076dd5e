// internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/autopilot/internal/autopilot"
)

var _ autopilot.Page = (*Session)(nil)

// ErrSessionClosed is returned by operations on a closed session.
var ErrSessionClosed = errors.New("browser: session closed")

// Session is one isolated browser context with a single tab.
type Session struct {
	scope

	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	downloader *Downloader

	mouseMu sync.Mutex
	mouseX  float64
	mouseY  float64
	pressed bool

	closed    atomic.Bool
	closeOnce sync.Once
	onClose   func()
}

func newSession(id string, tabCtx context.Context, cancel context.CancelFunc, userAgent string, logger *zap.Logger) *Session {
	s := &Session{
		id:     id,
		ctx:    tabCtx,
		cancel: cancel,
		logger: logger.With(zap.String("session_id", id)),
	}
	s.scope = scope{s: s}
	s.downloader = NewDownloader(s, userAgent, s.logger)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Downloader fetches URLs with this session's cookies.
func (s *Session) Downloader() *Downloader { return s.downloader }

// run executes actions on the tab, bounded by both the tab's lifetime and ctx.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	rctx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	err := chromedp.Run(rctx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating", zap.String("url", url))
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// ExpectNavigation arms a main-frame navigation listener, runs action, and
// waits for the navigated document to finish loading. Same-document
// navigations count as well.
func (s *Session) ExpectNavigation(ctx context.Context, action func(ctx context.Context) error) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	lctx, stop := context.WithCancel(s.ctx)
	defer stop()

	done := make(chan struct{})
	var once sync.Once
	finish := func() { once.Do(func() { close(done) }) }

	var mainFrame cdp.FrameID
	if c := chromedp.FromContext(s.ctx); c != nil && c.Target != nil {
		mainFrame = cdp.FrameID(c.Target.TargetID)
	}

	var navigated atomic.Bool
	chromedp.ListenTarget(lctx, func(ev any) {
		switch e := ev.(type) {
		case *page.EventFrameNavigated:
			if e.Frame != nil && e.Frame.ParentID == "" {
				navigated.Store(true)
			}
		case *page.EventNavigatedWithinDocument:
			if mainFrame == "" || e.FrameID == mainFrame {
				finish()
			}
		case *page.EventLoadEventFired:
			if navigated.Load() {
				finish()
			}
		}
	})

	if err := action(ctx); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for navigation: %w", ctx.Err())
	case <-s.ctx.Done():
		return ErrSessionClosed
	}
}

// MouseMove moves the pointer to (x, y) in steps equal increments from its
// last position.
func (s *Session) MouseMove(ctx context.Context, x, y float64, steps int) error {
	if steps < 1 {
		steps = 1
	}
	s.mouseMu.Lock()
	defer s.mouseMu.Unlock()

	fromX, fromY := s.mouseX, s.mouseY
	for i := 1; i <= steps; i++ {
		px := fromX + (x-fromX)*float64(i)/float64(steps)
		py := fromY + (y-fromY)*float64(i)/float64(steps)
		if err := s.run(ctx, s.mouseEvent(input.MouseMoved, px, py)); err != nil {
			return fmt.Errorf("mouse move: %w", err)
		}
		s.mouseX, s.mouseY = px, py
	}
	return nil
}

func (s *Session) MouseDown(ctx context.Context) error {
	s.mouseMu.Lock()
	defer s.mouseMu.Unlock()
	s.pressed = true
	if err := s.run(ctx, s.mouseEvent(input.MousePressed, s.mouseX, s.mouseY)); err != nil {
		s.pressed = false
		return fmt.Errorf("mouse down: %w", err)
	}
	return nil
}

func (s *Session) MouseUp(ctx context.Context) error {
	s.mouseMu.Lock()
	defer s.mouseMu.Unlock()
	s.pressed = false
	if err := s.run(ctx, s.mouseEvent(input.MouseReleased, s.mouseX, s.mouseY)); err != nil {
		return fmt.Errorf("mouse up: %w", err)
	}
	return nil
}

// mouseEvent must be called with mouseMu held.
func (s *Session) mouseEvent(typ input.MouseType, x, y float64) *input.DispatchMouseEventParams {
	p := input.DispatchMouseEvent(typ, x, y)
	switch {
	case typ == input.MousePressed || typ == input.MouseReleased:
		p = p.WithButton(input.MouseButtonLeft).WithClickCount(1)
		if typ == input.MousePressed {
			p = p.WithButtons(1)
		}
	case s.pressed:
		p = p.WithButton(input.MouseButtonLeft).WithButtons(1)
	default:
		p = p.WithButton(input.MouseButtonNone)
	}
	return p
}

// Cookies returns the cookies the browser would send to url.
func (s *Session) Cookies(ctx context.Context, url string) ([]*http.Cookie, error) {
	var cookies []*network.Cookie
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().WithURLs([]string{url}).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("reading cookies: %w", err)
	}
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		})
	}
	return out, nil
}

// Close closes the tab and its browser context. It is safe to call more
// than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if cerr := chromedp.Cancel(s.ctx); cerr != nil && !errors.Is(cerr, context.Canceled) {
			err = fmt.Errorf("closing tab: %w", cerr)
		}
		s.cancel()
		if s.onClose != nil {
			s.onClose()
		}
		s.logger.Debug("Session closed")
	})
	return err
}
