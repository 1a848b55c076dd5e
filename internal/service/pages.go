package service

import (
	"context"

	"github.com/xkilldash9x/autopilot/internal/autopilot"
	"github.com/xkilldash9x/autopilot/internal/browser"
)

// Pages opens a fresh browser page for a session, together with a
// downloader that shares the page's cookies.
type Pages interface {
	Open(ctx context.Context) (autopilot.Page, autopilot.Downloader, error)
}

// BrowserPages opens pages as isolated sessions of a browser manager.
type BrowserPages struct {
	Manager *browser.Manager
}

func (b BrowserPages) Open(ctx context.Context) (autopilot.Page, autopilot.Downloader, error) {
	s, err := b.Manager.NewSession(ctx)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Downloader(), nil
}
