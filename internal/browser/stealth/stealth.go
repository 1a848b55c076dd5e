// internal/browser/stealth/stealth.go
package stealth

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/autopilot/internal/config"
)

//go:embed evasions.js
var evasionsScript string

// Persona is the browser fingerprint a session presents.
type Persona struct {
	UserAgent string   `json:"userAgent"`
	Platform  string   `json:"platform"`
	Languages []string `json:"languages"`
	Timezone  string   `json:"timezone,omitempty"`
	Locale    string   `json:"locale,omitempty"`
}

// DefaultPersona is a current desktop Chrome on Windows.
var DefaultPersona = Persona{
	UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	Platform:  "Win32",
	Languages: []string{"en-US", "en"},
	Timezone:  "America/New_York",
	Locale:    "en-US",
}

// FromConfig overlays the configured values on DefaultPersona.
func FromConfig(c config.PersonaConfig) Persona {
	p := DefaultPersona
	p.Languages = append([]string(nil), DefaultPersona.Languages...)
	if c.UserAgent != "" {
		p.UserAgent = c.UserAgent
	}
	if c.Platform != "" {
		p.Platform = c.Platform
	}
	if len(c.Languages) > 0 {
		p.Languages = append([]string(nil), c.Languages...)
	}
	if c.Timezone != "" {
		p.Timezone = c.Timezone
	}
	if c.Locale != "" {
		p.Locale = c.Locale
	}
	return p
}

// AcceptLanguage renders Languages as an Accept-Language header value with
// descending quality factors.
func (p Persona) AcceptLanguage() string {
	if len(p.Languages) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(p.Languages[0])
	for i := 1; i < len(p.Languages); i++ {
		q := 1.0 - float64(i)*0.1
		if q < 0.7 {
			q = 0.7
		}
		fmt.Fprintf(&b, ",%s;q=%.1f", p.Languages[i], q)
	}
	return b.String()
}

// Script returns the evasion script with the persona bound to it.
func (p Persona) Script() (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("stealth: failed to marshal persona: %w", err)
	}
	return fmt.Sprintf("const AUTOPILOT_PERSONA = %s;\n%s", raw, evasionsScript), nil
}

// Apply returns the CDP actions that install the persona on a tab.
func Apply(p Persona, logger *zap.Logger) chromedp.Tasks {
	l := logger.Named("stealth")
	return chromedp.Tasks{
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if header := p.AcceptLanguage(); header != "" {
				if err := network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": header}).Do(ctx); err != nil {
					return fmt.Errorf("stealth: failed to set extra http headers: %w", err)
				}
			}
			return nil
		}),
		emulation.SetUserAgentOverride(p.UserAgent).
			WithPlatform(p.Platform).
			WithAcceptLanguage(strings.Join(p.Languages, ",")),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if p.Timezone == "" {
				return nil
			}
			if err := emulation.SetTimezoneOverride(p.Timezone).Do(ctx); err != nil {
				return fmt.Errorf("stealth: failed to set timezone: %w", err)
			}
			return nil
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			locale := p.Locale
			if locale == "" && len(p.Languages) > 0 {
				locale = p.Languages[0]
			}
			if locale == "" {
				return nil
			}
			if err := emulation.SetLocaleOverride().WithLocale(strings.ReplaceAll(locale, "_", "-")).Do(ctx); err != nil {
				return fmt.Errorf("stealth: failed to set locale: %w", err)
			}
			return nil
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			script, err := p.Script()
			if err != nil {
				return err
			}
			if _, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx); err != nil {
				return fmt.Errorf("stealth: failed to add script on new document: %w", err)
			}
			l.Debug("Stealth profile applied", zap.String("user_agent", p.UserAgent))
			return nil
		}),
	}
}
