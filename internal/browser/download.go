// internal/browser/download.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

// MaxDownloadSize caps a single downloaded body.
const MaxDownloadSize int64 = 64 << 20

const downloadTimeout = 2 * time.Minute

// ErrDownloadTooLarge is returned when a body exceeds MaxDownloadSize.
var ErrDownloadTooLarge = errors.New("browser: download exceeds size limit")

// CookieSource supplies the cookies a browser would send to a URL.
type CookieSource interface {
	Cookies(ctx context.Context, url string) ([]*http.Cookie, error)
}

// Downloader fetches resources outside the browser while presenting the
// browser's cookies and user agent.
type Downloader struct {
	cookies   CookieSource
	userAgent string
	transport http.RoundTripper
	maxBytes  int64
	logger    *zap.Logger
}

// NewDownloader builds a Downloader over src.
func NewDownloader(src CookieSource, userAgent string, logger *zap.Logger) *Downloader {
	return &Downloader{
		cookies:   src,
		userAgent: userAgent,
		transport: newDecodingTransport(http.DefaultTransport),
		maxBytes:  MaxDownloadSize,
		logger:    logger.Named("downloader"),
	}
}

// Download returns the decoded body of rawURL. Non-2xx responses are errors.
func (d *Downloader) Download(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing download url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported download scheme %q", u.Scheme)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	if d.cookies != nil {
		cookies, err := d.cookies.Cookies(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		jar.SetCookies(u, cookies)
	}

	client := &http.Client{
		Transport: d.transport,
		Jar:       jar,
		Timeout:   downloadTimeout,
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("downloading %s: unexpected status %s", rawURL, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rawURL, err)
	}
	if int64(len(body)) > d.maxBytes {
		return nil, ErrDownloadTooLarge
	}
	d.logger.Debug("Download complete",
		zap.String("url", rawURL),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)))
	return body, nil
}
