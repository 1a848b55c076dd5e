// internal/browser/compression.go
package browser

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

var (
	gzipReaders = sync.Pool{
		New: func() any { return new(gzip.Reader) },
	}
	brotliReaders = sync.Pool{
		New: func() any { return brotli.NewReader(nil) },
	}
	emptyReader = strings.NewReader("")
)

func acquireGzip(r io.Reader) (*gzip.Reader, error) {
	zr := gzipReaders.Get().(*gzip.Reader)
	if err := zr.Reset(r); err != nil {
		gzipReaders.Put(zr)
		return nil, err
	}
	return zr, nil
}

func releaseGzip(zr *gzip.Reader) {
	// Reset on an empty reader returns io.EOF; the reader is still reusable.
	_ = zr.Reset(emptyReader)
	gzipReaders.Put(zr)
}

func acquireBrotli(r io.Reader) (*brotli.Reader, error) {
	br := brotliReaders.Get().(*brotli.Reader)
	if err := br.Reset(r); err != nil {
		brotliReaders.Put(br)
		return nil, err
	}
	return br, nil
}

func releaseBrotli(br *brotli.Reader) {
	_ = br.Reset(emptyReader)
	brotliReaders.Put(br)
}

// decodingTransport asks for br or gzip bodies and decodes them, so callers
// always read identity content.
type decodingTransport struct {
	next http.RoundTripper
}

func newDecodingTransport(next http.RoundTripper) *decodingTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &decodingTransport{next: next}
}

func (t *decodingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("Accept-Encoding", "br, gzip")
	}
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if err := decodeBody(resp); err != nil {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("decoding response body: %w", err)
	}
	return resp, nil
}

// pooledBody closes both the decoder and the wire body and hands the decoder
// back to its pool exactly once.
type pooledBody struct {
	io.Reader
	wire    io.ReadCloser
	release func()
}

func (b *pooledBody) Close() error {
	if b.release != nil {
		b.release()
		b.release = nil
	}
	return b.wire.Close()
}

// decodeBody unwraps Content-Encoding layers in reverse order of application.
func decodeBody(resp *http.Response) error {
	encodings := resp.Header.Values("Content-Encoding")
	if resp.Body == nil || len(encodings) == 0 {
		return nil
	}
	var layers []string
	for _, v := range encodings {
		for _, e := range strings.Split(v, ",") {
			if e = strings.ToLower(strings.TrimSpace(e)); e != "" && e != "identity" {
				layers = append(layers, e)
			}
		}
	}
	for i := len(layers) - 1; i >= 0; i-- {
		switch layers[i] {
		case "gzip", "x-gzip":
			zr, err := acquireGzip(resp.Body)
			if err != nil {
				return fmt.Errorf("gzip: %w", err)
			}
			inner := resp.Body
			resp.Body = &pooledBody{Reader: zr, wire: inner, release: func() {
				_ = zr.Close()
				releaseGzip(zr)
			}}
		case "br":
			br, err := acquireBrotli(resp.Body)
			if err != nil {
				return fmt.Errorf("brotli: %w", err)
			}
			resp.Body = &pooledBody{Reader: br, wire: resp.Body, release: func() { releaseBrotli(br) }}
		default:
			return errors.New("unsupported content encoding " + layers[i])
		}
	}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return nil
}
