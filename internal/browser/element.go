// internal/browser/element.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/autopilot/internal/autopilot"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	_ autopilot.Element = (*element)(nil)
	_ autopilot.Frame   = (*frame)(nil)
)

// scope runs selector queries beneath root, or against the top document
// when root is nil. An iframe root scopes queries to its content document.
type scope struct {
	s    *Session
	root *cdp.Node
}

func (sc scope) queryOptions(extra ...chromedp.QueryOption) []chromedp.QueryOption {
	opts := []chromedp.QueryOption{chromedp.ByQueryAll}
	if sc.root != nil {
		opts = append(opts, chromedp.FromNode(sc.root))
	}
	return append(opts, extra...)
}

func (sc scope) nodes(ctx context.Context, selector string, extra ...chromedp.QueryOption) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	if err := sc.s.run(ctx, chromedp.Nodes(selector, &nodes, sc.queryOptions(extra...)...)); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (sc scope) WaitFor(ctx context.Context, selector string, opts autopilot.WaitOptions) (autopilot.Element, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	var extra []chromedp.QueryOption
	if opts.Visible {
		extra = append(extra, chromedp.NodeVisible)
	}
	nodes, err := sc.nodes(ctx, selector, extra...)
	if err != nil {
		return nil, fmt.Errorf("waiting for %q: %w", selector, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("waiting for %q: %w", selector, context.DeadlineExceeded)
	}
	return sc.s.element(nodes[0]), nil
}

func (sc scope) Query(ctx context.Context, selector string) (autopilot.Element, error) {
	nodes, err := sc.nodes(ctx, selector, chromedp.AtLeast(0))
	if err != nil {
		return nil, fmt.Errorf("querying %q: %w", selector, err)
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return sc.s.element(nodes[0]), nil
}

func (sc scope) QueryAll(ctx context.Context, selector string) ([]autopilot.Element, error) {
	nodes, err := sc.nodes(ctx, selector, chromedp.AtLeast(0))
	if err != nil {
		return nil, fmt.Errorf("querying %q: %w", selector, err)
	}
	out := make([]autopilot.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, sc.s.element(n))
	}
	return out, nil
}

// call invokes fn with this bound to node and decodes the JSON result into
// out. Undefined results decode as null.
func (s *Session) call(ctx context.Context, node *cdp.Node, fn string, out any, args ...any) error {
	var raw []byte
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return chromedp.CallFunctionOnNode(ctx, node, fn, &raw, args...)
	}))
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if len(raw) == 0 {
		raw = []byte("null")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding script result: %w", err)
	}
	return nil
}

type element struct {
	scope
	node *cdp.Node
}

func (s *Session) element(n *cdp.Node) *element {
	return &element{scope: scope{s: s, root: n}, node: n}
}

func (e *element) Click(ctx context.Context) error {
	return e.s.run(ctx, chromedp.MouseClickNode(e.node))
}

func (e *element) Type(ctx context.Context, text string) error {
	return e.s.run(ctx,
		dom.Focus().WithNodeID(e.node.NodeID),
		chromedp.KeyEvent(text),
	)
}

const (
	jsText   = `function() { return (this.textContent || "").trim(); }`
	jsRect   = `function() { const r = this.getBoundingClientRect(); return {x: r.x, y: r.y, width: r.width, height: r.height}; }`
	jsSelect = `function(value) {
	this.value = value;
	this.dispatchEvent(new Event("input", { bubbles: true }));
	this.dispatchEvent(new Event("change", { bubbles: true }));
}`
	jsScroll = `function() { return [window.scrollX, window.scrollY]; }`
)

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.s.call(ctx, e.node, jsText, &text); err != nil {
		return "", fmt.Errorf("reading text: %w", err)
	}
	return text, nil
}

func (e *element) Rect(ctx context.Context) (autopilot.Rect, error) {
	var r autopilot.Rect
	if err := e.s.call(ctx, e.node, jsRect, &r); err != nil {
		return autopilot.Rect{}, fmt.Errorf("reading bounding rect: %w", err)
	}
	return r, nil
}

func (e *element) Call(ctx context.Context, fn string, out any, args ...any) error {
	return e.s.call(ctx, e.node, fn, out, args...)
}

func (e *element) Select(ctx context.Context, value string) error {
	return e.s.call(ctx, e.node, jsSelect, nil, value)
}

// Screenshot captures the element's border box. The box model is reported
// in top-level viewport coordinates, so elements inside iframes clip
// correctly as well.
func (e *element) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := e.s.run(ctx,
		dom.ScrollIntoViewIfNeeded().WithNodeID(e.node.NodeID),
		chromedp.ActionFunc(func(ctx context.Context) error {
			box, err := dom.GetBoxModel().WithNodeID(e.node.NodeID).Do(ctx)
			if err != nil {
				return err
			}
			clip, err := quadClip(box.Border)
			if err != nil {
				return err
			}
			var scroll []float64
			if err := chromedp.Evaluate("("+jsScroll+")()", &scroll).Do(ctx); err == nil && len(scroll) == 2 {
				clip.X += scroll[0]
				clip.Y += scroll[1]
			}
			buf, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				WithCaptureBeyondViewport(true).
				WithFromSurface(true).
				WithClip(clip).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("capturing element screenshot: %w", err)
	}
	return buf, nil
}

var errEmptyBox = errors.New("element has an empty box")

func quadClip(q dom.Quad) (*page.Viewport, error) {
	if len(q) < 8 {
		return nil, errEmptyBox
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := 0; i+1 < len(q); i += 2 {
		minX, maxX = math.Min(minX, q[i]), math.Max(maxX, q[i])
		minY, maxY = math.Min(minY, q[i+1]), math.Max(maxY, q[i+1])
	}
	if maxX-minX <= 0 || maxY-minY <= 0 {
		return nil, errEmptyBox
	}
	return &page.Viewport{
		X:      math.Round(minX),
		Y:      math.Round(minY),
		Width:  math.Round(maxX - minX),
		Height: math.Round(maxY - minY),
		Scale:  1,
	}, nil
}

// ContentFrame returns the element's nested document, or nil if the element
// is not a frame or its document is not reachable from this process.
func (e *element) ContentFrame(ctx context.Context) (autopilot.Frame, error) {
	var desc *cdp.Node
	err := e.s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		desc, err = dom.DescribeNode().WithNodeID(e.node.NodeID).WithDepth(1).WithPierce(true).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("describing frame element: %w", err)
	}
	if desc == nil || desc.ContentDocument == nil {
		return nil, nil
	}
	return &frame{scope: scope{s: e.s, root: e.node}}, nil
}

type frame struct {
	scope
}

// Evaluate runs fn against the frame's root element so that document and
// window resolve to the frame's own.
func (f *frame) Evaluate(ctx context.Context, fn string, out any, args ...any) error {
	nodes, err := f.nodes(ctx, "html", chromedp.AtLeast(0))
	if err != nil {
		return fmt.Errorf("resolving frame document: %w", err)
	}
	if len(nodes) == 0 {
		return errors.New("resolving frame document: no root element")
	}
	return f.s.call(ctx, nodes[0], fn, out, args...)
}
