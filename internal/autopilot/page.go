// Package autopilot walks a logged-in platform session through its
// activities: it classifies each one, completes it with the matching
// strategy, and reports progress as status updates.
package autopilot

import (
	"context"
	"time"
)

// WaitOptions bounds a selector wait. A zero Timeout waits until the context
// is done.
type WaitOptions struct {
	Timeout time.Duration
	Visible bool
}

// Rect is a bounding client rectangle in the coordinate space of the frame
// that owns the element.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is a position in top-level page coordinates.
type Point struct {
	X float64
	Y float64
}

// Querier finds elements in a document or beneath an element.
type Querier interface {
	// WaitFor blocks until selector matches or the wait is exhausted.
	WaitFor(ctx context.Context, selector string, opts WaitOptions) (Element, error)
	// Query returns the first match, or nil if there is none. It never waits.
	Query(ctx context.Context, selector string) (Element, error)
	// QueryAll returns every match in document order. It never waits.
	QueryAll(ctx context.Context, selector string) ([]Element, error)
}

// Element is a handle to a live DOM node.
type Element interface {
	Querier
	Click(ctx context.Context) error
	Type(ctx context.Context, text string) error
	// Text returns the trimmed textContent.
	Text(ctx context.Context) (string, error)
	Rect(ctx context.Context) (Rect, error)
	Screenshot(ctx context.Context) ([]byte, error)
	// ContentFrame returns the nested document of an iframe element, or nil
	// when the element has none.
	ContentFrame(ctx context.Context) (Frame, error)
	// Call invokes a JavaScript function declaration with this bound to the
	// element and decodes its JSON result into out (which may be nil).
	Call(ctx context.Context, fn string, out any, args ...any) error
	// Select sets a <select> element's value and fires input and change events.
	Select(ctx context.Context, value string) error
}

// Frame is a nested browsing context.
type Frame interface {
	Querier
	// Evaluate invokes a JavaScript function declaration inside the frame,
	// where document refers to the frame's own document.
	Evaluate(ctx context.Context, fn string, out any, args ...any) error
}

// Page is the top-level tab of a session.
type Page interface {
	Querier
	Navigate(ctx context.Context, url string) error
	// ExpectNavigation runs action and returns once the main frame has
	// navigated. The listener is armed before action runs.
	ExpectNavigation(ctx context.Context, action func(ctx context.Context) error) error
	MouseMove(ctx context.Context, x, y float64, steps int) error
	MouseDown(ctx context.Context) error
	MouseUp(ctx context.Context) error
	Close() error
}
