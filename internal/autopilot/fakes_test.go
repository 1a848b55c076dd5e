package autopilot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/autopilot/internal/llmclient"
)

// recorder keeps the ordered log of side effects a scenario produced.
type recorder struct {
	mu      sync.Mutex
	actions []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	r.actions = append(r.actions, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.actions...)
}

func (r *recorder) index(action string) int {
	for i, a := range r.list() {
		if a == action {
			return i
		}
	}
	return -1
}

func (r *recorder) lastIndex(action string) int {
	list := r.list()
	for i := len(list) - 1; i >= 0; i-- {
		if list[i] == action {
			return i
		}
	}
	return -1
}

func (r *recorder) count(action string) int {
	n := 0
	for _, a := range r.list() {
		if a == action {
			n++
		}
	}
	return n
}

type script func(args ...any) (any, error)

// fakeScope is a document or element subtree addressed by exact selector.
type fakeScope struct {
	name    string
	rec     *recorder
	elems   map[string][]*fakeElement
	scripts map[string]script
}

func newScope(rec *recorder, name string) *fakeScope {
	return &fakeScope{
		name:    name,
		rec:     rec,
		elems:   make(map[string][]*fakeElement),
		scripts: make(map[string]script),
	}
}

func (s *fakeScope) put(selector string, els ...*fakeElement) {
	s.elems[selector] = append(s.elems[selector], els...)
}

func (s *fakeScope) on(fn string, h script) { s.scripts[fn] = h }

var errUnboundedWait = errors.New("fake: unbounded wait for an absent element")

func (s *fakeScope) WaitFor(ctx context.Context, selector string, opts WaitOptions) (Element, error) {
	s.rec.add("wait %s %s", s.name, selector)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if els := s.elems[selector]; len(els) > 0 {
		return els[0], nil
	}
	if opts.Timeout == 0 {
		return nil, errUnboundedWait
	}
	return nil, fmt.Errorf("waiting for %s: %w", selector, context.DeadlineExceeded)
}

func (s *fakeScope) Query(ctx context.Context, selector string) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if els := s.elems[selector]; len(els) > 0 {
		return els[0], nil
	}
	return nil, nil
}

func (s *fakeScope) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Element, 0, len(s.elems[selector]))
	for _, el := range s.elems[selector] {
		out = append(out, el)
	}
	return out, nil
}

func (s *fakeScope) Evaluate(ctx context.Context, fn string, out any, args ...any) error {
	return s.run(ctx, fn, out, args)
}

func (s *fakeScope) run(ctx context.Context, fn string, out any, args []any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h, ok := s.scripts[fn]
	if !ok {
		return nil
	}
	v, err := h(args...)
	if err != nil {
		return err
	}
	return assign(out, v)
}

func assign(out, v any) error {
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

type fakeElement struct {
	*fakeScope
	text  string
	rect  Rect
	shot  []byte
	frame Frame
}

func newElement(rec *recorder, name string) *fakeElement {
	return &fakeElement{fakeScope: newScope(rec, name)}
}

func (e *fakeElement) Click(ctx context.Context) error {
	e.rec.add("click %s", e.name)
	return ctx.Err()
}

func (e *fakeElement) Type(ctx context.Context, text string) error {
	e.rec.add("type %s %s", e.name, text)
	return ctx.Err()
}

func (e *fakeElement) Text(ctx context.Context) (string, error) { return e.text, ctx.Err() }

func (e *fakeElement) Rect(ctx context.Context) (Rect, error) { return e.rect, ctx.Err() }

func (e *fakeElement) Screenshot(ctx context.Context) ([]byte, error) {
	e.rec.add("screenshot %s", e.name)
	return e.shot, ctx.Err()
}

func (e *fakeElement) ContentFrame(ctx context.Context) (Frame, error) { return e.frame, ctx.Err() }

func (e *fakeElement) Call(ctx context.Context, fn string, out any, args ...any) error {
	return e.run(ctx, fn, out, args)
}

func (e *fakeElement) Select(ctx context.Context, value string) error {
	e.rec.add("select %s %q", e.name, value)
	return ctx.Err()
}

type fakePage struct {
	*fakeScope
	closed int
}

func newPage(rec *recorder) *fakePage {
	return &fakePage{fakeScope: newScope(rec, "page")}
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.rec.add("navigate %s", url)
	return ctx.Err()
}

func (p *fakePage) ExpectNavigation(ctx context.Context, action func(context.Context) error) error {
	p.rec.add("expect navigation")
	return action(ctx)
}

func (p *fakePage) MouseMove(ctx context.Context, x, y float64, steps int) error {
	p.rec.add("mouse move %.0f,%.0f steps=%d", x, y, steps)
	return ctx.Err()
}

func (p *fakePage) MouseDown(ctx context.Context) error {
	p.rec.add("mouse down")
	return ctx.Err()
}

func (p *fakePage) MouseUp(ctx context.Context) error {
	p.rec.add("mouse up")
	return ctx.Err()
}

func (p *fakePage) Close() error {
	p.rec.add("close page")
	p.closed++
	return nil
}

// fakeClock advances instantly on Sleep.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	return nil
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) slept() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

type mockLLM struct {
	mock.Mock
}

func (m *mockLLM) GenerateText(ctx context.Context, req llmclient.TextRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockLLM) GenerateObject(ctx context.Context, req llmclient.ObjectRequest) (map[string]any, error) {
	args := m.Called(ctx, req)
	obj, _ := args.Get(0).(map[string]any)
	return obj, args.Error(1)
}

func (m *mockLLM) Close() error { return nil }
