package autopilot

import (
	"context"
	"fmt"
	"time"
)

// requireElement waits for selector and fails with a RequiredElementError if
// it never appears.
func requireElement(ctx context.Context, q Querier, selector string, opts WaitOptions) (Element, error) {
	el, err := q.WaitFor(ctx, selector, opts)
	if err != nil {
		return nil, &RequiredElementError{Selector: selector, Err: err}
	}
	return el, nil
}

// probeElement waits for an element that may legitimately be absent. Absence
// yields (nil, nil); only cancellation of ctx itself is reported.
func probeElement(ctx context.Context, q Querier, selector string, opts WaitOptions) (Element, error) {
	el, err := q.WaitFor(ctx, selector, opts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, nil
	}
	return el, nil
}

// clickNow clicks the first current match without waiting.
func clickNow(ctx context.Context, q Querier, selector string) error {
	el, err := q.Query(ctx, selector)
	if err != nil {
		return fmt.Errorf("querying %q: %w", selector, err)
	}
	if el == nil {
		return &RequiredElementError{Selector: selector, Err: errNoMatch}
	}
	if err := el.Click(ctx); err != nil {
		return fmt.Errorf("clicking %q: %w", selector, err)
	}
	return nil
}

func waitAndClick(ctx context.Context, q Querier, selector string, opts WaitOptions) error {
	el, err := requireElement(ctx, q, selector, opts)
	if err != nil {
		return err
	}
	if err := el.Click(ctx); err != nil {
		return fmt.Errorf("clicking %q: %w", selector, err)
	}
	return nil
}

func waitAndType(ctx context.Context, q Querier, selector, text string, opts WaitOptions) error {
	el, err := requireElement(ctx, q, selector, opts)
	if err != nil {
		return err
	}
	if err := el.Type(ctx, text); err != nil {
		return fmt.Errorf("typing into %q: %w", selector, err)
	}
	return nil
}

const pollInterval = 100 * time.Millisecond

// waitForFunction polls fn in frame until it returns true. A zero timeout
// polls until ctx is done.
func waitForFunction(ctx context.Context, f Frame, clock Clock, timeout time.Duration, fn string, args ...any) error {
	start := clock.Now()
	for {
		var ok bool
		if err := f.Evaluate(ctx, fn, &ok, args...); err == nil && ok {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if timeout > 0 && clock.Now().Sub(start) >= timeout {
			return fmt.Errorf("condition not met after %v: %w", timeout, context.DeadlineExceeded)
		}
		if err := clock.Sleep(ctx, pollInterval); err != nil {
			return err
		}
	}
}
