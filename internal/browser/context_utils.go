// internal/browser/context_utils.go
package browser

import (
	"context"
	"time"
)

// CombineContext derives a context from sessionCtx, which carries the CDP
// target, that is also cancelled when opCtx is done. Deadlines of opCtx bound
// the combined context as well.
func CombineContext(sessionCtx, opCtx context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(sessionCtx)
	if deadline, ok := opCtx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		combined, cancelDeadline = context.WithDeadline(combined, deadline)
		prev := cancel
		cancel = func() { cancelDeadline(); prev() }
	}

	stop := context.AfterFunc(opCtx, cancel)
	return combined, func() {
		stop()
		cancel()
	}
}

// valueOnlyContext keeps the values of its parent but none of its
// cancellation.
type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }
func (valueOnlyContext) Done() <-chan struct{}                   { return nil }
func (valueOnlyContext) Err() error                              { return nil }

// Detach returns a context with the values of ctx that is never cancelled.
// Cleanup that has to reach the browser after the session context ended
// runs on it.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
