// Package registry tracks the one active automation session per user and the
// viewer connection currently attached to it.
package registry

import (
	"context"
	"io"
	"sync"
	"time"
)

// Sender delivers an encoded message to a connected viewer.
type Sender interface {
	Send(msg any) error
}

// Task is the running half of an entry.
type Task struct {
	ID        string
	Cancel    context.CancelFunc
	StartedAt time.Time
	// Page is set once the browser page exists. It may still be nil while the
	// job waits in the worker queue.
	Page io.Closer
	// Started is set by the worker that picked the task up. Until then the
	// task can be withdrawn without any cleanup of its own.
	Started bool
}

// Entry is the per-user record. A copy is handed out by Get; mutate through Update.
type Entry struct {
	UserID string
	Task   *Task
	Sender Sender
}

// Active reports whether a session is running or queued.
func (e Entry) Active() bool { return e.Task != nil }

// Registry is the only shared mutable state of the control plane. Each method
// is atomic; there are no multi-key transactions.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// TryInsert installs task for the user unless one is already active. An
// attached sender is preserved.
func (r *Registry) TryInsert(userID string, task *Task) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[userID]
	if !ok {
		e = &Entry{UserID: userID}
		r.entries[userID] = e
	}
	if e.Task != nil {
		return false
	}
	e.Task = task
	return true
}

// Get returns a snapshot of the user's entry.
func (r *Registry) Get(userID string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[userID]
	if !ok {
		return Entry{}, false
	}
	snapshot := *e
	if e.Task != nil {
		t := *e.Task
		snapshot.Task = &t
	}
	return snapshot, true
}

// Update applies fn to the user's entry under the lock, creating it if absent.
func (r *Registry) Update(userID string, fn func(*Entry)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[userID]
	if !ok {
		e = &Entry{UserID: userID}
		r.entries[userID] = e
	}
	fn(e)
	r.pruneLocked(userID, e)
}

// Remove clears the user's task if it is still the given one and returns
// whether it did. The sender stays attached so the viewer can see the final
// state. An empty taskID removes whatever task is present.
func (r *Registry) Remove(userID, taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[userID]
	if !ok || e.Task == nil {
		return false
	}
	if taskID != "" && e.Task.ID != taskID {
		return false
	}
	e.Task = nil
	r.pruneLocked(userID, e)
	return true
}

// Len reports how many users have an entry.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// ActiveTasks returns snapshots of all running or queued tasks.
func (r *Registry) ActiveTasks() map[string]Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Task)
	for id, e := range r.entries {
		if e.Task != nil {
			out[id] = *e.Task
		}
	}
	return out
}

// pruneLocked drops entries that hold neither a task nor a sender.
func (r *Registry) pruneLocked(userID string, e *Entry) {
	if e.Task == nil && e.Sender == nil {
		delete(r.entries, userID)
	}
}
