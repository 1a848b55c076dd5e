// Package status keeps the per-user progress log that viewers of a session see.
package status

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Type is the severity tag of an update.
type Type string

const (
	Success Type = "success"
	Pending Type = "pending"
	Error   Type = "error"
)

// Update is one entry of a user's progress log.
type Update struct {
	ID          string `json:"id"`
	Type        Type   `json:"type"`
	Message     string `json:"message"`
	Description string `json:"description,omitempty"`
	// Timestamp is in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// Sink receives every update as it is pushed or modified.
type Sink func(Update)

// ErrUnknownStatus is returned when updating an id the log has never seen.
var ErrUnknownStatus = errors.New("unknown status id")

// StoppedDescription is attached to pending entries of a session that ended.
const StoppedDescription = "Automation stopped"

// idCounter is shared by all logs so ids stay unique across users.
var idCounter atomic.Uint64

// Log is an ordered, id-addressable progress log for one user. Updates replace
// the entry with the same id, so the log never holds duplicates.
type Log struct {
	mu      sync.Mutex
	entries []Update
	pos     map[string]int
	last    int64
	sink    Sink
	now     func() time.Time
}

// Option configures a Log.
type Option func(*Log)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// NewLog returns an empty log delivering to sink, which may be nil.
func NewLog(sink Sink, opts ...Option) *Log {
	l := &Log{
		pos:  make(map[string]int),
		sink: sink,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetSink swaps the delivery target. Passing nil silences delivery.
func (l *Log) SetSink(sink Sink) {
	l.mu.Lock()
	l.sink = sink
	l.mu.Unlock()
}

// Push appends a new entry and returns its id.
func (l *Log) Push(t Type, message, description string) string {
	l.mu.Lock()
	ts := l.tick()
	u := Update{
		ID:          fmt.Sprintf("status_%d_%d", idCounter.Add(1), ts),
		Type:        t,
		Message:     message,
		Description: description,
		Timestamp:   ts,
	}
	l.pos[u.ID] = len(l.entries)
	l.entries = append(l.entries, u)
	l.deliverLocked(u)
	l.mu.Unlock()
	return u.ID
}

// Update replaces the entry with the given id. An empty description keeps the
// previous one.
func (l *Log) Update(id string, t Type, message, description string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.pos[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStatus, id)
	}
	u := l.entries[i]
	u.Type = t
	u.Message = message
	if description != "" {
		u.Description = description
	}
	u.Timestamp = l.tick()
	l.entries[i] = u
	l.deliverLocked(u)
	return nil
}

// Clear drops every entry.
func (l *Log) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.pos = make(map[string]int)
	l.mu.Unlock()
}

// FailPending turns every pending entry into an error with the given
// description and returns the changed entries.
func (l *Log) FailPending(description string) []Update {
	l.mu.Lock()
	defer l.mu.Unlock()

	var failed []Update
	for i, u := range l.entries {
		if u.Type != Pending {
			continue
		}
		u.Type = Error
		u.Description = description
		u.Timestamp = l.tick()
		l.entries[i] = u
		failed = append(failed, u)
		l.deliverLocked(u)
	}
	return failed
}

// List returns a copy of the entries ordered by timestamp.
func (l *Log) List() []Update {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listLocked()
}

// Attach calls fn with the current entries while holding the log. No update
// is delivered between the snapshot and fn returning, so a subscriber
// registered inside fn sees exactly the updates that follow the snapshot.
// fn must not call back into the log.
func (l *Log) Attach(fn func(snapshot []Update)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.listLocked())
}

func (l *Log) listLocked() []Update {
	out := make([]Update, len(l.entries))
	copy(out, l.entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// tick returns a timestamp strictly greater than the previous one, so the
// order of emission is also the order of timestamps.
func (l *Log) tick() int64 {
	ts := l.now().UnixMilli()
	if ts <= l.last {
		ts = l.last + 1
	}
	l.last = ts
	return ts
}

// deliverLocked runs with l.mu held, which keeps deliveries in emission order.
func (l *Log) deliverLocked(u Update) {
	if l.sink != nil {
		l.sink(u)
	}
}
