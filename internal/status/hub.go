package status

import "sync"

// Hub owns one Log per user.
type Hub struct {
	mu      sync.Mutex
	logs    map[string]*Log
	newSink func(userID string) Sink
}

// NewHub creates a hub. newSink, when non-nil, builds the sink of each new log.
func NewHub(newSink func(userID string) Sink) *Hub {
	return &Hub{
		logs:    make(map[string]*Log),
		newSink: newSink,
	}
}

// For returns the user's log, creating it on first use.
func (h *Hub) For(userID string) *Log {
	h.mu.Lock()
	defer h.mu.Unlock()

	if l, ok := h.logs[userID]; ok {
		return l
	}
	var sink Sink
	if h.newSink != nil {
		sink = h.newSink(userID)
	}
	l := NewLog(sink)
	h.logs[userID] = l
	return l
}

// Remove forgets the user's log.
func (h *Hub) Remove(userID string) {
	h.mu.Lock()
	delete(h.logs, userID)
	h.mu.Unlock()
}
