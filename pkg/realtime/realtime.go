package realtime

// Package realtime provides a lightweight in-process publish/subscribe hub
// used to fan out newly recorded study events to multiple listeners (the
// admin live-tail WebSocket sessions).
//
// Design goals:
//   - Zero external dependencies beyond the standard library.
//   - Best-effort fan-out: slow listeners drop events (never backpressure
//     request handling).
//   - No persistence or replay semantics; the CSV log is the durable record
//     and listeners backfill from the admin pages on (re)connect.

import (
	"sync"
	"time"
)

// LogEvent mirrors one event-log row as delivered to live listeners.
type LogEvent struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Participant string    `json:"participant"`
	Kind        string    `json:"kind"`
	Query       string    `json:"query,omitempty"`
	Target      string    `json:"target,omitempty"`
	Sources     string    `json:"sources,omitempty"`
	Overview    string    `json:"overview,omitempty"`
	Group       int       `json:"group"`
}

// Envelope is the hub's internal wrapper allowing future introduction of
// additional event kinds (heartbeat, info) without changing channel element
// types. For now only Type == "event" is produced.
type Envelope struct {
	Type  string   `json:"type"`
	Event LogEvent `json:"event"`
}

// Hub is an in-memory fan-out dispatcher. Each registered listener receives
// events via its own buffered channel. If a listener's buffer is full when an
// event arrives, that event is dropped for that listener only.
//
// The hub is concurrency-safe.
type Hub struct {
	mu        sync.RWMutex
	listeners map[uint64]chan Envelope
	nextID    uint64
	bufSize   int
}

// NewHub constructs a new hub with per-listener buffer size. If bufSize <= 0,
// a default of 32 is used.
func NewHub(bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = 32
	}
	return &Hub{
		listeners: make(map[uint64]chan Envelope),
		bufSize:   bufSize,
	}
}

// Register adds a new listener and returns (listenerID, receiveOnlyChannel).
// Callers must later Unregister(id) to release resources.
func (h *Hub) Register() (uint64, <-chan Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan Envelope, h.bufSize)
	h.listeners[id] = ch
	return id, ch
}

// Unregister removes the listener with the given id and closes its channel.
// It is safe to call multiple times; unknown ids are ignored.
func (h *Hub) Unregister(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.listeners[id]; ok {
		delete(h.listeners, id)
		close(ch)
	}
}

// Broadcast delivers an event to all registered listeners (best effort).
func (h *Hub) Broadcast(ev LogEvent) {
	envelope := Envelope{Type: "event", Event: ev}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- envelope:
		default:
			// Drop for slow listener.
		}
	}
}

// Size returns the current number of active listeners (approximate).
func (h *Hub) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}
