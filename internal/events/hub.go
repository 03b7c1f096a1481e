package events

import (
	"context"
	"sync"
)

// Hub is an in-process publish/subscribe point keyed by browser session.
// Every open tab subscribes to its own session id; a login or logout in one
// tab reaches all of them.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[chan SessionEvent]struct{}
	buffer int
}

// NewHub returns an empty hub. buffer is the per-subscriber channel size;
// events for a subscriber whose buffer is full are dropped.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{subs: make(map[string]map[chan SessionEvent]struct{}), buffer: buffer}
}

// Subscribe registers a listener for sessionID. The returned cancel func
// unregisters it and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(sessionID string) (<-chan SessionEvent, func()) {
	ch := make(chan SessionEvent, h.buffer)
	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[chan SessionEvent]struct{})
	}
	h.subs[sessionID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[sessionID], ch)
			if len(h.subs[sessionID]) == 0 {
				delete(h.subs, sessionID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Notify delivers ev to every subscriber of ev.SessionID without blocking.
func (h *Hub) Notify(_ context.Context, ev SessionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[ev.SessionID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers returns the number of listeners for sessionID.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sessionID])
}
