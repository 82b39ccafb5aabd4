package devserver

import (
	"sync"

	"github.com/wolfeidau/bundlecfg/internal/assets"
)

// Event is one reload notification pushed to connected pages.
type Event struct {
	Script string `json:"script"`
	Style  string `json:"style,omitempty"`
}

// Hub fans reload events out to every subscribed page.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a listener. The returned func removes it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 1)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

// Broadcast delivers ev without blocking; a listener that has not consumed
// its previous event keeps that one.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Len is the number of connected listeners.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func eventFor(m *assets.Manifest) Event {
	return Event{Script: m.Script, Style: m.Style}
}
