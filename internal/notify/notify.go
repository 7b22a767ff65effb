// Package notify fans out push notifications to subscribers. Delivery is
// best-effort and unacknowledged: a slow subscriber drops messages rather
// than blocking the publisher.
package notify

import (
	"sync"

	"github.com/hazyhaar/homed/internal/record"
	"github.com/hazyhaar/homed/internal/service"
)

// Message types pushed to listeners.
const (
	TypeServiceUpdate = "SERVICE_UPDATE"
	TypeTabsChanged   = "TABS_CHANGED"
	TypeTabClosed     = "TAB_CLOSED"
)

// TabInfo is the closed-tab payload carried by TAB_CLOSED.
type TabInfo struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	FavIconURL string `json:"favIconUrl"`
}

// Message is one push notification.
type Message struct {
	Type     string          `json:"type"`
	Service  service.Name    `json:"service,omitempty"`
	Data     []record.Record `json:"data,omitempty"`
	WindowID int64           `json:"windowId,omitempty"`
	Tab      *TabInfo        `json:"tab,omitempty"`
}

// Hub distributes messages to all current subscribers.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Message]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Message]struct{})}
}

// Subscribe registers a listener. The returned cancel function removes it
// and closes the channel.
func (h *Hub) Subscribe() (<-chan Message, func()) {
	ch := make(chan Message, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers msg to every subscriber without blocking. A subscriber
// whose buffer is full misses the message.
func (h *Hub) Publish(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}
