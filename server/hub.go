package server

import "sync"

// HubClient receives the live request-log feed. Send is closed by
// Unsubscribe.
type HubClient struct {
	Send chan RequestLog
}

// Hub fans each handled request's log entry out to admin subscribers.
// Delivery is best-effort: a subscriber that stops draining loses
// entries rather than stalling the data path.
type Hub struct {
	mu      sync.RWMutex
	clients map[*HubClient]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*HubClient]struct{}),
	}
}

// Subscribe registers a new request-log subscriber.
func (h *Hub) Subscribe() *HubClient {
	c := &HubClient{
		Send: make(chan RequestLog, 16),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

// Unsubscribe removes a subscriber and closes its send channel.
// Unsubscribing twice is a no-op.
func (h *Hub) Unsubscribe(c *HubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.Send)
}

// Broadcast delivers entry to every subscriber without blocking.
func (h *Hub) Broadcast(entry RequestLog) {
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.Send <- entry:

		default:
			// subscriber is slow / buffer full, drop the entry

		}
	}
	h.mu.RUnlock()
}
