package alert

import (
	"sync"
	"sync/atomic"

	"github.com/rickgao/arbwatch/internal/model"
)

// DefaultSubscriberBuffer is the channel capacity of each subscription.
const DefaultSubscriberBuffer = 100

// Hub delivers opportunities to every subscriber. Publish never blocks:
// a subscriber whose buffer is full misses the opportunity.
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan model.Opportunity]struct{}
	buffer int
	closed bool

	published atomic.Int64
	dropped   atomic.Int64
}

// NewHub creates a Hub whose subscriptions buffer up to buffer opportunities.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = DefaultSubscriberBuffer
	}
	return &Hub{
		subs:   make(map[chan model.Opportunity]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber. The channel is closed by Unsubscribe
// or Close. Subscribing to a closed hub returns a closed channel.
func (h *Hub) Subscribe() chan model.Opportunity {
	ch := make(chan model.Opportunity, h.buffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch
	}
	h.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes ch. Unknown channels are ignored.
func (h *Hub) Unsubscribe(ch chan model.Opportunity) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// Publish delivers opp to every subscriber with buffer space.
func (h *Hub) Publish(opp model.Opportunity) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}

	h.published.Add(1)
	for ch := range h.subs {
		select {
		case ch <- opp:
		default:
			h.dropped.Add(1)
		}
	}
}

// Close closes every subscription. Later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

// Subscribers returns the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// HubStats holds hub counters.
type HubStats struct {
	Published   int64 `json:"published"`
	Dropped     int64 `json:"dropped"`
	Subscribers int   `json:"subscribers"`
}

// Stats returns current counters.
func (h *Hub) Stats() HubStats {
	return HubStats{
		Published:   h.published.Load(),
		Dropped:     h.dropped.Load(),
		Subscribers: h.Subscribers(),
	}
}
