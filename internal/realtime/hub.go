// Package realtime provides the in-process pub/sub hub carrying negotiation
// lifecycle events to connected clients. Delivery is at-least-once from the
// subscriber's point of view and intentionally fire-and-forget from the
// publisher's: losing an event degrades UX only, clients also poll pending
// requests on load.
package realtime

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/housetab/housetab/pkg/metrics"
)

// Event names published on negotiation channels.
const (
	EventRequest     = "request"
	EventApproved    = "approved"
	EventDeclined    = "declined"
	EventCancelled   = "cancelled"
	EventFetchUpdate = "fetchUpdate"
)

// UserChannel is the private channel for one user and one negotiation kind,
// e.g. "user:settlement:42".
func UserChannel(kind string, userID int64) string {
	return fmt.Sprintf("user:%s:%d", kind, userID)
}

// HouseChannel is the shared channel all house members listen on for refetch
// hints.
func HouseChannel(houseCode string) string {
	return fmt.Sprintf("house:%s", houseCode)
}

// Event is one published message.
type Event struct {
	Channel string      `json:"channel"`
	Name    string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// Publisher is the side the negotiation engine depends on.
type Publisher interface {
	Publish(channel, event string, payload interface{})
}

// subscriberBuffer bounds how far a slow consumer may lag before events are
// dropped for it.
const subscriberBuffer = 16

// Subscription is one client's feed across a set of channels.
type Subscription struct {
	C        chan Event
	channels []string
	closed   bool
}

// Hub fans events out to subscribers by channel name.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers a new subscription for the given channels. The caller
// must Unsubscribe when done.
func (h *Hub) Subscribe(channels ...string) *Subscription {
	sub := &Subscription{
		C:        make(chan Event, subscriberBuffer),
		channels: channels,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range channels {
		if h.subs[ch] == nil {
			h.subs[ch] = make(map[*Subscription]struct{})
		}
		h.subs[ch][sub] = struct{}{}
	}
	return sub
}

// Unsubscribe removes the subscription and closes its feed.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub.closed {
		return
	}
	sub.closed = true
	for _, ch := range sub.channels {
		if set := h.subs[ch]; set != nil {
			delete(set, sub)
			if len(set) == 0 {
				delete(h.subs, ch)
			}
		}
	}
	close(sub.C)
}

// Publish delivers the event to every subscriber of the channel without
// blocking. Events for subscribers with a full buffer are dropped and
// counted; publish failures never propagate to the caller.
func (h *Hub) Publish(channel, event string, payload interface{}) {
	e := Event{Channel: channel, Name: event, Payload: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[channel] {
		select {
		case sub.C <- e:
		default:
			metrics.RealtimeEventsDropped.Inc()
			slog.Warn("dropping realtime event for slow subscriber",
				"channel", channel, "event", event)
		}
	}
}
