package apicontrol

import (
	"sync"

	"github.com/nxp-wmsdk/wlcmgr/internal/wcmtypes"
)

// EventHub fans every callback event out to whatever SSE clients are
// currently connected to GET /v1/events. Each subscriber gets its own
// buffered channel; a slow or gone client drops events rather than
// blocking the publisher.
type EventHub struct {
	mu   sync.Mutex
	subs map[chan wcmtypes.CallbackEvent]struct{}
}

// NewEventHub constructs an empty hub. cmd/wlcmgrd owns one per daemon and
// publishes into it from the same callback it passes to Manager.Start.
func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[chan wcmtypes.CallbackEvent]struct{})}
}

func (h *EventHub) Register() chan wcmtypes.CallbackEvent {
	ch := make(chan wcmtypes.CallbackEvent, 32)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *EventHub) Unregister(ch chan wcmtypes.CallbackEvent) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
	close(ch)
}

// Publish fans ev out to every registered subscriber. Callback implements
// this directly, so the publishing FSM goroutine never blocks on a slow
// HTTP client.
func (h *EventHub) Publish(ev wcmtypes.CallbackEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
