package progress

import "sync"

// subscriberBuffer is how many events a slow subscriber may lag before
// updates are dropped for it. Consumers always recover current state by
// polling the check record.
const subscriberBuffer = 16

// Hub fans progress events out to per-check subscribers. Delivery is
// best-effort: a subscriber whose buffer is full misses the event rather
// than blocking the pipeline.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{} // check ID -> subscriber set
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers for one check's events. The returned cancel func
// must be called when the consumer goes away; it closes the channel.
func (h *Hub) Subscribe(checkID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	set, ok := h.subs[checkID]
	if !ok {
		set = make(map[chan Event]struct{})
		h.subs[checkID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[checkID]; ok {
			if _, present := set[ch]; present {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(h.subs, checkID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of its check. A terminal
// event closes the subscriptions afterwards.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[ev.CheckID]
	if !ok {
		return
	}
	for ch := range set {
		select {
		case ch <- ev:
		default: // Slow consumer; it will re-sync from the stored check
		}
	}
	if ev.Stage.Terminal() {
		for ch := range set {
			delete(set, ch)
			close(ch)
		}
		delete(h.subs, ev.CheckID)
	}
}
