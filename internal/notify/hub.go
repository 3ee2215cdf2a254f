package notify

import (
	"sync"

	"mediaflow/internal/domain/entity"
)

const subscriberBuffer = 16

// Hub delivers job events to live in-process subscribers. Delivery is
// best-effort: a subscriber whose buffer is full misses the event, and
// there is no replay for late subscribers (they must poll job state).
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan entity.JobEvent]struct{}
}

// NewHub creates an empty subscriber hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan entity.JobEvent]struct{})}
}

// Subscribe registers a listener for one job's events. The returned
// cancel func must be called to release the channel.
func (h *Hub) Subscribe(jobID string) (<-chan entity.JobEvent, func()) {
	ch := make(chan entity.JobEvent, subscriberBuffer)

	h.mu.Lock()
	if h.subs[jobID] == nil {
		h.subs[jobID] = make(map[chan entity.JobEvent]struct{})
	}
	h.subs[jobID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[jobID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(h.subs, jobID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish sends one event to every current subscriber of the job.
// Never blocks the caller.
func (h *Hub) Publish(jobID string, event entity.JobEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[jobID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// SubscriberCount reports how many listeners a job currently has.
func (h *Hub) SubscriberCount(jobID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[jobID])
}
