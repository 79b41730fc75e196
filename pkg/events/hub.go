package events

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	subscriberBuffer = 16
	backlogSize      = 64
)

// EventHub fans relay events out to subscribers and remembers the most
// recent ones for late subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event.
type EventHub struct {
	mu      sync.RWMutex
	subs    map[chan Event]struct{}
	backlog []Event // oldest first, at most backlogSize
	dropped int
}

func NewEventHub() *EventHub { return &EventHub{subs: make(map[chan Event]struct{})} }

// Subscribe returns a channel receiving events published from now on.
func (h *EventHub) Subscribe() chan Event {
	return h.SubscribeReplay(0)
}

// SubscribeReplay is Subscribe, with up to n of the most recent events
// queued on the channel first.
func (h *EventHub) SubscribeReplay(n int) chan Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	n = max(0, min(n, len(h.backlog)))
	// Room for the whole replay plus the usual live buffer.
	ch := make(chan Event, n+subscriberBuffer)
	for _, ev := range h.backlog[len(h.backlog)-n:] {
		ch <- ev
	}
	h.subs[ch] = struct{}{}
	return ch
}

func (h *EventHub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Subscribers returns the number of live subscriptions.
func (h *EventHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Recent returns up to n of the most recent events, oldest first.
func (h *EventHub) Recent(n int) []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n = max(0, min(n, len(h.backlog)))
	return append([]Event(nil), h.backlog[len(h.backlog)-n:]...)
}

// Dropped returns how many deliveries were skipped because a subscriber
// was not keeping up.
func (h *EventHub) Dropped() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

func (h *EventHub) Publish(name string, payload any) {
	if h == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		logrus.WithField("event", name).Warnf("failed to encode event: %v", err)
		return
	}
	msg := Event{Name: name, Data: b}

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.backlog) == backlogSize {
		copy(h.backlog, h.backlog[1:])
		h.backlog = h.backlog[:backlogSize-1]
	}
	h.backlog = append(h.backlog, msg)

	for ch := range h.subs {
		select {
		case ch <- msg:
		default:
			h.dropped++
			logrus.WithField("event", name).Debug("subscriber is slow, event dropped")
		}
	}
}
