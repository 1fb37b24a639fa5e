package realtime

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultSubscriberBuffer = 32

type topic struct {
	mu      sync.Mutex
	subs    map[*Subscription]struct{}
	removed bool
}

// Hub is the in-process Bus.
//
// Lock order: Hub.mu before topic.mu. Publishing holds only the topic lock, so
// topics never block each other while every subscriber of one topic observes
// the same publish order.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]*topic
	closed bool
	buffer int
	log    *logrus.Logger
}

func NewHub(log *logrus.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Hub{
		topics: make(map[string]*topic),
		buffer: buffer,
		log:    log,
	}
}

func (h *Hub) Subscribe(name string) (*Subscription, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidTopic
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrBusClosed
	}

	t, ok := h.topics[name]
	if !ok {
		t = &topic{subs: make(map[*Subscription]struct{})}
		h.topics[name] = t
	}

	sub := &Subscription{
		ID:     uuid.New(),
		Topic:  name,
		events: make(chan Event, h.buffer),
		t:      t,
		unsub:  h.unsubscribe,
	}

	t.mu.Lock()
	t.subs[sub] = struct{}{}
	t.mu.Unlock()

	h.log.Debugf("Subscribed %s to %s", sub.ID, name)
	return sub, nil
}

// Publish delivers evt to every current subscriber of name without blocking.
// A subscriber whose buffer is full is evicted instead of silently missing the event.
func (h *Hub) Publish(ctx context.Context, name string, evt Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if evt.Topic == "" {
		evt.Topic = name
	}

	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return ErrBusClosed
	}
	t, ok := h.topics[name]
	h.mu.RUnlock()
	if !ok {
		return nil
	}

	evictedAny := false

	t.mu.Lock()
	if t.removed {
		// Every subscriber left after the lookup; whoever subscribes next
		// gets a fresh topic and was not subscribed when this was published.
		t.mu.Unlock()
		return nil
	}
	for sub := range t.subs {
		select {
		case sub.events <- evt:
		default:
			sub.evicted.Store(true)
			sub.closed = true
			close(sub.events)
			delete(t.subs, sub)
			evictedAny = true
			h.log.Warnf("Evicted slow subscriber %s from %s", sub.ID, name)
		}
	}
	t.mu.Unlock()

	if evictedAny {
		h.prune(name, t)
	}
	return nil
}

// Close ends every subscription. Later Publish and Subscribe calls fail with ErrBusClosed.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	for name, t := range h.topics {
		t.mu.Lock()
		for sub := range t.subs {
			if !sub.closed {
				sub.closed = true
				close(sub.events)
			}
		}
		t.subs = nil
		t.removed = true
		t.mu.Unlock()
		delete(h.topics, name)
	}
	return nil
}

// SubscriberCount returns the live subscribers of a topic
func (h *Hub) SubscriberCount(name string) int {
	h.mu.RLock()
	t, ok := h.topics[name]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	t := sub.t
	t.mu.Lock()
	delete(t.subs, sub)
	if !sub.closed {
		sub.closed = true
		close(sub.events)
	}
	empty := len(t.subs) == 0
	if empty {
		t.removed = true
	}
	t.mu.Unlock()

	if empty && h.topics[sub.Topic] == t {
		delete(h.topics, sub.Topic)
	}
	h.log.Debugf("Unsubscribed %s from %s", sub.ID, sub.Topic)
}

// prune drops a topic left empty by evictions
func (h *Hub) prune(name string, t *topic) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.topics[name] != t {
		return
	}
	t.mu.Lock()
	empty := len(t.subs) == 0
	if empty {
		t.removed = true
	}
	t.mu.Unlock()
	if empty {
		delete(h.topics, name)
	}
}
