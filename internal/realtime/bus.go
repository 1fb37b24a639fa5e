package realtime

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
)

var (
	ErrBusClosed    = errors.New("event bus is closed")
	ErrInvalidTopic = errors.New("topic is required")
)

// Bus is a publish/subscribe channel with one topic per consultation.
// Subscribers only see events published after they subscribed.
type Bus interface {
	Publish(ctx context.Context, topic string, evt Event) error
	Subscribe(topic string) (*Subscription, error)
	Close() error
}

// Subscription is one observer of a topic. Events() is closed when the
// subscription is closed, the bus shuts down, or the observer falls too far
// behind and gets evicted.
type Subscription struct {
	ID    uuid.UUID
	Topic string

	events  chan Event
	t       *topic
	closed  bool // guarded by t.mu
	evicted atomic.Bool
	closing atomic.Bool
	unsub   func(*Subscription)
}

func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Evicted reports whether the stream was cut because the observer could not keep up
func (s *Subscription) Evicted() bool {
	return s.evicted.Load()
}

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() {
	if s.closing.CompareAndSwap(false, true) && s.unsub != nil {
		s.unsub(s)
	}
}
