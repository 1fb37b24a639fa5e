package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisBus publishes through Redis pub/sub so several API instances share
// delivery. Subscriptions stay local: a forwarder replays every Redis message
// into the embedded Hub.
type RedisBus struct {
	rdb    *redis.Client
	prefix string
	local  *Hub
	log    *logrus.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	wg     sync.WaitGroup
}

func NewRedisBus(rdb *redis.Client, prefix string, local *Hub, log *logrus.Logger) (*RedisBus, error) {
	if rdb == nil {
		return nil, errors.New("redis client required")
	}
	if local == nil {
		return nil, errors.New("local hub required")
	}
	return &RedisBus{
		rdb:    rdb,
		prefix: prefix,
		local:  local,
		log:    log,
	}, nil
}

func (b *RedisBus) Publish(ctx context.Context, topic string, evt Event) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if evt.Topic == "" {
		evt.Topic = topic
	}
	raw, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return b.rdb.Publish(ctx, b.prefix+topic, raw).Err()
}

func (b *RedisBus) Subscribe(topic string) (*Subscription, error) {
	return b.local.Subscribe(topic)
}

// StartForwarder pattern-subscribes to every topic and returns once the
// subscription is confirmed. Forwarding stops when ctx is cancelled or Close is called.
func (b *RedisBus) StartForwarder(ctx context.Context) error {
	ps := b.rdb.PSubscribe(ctx, b.prefix+"*")
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("redis psubscribe: %w", err)
	}

	b.mu.Lock()
	b.pubsub = ps
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = ps.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				b.forward(ctx, m)
			}
		}
	}()

	return nil
}

func (b *RedisBus) forward(ctx context.Context, m *redis.Message) {
	var evt Event
	if err := json.Unmarshal([]byte(m.Payload), &evt); err != nil {
		b.log.Warnf("Bad event payload on %s: %+v", m.Channel, err)
		return
	}
	topic := strings.TrimPrefix(m.Channel, b.prefix)
	if err := b.local.Publish(ctx, topic, evt); err != nil && !errors.Is(err, ErrBusClosed) {
		b.log.Warnf("Failed to forward event on %s: %+v", topic, err)
	}
}

// Close stops the forwarder and ends local subscriptions. The Redis client is owned by the caller.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	ps := b.pubsub
	b.pubsub = nil
	b.mu.Unlock()

	if ps != nil {
		// already closed when the forwarder context ended first
		_ = ps.Close()
	}
	b.wg.Wait()

	return b.local.Close()
}
