package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestRedisBusForwardsToLocalSubscribers(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	bus, err := NewRedisBus(rdb, "test:", NewHub(testLogger(), 16), testLogger())
	if err != nil {
		t.Fatalf("NewRedisBus: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if err := bus.StartForwarder(ctx); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}

	topic := ConsultationTopic(uuid.New())
	sub, err := bus.Subscribe(topic)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := bus.Publish(ctx, topic, NewEvent(EventNewMessage, map[string]any{"seq": i})); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	for i := 0; i < 3; i++ {
		evt := recvEvent(t, sub.Events(), 2*time.Second)
		if evt.Kind != EventNewMessage {
			t.Fatalf("kind: %s", evt.Kind)
		}
		data, ok := evt.Data.(map[string]any)
		if !ok {
			t.Fatalf("data type: %T", evt.Data)
		}
		if seq := data["seq"].(float64); int(seq) != i {
			t.Fatalf("order: want %d got %v", i, seq)
		}
		if evt.Topic != topic {
			t.Fatalf("topic: %q", evt.Topic)
		}
	}

	if err := bus.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, ok := <-sub.Events(); ok {
		t.Fatalf("local subscription should end on close")
	}
}

func TestRedisBusRequiresClient(t *testing.T) {
	if _, err := NewRedisBus(nil, "x:", NewHub(testLogger(), 1), testLogger()); err == nil {
		t.Fatalf("expected error without redis client")
	}
}
