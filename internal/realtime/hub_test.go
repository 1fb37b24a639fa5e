package realtime

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func recvEvent(t *testing.T, ch <-chan Event, timeout time.Duration) Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		if !ok {
			t.Fatalf("subscription closed while waiting for event")
		}
		return evt
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for event")
	}
	return Event{}
}

func TestHubDeliversInPublishOrderToEverySubscriber(t *testing.T) {
	hub := NewHub(testLogger(), 64)
	topic := ConsultationTopic(uuid.New())

	a, err := hub.Subscribe(topic)
	if err != nil {
		t.Fatalf("subscribe a: %v", err)
	}
	b, err := hub.Subscribe(topic)
	if err != nil {
		t.Fatalf("subscribe b: %v", err)
	}

	for i := 0; i < 20; i++ {
		if err := hub.Publish(context.Background(), topic, NewEvent(EventNewMessage, i)); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	for _, sub := range []*Subscription{a, b} {
		for i := 0; i < 20; i++ {
			evt := recvEvent(t, sub.Events(), time.Second)
			if evt.Data.(int) != i {
				t.Fatalf("subscriber %s: want seq %d got %v", sub.ID, i, evt.Data)
			}
			if evt.Topic != topic {
				t.Fatalf("topic not stamped: %q", evt.Topic)
			}
		}
	}
}

func TestHubConcurrentPublishersShareOneOrder(t *testing.T) {
	hub := NewHub(testLogger(), 512)
	topic := ConsultationTopic(uuid.New())

	a, _ := hub.Subscribe(topic)
	b, _ := hub.Subscribe(topic)

	var wg conc.WaitGroup
	for p := 0; p < 4; p++ {
		p := p
		wg.Go(func() {
			for i := 0; i < 50; i++ {
				_ = hub.Publish(context.Background(), topic, NewEvent(EventTyping, p*1000+i))
			}
		})
	}
	wg.Wait()

	for i := 0; i < 200; i++ {
		ea := recvEvent(t, a.Events(), time.Second)
		eb := recvEvent(t, b.Events(), time.Second)
		if ea.Data != eb.Data {
			t.Fatalf("position %d: subscribers disagree: %v vs %v", i, ea.Data, eb.Data)
		}
	}
}

func TestHubNoReplayForLateSubscriber(t *testing.T) {
	hub := NewHub(testLogger(), 8)
	topic := ConsultationTopic(uuid.New())

	early, _ := hub.Subscribe(topic)
	_ = hub.Publish(context.Background(), topic, NewEvent(EventConnected, "before"))

	late, _ := hub.Subscribe(topic)
	_ = hub.Publish(context.Background(), topic, NewEvent(EventNewMessage, "after"))

	if got := recvEvent(t, late.Events(), time.Second); got.Data != "after" {
		t.Fatalf("late subscriber should only see later events, got %v", got.Data)
	}
	if got := recvEvent(t, early.Events(), time.Second); got.Data != "before" {
		t.Fatalf("early subscriber first event: %v", got.Data)
	}
}

func TestHubCloseStopsDelivery(t *testing.T) {
	hub := NewHub(testLogger(), 8)
	topic := ConsultationTopic(uuid.New())

	sub, _ := hub.Subscribe(topic)
	sub.Close()
	sub.Close()

	if _, ok := <-sub.Events(); ok {
		t.Fatalf("events channel should be closed after Close")
	}
	if n := hub.SubscriberCount(topic); n != 0 {
		t.Fatalf("subscriber count after close: %d", n)
	}
	if err := hub.Publish(context.Background(), topic, NewEvent(EventTyping, nil)); err != nil {
		t.Fatalf("publish to empty topic: %v", err)
	}
}

func TestHubEvictsSlowSubscriber(t *testing.T) {
	hub := NewHub(testLogger(), 2)
	topic := ConsultationTopic(uuid.New())

	slow, _ := hub.Subscribe(topic)
	fast, _ := hub.Subscribe(topic)

	done := make(chan []int)
	go func() {
		var seen []int
		for evt := range fast.Events() {
			seen = append(seen, evt.Data.(int))
			if len(seen) == 5 {
				break
			}
		}
		done <- seen
	}()

	for i := 0; i < 5; i++ {
		_ = hub.Publish(context.Background(), topic, NewEvent(EventNewMessage, i))
		time.Sleep(10 * time.Millisecond)
	}

	seen := <-done
	for i, v := range seen {
		if v != i {
			t.Fatalf("fast subscriber saw a gap: %v", seen)
		}
	}

	received := 0
	for range slow.Events() {
		received++
	}
	if !slow.Evicted() {
		t.Fatalf("slow subscriber should be evicted")
	}
	if received != 2 {
		t.Fatalf("slow subscriber should keep its buffered prefix, got %d", received)
	}
	fast.Close()
}

func TestHubClosedRejectsSubscribeAndPublish(t *testing.T) {
	hub := NewHub(testLogger(), 4)
	topic := ConsultationTopic(uuid.New())
	sub, _ := hub.Subscribe(topic)

	if err := hub.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, ok := <-sub.Events(); ok {
		t.Fatalf("subscription should end when hub closes")
	}
	sub.Close()

	if _, err := hub.Subscribe(topic); err != ErrBusClosed {
		t.Fatalf("subscribe after close: %v", err)
	}
	if err := hub.Publish(context.Background(), topic, NewEvent(EventTyping, nil)); err != ErrBusClosed {
		t.Fatalf("publish after close: %v", err)
	}
}

func TestHubRejectsEmptyTopic(t *testing.T) {
	hub := NewHub(testLogger(), 4)
	if _, err := hub.Subscribe("  "); err != ErrInvalidTopic {
		t.Fatalf("want ErrInvalidTopic, got %v", err)
	}
}
