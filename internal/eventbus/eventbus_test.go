package eventbus

import (
	"testing"
	"time"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := New()
	ch := b.Subscribe()
	b.Publish(Event{Kind: KindIterationStart, Iteration: 1})

	select {
	case e := <-ch:
		if e.Kind != KindIterationStart || e.Iteration != 1 {
			t.Errorf("got %+v", e)
		}
		if e.RunID == "" {
			t.Error("expected Publish to stamp a RunID")
		}
		if e.At.IsZero() {
			t.Error("expected Publish to stamp a timestamp")
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestPublishFansOutToMultipleSubscribers(t *testing.T) {
	b := New()
	a := b.Subscribe()
	c := b.Subscribe()
	b.Publish(Event{Kind: KindTaskDone, TaskID: 5})

	for _, ch := range []<-chan Event{a, c} {
		select {
		case e := <-ch:
			if e.TaskID != 5 {
				t.Errorf("got task id %d, want 5", e.TaskID)
			}
		case <-time.After(time.Second):
			t.Fatal("event not delivered to all subscribers")
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	ch := b.Subscribe()
	b.Unsubscribe(ch)
	b.Publish(Event{Kind: KindAgentDied})

	if _, ok := <-ch; ok {
		t.Error("expected channel closed after Unsubscribe")
	}
}

func TestBackpressureDropsAfterChannelFull(t *testing.T) {
	b := New()
	ch := b.Subscribe()
	// Fill the subscriber's buffer without draining it.
	for i := 0; i < subscriberBuffer+maxBackpressureRetries+1; i++ {
		b.Publish(Event{Kind: KindTaskDone, TaskID: i})
	}
	if b.DroppedCount() == 0 {
		t.Error("expected at least one dropped event once buffer overflowed")
	}
	_ = ch
}
