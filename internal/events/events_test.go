package events

import (
	"testing"

	"syncq/internal/models"
)

func TestNotifierPublish(t *testing.T) {
	n := NewNotifier()

	var received models.SyncResult
	var calls int
	n.Subscribe(func(r models.SyncResult) {
		received = r
		calls++
	})

	n.Publish(models.SyncResult{Processed: 3, Failed: 1})
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	if received.Processed != 3 || received.Failed != 1 {
		t.Fatalf("unexpected result: %+v", received)
	}
}

func TestNotifierUnsubscribe(t *testing.T) {
	n := NewNotifier()

	var calls int
	unsubscribe := n.Subscribe(func(models.SyncResult) { calls++ })
	n.Subscribe(func(models.SyncResult) {})

	n.Publish(models.SyncResult{})
	unsubscribe()
	unsubscribe() // second call is a no-op
	n.Publish(models.SyncResult{})

	if calls != 1 {
		t.Fatalf("expected 1 call after unsubscribe, got %d", calls)
	}
	if n.Len() != 1 {
		t.Fatalf("expected 1 remaining subscriber, got %d", n.Len())
	}
}

func TestNotifierNoSubscribers(t *testing.T) {
	n := NewNotifier()
	// Must not panic.
	n.Publish(models.SyncResult{Processed: 1})
}
