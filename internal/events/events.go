// Package events fans flush summaries out to in-process subscribers.
package events

import (
	"sync"

	"syncq/internal/models"
)

// Callback receives the summary of one completed flush run.
type Callback func(models.SyncResult)

// Notifier provides in-process pub/sub for sync completion. Handlers
// run synchronously; the caller decides the concurrency model.
type Notifier struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]Callback
}

// NewNotifier constructs an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]Callback)}
}

// Subscribe registers a callback and returns a function that removes
// it. Unsubscribing twice is harmless.
func (n *Notifier) Subscribe(cb Callback) func() {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = cb
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

// Publish delivers the result to every current subscriber.
func (n *Notifier) Publish(result models.SyncResult) {
	n.mu.RLock()
	callbacks := make([]Callback, 0, len(n.subs))
	for _, cb := range n.subs {
		callbacks = append(callbacks, cb)
	}
	n.mu.RUnlock()

	for _, cb := range callbacks {
		cb(result)
	}
}

// Len returns the current subscriber count.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}
