// Package scheduler maintains the queue ordering invariant: priority
// descending, then creation time ascending. All functions operate on
// plain slices owned by the caller; nothing here touches storage.
package scheduler

import (
	"sort"

	"syncq/internal/models"
)

// Less reports whether a drains before b: higher priority first, then
// older first. No other field participates in ordering.
func Less(a, b models.Action) bool {
	if a.Priority.Rank() != b.Priority.Rank() {
		return a.Priority.Rank() > b.Priority.Rank()
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// Insert places a into queue keeping the sort invariant. When the
// result exceeds capacity, the oldest record of the lowest priority
// present is evicted until the queue fits; evicted records are
// returned so the caller can log and count them, but they are never
// retried or reported to the enqueuer.
func Insert(queue []models.Action, a models.Action, capacity int) ([]models.Action, []models.Action) {
	idx := sort.Search(len(queue), func(i int) bool {
		return Less(a, queue[i])
	})

	queue = append(queue, models.Action{})
	copy(queue[idx+1:], queue[idx:])
	queue[idx] = a

	var dropped []models.Action
	for capacity > 0 && len(queue) > capacity {
		di := evictIndex(queue)
		dropped = append(dropped, queue[di])
		queue = append(queue[:di], queue[di+1:]...)
	}
	return queue, dropped
}

// evictIndex picks the victim slot: the first (oldest, since equal
// priorities sort age-ascending) record of the lowest priority class.
func evictIndex(queue []models.Action) int {
	lowest := queue[len(queue)-1].Priority.Rank()
	for i := range queue {
		if queue[i].Priority.Rank() == lowest {
			return i
		}
	}
	return len(queue) - 1
}

// Remove deletes exactly one record by id. Removing an absent id is a
// no-op, so callers may remove the same id twice safely.
func Remove(queue []models.Action, id string) []models.Action {
	for i := range queue {
		if queue[i].ID == id {
			return append(queue[:i], queue[i+1:]...)
		}
	}
	return queue
}

// Index returns the position of id in queue, or -1.
func Index(queue []models.Action, id string) int {
	for i := range queue {
		if queue[i].ID == id {
			return i
		}
	}
	return -1
}

// Sort restores the ordering invariant in place. Used after loading a
// persisted queue whose blob may predate the current tie-break rule.
func Sort(queue []models.Action) {
	sort.SliceStable(queue, func(i, j int) bool {
		return Less(queue[i], queue[j])
	})
}

// Split cuts the queue into fixed-size batches preserving order.
func Split(queue []models.Action, batchSize int) [][]models.Action {
	if batchSize <= 0 {
		batchSize = models.DefaultBatchSize
	}
	var batches [][]models.Action
	for start := 0; start < len(queue); start += batchSize {
		end := start + batchSize
		if end > len(queue) {
			end = len(queue)
		}
		batches = append(batches, queue[start:end])
	}
	return batches
}
