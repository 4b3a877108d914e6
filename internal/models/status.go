package models

import "time"

// StatusSnapshot is a derived, cheap-to-read summary of queue health.
// It is recomputed from the queue on every mutation and persisted
// separately so UI reads never load the full queue.
type StatusSnapshot struct {
	Total      int        `json:"total_actions"`
	Pending    int        `json:"pending_actions"`
	Failed     int        `json:"failed_actions"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	Processing bool       `json:"is_processing"`
}

// Snapshot recomputes queue-health counts from the current queue.
// Pending counts records that were never attempted; Failed counts
// records that already exhausted their retry budget.
func Snapshot(queue []Action, processing bool, lastSync *time.Time) StatusSnapshot {
	s := StatusSnapshot{
		Total:      len(queue),
		LastSyncAt: lastSync,
		Processing: processing,
	}
	for i := range queue {
		if queue[i].RetryCount == 0 {
			s.Pending++
		}
		if queue[i].RetryCount >= queue[i].MaxRetries {
			s.Failed++
		}
	}
	return s
}
