package engine

import "time"

// BackoffSchedule is the fixed wait sequence applied before retrying a
// failed action, indexed by its retry count. Indexing past the end
// clamps to the last entry.
type BackoffSchedule []time.Duration

// DefaultBackoffSchedule returns the stock 1s/5s/15s schedule.
func DefaultBackoffSchedule() BackoffSchedule {
	return BackoffSchedule{time.Second, 5 * time.Second, 15 * time.Second}
}

// Delay returns the wait before executing an action. First attempts
// (retryCount 0) never wait.
func (s BackoffSchedule) Delay(retryCount int) time.Duration {
	if retryCount <= 0 || len(s) == 0 {
		return 0
	}
	idx := retryCount - 1
	if idx >= len(s) {
		idx = len(s) - 1
	}
	return s[idx]
}
