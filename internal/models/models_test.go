package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPriorityRank(t *testing.T) {
	assert.Equal(t, 3, PriorityHigh.Rank())
	assert.Equal(t, 2, PriorityMedium.Rank())
	assert.Equal(t, 1, PriorityLow.Rank())
	assert.Equal(t, 0, Priority("urgent").Rank())

	assert.True(t, PriorityHigh.Valid())
	assert.False(t, Priority("").Valid())
}

func TestSnapshotCounts(t *testing.T) {
	queue := []Action{
		{ID: "a", RetryCount: 0, MaxRetries: 3},
		{ID: "b", RetryCount: 1, MaxRetries: 3},
		{ID: "c", RetryCount: 3, MaxRetries: 3},
	}

	last := time.Now()
	s := Snapshot(queue, true, &last)

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Pending)
	assert.Equal(t, 1, s.Failed)
	assert.True(t, s.Processing)
	assert.Equal(t, &last, s.LastSyncAt)
}

func TestSnapshotEmptyQueue(t *testing.T) {
	s := Snapshot(nil, false, nil)
	assert.Equal(t, StatusSnapshot{}, s)
}
