package scheduler

import (
	"fmt"
	"testing"
	"time"

	"syncq/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkAction(id string, p models.Priority, createdAt time.Time) models.Action {
	return models.Action{ID: id, Type: "profile_update", Priority: p, CreatedAt: createdAt, MaxRetries: 3}
}

func assertSorted(t *testing.T, queue []models.Action) {
	t.Helper()
	for i := 1; i < len(queue); i++ {
		prev, cur := queue[i-1], queue[i]
		if prev.Priority.Rank() < cur.Priority.Rank() {
			t.Fatalf("priority order violated at %d: %s before %s", i, prev.ID, cur.ID)
		}
		if prev.Priority.Rank() == cur.Priority.Rank() && prev.CreatedAt.After(cur.CreatedAt) {
			t.Fatalf("age order violated at %d: %s before %s", i, prev.ID, cur.ID)
		}
	}
}

func TestInsertKeepsOrderingInvariant(t *testing.T) {
	base := time.Now()
	inserts := []models.Action{
		mkAction("l1", models.PriorityLow, base),
		mkAction("h1", models.PriorityHigh, base.Add(3*time.Second)),
		mkAction("m1", models.PriorityMedium, base.Add(time.Second)),
		mkAction("h2", models.PriorityHigh, base.Add(time.Second)),
		mkAction("m2", models.PriorityMedium, base.Add(4*time.Second)),
		mkAction("l2", models.PriorityLow, base.Add(-time.Second)),
	}

	var queue []models.Action
	for _, a := range inserts {
		var dropped []models.Action
		queue, dropped = Insert(queue, a, models.DefaultQueueCapacity)
		assert.Empty(t, dropped)
		assertSorted(t, queue)
	}

	ids := make([]string, 0, len(queue))
	for _, a := range queue {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"h2", "h1", "m1", "m2", "l2", "l1"}, ids)
}

func TestInsertEvictsOldestLowestPriority(t *testing.T) {
	base := time.Now()

	// 101 sequential low-priority enqueues against capacity 100.
	var queue []models.Action
	var evicted []models.Action
	for i := 1; i <= 101; i++ {
		a := mkAction(fmt.Sprintf("a%03d", i), models.PriorityLow, base.Add(time.Duration(i)*time.Millisecond))
		var dropped []models.Action
		queue, dropped = Insert(queue, a, 100)
		evicted = append(evicted, dropped...)
	}

	require.Len(t, queue, 100)
	require.Len(t, evicted, 1)
	// The very first submission is the victim; the 2nd survives as head.
	assert.Equal(t, "a001", evicted[0].ID)
	assert.Equal(t, "a002", queue[0].ID)
	assert.Equal(t, "a101", queue[99].ID)
	assertSorted(t, queue)
}

func TestInsertNeverEvictsHigherPriority(t *testing.T) {
	base := time.Now()
	var queue []models.Action
	for i := 0; i < 3; i++ {
		queue, _ = Insert(queue, mkAction(fmt.Sprintf("h%d", i), models.PriorityHigh, base.Add(time.Duration(i)*time.Second)), 3)
	}

	// A new low-priority action is itself the lowest class and gets dropped.
	queue, dropped := Insert(queue, mkAction("l0", models.PriorityLow, base.Add(10*time.Second)), 3)
	require.Len(t, dropped, 1)
	assert.Equal(t, "l0", dropped[0].ID)
	require.Len(t, queue, 3)
	for _, a := range queue {
		assert.Equal(t, models.PriorityHigh, a.Priority)
	}
}

func TestRemoveIdempotent(t *testing.T) {
	base := time.Now()
	queue, _ := Insert(nil, mkAction("a", models.PriorityMedium, base), 10)
	queue, _ = Insert(queue, mkAction("b", models.PriorityMedium, base.Add(time.Second)), 10)

	queue = Remove(queue, "a")
	require.Len(t, queue, 1)

	// Second removal of the same id is a no-op and must not panic.
	queue = Remove(queue, "a")
	require.Len(t, queue, 1)
	assert.Equal(t, "b", queue[0].ID)

	queue = Remove(queue, "missing")
	require.Len(t, queue, 1)
}

func TestIndex(t *testing.T) {
	base := time.Now()
	queue, _ := Insert(nil, mkAction("a", models.PriorityLow, base), 10)

	assert.Equal(t, 0, Index(queue, "a"))
	assert.Equal(t, -1, Index(queue, "zzz"))
}

func TestSplit(t *testing.T) {
	base := time.Now()
	var queue []models.Action
	for i := 0; i < 25; i++ {
		queue, _ = Insert(queue, mkAction(fmt.Sprintf("a%02d", i), models.PriorityMedium, base.Add(time.Duration(i)*time.Second)), 100)
	}

	batches := Split(queue, 10)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 10)
	assert.Len(t, batches[1], 10)
	assert.Len(t, batches[2], 5)
	assert.Equal(t, "a00", batches[0][0].ID)
	assert.Equal(t, "a24", batches[2][4].ID)

	assert.Nil(t, Split(nil, 10))
}

func TestSortRestoresInvariant(t *testing.T) {
	base := time.Now()
	queue := []models.Action{
		mkAction("l1", models.PriorityLow, base),
		mkAction("h1", models.PriorityHigh, base.Add(time.Second)),
		mkAction("m2", models.PriorityMedium, base.Add(2*time.Second)),
		mkAction("m1", models.PriorityMedium, base),
	}

	Sort(queue)
	assertSorted(t, queue)
	assert.Equal(t, "h1", queue[0].ID)
	assert.Equal(t, "m1", queue[1].ID)
}
