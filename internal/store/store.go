// Package store persists the action queue and its status snapshot as
// opaque keyed blobs. Implementations must treat unreadable or corrupt
// blobs as absent: a broken value degrades to an empty queue instead
// of crashing the engine.
package store

import (
	"context"

	"syncq/internal/models"
)

// Durable key layout shared by all implementations. The queue and the
// status snapshot live under independent keys so status reads never
// deserialize the full queue.
const (
	KeyQueue      = "syncq:queue"
	KeyStatus     = "syncq:status"
	KeyDeadLetter = "syncq:deadletter"
)

// Store is the only component that touches persistent storage.
type Store interface {
	LoadQueue(ctx context.Context) ([]models.Action, error)
	SaveQueue(ctx context.Context, queue []models.Action) error

	LoadStatus(ctx context.Context) (models.StatusSnapshot, error)
	SaveStatus(ctx context.Context, status models.StatusSnapshot) error

	// AppendDeadLetter records an action that will never be retried.
	AppendDeadLetter(ctx context.Context, failed models.FailedAction) error
	LoadDeadLetters(ctx context.Context) ([]models.FailedAction, error)

	// Clear drops all persisted state; used for logout/reset flows.
	Clear(ctx context.Context) error
}
