package store

import (
	"context"
	"errors"
	"testing"

	"syncq/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenStore fails every operation; used to force failover.
type brokenStore struct{}

var errStoreDown = errors.New("store down")

func (brokenStore) LoadQueue(context.Context) ([]models.Action, error) { return nil, errStoreDown }
func (brokenStore) SaveQueue(context.Context, []models.Action) error   { return errStoreDown }
func (brokenStore) LoadStatus(context.Context) (models.StatusSnapshot, error) {
	return models.StatusSnapshot{}, errStoreDown
}
func (brokenStore) SaveStatus(context.Context, models.StatusSnapshot) error { return errStoreDown }
func (brokenStore) AppendDeadLetter(context.Context, models.FailedAction) error {
	return errStoreDown
}
func (brokenStore) LoadDeadLetters(context.Context) ([]models.FailedAction, error) {
	return nil, errStoreDown
}
func (brokenStore) Clear(context.Context) error { return errStoreDown }

func TestFailoverFallsBackOnPrimaryError(t *testing.T) {
	logger := newTestLogger()
	fallback := NewMemoryStore()
	s := NewFailoverStore(brokenStore{}, fallback, &logger)
	ctx := context.Background()

	require.NoError(t, s.SaveQueue(ctx, sampleQueue()))
	assert.True(t, s.isDown.Load())

	// Reads keep working against the fallback while primary is down.
	queue, err := s.LoadQueue(ctx)
	require.NoError(t, err)
	assert.Len(t, queue, 2)
}

func TestFailoverUsesPrimaryWhenHealthy(t *testing.T) {
	logger := newTestLogger()
	primary := NewMemoryStore()
	fallback := NewMemoryStore()
	s := NewFailoverStore(primary, fallback, &logger)
	ctx := context.Background()

	require.NoError(t, s.SaveQueue(ctx, sampleQueue()))
	assert.False(t, s.isDown.Load())

	// Data landed on the primary, not the fallback.
	got, err := primary.LoadQueue(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = fallback.LoadQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFailoverClearClearsBothSides(t *testing.T) {
	logger := newTestLogger()
	primary := NewMemoryStore()
	fallback := NewMemoryStore()
	require.NoError(t, fallback.SaveQueue(context.Background(), sampleQueue()))

	s := NewFailoverStore(primary, fallback, &logger)
	require.NoError(t, s.Clear(context.Background()))

	got, err := fallback.LoadQueue(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStoreStatusRoundtrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.SaveStatus(ctx, models.StatusSnapshot{Total: 7, Pending: 3}))
	got, err := s.LoadStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Total)
	assert.Equal(t, 3, got.Pending)

	require.NoError(t, s.Clear(ctx))
	got, err = s.LoadStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSnapshot{}, got)
}
