package store

import (
	"context"
	"encoding/json"
	"sync"

	"syncq/internal/models"
)

// MemoryStore keeps serialized blobs in process memory. It is the
// failover fallback when the durable store is unavailable and the
// default store in tests. State does not survive a restart.
type MemoryStore struct {
	mu          sync.RWMutex
	values      map[string][]byte
	deadLetters [][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (s *MemoryStore) LoadQueue(ctx context.Context) ([]models.Action, error) {
	s.mu.RLock()
	raw := s.values[KeyQueue]
	s.mu.RUnlock()

	if raw == nil {
		return nil, nil
	}
	var queue []models.Action
	if err := json.Unmarshal(raw, &queue); err != nil {
		return nil, nil
	}
	return queue, nil
}

func (s *MemoryStore) SaveQueue(ctx context.Context, queue []models.Action) error {
	raw, err := json.Marshal(queue)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.values[KeyQueue] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) LoadStatus(ctx context.Context) (models.StatusSnapshot, error) {
	s.mu.RLock()
	raw := s.values[KeyStatus]
	s.mu.RUnlock()

	var status models.StatusSnapshot
	if raw == nil {
		return status, nil
	}
	if err := json.Unmarshal(raw, &status); err != nil {
		return models.StatusSnapshot{}, nil
	}
	return status, nil
}

func (s *MemoryStore) SaveStatus(ctx context.Context, status models.StatusSnapshot) error {
	raw, err := json.Marshal(status)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.values[KeyStatus] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) AppendDeadLetter(ctx context.Context, failed models.FailedAction) error {
	raw, err := json.Marshal(failed)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.deadLetters = append(s.deadLetters, raw)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) LoadDeadLetters(ctx context.Context) ([]models.FailedAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.FailedAction, 0, len(s.deadLetters))
	for _, raw := range s.deadLetters {
		var failed models.FailedAction
		if err := json.Unmarshal(raw, &failed); err != nil {
			continue
		}
		out = append(out, failed)
	}
	return out, nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.values = make(map[string][]byte)
	s.deadLetters = nil
	s.mu.Unlock()
	return nil
}
