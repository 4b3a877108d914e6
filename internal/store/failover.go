package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"syncq/internal/models"

	"github.com/rs/zerolog"
)

// recoveryInterval is how long the failover waits before probing the
// primary store again after it went down.
const recoveryInterval = time.Minute

// FailoverStore routes to a primary store and falls back to a second
// one when the primary errors. After recoveryInterval it retries the
// primary on the next read.
type FailoverStore struct {
	primary  Store
	fallback Store
	logger   zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverStore(primary, fallback Store, logger *zerolog.Logger) *FailoverStore {
	return &FailoverStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger.With().Str("component", "failover-store").Logger(),
	}
}

func (s *FailoverStore) markDown(err error) {
	s.logger.Error().Err(err).Msg("primary store failed, falling back")
	s.isDown.Store(true)
	s.mu.Lock()
	s.lastCheck = time.Now()
	s.mu.Unlock()
}

func (s *FailoverStore) shouldRetryPrimary() bool {
	if !s.isDown.Load() {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if time.Since(s.lastCheck) > recoveryInterval {
		s.lastCheck = time.Now()
		return true
	}
	return false
}

func (s *FailoverStore) recovered() {
	if s.isDown.Swap(false) {
		s.logger.Info().Msg("primary store recovered")
	}
}

func (s *FailoverStore) LoadQueue(ctx context.Context) ([]models.Action, error) {
	if s.shouldRetryPrimary() {
		queue, err := s.primary.LoadQueue(ctx)
		if err == nil {
			s.recovered()
			return queue, nil
		}
		s.markDown(err)
	}
	return s.fallback.LoadQueue(ctx)
}

func (s *FailoverStore) SaveQueue(ctx context.Context, queue []models.Action) error {
	if s.shouldRetryPrimary() {
		err := s.primary.SaveQueue(ctx, queue)
		if err == nil {
			s.recovered()
			return nil
		}
		s.markDown(err)
	}
	return s.fallback.SaveQueue(ctx, queue)
}

func (s *FailoverStore) LoadStatus(ctx context.Context) (models.StatusSnapshot, error) {
	if s.shouldRetryPrimary() {
		status, err := s.primary.LoadStatus(ctx)
		if err == nil {
			s.recovered()
			return status, nil
		}
		s.markDown(err)
	}
	return s.fallback.LoadStatus(ctx)
}

func (s *FailoverStore) SaveStatus(ctx context.Context, status models.StatusSnapshot) error {
	if s.shouldRetryPrimary() {
		err := s.primary.SaveStatus(ctx, status)
		if err == nil {
			s.recovered()
			return nil
		}
		s.markDown(err)
	}
	return s.fallback.SaveStatus(ctx, status)
}

func (s *FailoverStore) AppendDeadLetter(ctx context.Context, failed models.FailedAction) error {
	if s.shouldRetryPrimary() {
		err := s.primary.AppendDeadLetter(ctx, failed)
		if err == nil {
			s.recovered()
			return nil
		}
		s.markDown(err)
	}
	return s.fallback.AppendDeadLetter(ctx, failed)
}

func (s *FailoverStore) LoadDeadLetters(ctx context.Context) ([]models.FailedAction, error) {
	if s.shouldRetryPrimary() {
		out, err := s.primary.LoadDeadLetters(ctx)
		if err == nil {
			s.recovered()
			return out, nil
		}
		s.markDown(err)
	}
	return s.fallback.LoadDeadLetters(ctx)
}

func (s *FailoverStore) Clear(ctx context.Context) error {
	// Clear both sides so stale state cannot resurface after recovery.
	perr := s.primary.Clear(ctx)
	ferr := s.fallback.Clear(ctx)
	if perr != nil {
		s.markDown(perr)
		return ferr
	}
	return ferr
}
