package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"syncq/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisStore mirrors the keyed-blob layout onto Redis. The dead-letter
// list is kept as an LPUSH'd list so failures are cheap to append.
type RedisStore struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisClient builds a client from connection settings.
func NewRedisClient(addr, password string, db, poolSize int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})
}

func NewRedisStore(client *redis.Client, logger *zerolog.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		logger: logger.With().Str("component", "redis-store").Logger(),
	}
}

func (s *RedisStore) LoadQueue(ctx context.Context) ([]models.Action, error) {
	if s.client == nil {
		return nil, errors.New("redis client is nil")
	}

	raw, err := s.client.Get(ctx, KeyQueue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read queue from redis: %w", err)
	}

	var queue []models.Action
	if err := json.Unmarshal([]byte(raw), &queue); err != nil {
		s.logger.Warn().Err(err).Msg("corrupt queue blob, starting with empty queue")
		return nil, nil
	}
	return queue, nil
}

func (s *RedisStore) SaveQueue(ctx context.Context, queue []models.Action) error {
	if s.client == nil {
		return errors.New("redis client is nil")
	}

	raw, err := json.Marshal(queue)
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	if err := s.client.Set(ctx, KeyQueue, raw, 0).Err(); err != nil {
		return fmt.Errorf("write queue to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadStatus(ctx context.Context) (models.StatusSnapshot, error) {
	var status models.StatusSnapshot
	if s.client == nil {
		return status, errors.New("redis client is nil")
	}

	raw, err := s.client.Get(ctx, KeyStatus).Result()
	if errors.Is(err, redis.Nil) {
		return status, nil
	}
	if err != nil {
		return status, fmt.Errorf("read status from redis: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		s.logger.Warn().Err(err).Msg("corrupt status blob, starting with empty status")
		return models.StatusSnapshot{}, nil
	}
	return status, nil
}

func (s *RedisStore) SaveStatus(ctx context.Context, status models.StatusSnapshot) error {
	if s.client == nil {
		return errors.New("redis client is nil")
	}

	raw, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	if err := s.client.Set(ctx, KeyStatus, raw, 0).Err(); err != nil {
		return fmt.Errorf("write status to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) AppendDeadLetter(ctx context.Context, failed models.FailedAction) error {
	if s.client == nil {
		return errors.New("redis client is nil")
	}

	raw, err := json.Marshal(failed)
	if err != nil {
		return fmt.Errorf("encode dead letter: %w", err)
	}
	if err := s.client.LPush(ctx, KeyDeadLetter, raw).Err(); err != nil {
		return fmt.Errorf("push dead letter: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadDeadLetters(ctx context.Context) ([]models.FailedAction, error) {
	if s.client == nil {
		return nil, errors.New("redis client is nil")
	}

	values, err := s.client.LRange(ctx, KeyDeadLetter, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read dead letters: %w", err)
	}

	// LPUSH stores newest first; return oldest first.
	out := make([]models.FailedAction, 0, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		var failed models.FailedAction
		if err := json.Unmarshal([]byte(values[i]), &failed); err != nil {
			s.logger.Warn().Err(err).Msg("corrupt dead letter skipped")
			continue
		}
		out = append(out, failed)
	}
	return out, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if s.client == nil {
		return errors.New("redis client is nil")
	}
	if err := s.client.Del(ctx, KeyQueue, KeyStatus, KeyDeadLetter).Err(); err != nil {
		return fmt.Errorf("clear redis keys: %w", err)
	}
	return nil
}

// Ping verifies the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}
