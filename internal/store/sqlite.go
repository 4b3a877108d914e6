package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"syncq/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// SQLiteStore keeps the queue and status snapshot as JSON blobs in a
// single key/value table, plus an append-only dead-letter table.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSQLiteStore(path string, logger *zerolog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect store: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With().Str("component", "sqlite-store").Logger(),
	}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS kv (
            key TEXT PRIMARY KEY,
            value BLOB NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS dead_letters (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            value BLOB NOT NULL,
            created_at DATETIME NOT NULL
        )`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (s *SQLiteStore) get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read key %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) set(ctx context.Context, key string, value []byte) error {
	query := `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
              ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, key, value, time.Now()); err != nil {
		return fmt.Errorf("write key %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) LoadQueue(ctx context.Context) ([]models.Action, error) {
	raw, err := s.get(ctx, KeyQueue)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	var queue []models.Action
	if err := json.Unmarshal(raw, &queue); err != nil {
		s.logger.Warn().Err(err).Msg("corrupt queue blob, starting with empty queue")
		return nil, nil
	}
	return queue, nil
}

func (s *SQLiteStore) SaveQueue(ctx context.Context, queue []models.Action) error {
	raw, err := json.Marshal(queue)
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	return s.set(ctx, KeyQueue, raw)
}

func (s *SQLiteStore) LoadStatus(ctx context.Context) (models.StatusSnapshot, error) {
	var status models.StatusSnapshot

	raw, err := s.get(ctx, KeyStatus)
	if err != nil {
		return status, err
	}
	if raw == nil {
		return status, nil
	}

	if err := json.Unmarshal(raw, &status); err != nil {
		s.logger.Warn().Err(err).Msg("corrupt status blob, starting with empty status")
		return models.StatusSnapshot{}, nil
	}
	return status, nil
}

func (s *SQLiteStore) SaveStatus(ctx context.Context, status models.StatusSnapshot) error {
	raw, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	return s.set(ctx, KeyStatus, raw)
}

func (s *SQLiteStore) AppendDeadLetter(ctx context.Context, failed models.FailedAction) error {
	raw, err := json.Marshal(failed)
	if err != nil {
		return fmt.Errorf("encode dead letter: %w", err)
	}

	query := `INSERT INTO dead_letters (value, created_at) VALUES (?, ?)`
	if _, err := s.db.ExecContext(ctx, query, raw, time.Now()); err != nil {
		return fmt.Errorf("append dead letter: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadDeadLetters(ctx context.Context) ([]models.FailedAction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT value FROM dead_letters ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("read dead letters: %w", err)
	}
	defer rows.Close()

	var out []models.FailedAction
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan dead letter: %w", err)
		}
		var failed models.FailedAction
		if err := json.Unmarshal(raw, &failed); err != nil {
			s.logger.Warn().Err(err).Msg("corrupt dead letter skipped")
			continue
		}
		out = append(out, failed)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv`); err != nil {
		return fmt.Errorf("clear kv: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM dead_letters`); err != nil {
		return fmt.Errorf("clear dead letters: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
