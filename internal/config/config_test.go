package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: syncq
  environment: test
storage:
  path: /tmp/syncq/queue.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Queue.Capacity)
	assert.Equal(t, 10, cfg.Queue.BatchSize)
	assert.Equal(t, 3, cfg.Queue.MaxRetries)
	assert.Equal(t, []int{1, 5, 15}, cfg.Queue.BackoffSeconds)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
	assert.Equal(t, 15, cfg.Connectivity.ProbeInterval)
	assert.Equal(t, "exports", cfg.Exports.Path)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("SYNCQ_DB_PATH", "/data/actions.db")
	path := writeConfig(t, `
storage:
  path: ${SYNCQ_DB_PATH}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/actions.db", cfg.Storage.Path)
}

func TestValidateRejectsMissingStoragePath(t *testing.T) {
	path := writeConfig(t, `
app:
  name: syncq
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage path")
}

func TestValidateRejectsBadQueueSettings(t *testing.T) {
	cfg := &Config{}
	cfg.Storage.Path = "queue.db"
	cfg.Queue.Capacity = -1
	cfg.Queue.BatchSize = 10
	assert.Error(t, cfg.Validate())

	cfg.Queue.Capacity = 100
	cfg.Queue.BatchSize = 10
	cfg.Queue.BackoffSeconds = []int{1, -5}
	assert.Error(t, cfg.Validate())
}

func TestBackoffSchedule(t *testing.T) {
	q := QueueConfig{BackoffSeconds: []int{1, 5, 15}}
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 15 * time.Second}, q.BackoffSchedule())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
