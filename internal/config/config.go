package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"syncq/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App          AppConfig          `yaml:"app"`
	Logging      LoggingConfig      `yaml:"logging"`
	Queue        QueueConfig        `yaml:"queue"`
	Storage      StorageConfig      `yaml:"storage"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	API          APIConfig          `yaml:"api"`
	Monitoring   MonitoringConfig   `yaml:"monitoring"`
	Exports      ExportConfig       `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type QueueConfig struct {
	Capacity       int   `yaml:"capacity"`
	BatchSize      int   `yaml:"batch_size"`
	MaxRetries     int   `yaml:"max_retries"`
	BackoffSeconds []int `yaml:"backoff_seconds"`
}

// BackoffSchedule converts the configured seconds into durations.
func (q QueueConfig) BackoffSchedule() []time.Duration {
	out := make([]time.Duration, 0, len(q.BackoffSeconds))
	for _, s := range q.BackoffSeconds {
		out = append(out, time.Duration(s)*time.Second)
	}
	return out
}

type StorageConfig struct {
	Path  string      `yaml:"path"`
	Redis RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type ConnectivityConfig struct {
	ProbeURL      string  `yaml:"probe_url"`
	ProbeInterval int     `yaml:"probe_interval"`
	FlushRPS      float64 `yaml:"flush_rps"`
	FlushBurst    int     `yaml:"flush_burst"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	Port      int                `yaml:"port"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; it only seeds variables for ExpandEnv below.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Storage.Path == "" {
		return errors.New("storage path is required")
	}
	if c.Queue.Capacity < 1 {
		return fmt.Errorf("queue capacity must be positive, got %d", c.Queue.Capacity)
	}
	if c.Queue.BatchSize < 1 {
		return fmt.Errorf("queue batch size must be positive, got %d", c.Queue.BatchSize)
	}
	if c.Queue.MaxRetries < 0 {
		return fmt.Errorf("queue max retries must not be negative, got %d", c.Queue.MaxRetries)
	}
	for _, s := range c.Queue.BackoffSeconds {
		if s < 0 {
			return fmt.Errorf("backoff entries must not be negative, got %d", s)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Queue.Capacity == 0 {
		c.Queue.Capacity = models.DefaultQueueCapacity
	}
	if c.Queue.BatchSize == 0 {
		c.Queue.BatchSize = models.DefaultBatchSize
	}
	if c.Queue.MaxRetries == 0 {
		c.Queue.MaxRetries = models.DefaultMaxRetries
	}
	if len(c.Queue.BackoffSeconds) == 0 {
		c.Queue.BackoffSeconds = []int{1, 5, 15}
	}

	if c.Connectivity.ProbeInterval == 0 {
		c.Connectivity.ProbeInterval = 15
	}
	if c.Connectivity.FlushRPS == 0 {
		c.Connectivity.FlushRPS = 0.2
	}
	if c.Connectivity.FlushBurst == 0 {
		c.Connectivity.FlushBurst = 1
	}

	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
