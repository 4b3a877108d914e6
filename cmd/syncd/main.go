package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"syncq/internal/api"
	"syncq/internal/config"
	"syncq/internal/connectivity"
	"syncq/internal/dispatch"
	"syncq/internal/engine"
	"syncq/internal/export"
	"syncq/internal/logging"
	"syncq/internal/metrics"
	"syncq/internal/models"
	"syncq/internal/store"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, handlers, logger, closer, loadErr := loadConfigAndLogger()
	if loadErr != nil {
		return loadErr
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, primary, redisClient, err := initStore(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	defer primary.Close()
	if redisClient != nil {
		defer redisClient.Close()
	}

	dispatcher := dispatch.NewDispatcher(&logger)
	registerHandlers(dispatcher, handlers)

	metrics.Register()

	eng := engine.New(st, dispatcher, &logger,
		engine.WithCapacity(cfg.Queue.Capacity),
		engine.WithBatchSize(cfg.Queue.BatchSize),
		engine.WithDefaultMaxRetries(cfg.Queue.MaxRetries),
		engine.WithBackoff(engine.BackoffSchedule(cfg.Queue.BackoffSchedule())),
	)

	exporter := export.NewExporter(cfg.Exports.Path, &logger)
	eng.OnSyncComplete(func(result models.SyncResult) {
		if result.Failed == 0 {
			return
		}
		dead, err := eng.DeadLetters(context.Background())
		if err != nil || len(dead) == 0 {
			return
		}
		if _, err := exporter.WriteFailedActions(dead); err != nil {
			logger.Error().Err(err).Msg("failed actions export error")
		}
	})

	startConnectivity(ctx, cfg, eng, &logger)

	if cfg.API.Enabled {
		apiServer := api.NewHTTPServer(cfg.API, eng, cfg.Monitoring.PrometheusEnabled, &logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error().Err(err).Msg("API server error")
			}
		}()
		defer func() {
			_ = apiServer.Shutdown(context.Background())
		}()
	}

	logger.Info().Int("capacity", cfg.Queue.Capacity).Int("batch_size", cfg.Queue.BatchSize).
		Msg("sync daemon started")
	<-ctx.Done()
	logger.Info().Msg("Shutdown complete.")
	return nil
}

// handlerSpec maps an action type onto the webhook endpoint that
// executes it.
type handlerSpec struct {
	Type     string `yaml:"type"`
	Endpoint string `yaml:"endpoint"`
}

func loadConfigAndLogger() (*config.Config, []handlerSpec, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "syncd-main").Logger()

	handlersPath := os.Getenv("HANDLERS_PATH")
	if handlersPath == "" {
		handlersPath = "configs/handlers.yaml"
	}
	handlersData, err := os.ReadFile(handlersPath)
	if err != nil {
		logger.Error().Err(err).Msgf("failed to read %s", handlersPath)
		return nil, nil, zerolog.Logger{}, closer, err
	}

	var handlersConfig struct {
		Handlers []handlerSpec `yaml:"handlers"`
	}
	if err := yaml.Unmarshal(handlersData, &handlersConfig); err != nil {
		logger.Error().Err(err).Msg("failed to parse handlers.yaml")
		return nil, nil, zerolog.Logger{}, closer, err
	}

	if err := validateHandlers(handlersConfig.Handlers); err != nil {
		logger.Error().Err(err).Msg("handlers validation failed")
		return nil, nil, zerolog.Logger{}, closer, err
	}

	return cfg, handlersConfig.Handlers, logger, closer, nil
}

func validateHandlers(handlers []handlerSpec) error {
	if len(handlers) == 0 {
		return os.ErrInvalid
	}
	seen := make(map[string]struct{}, len(handlers))
	for _, h := range handlers {
		if h.Type == "" || h.Endpoint == "" {
			return os.ErrInvalid
		}
		if _, dup := seen[h.Type]; dup {
			return os.ErrInvalid
		}
		seen[h.Type] = struct{}{}
	}
	return nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if cfg == nil {
		return os.ErrInvalid
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("failed to create storage directory")
		return err
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("failed to create export directory")
		return err
	}
	return nil
}

// initStore wires sqlite as the durable primary with an in-memory
// fallback so enqueue keeps working when the disk misbehaves. Redis,
// when configured and reachable, replaces the in-memory fallback.
func initStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (store.Store, *store.SQLiteStore, *redis.Client, error) {
	primary, err := store.NewSQLiteStore(cfg.Storage.Path, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open sqlite store")
		return nil, nil, nil, err
	}

	var fallback store.Store = store.NewMemoryStore()
	var redisClient *redis.Client
	if cfg.Storage.Redis.Address != "" {
		redisClient = store.NewRedisClient(
			cfg.Storage.Redis.Address,
			cfg.Storage.Redis.Password,
			cfg.Storage.Redis.DB,
			cfg.Storage.Redis.PoolSize,
		)
		if errPing := store.Ping(ctx, redisClient); errPing != nil {
			logger.Warn().Err(errPing).Msg("Redis unavailable, using in-memory fallback")
		} else {
			fallback = store.NewRedisStore(redisClient, logger)
		}
	}

	return store.NewFailoverStore(primary, fallback, logger), primary, redisClient, nil
}

func registerHandlers(d *dispatch.Dispatcher, handlers []handlerSpec) {
	client := &http.Client{Timeout: 30 * time.Second}
	for _, h := range handlers {
		d.Register(models.ActionType(h.Type), dispatch.NewWebhookHandler(client, h.Endpoint))
	}
}

func startConnectivity(ctx context.Context, cfg *config.Config, eng *engine.Engine, logger *zerolog.Logger) {
	if cfg.Connectivity.ProbeURL == "" {
		logger.Warn().Msg("no probe url configured, reconnect flushing disabled")
		return
	}

	prober := connectivity.NewProber(
		cfg.Connectivity.ProbeURL,
		time.Duration(cfg.Connectivity.ProbeInterval)*time.Second,
		logger,
	)
	limiter := rate.NewLimiter(rate.Limit(cfg.Connectivity.FlushRPS), cfg.Connectivity.FlushBurst)
	connectivity.NewTrigger(prober, eng, limiter, logger)
	go prober.Start(ctx)
}
