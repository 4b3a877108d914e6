// Package engine is the offline action queue core: it records
// user-initiated mutations durably while the device is offline and
// replays them in priority order once connectivity returns.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"syncq/internal/dispatch"
	"syncq/internal/events"
	"syncq/internal/metrics"
	"syncq/internal/models"
	"syncq/internal/scheduler"
	"syncq/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Engine owns the queue. All queue mutations happen either inside the
// single active flush run or under the enqueue/clear mutex, so the
// slice is never aliased by concurrent writers.
type Engine struct {
	store      store.Store
	dispatcher *dispatch.Dispatcher
	notifier   *events.Notifier
	logger     zerolog.Logger

	capacity          int
	batchSize         int
	defaultMaxRetries int
	backoff           BackoffSchedule

	mu       sync.Mutex
	queue    []models.Action
	lastSync *time.Time

	// processing rejects overlapping flush runs; exactly one run may
	// be active at a time.
	processing atomic.Bool
}

// Option tweaks engine defaults at construction.
type Option func(*Engine)

func WithCapacity(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.capacity = n
		}
	}
}

func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

func WithDefaultMaxRetries(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.defaultMaxRetries = n
		}
	}
}

func WithBackoff(schedule BackoffSchedule) Option {
	return func(e *Engine) {
		if len(schedule) > 0 {
			e.backoff = schedule
		}
	}
}

// New builds an engine and restores the persisted queue. Load failures
// and corrupt blobs degrade to an empty queue; they never fail
// construction.
func New(st store.Store, d *dispatch.Dispatcher, logger *zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:             st,
		dispatcher:        d,
		notifier:          events.NewNotifier(),
		logger:            logger.With().Str("component", "engine").Logger(),
		capacity:          models.DefaultQueueCapacity,
		batchSize:         models.DefaultBatchSize,
		defaultMaxRetries: models.DefaultMaxRetries,
		backoff:           DefaultBackoffSchedule(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.restore()
	return e
}

func (e *Engine) restore() {
	ctx := context.Background()

	queue, err := e.store.LoadQueue(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("queue restore failed, starting empty")
		queue = nil
	}
	scheduler.Sort(queue)

	status, err := e.store.LoadStatus(ctx)
	if err == nil {
		e.lastSync = status.LastSyncAt
	}

	e.mu.Lock()
	e.queue = queue
	// A crash mid-run may have persisted a stale in-flight flag.
	e.persistStatusLocked(ctx, false)
	e.mu.Unlock()

	metrics.SetQueueDepth(len(queue))
	e.logger.Info().Int("queued", len(queue)).Msg("queue restored")
}

// EnqueueOptions carries the caller-supplied knobs for one action.
// Zero values mean defaults: medium priority, engine-wide retry
// ceiling, no metadata.
type EnqueueOptions struct {
	Priority   models.Priority
	MaxRetries *int
	Metadata   map[string]string
}

// Enqueue records a mutation for later delivery and returns its id.
// It persists before returning and never waits for processing.
func (e *Engine) Enqueue(ctx context.Context, t models.ActionType, payload json.RawMessage, opts EnqueueOptions) (string, error) {
	if !e.dispatcher.Known(t) {
		return "", fmt.Errorf("%w: %s", dispatch.ErrUnknownType, t)
	}

	priority := opts.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return "", fmt.Errorf("invalid priority: %q", priority)
	}

	maxRetries := e.defaultMaxRetries
	if opts.MaxRetries != nil {
		if *opts.MaxRetries < 0 {
			return "", fmt.Errorf("max retries must not be negative, got %d", *opts.MaxRetries)
		}
		maxRetries = *opts.MaxRetries
	}

	action := models.Action{
		ID:         uuid.NewString(),
		Type:       t,
		Payload:    payload,
		Priority:   priority,
		MaxRetries: maxRetries,
		Metadata:   opts.Metadata,
		CreatedAt:  time.Now(),
	}

	e.mu.Lock()
	var dropped []models.Action
	e.queue, dropped = scheduler.Insert(e.queue, action, e.capacity)
	e.persistLocked(ctx)
	e.mu.Unlock()

	for _, d := range dropped {
		// Capacity eviction is policy, not an error: the enqueuer is
		// not notified of the dropped id.
		e.logger.Warn().Str("action_id", d.ID).Str("type", string(d.Type)).
			Msg("queue at capacity, action evicted")
		metrics.IncDropped()
	}
	metrics.IncEnqueued(string(t))

	e.logger.Debug().Str("action_id", action.ID).Str("type", string(t)).
		Str("priority", string(priority)).Msg("action enqueued")
	return action.ID, nil
}

// ProcessQueue drains the queue in priority order: fixed-size batches,
// actions within a batch executed concurrently, batches sequential.
// A second call while a run is active returns an empty result
// immediately without starting another run.
func (e *Engine) ProcessQueue(ctx context.Context) models.SyncResult {
	var result models.SyncResult

	if !e.processing.CompareAndSwap(false, true) {
		e.logger.Debug().Msg("flush already in progress, skipping")
		return result
	}
	defer e.processing.Store(false)

	e.mu.Lock()
	if len(e.queue) == 0 {
		e.mu.Unlock()
		return result
	}
	// Point-in-time slice: enqueues during the run are picked up by
	// the next one.
	snapshot := append([]models.Action(nil), e.queue...)
	e.persistStatusLocked(ctx, true)
	e.mu.Unlock()

	start := time.Now()
	e.logger.Info().Int("queued", len(snapshot)).Msg("flush started")

	for _, batch := range scheduler.Split(snapshot, e.batchSize) {
		outcomes := e.runBatch(ctx, batch)

		e.mu.Lock()
		for i := range batch {
			e.applyOutcomeLocked(ctx, batch[i], outcomes[i], &result)
		}
		// Persist after every batch so partial progress survives a
		// crash mid-run.
		e.persistQueueLocked(ctx)
		e.mu.Unlock()
	}

	now := time.Now()
	e.mu.Lock()
	e.lastSync = &now
	e.persistStatusLocked(ctx, false)
	e.mu.Unlock()

	metrics.ObserveFlush(time.Since(start))
	e.logger.Info().Int("processed", result.Processed).Int("failed", result.Failed).
		Dur("duration", time.Since(start)).Msg("flush finished")

	e.notifier.Publish(result)
	return result
}

// runBatch fires all actions of one batch concurrently and waits for
// every outcome; one action's failure never cancels its siblings.
func (e *Engine) runBatch(ctx context.Context, batch []models.Action) []error {
	outcomes := make([]error, len(batch))

	var wg sync.WaitGroup
	for i := range batch {
		wg.Add(1)
		go func(i int, action models.Action) {
			defer wg.Done()
			outcomes[i] = e.execute(ctx, action)
		}(i, batch[i])
	}
	wg.Wait()

	return outcomes
}

func (e *Engine) execute(ctx context.Context, action models.Action) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	// Backoff applies per action and never blocks batch siblings.
	if delay := e.backoff.Delay(action.RetryCount); delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return e.dispatcher.Dispatch(ctx, action)
}

func (e *Engine) applyOutcomeLocked(ctx context.Context, attempted models.Action, err error, result *models.SyncResult) {
	if err == nil {
		e.queue = scheduler.Remove(e.queue, attempted.ID)
		result.Processed++
		metrics.IncProcessed(string(attempted.Type))
		return
	}

	idx := scheduler.Index(e.queue, attempted.ID)
	if idx < 0 {
		// Cleared mid-run; nothing left to update.
		return
	}

	current := e.queue[idx]
	retryCount := current.RetryCount
	if dispatch.IsPermanent(err) {
		// Unrecognized type: force the ceiling so it drops this run
		// instead of retrying forever.
		retryCount = current.MaxRetries
	}

	if retryCount >= current.MaxRetries {
		e.queue = scheduler.Remove(e.queue, current.ID)
		result.Failed++
		result.Errors = append(result.Errors, models.SyncError{
			ActionID: current.ID,
			Type:     current.Type,
			Message:  err.Error(),
		})
		e.deadLetter(ctx, current, err)
		metrics.IncFailed(string(current.Type))

		e.logger.Error().Err(err).Str("action_id", current.ID).Str("type", string(current.Type)).
			Int("retry_count", current.RetryCount).Msg("action permanently failed")
		return
	}

	// Transient failure: bump the attempt counter in place. Ordering
	// fields stay untouched so the next run's sort is stable.
	e.queue[idx].RetryCount++
	metrics.IncRetried(string(current.Type))
	e.logger.Warn().Err(err).Str("action_id", current.ID).Str("type", string(current.Type)).
		Int("retry_count", e.queue[idx].RetryCount).Msg("action failed, will retry")
}

func (e *Engine) deadLetter(ctx context.Context, action models.Action, cause error) {
	failed := models.FailedAction{Action: action, Error: cause.Error(), FailedAt: time.Now()}
	if err := e.store.AppendDeadLetter(ctx, failed); err != nil {
		e.logger.Warn().Err(err).Str("action_id", action.ID).Msg("dead letter write failed")
	}
}

// persistLocked writes both the queue and a fresh status snapshot.
// Write errors are logged and swallowed: in-memory state stays
// authoritative for the current process lifetime.
func (e *Engine) persistLocked(ctx context.Context) {
	e.persistQueueLocked(ctx)
	e.persistStatusLocked(ctx, e.processing.Load())
}

func (e *Engine) persistQueueLocked(ctx context.Context) {
	if err := e.store.SaveQueue(ctx, e.queue); err != nil {
		e.logger.Warn().Err(err).Msg("queue persist failed, keeping in-memory state")
	}
	metrics.SetQueueDepth(len(e.queue))
}

func (e *Engine) persistStatusLocked(ctx context.Context, processing bool) {
	status := models.Snapshot(e.queue, processing, e.lastSync)
	if err := e.store.SaveStatus(ctx, status); err != nil {
		e.logger.Warn().Err(err).Msg("status persist failed")
	}
}

// Status recomputes the queue-health snapshot from the live queue.
func (e *Engine) Status() models.StatusSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return models.Snapshot(e.queue, e.processing.Load(), e.lastSync)
}

// Pending returns a copy of the queued actions in drain order.
func (e *Engine) Pending() []models.Action {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.Action(nil), e.queue...)
}

// Types returns the action types the engine can currently execute.
func (e *Engine) Types() []models.ActionType {
	return e.dispatcher.Types()
}

// DeadLetters returns the permanently failed actions on record.
func (e *Engine) DeadLetters(ctx context.Context) ([]models.FailedAction, error) {
	return e.store.LoadDeadLetters(ctx)
}

// Clear drops all queued records and resets persisted state. Used for
// logout/reset flows.
func (e *Engine) Clear(ctx context.Context) error {
	e.mu.Lock()
	e.queue = nil
	e.lastSync = nil
	err := e.store.Clear(ctx)
	e.persistStatusLocked(ctx, e.processing.Load())
	e.mu.Unlock()

	metrics.SetQueueDepth(0)
	if err != nil {
		return fmt.Errorf("clear store: %w", err)
	}
	e.logger.Info().Msg("queue cleared")
	return nil
}

// OnSyncComplete registers an observer for flush summaries and returns
// an unsubscribe function.
func (e *Engine) OnSyncComplete(cb func(models.SyncResult)) func() {
	unsubscribe := e.notifier.Subscribe(cb)
	e.logger.Debug().Int("observers", e.notifier.Len()).Msg("sync observer registered")
	return unsubscribe
}
