// Package connectivity watches network reachability and kicks off a
// queue flush when the device transitions back online.
package connectivity

import (
	"context"
	"sync/atomic"

	"syncq/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Flusher drains the offline queue. Satisfied by *engine.Engine.
type Flusher interface {
	ProcessQueue(ctx context.Context) models.SyncResult
}

// Observer is the platform-side reachability source: current state
// plus transition callbacks. Satisfied by *Prober.
type Observer interface {
	Online() bool
	OnChange(func(online bool))
}

// Trigger flushes on offline-to-online edges only. Repeated "online"
// notifications do not re-flush, and a limiter guards against
// transition flapping causing flush storms.
type Trigger struct {
	flusher Flusher
	limiter *rate.Limiter
	logger  zerolog.Logger
	online  atomic.Bool
}

func NewTrigger(obs Observer, flusher Flusher, limiter *rate.Limiter, logger *zerolog.Logger) *Trigger {
	t := &Trigger{
		flusher: flusher,
		limiter: limiter,
		logger:  logger.With().Str("component", "connectivity-trigger").Logger(),
	}
	t.online.Store(obs.Online())
	obs.OnChange(t.handle)
	return t
}

// handle runs on the observer's goroutine; the engine's single-run
// guard makes overlapping invocations safe.
func (t *Trigger) handle(online bool) {
	wasOnline := t.online.Swap(online)

	if !online {
		// Nothing to do going offline: in-flight work fails naturally
		// and is retried on the next flush.
		t.logger.Debug().Msg("connectivity lost")
		return
	}
	if wasOnline {
		return
	}

	if t.limiter != nil && !t.limiter.Allow() {
		t.logger.Debug().Msg("flush throttled after reconnect")
		return
	}

	t.logger.Info().Msg("connectivity restored, flushing queue")
	result := t.flusher.ProcessQueue(context.Background())
	t.logger.Info().Int("processed", result.Processed).Int("failed", result.Failed).
		Msg("reconnect flush finished")
}
