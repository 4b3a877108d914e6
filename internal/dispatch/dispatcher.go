// Package dispatch maps an action's type tag to the external handler
// that executes it against the remote system.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"syncq/internal/models"

	"github.com/rs/zerolog"
)

// ErrUnknownType marks a permanent, non-retryable condition: an action
// whose tag has no registered handler is dropped on the current run
// instead of being retried forever.
var ErrUnknownType = errors.New("unknown action type")

// IsPermanent reports whether err is a non-retryable dispatch failure.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrUnknownType)
}

// Handler executes one action against the remote system. Handlers are
// expected to be idempotent with respect to the action's id/payload
// where the remote supports it: the engine guarantees at-least-once,
// not exactly-once, invocation.
type Handler interface {
	Execute(ctx context.Context, action models.Action) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, action models.Action) error

func (f HandlerFunc) Execute(ctx context.Context, action models.Action) error {
	return f(ctx, action)
}

// Dispatcher is a registry from type tag to handler. Registration
// happens at composition time; dispatch is a pure lookup.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[models.ActionType]Handler
	logger   zerolog.Logger
}

func NewDispatcher(logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[models.ActionType]Handler),
		logger:   logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Register binds a handler to a type tag, replacing any previous one.
func (d *Dispatcher) Register(t models.ActionType, h Handler) {
	d.mu.Lock()
	d.handlers[t] = h
	d.mu.Unlock()
}

// Known reports whether a handler is registered for the tag.
func (d *Dispatcher) Known(t models.ActionType) bool {
	d.mu.RLock()
	_, ok := d.handlers[t]
	d.mu.RUnlock()
	return ok
}

// Types returns the registered tags in stable order.
func (d *Dispatcher) Types() []models.ActionType {
	d.mu.RLock()
	out := make([]models.ActionType, 0, len(d.handlers))
	for t := range d.handlers {
		out = append(out, t)
	}
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Dispatch executes the action through its registered handler.
func (d *Dispatcher) Dispatch(ctx context.Context, action models.Action) error {
	d.mu.RLock()
	h, ok := d.handlers[action.Type]
	d.mu.RUnlock()

	if !ok {
		d.logger.Error().Str("action_id", action.ID).Str("type", string(action.Type)).
			Msg("no handler registered for action type")
		return fmt.Errorf("%w: %s", ErrUnknownType, action.Type)
	}
	return h.Execute(ctx, action)
}
