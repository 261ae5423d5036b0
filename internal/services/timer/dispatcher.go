package timer

import (
	"context"
	"log/slog"
)

// ExpirationHandler reacts to one kind of expired key
type ExpirationHandler interface {
	Supports(key string) bool
	Handle(ctx context.Context, key string) error
}

// Dispatcher hands each expired key to the first handler that supports it
type Dispatcher struct {
	handlers []ExpirationHandler
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher trying handlers in the given order
func NewDispatcher(logger *slog.Logger, handlers ...ExpirationHandler) *Dispatcher {
	return &Dispatcher{
		handlers: handlers,
		logger:   logger.With(slog.String("component", "timer-dispatcher")),
	}
}

// Dispatch routes the key and reports whether any handler took it. Handler
// errors are logged; a failed expiry is not retried.
func (d *Dispatcher) Dispatch(ctx context.Context, key string) bool {
	for _, h := range d.handlers {
		if !h.Supports(key) {
			continue
		}
		if err := h.Handle(ctx, key); err != nil {
			d.logger.Error("failed to handle expired key",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
		return true
	}
	return false
}
