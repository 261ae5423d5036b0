package timer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// maxInFlight bounds concurrent expiry handling. Expiries of one game are
// still serialised by the executor.
const maxInFlight = 16

// ExpirySource delivers expired-key events
type ExpirySource interface {
	EnableExpiryNotifications(ctx context.Context) error
	SubscribeExpiredKeys(ctx context.Context) *redis.PubSub
}

// Subscriber listens for expired keys and dispatches them
type Subscriber struct {
	source     ExpirySource
	dispatcher *Dispatcher
	logger     *slog.Logger
}

// NewSubscriber creates a new Subscriber
func NewSubscriber(source ExpirySource, dispatcher *Dispatcher, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		source:     source,
		dispatcher: dispatcher,
		logger:     logger.With(slog.String("component", "timer-subscriber")),
	}
}

// Run blocks until ctx is cancelled, waiting for in-flight handlers before
// it returns
func (s *Subscriber) Run(ctx context.Context) error {
	if err := s.source.EnableExpiryNotifications(ctx); err != nil {
		s.logger.Warn("could not enable keyspace notifications; they must be configured on the server",
			slog.String("error", err.Error()))
	}

	pubsub := s.source.SubscribeExpiredKeys(ctx)
	defer func() { _ = pubsub.Close() }()
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to expired keys: %w", err)
	}
	s.logger.Info("listening for expired keys")

	var g errgroup.Group
	g.SetLimit(maxInFlight)
	defer func() { _ = g.Wait() }()

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			key := msg.Payload
			g.Go(func() error {
				if !s.dispatcher.Dispatch(ctx, key) {
					s.logger.Debug("ignoring expired key", slog.String("key", key))
				}
				return nil
			})
		}
	}
}
