package timer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/quizgame/internal/model"
	redisstorage "github.com/mcoot/quizgame/internal/storage/redis"
)

// WarningStore is what the expiration warning needs from the store
type WarningStore interface {
	AcquireIdempotencyLock(ctx context.Context, key string) (bool, error)
	GetGame(ctx context.Context, id model.GameID) (*model.Game, error)
}

// Publisher sends a broadcast to the connection layer
type Publisher interface {
	Publish(ctx context.Context, b model.Broadcast) error
}

// ExpirationWarningHandler tells the players of an idle game that it is
// about to be removed. Every server process receives the expiry; the
// idempotency lock lets exactly one of them broadcast.
type ExpirationWarningHandler struct {
	store     WarningStore
	publisher Publisher
	lead      time.Duration
	logger    *slog.Logger
}

// NewExpirationWarningHandler creates a handler announcing expiry lead ahead of time
func NewExpirationWarningHandler(store WarningStore, publisher Publisher, lead time.Duration, logger *slog.Logger) *ExpirationWarningHandler {
	return &ExpirationWarningHandler{
		store:     store,
		publisher: publisher,
		lead:      lead,
		logger:    logger.With(slog.String("component", "expiration-warning")),
	}
}

func (h *ExpirationWarningHandler) Supports(key string) bool {
	_, ok := redisstorage.ParseExpirationWarningKey(key)
	return ok
}

func (h *ExpirationWarningHandler) Handle(ctx context.Context, key string) error {
	gameID, ok := redisstorage.ParseExpirationWarningKey(key)
	if !ok {
		return fmt.Errorf("not an expiration warning key: %s", key)
	}

	first, err := h.store.AcquireIdempotencyLock(ctx, key)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}

	game, err := h.store.GetGame(ctx, gameID)
	if errors.Is(err, model.ErrGameNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load game %s: %w", gameID, err)
	}
	if game.IsFinished() {
		return nil
	}

	h.logger.Info("game about to expire", slog.String("game_id", string(gameID)))
	return h.publisher.Publish(ctx, model.GameBroadcast(gameID, model.EventExpirationWarning, model.ExpirationWarningEvent{
		GameID:      gameID,
		ExpiresInMs: h.lead.Milliseconds(),
	}))
}
