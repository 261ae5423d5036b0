package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcoot/quizgame/internal/model"
	"github.com/mcoot/quizgame/internal/storage"
)

// Acquire takes the game's lock without blocking
func (s *Storage) Acquire(ctx context.Context, gameID model.GameID, token string) (bool, error) {
	ok, err := s.client.SetNX(ctx, lockKey(gameID), token, s.cfg.LockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock for %s: %w", gameID, err)
	}
	return ok, nil
}

// Release deletes the lock if token still owns it. A lock that expired and
// was taken by someone else survives and false is returned.
func (s *Storage) Release(ctx context.Context, gameID model.GameID, token string) (bool, error) {
	n, err := releaseScript.Run(ctx, s.client, []string{lockKey(gameID)}, token).Int64()
	if err != nil {
		return false, fmt.Errorf("release lock for %s: %w", gameID, err)
	}
	return n == 1, nil
}

// LockHeld returns true if some process holds the game's lock
func (s *Storage) LockHeld(ctx context.Context, id model.GameID) (bool, error) {
	n, err := s.client.Exists(ctx, lockKey(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AcquireOrEnqueue atomically takes the lock or queues the action for the holder
func (s *Storage) AcquireOrEnqueue(ctx context.Context, action *model.GameAction, token string) (storage.AcquireStatus, error) {
	data, err := json.Marshal(action)
	if err != nil {
		return "", fmt.Errorf("encode action: %w", err)
	}

	status, err := acquireOrEnqueueScript.Run(ctx, s.client,
		[]string{lockKey(action.GameID), queueKey(action.GameID)},
		token, s.cfg.LockTTL.Milliseconds(), data, s.cfg.GameTTL.Milliseconds(),
	).Text()
	if err != nil {
		return "", fmt.Errorf("acquire or enqueue for %s: %w", action.GameID, err)
	}

	switch st := storage.AcquireStatus(status); st {
	case storage.AcquireStatusAcquired, storage.AcquireStatusAcquiredWithBacklog, storage.AcquireStatusEnqueued:
		return st, nil
	default:
		return "", fmt.Errorf("unexpected acquire status %q", status)
	}
}

// AcquireIdempotencyLock takes a short-lived marker so that a duplicated
// notification for the same key is handled once
func (s *Storage) AcquireIdempotencyLock(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, idempotencyKey(key), "1", s.cfg.IdempotencyTTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquire idempotency lock for %s: %w", key, err)
	}
	return ok, nil
}
