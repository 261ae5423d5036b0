package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mcoot/quizgame/internal/model"
	"github.com/mcoot/quizgame/internal/storage"
)

// Enqueue appends the action to the tail of the game's queue
func (s *Storage) Enqueue(ctx context.Context, action *model.GameAction) error {
	data, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("encode action: %w", err)
	}

	key := queueKey(action.GameID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.PExpire(ctx, key, s.cfg.GameTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// DequeueAndReacquire pops the next queued action and hands the lock from
// oldToken to newToken, or deletes the lock when the queue is empty. The
// next action's game, timer and session are prefetched in the same round trip.
func (s *Storage) DequeueAndReacquire(ctx context.Context, gameID model.GameID, oldToken, newToken string) (*storage.DrainResult, error) {
	keys := []string{
		lockKey(gameID),
		queueKey(gameID),
		gameKey(gameID),
		timerKey(model.TimerTarget{GameID: gameID}),
		packageKey(gameID),
	}
	reply, err := drainScript.Run(ctx, s.client, keys,
		oldToken, newToken,
		s.cfg.LockTTL.Milliseconds(), s.cfg.GameTTL.Milliseconds(),
		sessionKeyPrefix,
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("drain queue for %s: %w", gameID, err)
	}
	return decodeDrainReply(reply)
}

func decodeDrainReply(reply []any) (*storage.DrainResult, error) {
	if len(reply) == 0 {
		return nil, fmt.Errorf("empty drain reply")
	}
	status, _ := reply[0].(string)

	switch storage.DrainStatus(status) {
	case storage.DrainStatusLost, storage.DrainStatusDrained:
		return &storage.DrainResult{Status: storage.DrainStatus(status)}, nil
	case storage.DrainStatusNext:
	default:
		return nil, fmt.Errorf("unexpected drain status %q", status)
	}

	if len(reply) != 5 {
		return nil, fmt.Errorf("malformed drain reply of length %d", len(reply))
	}

	raw, _ := reply[1].(string)
	var action model.GameAction
	if err := json.Unmarshal([]byte(raw), &action); err != nil {
		return &storage.DrainResult{
			Status: storage.DrainStatusNext,
			Err:    fmt.Errorf("decode queued action: %w", err),
		}, nil
	}

	res := &storage.DrainResult{Status: storage.DrainStatusNext, Action: &action}
	prefetch, err := decodePrefetch(reply[2], reply[3], reply[4])
	if err != nil {
		res.Err = fmt.Errorf("decode prefetch: %w", err)
		return res, nil
	}
	res.Prefetch = prefetch
	return res, nil
}

func decodePrefetch(gameReply, timerReply, sessionReply any) (*storage.Prefetch, error) {
	prefetch := &storage.Prefetch{}
	if fields := pairsToMap(gameReply); len(fields) > 0 {
		game, err := model.GameFromHash(fields)
		if err != nil {
			return nil, err
		}
		prefetch.Game = game
	}

	if timerJSON, _ := timerReply.(string); timerJSON != "" {
		timer, err := decodeTimer(timerJSON)
		if err != nil {
			return nil, err
		}
		prefetch.Timer = timer
	}

	if fields := pairsToMap(sessionReply); len(fields) > 0 {
		session, err := sessionFromHash(fields)
		if err != nil {
			return nil, err
		}
		prefetch.Session = session
	}
	return prefetch, nil
}

// pairsToMap converts a flat HGETALL script reply into a map
func pairsToMap(v any) map[string]string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	fields := make(map[string]string, len(items)/2)
	for i := 0; i+1 < len(items); i += 2 {
		k, _ := items[i].(string)
		val, _ := items[i+1].(string)
		fields[k] = val
	}
	return fields
}

// QueueLength returns the number of actions waiting for the game's lock
func (s *Storage) QueueLength(ctx context.Context, id model.GameID) (int64, error) {
	return s.client.LLen(ctx, queueKey(id)).Result()
}

// QueuedActions returns the pending actions in drain order
func (s *Storage) QueuedActions(ctx context.Context, id model.GameID) ([]*model.GameAction, error) {
	items, err := s.client.LRange(ctx, queueKey(id), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	actions := make([]*model.GameAction, 0, len(items))
	for _, item := range items {
		var action model.GameAction
		if err := json.Unmarshal([]byte(item), &action); err != nil {
			continue // Skip invalid data
		}
		actions = append(actions, &action)
	}
	return actions, nil
}
