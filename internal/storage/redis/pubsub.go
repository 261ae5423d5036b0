package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/quizgame/internal/model"
)

// PublishBroadcast fans a broadcast out to every server process
func (s *Storage) PublishBroadcast(ctx context.Context, b model.Broadcast) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode broadcast: %w", err)
	}
	return s.client.Publish(ctx, BroadcastChannel, data).Err()
}

// SubscribeBroadcasts subscribes to broadcasts published by any process
func (s *Storage) SubscribeBroadcasts(ctx context.Context) *redis.PubSub {
	return s.client.Subscribe(ctx, BroadcastChannel)
}

// EnableExpiryNotifications turns on expired-key events. Managed Redis
// deployments may forbid CONFIG, in which case the events must be enabled
// in the server configuration instead.
func (s *Storage) EnableExpiryNotifications(ctx context.Context) error {
	return s.client.ConfigSet(ctx, "notify-keyspace-events", "Ex").Err()
}

// SubscribeExpiredKeys subscribes to key expiration events
func (s *Storage) SubscribeExpiredKeys(ctx context.Context) *redis.PubSub {
	return s.client.PSubscribe(ctx, ExpiredKeysPattern)
}
