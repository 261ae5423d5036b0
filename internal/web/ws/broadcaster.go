package ws

import (
	"context"

	"github.com/mcoot/quizgame/internal/model"
)

// BroadcastPublisher publishes broadcasts to every server process
type BroadcastPublisher interface {
	PublishBroadcast(ctx context.Context, b model.Broadcast) error
}

// RedisBroadcaster publishes executor broadcasts over Redis pub/sub. Every
// process, this one included, delivers them from HubManager.Listen, since
// the targeted sockets may be connected anywhere.
type RedisBroadcaster struct {
	publisher BroadcastPublisher
}

func NewRedisBroadcaster(publisher BroadcastPublisher) *RedisBroadcaster {
	return &RedisBroadcaster{publisher: publisher}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, bc model.Broadcast) error {
	return b.publisher.PublishBroadcast(ctx, bc)
}
