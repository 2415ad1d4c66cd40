package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "chat:match:"

// RedisFeed carries events across instances over redis Pub/Sub, one channel
// per match. Redis preserves per-channel publish order for a connected
// subscriber, which gives the in-order-per-subscription guarantee; missed
// events during a disconnect are not replayed.
type RedisFeed struct {
	client *goredis.Client
	logger *zap.Logger
}

func NewRedisFeed(client *goredis.Client, logger *zap.Logger) *RedisFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisFeed{client: client, logger: logger}
}

func (f *RedisFeed) Publish(ctx context.Context, event Event) error {
	if f.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if event.MatchID == uuid.Nil {
		return fmt.Errorf("event match id is required")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal chat event: %w", err)
	}

	if err := f.client.Publish(ctx, channelPrefix+event.MatchID.String(), payload).Err(); err != nil {
		return fmt.Errorf("publish chat event: %w", err)
	}

	return nil
}

func (f *RedisFeed) Subscribe(ctx context.Context, matchID uuid.UUID) (<-chan Event, func(), error) {
	if f.client == nil {
		return nil, nil, fmt.Errorf("redis client is nil")
	}
	if matchID == uuid.Nil {
		return nil, nil, fmt.Errorf("match id is required")
	}

	pubsub := f.client.Subscribe(ctx, channelPrefix+matchID.String())
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("open chat subscription: %w", err)
	}

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				f.logger.Warn("drop malformed chat event", zap.Error(err))
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() {
		_ = pubsub.Close()
	}

	return out, cancel, nil
}
