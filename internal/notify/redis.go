package notify

import (
	"context"
	"encoding/json"

	"kuickmart/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisPublisher publishes notifications to a Redis channel so every API
// instance running a RedisBridge on that channel receives them
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisPublisher creates a publisher for the given channel
func NewRedisPublisher(client *redis.Client, channel string, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel, logger: logger}
}

func (p *RedisPublisher) Publish(ctx context.Context, n domain.Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		p.logger.Error("Failed to encode notification", zap.Error(err))
		return
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.logger.Error("Failed to publish notification",
			zap.Error(err),
			zap.String("channel", p.channel),
			zap.String("type", string(n.Type)),
		)
	}
}

// RedisBridge forwards messages from a Redis channel into a local Publisher
type RedisBridge struct {
	client  *redis.Client
	channel string
	target  Publisher
	logger  *zap.Logger
}

// NewRedisBridge creates a bridge delivering channel messages to target
func NewRedisBridge(client *redis.Client, channel string, target Publisher, logger *zap.Logger) *RedisBridge {
	return &RedisBridge{client: client, channel: channel, target: target, logger: logger}
}

// Run subscribes and forwards until ctx is cancelled. The subscription is
// confirmed before ready is closed.
func (b *RedisBridge) Run(ctx context.Context, ready chan<- struct{}) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	if ready != nil {
		close(ready)
	}

	b.logger.Info("Notification bridge subscribed", zap.String("channel", b.channel))

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var n domain.Notification
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				b.logger.Warn("Discarding malformed notification", zap.Error(err))
				continue
			}
			b.target.Publish(ctx, n)
		}
	}
}
