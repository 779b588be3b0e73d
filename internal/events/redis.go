package events

import (
	"context"
	"encoding/json"
	"time"

	"blindbox/internal/domain"
	"blindbox/internal/logger"

	redis "github.com/redis/go-redis/v9"
)

// RedisPublisher pushes events to a pub/sub channel so every app instance can
// forward them to its websocket clients. Publish errors are logged, never returned.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	timeout time.Duration
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel, timeout: 2 * time.Second}
}

func (p *RedisPublisher) Publish(ctx context.Context, evts ...domain.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	for _, evt := range evts {
		payload, err := json.Marshal(evt)
		if err != nil {
			logger.Error("marshal event", "type", evt.Type, "error", err)
			continue
		}
		if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
			logger.Warn("redis publish failed", "channel", p.channel, "type", evt.Type, "error", err)
		}
	}
}

// Subscribe forwards events from channel to sink until ctx is done.
// Malformed messages are skipped.
func Subscribe(ctx context.Context, client *redis.Client, channel string, sink Publisher) error {
	sub := client.Subscribe(ctx, channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	logger.Info("subscribed to events", "channel", channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var evt domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				logger.Warn("skip malformed event", "error", err)
				continue
			}
			sink.Publish(ctx, evt)
		}
	}
}
