package control

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisSource loads the configuration document from a Redis key and reloads
// it whenever a message arrives on the update channel.
type RedisSource struct {
	client  redis.UniversalClient
	key     string
	channel string
	applier *Applier
	log     *zap.Logger
}

func NewRedisSource(client redis.UniversalClient, key, channel string, applier *Applier, log *zap.Logger) *RedisSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisSource{
		client:  client,
		key:     key,
		channel: channel,
		applier: applier,
		log:     log.With(zap.String("source", "redis"), zap.String("key", key)),
	}
}

// Start loads the current document, subscribes to updates and returns once
// the subscription is live. Updates are handled until ctx is done.
func (w *RedisSource) Start(ctx context.Context) error {
	w.log.Info("starting config watcher", zap.String("channel", w.channel))

	// 1. Subscribe first so no update is missed between load and listen
	pubsub := w.client.Subscribe(ctx, w.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("subscribe %s: %w", w.channel, err)
	}

	// 2. Initial load
	w.reload(ctx)

	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				w.log.Info("received update signal", zap.String("payload", msg.Payload))
				w.reload(ctx)
			}
		}
	}()
	return nil
}

func (w *RedisSource) reload(ctx context.Context) {
	val, err := w.client.Get(ctx, w.key).Bytes()
	if errors.Is(err, redis.Nil) {
		w.log.Info("no config found in redis, keeping current state")
		return
	} else if err != nil {
		w.log.Error("failed to fetch config", zap.Error(err))
		return
	}
	_ = w.applier.Apply(val)
}
