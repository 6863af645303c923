package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"docuchat/internal/config"
	"docuchat/pkg/logger"
)

// Redis publishes document status transitions so upload clients can follow
// ingestion progress without polling. The channel is per owner.
type Redis struct {
	client *redis.Client
	log    *logger.Logger
}

var _ StatusPublisher = (*Redis)(nil)

func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &Redis{client: client, log: logger.New("store.redis")}, nil
}

// StatusChannel names the pub/sub channel carrying one owner's events.
func StatusChannel(owner string) string {
	return "documents:status:" + owner
}

func (s *Redis) PublishStatus(ctx context.Context, event StatusEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode status event: %w", err)
	}
	if err := s.client.Publish(ctx, StatusChannel(event.Owner), payload).Err(); err != nil {
		return fmt.Errorf("publish status event: %w", err)
	}
	return nil
}

// SubscribeStatus delivers one owner's status events until ctx is cancelled.
func (s *Redis) SubscribeStatus(ctx context.Context, owner string) (<-chan StatusEvent, error) {
	sub := s.client.Subscribe(ctx, StatusChannel(owner))
	if _, err := sub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("subscribe status events: %w", err)
	}
	out := make(chan StatusEvent)
	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var event StatusEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					s.log.WithError(err).Warn("dropping malformed status event")
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
