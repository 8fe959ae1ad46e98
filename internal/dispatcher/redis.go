package dispatcher

import (
	"context"
	"encoding/json"

	"github.com/copenhagensales/sms-inbox-notifier/internal/model"
	"github.com/redis/go-redis/v9"
)

// RedisProvider publishes notifications for UI gateways subscribed to channel.
type RedisProvider struct {
	rdb     *redis.Client
	channel string
}

func NewRedisProvider(rdb *redis.Client, channel string) *RedisProvider {
	return &RedisProvider{rdb: rdb, channel: channel}
}

func (p *RedisProvider) Name() string { return "redis:" + p.channel }

func (p *RedisProvider) Deliver(ctx context.Context, n model.Notification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, b).Err()
}
