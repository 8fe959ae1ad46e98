package db

import (
	"context"
	"fmt"
	"time"

	"github.com/copenhagensales/sms-inbox-notifier/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects and pings. Redis carries the identity cache, the
// rate limiter, the optional pub/sub event source and the UI fan-out channel.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	dial := cfg.DialTimeout
	if dial <= 0 {
		dial = 5 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dial,
	})
	ctx, cancel := context.WithTimeout(context.Background(), dial)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}

	return rdb, nil
}
