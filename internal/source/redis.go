package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis reads change events from a pub/sub channel.
type Redis struct {
	Client  *redis.Client
	Channel string
	Log     *zap.Logger
}

func NewRedis(rc *redis.Client, channel string, log *zap.Logger) *Redis {
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{Client: rc, Channel: channel, Log: log}
}

type redisSubscription struct {
	ps     *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Subscribe returns once Redis has confirmed the subscription.
func (s *Redis) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	ps := s.Client.Subscribe(ctx, s.Channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", s.Channel, err)
	}

	// ctx bounds the handshake only; delivery ends on Close
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub := &redisSubscription{ps: ps, cancel: cancel, done: make(chan struct{})}
	ch := ps.Channel()

	go func() {
		defer close(sub.done)
		for {
			select {
			case <-loopCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				dispatch(s.Log, []byte(msg.Payload), f, h)
			}
		}
	}()

	s.Log.Info("subscribed", zap.String("source", "redis"), zap.String("channel", s.Channel))
	return sub, nil
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.ps.Close()
		<-s.done
	})
	return err
}
