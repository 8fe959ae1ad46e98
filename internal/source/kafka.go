package source

import (
	"context"
	"sync"
	"time"

	"github.com/copenhagensales/sms-inbox-notifier/internal/kafka"
	"go.uber.org/zap"
)

// fetchBackoff is the pause after a failed fetch before the next attempt.
var fetchBackoff = 200 * time.Millisecond

// kafkaReader is the part of kafka.Consumer the fetch loop uses.
type kafkaReader interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, m kafka.Message) error
	Close() error
}

// Kafka reads Debezium change events for the message log from a topic.
// Every Subscribe joins the consumer group with a fresh reader.
type Kafka struct {
	Config kafka.Config
	Log    *zap.Logger

	ping      func(ctx context.Context, brokers []string) error
	newReader func(cfg kafka.Config) kafkaReader
}

func NewKafka(cfg kafka.Config, log *zap.Logger) *Kafka {
	if log == nil {
		log = zap.NewNop()
	}
	return &Kafka{
		Config: cfg,
		Log:    log,
		ping:   kafka.Ping,
		newReader: func(cfg kafka.Config) kafkaReader {
			return kafka.NewConsumerFromConfig(cfg)
		},
	}
}

type kafkaSubscription struct {
	reader kafkaReader
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Subscribe checks that a broker is reachable within ctx, then starts the
// fetch loop. The loop runs until Close.
func (s *Kafka) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	err := s.ping(pingCtx, s.Config.Brokers)
	cancelPing()
	if err != nil {
		return nil, err
	}

	reader := s.newReader(s.Config)
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub := &kafkaSubscription{reader: reader, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		s.run(loopCtx, reader, f, h)
	}()

	s.Log.Info("subscribed",
		zap.String("source", "kafka"),
		zap.String("topic", s.Config.Topic),
		zap.String("group", s.Config.GroupID),
	)
	return sub, nil
}

func (s *Kafka) run(ctx context.Context, reader kafkaReader, f Filter, h Handler) {
	for {
		m, err := reader.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.Log.Warn("kafka fetch failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(fetchBackoff):
			}
			continue
		}

		dispatch(s.Log, m.Value, f, h)

		// handed off; poison messages are committed too
		if err := reader.Commit(ctx, m); err != nil && ctx.Err() == nil {
			s.Log.Warn("kafka commit failed", zap.Error(err), zap.Int64("offset", m.Offset))
		}
	}
}

func (s *kafkaSubscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		<-s.done
		err = s.reader.Close()
	})
	return err
}
