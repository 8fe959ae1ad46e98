// Package app holds the wiring shared by the serve and worker commands.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/copenhagensales/sms-inbox-notifier/internal/config"
	"github.com/copenhagensales/sms-inbox-notifier/internal/db"
	"github.com/copenhagensales/sms-inbox-notifier/internal/dispatcher"
	"github.com/copenhagensales/sms-inbox-notifier/internal/kafka"
	"github.com/copenhagensales/sms-inbox-notifier/internal/notifier"
	"github.com/copenhagensales/sms-inbox-notifier/internal/repository"
	"github.com/copenhagensales/sms-inbox-notifier/internal/source"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps are the long-lived connections of one process.
type Deps struct {
	MySQL      *sqlx.DB
	ClickHouse *sqlx.DB // nil unless clickhouse.enabled
	Redis      *redis.Client
}

func Open(cfg config.Config) (*Deps, error) {
	d := &Deps{}

	mysqlDB, err := db.NewMySQLConnection(cfg.MySQL)
	if err != nil {
		return nil, fmt.Errorf("mysql connect: %w", err)
	}
	d.MySQL = mysqlDB

	rdb, err := db.NewRedisClient(cfg.Redis)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	d.Redis = rdb

	if cfg.ClickHouse.Enabled {
		chDB, err := db.NewClickHouseConnection(cfg.ClickHouse)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("clickhouse connect: %w", err)
		}
		d.ClickHouse = chDB
	}

	return d, nil
}

func (d *Deps) Close() {
	if d.ClickHouse != nil {
		_ = d.ClickHouse.Close()
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	if d.MySQL != nil {
		_ = d.MySQL.Close()
	}
}

// NotificationsRepo returns the audit repository, or nil without ClickHouse.
func (d *Deps) NotificationsRepo() repository.CHNotificationsRepository {
	if d.ClickHouse == nil {
		return nil
	}
	return repository.NewCHNotificationsRepository(d.ClickHouse)
}

// NewSource picks the change-event source named by cfg.Source.Kind.
func NewSource(cfg config.Config, d *Deps, log *zap.Logger) (source.Source, error) {
	switch strings.ToLower(cfg.Source.Kind) {
	case "", "kafka":
		return source.NewKafka(kafka.Config{
			Brokers:        cfg.Kafka.Brokers,
			Topic:          cfg.Kafka.Topic,
			GroupID:        cfg.Kafka.GroupID,
			MinBytes:       cfg.Kafka.MinBytes,
			MaxBytes:       cfg.Kafka.MaxBytes,
			CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
		}, log), nil
	case "redis":
		return source.NewRedis(d.Redis, cfg.Source.RedisChannel, log), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

// NewDispatcher builds the sink fan-out from config plus any extra providers
// (the SSE broker in serve mode).
func NewDispatcher(cfg config.Config, d *Deps, log *zap.Logger, extra ...dispatcher.Provider) *dispatcher.Dispatcher {
	provs := append([]dispatcher.Provider(nil), extra...)

	if ch := strings.TrimSpace(cfg.Sinks.RedisChannel); ch != "" {
		provs = append(provs, dispatcher.NewRedisProvider(d.Redis, ch))
	}
	if cfg.Sinks.Audit {
		if repo := d.NotificationsRepo(); repo != nil {
			provs = append(provs, dispatcher.NewAuditProvider(repo))
		} else {
			log.Warn("audit sink enabled but clickhouse is disabled")
		}
	}
	for _, wc := range cfg.Sinks.Webhooks {
		if !wc.Enabled || strings.TrimSpace(wc.URL) == "" {
			continue
		}
		provs = append(provs, dispatcher.NewHTTPProvider(
			wc.Name,
			strings.TrimSpace(wc.URL),
			wc.TimeoutMs,
			wc.Breaker.FailThreshold,
			wc.Breaker.OpenForMs,
		))
	}

	return dispatcher.NewDispatcher(provs, log)
}

// NewNotifier assembles source, identity lookup and sink into a Notifier.
func NewNotifier(cfg config.Config, d *Deps, sink notifier.Sink, log *zap.Logger) (*notifier.Notifier, error) {
	src, err := NewSource(cfg, d, log)
	if err != nil {
		return nil, err
	}

	lookup := repository.NewCachedIdentities(
		repository.NewIdentitiesRepository(d.MySQL),
		d.Redis,
		cfg.Notifier.IdentityCacheTTL,
		log,
	)

	n := notifier.New(src, lookup, sink, log.Named("notifier"))
	if t := strings.TrimSpace(cfg.Notifier.Title); t != "" {
		n.Title = t
	}
	if v := strings.TrimSpace(cfg.Source.Table); v != "" {
		n.Filter.Table = v
	}
	// change events carry type and direction lowercased
	if v := strings.ToLower(strings.TrimSpace(cfg.Source.Channel)); v != "" {
		n.Filter.Channel = v
	}
	if v := strings.ToLower(strings.TrimSpace(cfg.Source.Direction)); v != "" {
		n.Filter.Direction = v
	}
	return n, nil
}

// Drain closes sub and waits for in-flight handlers, at most until ctx expires.
func Drain(ctx context.Context, sub *notifier.Subscription) {
	_ = sub.Close()

	done := make(chan struct{})
	go func() {
		sub.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
