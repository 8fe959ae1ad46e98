// Package source delivers row-insertion events from the message log.
package source

import (
	"context"

	"github.com/copenhagensales/sms-inbox-notifier/internal/metrics"
	"github.com/copenhagensales/sms-inbox-notifier/internal/model"
	"go.uber.org/zap"
)

// Handler receives each matching event. It must not block for long: sources
// call it from their delivery loop.
type Handler func(ev model.MessageEvent)

// Subscription is a live registration on a Source.
type Subscription interface {
	// Close stops delivery and releases the underlying resources. Idempotent.
	Close() error
}

type Source interface {
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
}

// Filter selects inserted rows of one table by channel and direction.
// Empty fields match anything.
type Filter struct {
	Table     string
	Channel   string
	Direction string
}

func (f Filter) Match(ev model.MessageEvent) bool {
	if ev.Op != model.OpInsert {
		return false
	}
	if f.Table != "" && ev.Table != f.Table {
		return false
	}
	if f.Channel != "" && ev.Channel != f.Channel {
		return false
	}
	if f.Direction != "" && ev.Direction != f.Direction {
		return false
	}
	return true
}

// dispatch decodes one raw payload and hands it to h when it matches.
func dispatch(log *zap.Logger, raw []byte, f Filter, h Handler) {
	ev, err := model.DecodeChangeEvent(raw)
	if err != nil {
		metrics.EventsTotal.WithLabelValues("malformed").Inc()
		log.Warn("skip malformed change event", zap.Error(err))
		return
	}
	if !f.Match(ev) {
		metrics.EventsTotal.WithLabelValues("filtered").Inc()
		return
	}
	metrics.EventsTotal.WithLabelValues("accepted").Inc()
	h(ev)
}
