package dispatcher

import (
	"context"

	"github.com/copenhagensales/sms-inbox-notifier/internal/metrics"
	"github.com/copenhagensales/sms-inbox-notifier/internal/model"
	"go.uber.org/zap"
)

// Provider is one place a notification can be rendered or recorded.
type Provider interface {
	Name() string
	Deliver(ctx context.Context, n model.Notification) error
}

// Dispatcher fans each notification out to every provider once. A failing
// provider is logged and counted; nothing is retried or reported upward.
type Dispatcher struct {
	providers []Provider
	log       *zap.Logger
}

func NewDispatcher(provs []Provider, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{providers: provs, log: log}
}

func (d *Dispatcher) Providers() []string {
	names := make([]string, 0, len(d.providers))
	for _, p := range d.providers {
		names = append(names, p.Name())
	}
	return names
}

func (d *Dispatcher) Notify(ctx context.Context, n model.Notification) {
	for _, p := range d.providers {
		if err := p.Deliver(ctx, n); err != nil {
			metrics.SinkFailuresTotal.WithLabelValues(p.Name()).Inc()
			d.log.Warn("notification delivery failed",
				zap.String("provider", p.Name()),
				zap.String("notification_id", n.ID),
				zap.Error(err),
			)
		}
	}
}
