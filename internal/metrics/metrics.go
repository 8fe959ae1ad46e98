package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smsnotifier_events_total",
			Help: "Message-log change events by outcome",
		},
		[]string{"outcome"}, // accepted|filtered|malformed
	)

	DroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smsnotifier_dropped_total",
			Help: "Inbound SMS events that produced no notification, by reason",
		},
		[]string{"reason"}, // miss|lookup_error|malformed_identity|no_reference|unsubscribed|panic
	)

	NotificationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "smsnotifier_notifications_total",
			Help: "Notifications handed to the sink",
		},
	)

	SinkFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smsnotifier_sink_failures_total",
			Help: "Failed notification deliveries by provider",
		},
		[]string{"provider"},
	)
)

var registerOnce sync.Once

// MustRegister is safe to call from several commands in one process.
func MustRegister(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(
			EventsTotal,
			DroppedTotal,
			NotificationsTotal,
			SinkFailuresTotal,
		)
	})
}
