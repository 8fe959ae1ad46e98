// Package notifier turns inbound SMS rows on the message log into operator toasts.
//
// Each event is handled on its own goroutine: one lookup of the sender through
// the owning application, then one hand-off to the sink. A lookup that misses,
// fails, or returns a malformed join drops the event without surfacing an error.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/copenhagensales/sms-inbox-notifier/internal/metrics"
	"github.com/copenhagensales/sms-inbox-notifier/internal/model"
	"github.com/copenhagensales/sms-inbox-notifier/internal/source"
	"go.uber.org/zap"
)

// Lookup resolves the party behind an application. (nil, nil) means no record.
type Lookup interface {
	IdentityByApplication(ctx context.Context, applicationID string) (*model.PartyIdentity, error)
}

// Sink renders a notification. Delivery outcome is not reported back.
type Sink interface {
	Notify(ctx context.Context, n model.Notification)
}

// DefaultFilter is the message-log selection the notifier subscribes with.
var DefaultFilter = source.Filter{
	Table:     "communication_logs",
	Channel:   model.ChannelSMS,
	Direction: model.DirectionInbound,
}

type Notifier struct {
	Source source.Source
	Lookup Lookup
	Sink   Sink
	Log    *zap.Logger

	Title  string
	Filter source.Filter
	Now    func() time.Time
}

func New(src source.Source, lookup Lookup, sink Sink, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{
		Source: src,
		Lookup: lookup,
		Sink:   sink,
		Log:    log,
		Title:  DefaultTitle,
		Filter: DefaultFilter,
		Now:    time.Now,
	}
}

type State int

const (
	Unsubscribed State = iota
	Subscribed
)

func (s State) String() string {
	if s == Subscribed {
		return "subscribed"
	}
	return "unsubscribed"
}

// Subscription is one activation of a Notifier. Once closed it stays closed;
// activate the Notifier again for a new one.
type Subscription struct {
	n *Notifier
	// lookups outlive Close; only the caller's values flow through
	ctx context.Context

	mu     sync.Mutex
	state  State
	handle source.Subscription
	wg     sync.WaitGroup
}

// Activate subscribes to the source. ctx bounds establishing the subscription
// only; once active, delivery stops on Close alone. The returned error is the
// only failure the notifier ever reports.
func (n *Notifier) Activate(ctx context.Context) (*Subscription, error) {
	s := &Subscription{
		n:     n,
		ctx:   context.WithoutCancel(ctx),
		state: Subscribed,
	}

	handle, err := n.Source.Subscribe(ctx, n.Filter, s.deliver)
	if err != nil {
		s.mu.Lock()
		s.state = Unsubscribed
		s.mu.Unlock()
		return nil, fmt.Errorf("activate notifier: %w", err)
	}

	s.mu.Lock()
	s.handle = handle
	s.mu.Unlock()
	return s, nil
}

func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close deactivates the subscription. Lookups already in flight are left to
// finish and may still notify.
func (s *Subscription) Close() error {
	s.mu.Lock()
	if s.state == Unsubscribed {
		s.mu.Unlock()
		return nil
	}
	s.state = Unsubscribed
	h := s.handle
	s.mu.Unlock()

	if h == nil {
		return nil
	}
	return h.Close()
}

// Wait blocks until every handler started by this subscription has returned.
func (s *Subscription) Wait() {
	s.wg.Wait()
}

func (s *Subscription) deliver(ev model.MessageEvent) {
	s.mu.Lock()
	if s.state != Subscribed {
		s.mu.Unlock()
		metrics.DroppedTotal.WithLabelValues("unsubscribed").Inc()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.n.handle(s.ctx, ev)
	}()
}

func (n *Notifier) handle(ctx context.Context, ev model.MessageEvent) {
	log := n.Log.With(zap.String("message_id", ev.ID), zap.String("application_id", ev.ApplicationID))
	defer func() {
		if r := recover(); r != nil {
			metrics.DroppedTotal.WithLabelValues("panic").Inc()
			log.Error("panic handling inbound sms", zap.Any("panic", r), zap.String("stack", string(debug.Stack())))
		}
	}()

	if ev.ApplicationID == "" {
		metrics.DroppedTotal.WithLabelValues("no_reference").Inc()
		log.Debug("inbound sms without application reference")
		return
	}

	who, err := n.Lookup.IdentityByApplication(ctx, ev.ApplicationID)
	switch {
	case errors.Is(err, model.ErrMalformedIdentity):
		metrics.DroppedTotal.WithLabelValues("malformed_identity").Inc()
		log.Debug("application has no candidate")
		return
	case err != nil:
		metrics.DroppedTotal.WithLabelValues("lookup_error").Inc()
		log.Warn("identity lookup failed", zap.Error(err))
		return
	case who == nil:
		metrics.DroppedTotal.WithLabelValues("miss").Inc()
		log.Debug("no application for inbound sms")
		return
	}

	note := Compose(n.Title, *who, ev, n.Now())
	n.Sink.Notify(ctx, note)
	metrics.NotificationsTotal.Inc()
	log.Debug("notification emitted", zap.String("notification_id", note.ID))
}
