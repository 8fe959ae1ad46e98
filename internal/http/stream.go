package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/copenhagensales/sms-inbox-notifier/internal/model"
	"github.com/labstack/echo/v4"
)

// Broker fans notifications out to connected SSE clients. A client whose
// buffer is full misses the notification.
type Broker struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[chan []byte]struct{})}
}

func (b *Broker) subscribe() chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) unsubscribe(ch chan []byte) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

func (b *Broker) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broker) Name() string { return "sse" }

// Deliver implements dispatcher.Provider.
func (b *Broker) Deliver(_ context.Context, n model.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	b.mu.Lock()
	for ch := range b.subs {
		select {
		case ch <- data:
		default:
		}
	}
	b.mu.Unlock()
	return nil
}

func streamNotifications(b *Broker, keepAlive time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}
		c.Response().WriteHeader(http.StatusOK)
		flusher.Flush()

		ctx := c.Request().Context()
		ch := b.subscribe()
		defer b.unsubscribe(ch)

		tick := time.NewTicker(keepAlive)
		defer tick.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-tick.C:
				if _, err := c.Response().Write([]byte(": ping\n\n")); err != nil {
					return nil
				}
				flusher.Flush()
			case data := <-ch:
				if _, err := c.Response().Write([]byte("event: toast\ndata: ")); err != nil {
					c.Logger().Error(err)
					return nil
				}
				if _, err := c.Response().Write(data); err != nil {
					c.Logger().Error(err)
					return nil
				}
				if _, err := c.Response().Write([]byte("\n\n")); err != nil {
					c.Logger().Error(err)
					return nil
				}
				flusher.Flush()
			}
		}
	}
}
