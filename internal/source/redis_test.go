package source

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/copenhagensales/sms-inbox-notifier/internal/model"
	"github.com/redis/go-redis/v9"
)

var inboundFilter = Filter{Table: "communication_logs", Channel: model.ChannelSMS, Direction: model.DirectionInbound}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() {
		rc.Close()
		m.Close()
	})
	return m, rc
}

type collector struct {
	mu  sync.Mutex
	got []model.MessageEvent
}

func (c *collector) handle(ev model.MessageEvent) {
	c.mu.Lock()
	c.got = append(c.got, ev)
	c.mu.Unlock()
}

func (c *collector) events() []model.MessageEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.MessageEvent(nil), c.got...)
}

func TestRedisSourceDeliversMatchingInserts(t *testing.T) {
	_, rc := setupRedis(t)
	src := NewRedis(rc, "cdc", nil)
	var c collector

	sub, err := src.Subscribe(context.Background(), inboundFilter, c.handle)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	ctx := context.Background()
	payloads := []string{
		`{"op":"c","source":{"table":"communication_logs"},"after":{"id":1,"type":"sms","direction":"inbound","content":"hej","application_id":5}}`,
		`{"op":"c","source":{"table":"communication_logs"},"after":{"id":2,"type":"sms","direction":"outbound","content":"svar","application_id":5}}`,
		`{"op":"c","source":{"table":"communication_logs"},"after":{"id":3,"type":"call","direction":"inbound","application_id":5}}`,
		`{"op":"u","source":{"table":"communication_logs"},"after":{"id":1,"type":"sms","direction":"inbound","application_id":5}}`,
		`{"op":"c","source":{"table":"emails"},"after":{"id":4,"type":"sms","direction":"inbound","application_id":5}}`,
		`not json`,
	}
	for _, p := range payloads {
		if err := rc.Publish(ctx, "cdc", p).Err(); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	time.Sleep(100 * time.Millisecond)

	got := c.events()
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d: %+v", len(got), got)
	}
	if got[0].ID != "1" || got[0].ApplicationID != "5" || got[0].ContentText() != "hej" {
		t.Fatalf("unexpected event %+v", got[0])
	}
}

func TestRedisSourceCloseStopsDelivery(t *testing.T) {
	_, rc := setupRedis(t)
	src := NewRedis(rc, "cdc", nil)
	var c collector

	sub, err := src.Subscribe(context.Background(), inboundFilter, c.handle)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	done := make(chan struct{})
	go func() {
		_ = sub.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}
	// second close is a no-op
	if err := sub.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	payload := `{"op":"c","source":{"table":"communication_logs"},"after":{"id":1,"type":"sms","direction":"inbound","application_id":5}}`
	_ = rc.Publish(context.Background(), "cdc", payload).Err()
	time.Sleep(50 * time.Millisecond)

	if n := len(c.events()); n != 0 {
		t.Fatalf("expected no events after close, got %d", n)
	}
}

func TestRedisSourceSubscribeFailure(t *testing.T) {
	m, rc := setupRedis(t)
	m.Close()

	src := NewRedis(rc, "cdc", nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := src.Subscribe(ctx, inboundFilter, func(model.MessageEvent) {}); err == nil {
		t.Fatal("expected subscribe error with redis down")
	}
}

func TestFilterMatch(t *testing.T) {
	ev := model.MessageEvent{Op: model.OpInsert, Table: "communication_logs", Channel: "sms", Direction: "inbound"}
	if !inboundFilter.Match(ev) {
		t.Fatal("expected match")
	}
	if !(Filter{}).Match(ev) {
		t.Fatal("empty filter matches any insert")
	}
	ev.Op = model.OpRead
	if (Filter{}).Match(ev) {
		t.Fatal("non-insert must not match")
	}
}

func TestRedisSourceSurvivesCallerCancel(t *testing.T) {
	_, rc := setupRedis(t)
	src := NewRedis(rc, "cdc", nil)
	var c collector

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := src.Subscribe(ctx, inboundFilter, c.handle)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()
	cancel()

	payload := `{"op":"c","source":{"table":"communication_logs"},"after":{"id":1,"type":"sms","direction":"inbound","application_id":5}}`
	if err := rc.Publish(context.Background(), "cdc", payload).Err(); err != nil {
		t.Fatalf("publish: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if n := len(c.events()); n != 1 {
		t.Fatalf("expected delivery after caller cancel, got %d events", n)
	}
}
