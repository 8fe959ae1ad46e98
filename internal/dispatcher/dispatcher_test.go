package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/copenhagensales/sms-inbox-notifier/internal/model"
	"github.com/redis/go-redis/v9"
)

type fakeProvider struct {
	name  string
	err   error
	calls int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Deliver(ctx context.Context, n model.Notification) error {
	p.calls++
	return p.err
}

var toast = model.Notification{ID: "01J", Title: "Ny SMS modtaget", Description: "Anna Jensen: Hej", Duration: 5000, ApplicationID: "10"}

func TestDispatcherDeliversToEveryProviderOnce(t *testing.T) {
	ok := &fakeProvider{name: "ok"}
	failing := &fakeProvider{name: "failing", err: errors.New("boom")}
	last := &fakeProvider{name: "last"}
	d := NewDispatcher([]Provider{ok, failing, last}, nil)

	d.Notify(context.Background(), toast)

	for _, p := range []*fakeProvider{ok, failing, last} {
		if p.calls != 1 {
			t.Fatalf("%s: expected 1 call, got %d", p.name, p.calls)
		}
	}
	if got := d.Providers(); len(got) != 3 || got[1] != "failing" {
		t.Fatalf("unexpected providers %v", got)
	}
}

func TestHTTPProviderPostsJSON(t *testing.T) {
	var got model.Notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := NewHTTPProvider("ui", srv.URL, 1000, 3, 1000)
	if err := p.Deliver(context.Background(), toast); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if got.Description != toast.Description || got.Duration != 5000 {
		t.Fatalf("unexpected body %+v", got)
	}
}

func TestHTTPProviderBreakerOpensAfterFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewHTTPProvider("ui", srv.URL, 1000, 2, 60000)
	for i := 0; i < 2; i++ {
		if err := p.Deliver(context.Background(), toast); err == nil {
			t.Fatalf("attempt %d: expected error", i)
		}
	}
	if err := p.Deliver(context.Background(), toast); !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("expected ErrBreakerOpen, got %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected 2 upstream hits, got %d", hits.Load())
	}
}

func TestMicroBreakerHalfOpenProbe(t *testing.T) {
	now := time.Unix(0, 0)
	b := NewMicroBreaker(1, time.Second)
	b.now = func() time.Time { return now }

	b.OnFailure()
	if b.State() != "open" || b.TryAcquire() {
		t.Fatalf("expected open breaker to reject, state=%s", b.State())
	}

	now = now.Add(2 * time.Second)
	if !b.TryAcquire() {
		t.Fatal("expected probe after openFor")
	}
	if b.TryAcquire() {
		t.Fatal("only one probe may be in flight")
	}
	b.OnFailure()
	if b.State() != "open" {
		t.Fatalf("failed probe must reopen, state=%s", b.State())
	}

	now = now.Add(2 * time.Second)
	if !b.TryAcquire() {
		t.Fatal("expected second probe")
	}
	b.OnSuccess()
	if b.State() != "closed" || !b.TryAcquire() {
		t.Fatalf("expected closed breaker, state=%s", b.State())
	}
}

func TestRedisProviderPublishes(t *testing.T) {
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer m.Close()
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	defer rc.Close()

	ctx := context.Background()
	ps := rc.Subscribe(ctx, "ui:notifications")
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	p := NewRedisProvider(rc, "ui:notifications")
	if err := p.Deliver(ctx, toast); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	select {
	case msg := <-ps.Channel():
		var got model.Notification
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.ID != toast.ID || got.Description != toast.Description {
			t.Fatalf("unexpected payload %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no message published")
	}
}

type fakeAuditRepo struct{ inserted []model.Notification }

func (r *fakeAuditRepo) Insert(ctx context.Context, n model.Notification) error {
	r.inserted = append(r.inserted, n)
	return nil
}

func (r *fakeAuditRepo) List(ctx context.Context, applicationID string, limit, offset int) ([]model.Notification, error) {
	return r.inserted, nil
}

func TestAuditProviderInserts(t *testing.T) {
	repo := &fakeAuditRepo{}
	if err := NewAuditProvider(repo).Deliver(context.Background(), toast); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(repo.inserted) != 1 || repo.inserted[0].ID != toast.ID {
		t.Fatalf("unexpected inserts %+v", repo.inserted)
	}
}
