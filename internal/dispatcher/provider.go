package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/copenhagensales/sms-inbox-notifier/internal/model"
)

var ErrBreakerOpen = errors.New("provider breaker open")

// HTTPProvider posts notifications as JSON to a UI webhook.
type HTTPProvider struct {
	name   string
	url    string
	client *http.Client
	br     *MicroBreaker
}

func NewHTTPProvider(name, url string, timeoutMs, failThreshold, openForMs int) *HTTPProvider {
	if timeoutMs <= 0 {
		timeoutMs = 3000
	}

	if failThreshold <= 0 {
		failThreshold = 3
	}

	if openForMs <= 0 {
		openForMs = 15000
	}

	return &HTTPProvider{
		name:   name,
		url:    url,
		client: &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		br:     NewMicroBreaker(failThreshold, time.Duration(openForMs)*time.Millisecond),
	}
}

func (p *HTTPProvider) Name() string { return p.name }

// Deliver skips the call while the breaker is open; toasts are transient, so
// a skipped one is simply lost.
func (p *HTTPProvider) Deliver(ctx context.Context, n model.Notification) error {
	if !p.br.TryAcquire() {
		return ErrBreakerOpen
	}
	if err := p.post(ctx, n); err != nil {
		p.br.OnFailure()
		return err
	}

	p.br.OnSuccess()

	return nil
}

func (p *HTTPProvider) post(ctx context.Context, n model.Notification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(b))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return err
	}

	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return fmt.Errorf("provider=%s status=%d", p.name, res.StatusCode)
	}

	return nil
}
