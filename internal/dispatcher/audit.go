package dispatcher

import (
	"context"

	"github.com/copenhagensales/sms-inbox-notifier/internal/model"
	"github.com/copenhagensales/sms-inbox-notifier/internal/repository"
)

// AuditProvider records every emitted notification in ClickHouse.
type AuditProvider struct {
	repo repository.CHNotificationsRepository
}

func NewAuditProvider(repo repository.CHNotificationsRepository) *AuditProvider {
	return &AuditProvider{repo: repo}
}

func (p *AuditProvider) Name() string { return "audit" }

func (p *AuditProvider) Deliver(ctx context.Context, n model.Notification) error {
	return p.repo.Insert(ctx, n)
}
