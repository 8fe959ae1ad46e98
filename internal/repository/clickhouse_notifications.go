package repository

import (
	"context"

	"github.com/copenhagensales/sms-inbox-notifier/internal/model"
	"github.com/jmoiron/sqlx"
)

// CHNotificationsRepository keeps an audit trail of emitted notifications in ClickHouse.
type CHNotificationsRepository interface {
	Insert(ctx context.Context, n model.Notification) error
	List(ctx context.Context, applicationID string, limit, offset int) ([]model.Notification, error)
}

type chNotificationsRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHNotificationsRepository(ch *sqlx.DB) CHNotificationsRepository {
	return &chNotificationsRepository{ch: ch}
}

func (r *chNotificationsRepository) Insert(ctx context.Context, n model.Notification) error {
	_, err := r.ch.ExecContext(ctx, `
		INSERT INTO notifications_log (id, title, description, duration_ms, application_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, n.ID, n.Title, n.Description, n.Duration, n.ApplicationID, n.CreatedAt)
	return err
}

func (r *chNotificationsRepository) List(ctx context.Context, applicationID string, limit, offset int) ([]model.Notification, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT id, title, description, duration_ms, application_id, created_at
		FROM notifications_log
	`
	args := []any{}
	if applicationID != "" {
		q += " WHERE application_id = ?"
		args = append(args, applicationID)
	}
	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.Notification
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
