package repository

import (
	"context"

	"github.com/copenhagensales/sms-inbox-notifier/internal/model"
	"github.com/jmoiron/sqlx"
)

// CommunicationLogsRepository writes message-log rows. The CDC connector
// publishes each insert to the notifier's topic.
type CommunicationLogsRepository interface {
	Insert(ctx context.Context, row model.CommunicationLog) error
}

type CommunicationLogsRepositoryImpl struct {
	db *sqlx.DB
}

func NewCommunicationLogsRepository(db *sqlx.DB) *CommunicationLogsRepositoryImpl {
	return &CommunicationLogsRepositoryImpl{db: db}
}

var _ CommunicationLogsRepository = (*CommunicationLogsRepositoryImpl)(nil)

func (r *CommunicationLogsRepositoryImpl) Insert(ctx context.Context, row model.CommunicationLog) error {
	const q = `
		INSERT INTO communication_logs
		    (id, type, direction, content, application_id, created_at)
		VALUES
		    (?,  ?,    ?,         ?,       ?,              CURRENT_TIMESTAMP)
	`
	var appID any
	if row.ApplicationID != "" {
		appID = row.ApplicationID.String()
	}
	_, err := r.db.ExecContext(ctx, q,
		row.ID.String(), row.Type, row.Direction, row.Content, appID,
	)
	return err
}
