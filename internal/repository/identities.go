package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/copenhagensales/sms-inbox-notifier/internal/model"
	"github.com/jmoiron/sqlx"
)

type IdentitiesRepository interface {
	// IdentityByApplication returns (nil, nil) when the application does not exist
	// or the id is not a valid application key, and model.ErrMalformedIdentity
	// when it has no reachable candidate.
	IdentityByApplication(ctx context.Context, applicationID string) (*model.PartyIdentity, error)
}

type IdentitiesRepositoryImpl struct {
	db *sqlx.DB
}

func NewIdentitiesRepository(db *sqlx.DB) *IdentitiesRepositoryImpl {
	return &IdentitiesRepositoryImpl{db: db}
}

var _ IdentitiesRepository = (*IdentitiesRepositoryImpl)(nil)

// identityRow is the raw join shape; every candidate column may be NULL.
type identityRow struct {
	ApplicationID string         `db:"application_id"`
	CandidateID   sql.NullString `db:"candidate_id"`
	FirstName     sql.NullString `db:"first_name"`
	LastName      sql.NullString `db:"last_name"`
}

func (r identityRow) identity() (*model.PartyIdentity, error) {
	if !r.CandidateID.Valid {
		return nil, model.ErrMalformedIdentity
	}
	return &model.PartyIdentity{
		FirstName: r.FirstName.String,
		LastName:  r.LastName.String,
	}, nil
}

func (r *IdentitiesRepositoryImpl) IdentityByApplication(ctx context.Context, applicationID string) (*model.PartyIdentity, error) {
	// applications.id is numeric; MySQL would cast "7b0c" to 7
	id, err := strconv.ParseUint(applicationID, 10, 64)
	if err != nil {
		return nil, nil
	}

	var row identityRow
	err = r.db.GetContext(ctx, &row, `
		SELECT a.id AS application_id, c.id AS candidate_id, c.first_name, c.last_name
		  FROM applications a
		  LEFT JOIN candidates c ON c.id = a.candidate_id
		 WHERE a.id = ? LIMIT 1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.identity()
}
