package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	appErrors "github.com/leadloop/outreach-backend/internal/errors"
	"github.com/leadloop/outreach-backend/internal/model"
)

// AuditRepositoryInterface is append-only: events are written once and read
// back for the activity feed, never mutated.
type AuditRepositoryInterface interface {
	Append(ctx context.Context, e *model.AuditEvent) error
	ListRecent(ctx context.Context, limit int) ([]model.AuditEvent, error)
}

type AuditRepository struct {
	DB *sql.DB
}

func (r *AuditRepository) Append(ctx context.Context, e *model.AuditEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	details, err := json.Marshal(e.Details)
	if err != nil {
		return appErrors.NewStorageUnavailable(err)
	}
	query := `
        INSERT INTO audit_events (id, contact_id, company_id, actor_id, kind, timestamp, details_json)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	if _, err := r.DB.ExecContext(ctx, query,
		e.ID, e.ContactID, e.CompanyID, e.ActorID, e.Kind, e.Timestamp, details,
	); err != nil {
		return appErrors.NewStorageUnavailable(err)
	}
	return nil
}

func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]model.AuditEvent, error) {
	if limit < 1 {
		limit = 50
	}
	query := `
        SELECT id, contact_id, company_id, actor_id, kind, timestamp, details_json
        FROM audit_events ORDER BY timestamp DESC, id LIMIT $1
    `
	rows, err := r.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, appErrors.NewStorageUnavailable(err)
	}
	defer rows.Close()

	events := []model.AuditEvent{}
	for rows.Next() {
		var e model.AuditEvent
		var details []byte
		if err := rows.Scan(&e.ID, &e.ContactID, &e.CompanyID, &e.ActorID,
			&e.Kind, &e.Timestamp, &details); err != nil {
			return nil, appErrors.NewStorageUnavailable(err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, appErrors.NewStorageUnavailable(err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

var _ AuditRepositoryInterface = (*AuditRepository)(nil)
