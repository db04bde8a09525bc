package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	appErrors "github.com/leadloop/outreach-backend/internal/errors"
	"github.com/leadloop/outreach-backend/internal/model"
)

// LeadRepositoryInterface defines methods used by services
type LeadRepositoryInterface interface {
	Create(ctx context.Context, l *model.Lead) error
	GetByID(ctx context.Context, id string) (*model.Lead, error)
	ListAll(ctx context.Context) ([]model.Lead, error)
	Delete(ctx context.Context, id string) error
}

// LeadRepository is the concrete implementation
type LeadRepository struct {
	DB *sql.DB
}

const leadColumns = `id, company_name, company_website, campaign, source, notes, created_by, created_at`

func (r *LeadRepository) Create(ctx context.Context, l *model.Lead) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	query := `
        INSERT INTO leads (id, company_name, company_website, campaign, source, notes, created_by, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
        RETURNING created_at
    `
	err := r.DB.QueryRowContext(ctx, query,
		l.ID, l.CompanyName, l.CompanyWebsite, l.Campaign, l.Source, l.Notes, l.CreatedBy,
	).Scan(&l.CreatedAt)
	if err != nil {
		return appErrors.NewStorageUnavailable(err)
	}
	return nil
}

func (r *LeadRepository) GetByID(ctx context.Context, id string) (*model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id=$1`
	var l model.Lead
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&l.ID, &l.CompanyName, &l.CompanyWebsite, &l.Campaign, &l.Source,
		&l.Notes, &l.CreatedBy, &l.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewLeadNotFound(id)
		}
		return nil, appErrors.NewStorageUnavailable(err)
	}
	return &l, nil
}

func (r *LeadRepository) ListAll(ctx context.Context) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads ORDER BY created_at DESC, id`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, appErrors.NewStorageUnavailable(err)
	}
	defer rows.Close()

	leads := []model.Lead{}
	for rows.Next() {
		var l model.Lead
		if err := rows.Scan(&l.ID, &l.CompanyName, &l.CompanyWebsite, &l.Campaign,
			&l.Source, &l.Notes, &l.CreatedBy, &l.CreatedAt); err != nil {
			return nil, appErrors.NewStorageUnavailable(err)
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

func (r *LeadRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM leads WHERE id=$1`, id)
	if err != nil {
		return appErrors.NewStorageUnavailable(err)
	}
	return requireRow(res, func() error { return appErrors.NewLeadNotFound(id) })
}

var _ LeadRepositoryInterface = (*LeadRepository)(nil)
