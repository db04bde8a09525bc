package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	appErrors "github.com/leadloop/outreach-backend/internal/errors"
	"github.com/leadloop/outreach-backend/internal/model"
)

type TemplateRepositoryInterface interface {
	Create(ctx context.Context, t *model.Template) error
	GetByID(ctx context.Context, id string) (*model.Template, error)
	ListAll(ctx context.Context) ([]model.Template, error)
	// FindByDay returns a template bound to the given follow-up day, or
	// nil when none exists (callers fall back to the default body).
	FindByDay(ctx context.Context, day int) (*model.Template, error)
	Delete(ctx context.Context, id string) error
}

type TemplateRepository struct {
	DB *sql.DB
}

const templateColumns = `id, name, body, followup_day, is_shared, created_by, created_at`

func scanTemplate(row interface{ Scan(...any) error }) (*model.Template, error) {
	var t model.Template
	err := row.Scan(&t.ID, &t.Name, &t.Body, &t.FollowupDay, &t.IsShared, &t.CreatedBy, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TemplateRepository) Create(ctx context.Context, t *model.Template) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	query := `
        INSERT INTO templates (id, name, body, followup_day, is_shared, created_by, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, NOW())
        RETURNING created_at
    `
	err := r.DB.QueryRowContext(ctx, query,
		t.ID, t.Name, t.Body, t.FollowupDay, t.IsShared, t.CreatedBy,
	).Scan(&t.CreatedAt)
	if err != nil {
		return appErrors.NewStorageUnavailable(err)
	}
	return nil
}

func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*model.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates WHERE id=$1`
	t, err := scanTemplate(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewTemplateNotFound(id)
		}
		return nil, appErrors.NewStorageUnavailable(err)
	}
	return t, nil
}

func (r *TemplateRepository) ListAll(ctx context.Context) ([]model.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates ORDER BY created_at DESC, id`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, appErrors.NewStorageUnavailable(err)
	}
	defer rows.Close()

	templates := []model.Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, appErrors.NewStorageUnavailable(err)
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

func (r *TemplateRepository) FindByDay(ctx context.Context, day int) (*model.Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates WHERE followup_day=$1 ORDER BY created_at LIMIT 1`
	t, err := scanTemplate(r.DB.QueryRowContext(ctx, query, day))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found, caller uses the default body
		}
		return nil, appErrors.NewStorageUnavailable(err)
	}
	return t, nil
}

func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM templates WHERE id=$1`, id)
	if err != nil {
		return appErrors.NewStorageUnavailable(err)
	}
	return requireRow(res, func() error { return appErrors.NewTemplateNotFound(id) })
}

var _ TemplateRepositoryInterface = (*TemplateRepository)(nil)
