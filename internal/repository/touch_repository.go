package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	appErrors "github.com/leadloop/outreach-backend/internal/errors"
	"github.com/leadloop/outreach-backend/internal/model"
)

type TouchRepositoryInterface interface {
	// CreatePendingIfAbsent inserts the touch unless a pending touch for the
	// same (contact, position) already exists. Returns whether a row was
	// created. A lost race against another inserter maps to
	// ErrConcurrentModification.
	CreatePendingIfAbsent(ctx context.Context, t *model.ScheduledTouch) (bool, error)
	GetByID(ctx context.Context, id string) (*model.ScheduledTouch, error)
	ListByContact(ctx context.Context, contactID string) ([]model.ScheduledTouch, error)
	// ListPending returns all pending touches ordered by scheduled_for,
	// ties broken by contact id then position.
	ListPending(ctx context.Context) ([]model.ScheduledTouch, error)
	CancelPendingByContact(ctx context.Context, contactID string) (int64, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkCompleted(ctx context.Context, id string, at time.Time) error
	StatusCounts(ctx context.Context) (map[model.TouchStatus]int, error)
	// PendingCounts returns the number of pending touches per contact.
	PendingCounts(ctx context.Context) (map[string]int, error)
}

type TouchRepository struct {
	DB *sql.DB
}

const touchColumns = `id, contact_id, company_id, sequence_position, scheduled_for, status, sent_at, created_at`

func scanTouch(row interface{ Scan(...any) error }) (*model.ScheduledTouch, error) {
	var t model.ScheduledTouch
	err := row.Scan(&t.ID, &t.ContactID, &t.CompanyID, &t.SequencePosition,
		&t.ScheduledFor, &t.Status, &t.SentAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TouchRepository) CreatePendingIfAbsent(ctx context.Context, t *model.ScheduledTouch) (bool, error) {
	// 1. Check for an existing pending touch at this position
	var existing string
	err := r.DB.QueryRowContext(ctx, `
        SELECT id FROM scheduled_touches
        WHERE contact_id=$1 AND sequence_position=$2 AND status='pending'`,
		t.ContactID, t.SequencePosition).Scan(&existing)
	if err == nil {
		return false, nil
	}
	if err != sql.ErrNoRows {
		return false, appErrors.NewStorageUnavailable(err)
	}

	// 2. Insert; the partial unique index on (contact_id, sequence_position)
	// WHERE status='pending' closes the check-then-insert race.
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Status = model.TouchPending
	query := `
        INSERT INTO scheduled_touches (id, contact_id, company_id, sequence_position, scheduled_for, status, created_at)
        VALUES ($1, $2, $3, $4, $5, 'pending', NOW())
        RETURNING created_at
    `
	err = r.DB.QueryRowContext(ctx, query,
		t.ID, t.ContactID, t.CompanyID, t.SequencePosition, t.ScheduledFor,
	).Scan(&t.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return false, appErrors.NewConcurrentModification("touch", t.ContactID)
		}
		return false, appErrors.NewStorageUnavailable(err)
	}
	return true, nil
}

func (r *TouchRepository) GetByID(ctx context.Context, id string) (*model.ScheduledTouch, error) {
	query := `SELECT ` + touchColumns + ` FROM scheduled_touches WHERE id=$1`
	t, err := scanTouch(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewTouchNotFound(id)
		}
		return nil, appErrors.NewStorageUnavailable(err)
	}
	return t, nil
}

func (r *TouchRepository) list(ctx context.Context, where string, args ...any) ([]model.ScheduledTouch, error) {
	query := `SELECT ` + touchColumns + ` FROM scheduled_touches ` + where +
		` ORDER BY scheduled_for ASC, contact_id ASC, sequence_position ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, appErrors.NewStorageUnavailable(err)
	}
	defer rows.Close()

	touches := []model.ScheduledTouch{}
	for rows.Next() {
		t, err := scanTouch(rows)
		if err != nil {
			return nil, appErrors.NewStorageUnavailable(err)
		}
		touches = append(touches, *t)
	}
	return touches, rows.Err()
}

func (r *TouchRepository) ListByContact(ctx context.Context, contactID string) ([]model.ScheduledTouch, error) {
	return r.list(ctx, "WHERE contact_id=$1", contactID)
}

func (r *TouchRepository) ListPending(ctx context.Context) ([]model.ScheduledTouch, error) {
	return r.list(ctx, "WHERE status='pending'")
}

func (r *TouchRepository) CancelPendingByContact(ctx context.Context, contactID string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE scheduled_touches SET status='cancelled'
        WHERE contact_id=$1 AND status='pending'`, contactID)
	if err != nil {
		return 0, appErrors.NewStorageUnavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, appErrors.NewStorageUnavailable(err)
	}
	return n, nil
}

// MarkSent transitions pending -> sent. Any other starting state is an
// invalid transition, reported so the caller can detect duplicate actions.
func (r *TouchRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	return r.transition(ctx, id, model.TouchSent, at)
}

// MarkCompleted transitions pending -> completed.
func (r *TouchRepository) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	return r.transition(ctx, id, model.TouchCompleted, at)
}

func (r *TouchRepository) transition(ctx context.Context, id string, to model.TouchStatus, at time.Time) error {
	res, err := r.DB.ExecContext(ctx, `
        UPDATE scheduled_touches SET status=$1, sent_at=$2
        WHERE id=$3 AND status='pending'`, to, at, id)
	if err != nil {
		return appErrors.NewStorageUnavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return appErrors.NewStorageUnavailable(err)
	}
	if n == 0 {
		t, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		return appErrors.NewInvalidStateTransition("touch", id, "touch is "+string(t.Status)+", not pending")
	}
	return nil
}

func (r *TouchRepository) StatusCounts(ctx context.Context) (map[model.TouchStatus]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM scheduled_touches GROUP BY status`)
	if err != nil {
		return nil, appErrors.NewStorageUnavailable(err)
	}
	defer rows.Close()

	counts := map[model.TouchStatus]int{
		model.TouchPending:   0,
		model.TouchSent:      0,
		model.TouchCompleted: 0,
		model.TouchCancelled: 0,
	}
	for rows.Next() {
		var status model.TouchStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, appErrors.NewStorageUnavailable(err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *TouchRepository) PendingCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `
        SELECT contact_id, COUNT(*) FROM scheduled_touches
        WHERE status='pending' GROUP BY contact_id`)
	if err != nil {
		return nil, appErrors.NewStorageUnavailable(err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var contactID string
		var count int
		if err := rows.Scan(&contactID, &count); err != nil {
			return nil, appErrors.NewStorageUnavailable(err)
		}
		counts[contactID] = count
	}
	return counts, rows.Err()
}

var _ TouchRepositoryInterface = (*TouchRepository)(nil)
