package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	appErrors "github.com/leadloop/outreach-backend/internal/errors"
	"github.com/leadloop/outreach-backend/internal/model"
)

type ContactRepositoryInterface interface {
	Create(ctx context.Context, c *model.Contact) error
	GetByID(ctx context.Context, id string) (*model.Contact, error)
	ListAll(ctx context.Context) ([]model.Contact, error)
	ListByCompany(ctx context.Context, companyID string) ([]model.Contact, error)
	// ListEligible returns contacts still in the follow-up queue: invite
	// accepted, no response, not removed.
	ListEligible(ctx context.Context) ([]model.Contact, error)

	SetInviteAccepted(ctx context.Context, id string, acceptedAt *time.Time) error
	SetResponse(ctx context.Context, id string, response model.ResponseType) error
	SetLastContactedAt(ctx context.Context, id string, at time.Time) error

	// AutoRemove flips auto_removed for one contact and cancels its pending
	// touches. Returns false if the contact was already removed.
	AutoRemove(ctx context.Context, id, reason string, at time.Time) (bool, error)
	// CascadeAutoRemove removes every other contact at the company that has
	// not already responded or been removed, cancelling their pending
	// touches and writing one auto_removed audit event per contact, all in
	// one transaction. Returns the contacts actually removed.
	CascadeAutoRemove(ctx context.Context, companyID, excludeContactID, reason string, at time.Time, actorID string) ([]model.Contact, error)
	// AutoRemoveStale removes contacts whose last contact is older than
	// cutoff, with the same per-contact audit events, in one transaction.
	// Never-contacted contacts are not eligible.
	AutoRemoveStale(ctx context.Context, cutoff, at time.Time, reason, actorID string) ([]model.Contact, error)
}

type ContactRepository struct {
	DB *sql.DB
}

const contactColumns = `id, company_id, name, email, title, linkedin_url,
	invite_accepted, invite_accepted_at, last_contacted_at, response,
	auto_removed, auto_removed_at, auto_removed_reason, created_at`

func scanContact(row interface{ Scan(...any) error }) (*model.Contact, error) {
	var c model.Contact
	err := row.Scan(
		&c.ID, &c.CompanyID, &c.Name, &c.Email, &c.Title, &c.LinkedinURL,
		&c.InviteAccepted, &c.InviteAcceptedAt, &c.LastContactedAt, &c.Response,
		&c.AutoRemoved, &c.AutoRemovedAt, &c.AutoRemovedReason, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ContactRepository) Create(ctx context.Context, c *model.Contact) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Response == "" {
		c.Response = model.ResponseNone
	}
	query := `
        INSERT INTO contacts (id, company_id, name, email, title, linkedin_url, response, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
        RETURNING created_at
    `
	err := r.DB.QueryRowContext(ctx, query,
		c.ID, c.CompanyID, c.Name, c.Email, c.Title, c.LinkedinURL, c.Response,
	).Scan(&c.CreatedAt)
	if err != nil {
		return appErrors.NewStorageUnavailable(err)
	}
	return nil
}

func (r *ContactRepository) GetByID(ctx context.Context, id string) (*model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id=$1`
	c, err := scanContact(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewContactNotFound(id)
		}
		return nil, appErrors.NewStorageUnavailable(err)
	}
	return c, nil
}

func (r *ContactRepository) listWhere(ctx context.Context, where string, args ...any) ([]model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts ` + where + ` ORDER BY created_at DESC, id`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, appErrors.NewStorageUnavailable(err)
	}
	defer rows.Close()

	contacts := []model.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, appErrors.NewStorageUnavailable(err)
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

func (r *ContactRepository) ListAll(ctx context.Context) ([]model.Contact, error) {
	return r.listWhere(ctx, "")
}

func (r *ContactRepository) ListByCompany(ctx context.Context, companyID string) ([]model.Contact, error) {
	return r.listWhere(ctx, "WHERE company_id=$1", companyID)
}

func (r *ContactRepository) ListEligible(ctx context.Context) ([]model.Contact, error) {
	return r.listWhere(ctx, "WHERE invite_accepted=true AND response='none' AND auto_removed=false")
}

// SetInviteAccepted records the acknowledgment instant; a nil acceptedAt
// retracts the acknowledgment and clears the timestamp. Accepting is a
// conditional write: an already accepted contact keeps its original
// timestamp, so the expiry window anchor never moves.
func (r *ContactRepository) SetInviteAccepted(ctx context.Context, id string, acceptedAt *time.Time) error {
	query := `UPDATE contacts SET invite_accepted=$1, invite_accepted_at=$2 WHERE id=$3`
	args := []any{acceptedAt != nil, acceptedAt, id}
	if acceptedAt != nil {
		query += ` AND invite_accepted=false`
	}
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return appErrors.NewStorageUnavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return appErrors.NewStorageUnavailable(err)
	}
	if n == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return appErrors.NewInvalidStateTransition("contact", id, "invite already acknowledged")
	}
	return nil
}

// SetResponse is a conditional write: it only succeeds while the contact has
// no recorded response, so two racing callers cannot both win.
func (r *ContactRepository) SetResponse(ctx context.Context, id string, response model.ResponseType) error {
	query := `UPDATE contacts SET response=$1 WHERE id=$2 AND response='none'`
	res, err := r.DB.ExecContext(ctx, query, response, id)
	if err != nil {
		return appErrors.NewStorageUnavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return appErrors.NewStorageUnavailable(err)
	}
	if n == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return appErrors.NewInvalidStateTransition("contact", id, "response already recorded")
	}
	return nil
}

func (r *ContactRepository) SetLastContactedAt(ctx context.Context, id string, at time.Time) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE contacts SET last_contacted_at=$1 WHERE id=$2`, at, id)
	if err != nil {
		return appErrors.NewStorageUnavailable(err)
	}
	return requireRow(res, func() error { return appErrors.NewContactNotFound(id) })
}

func (r *ContactRepository) AutoRemove(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, appErrors.NewStorageUnavailable(err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
        UPDATE contacts
        SET auto_removed=true, auto_removed_at=$1, auto_removed_reason=$2
        WHERE id=$3 AND auto_removed=false`, at, reason, id)
	if err != nil {
		return false, appErrors.NewStorageUnavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, appErrors.NewStorageUnavailable(err)
	}
	if n == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `
        UPDATE scheduled_touches SET status='cancelled'
        WHERE contact_id=$1 AND status='pending'`, id); err != nil {
		return false, appErrors.NewStorageUnavailable(err)
	}

	if err := tx.Commit(); err != nil {
		return false, appErrors.NewStorageUnavailable(err)
	}
	return true, nil
}

func (r *ContactRepository) CascadeAutoRemove(ctx context.Context, companyID, excludeContactID, reason string, at time.Time, actorID string) ([]model.Contact, error) {
	return r.removeBatch(ctx, `
        SELECT id FROM contacts
        WHERE company_id=$1 AND id<>$2 AND auto_removed=false AND response='none'
        FOR UPDATE`, []any{companyID, excludeContactID}, reason, at, actorID)
}

func (r *ContactRepository) AutoRemoveStale(ctx context.Context, cutoff, at time.Time, reason, actorID string) ([]model.Contact, error) {
	return r.removeBatch(ctx, `
        SELECT id FROM contacts
        WHERE invite_accepted=true AND response='none' AND auto_removed=false
          AND last_contacted_at IS NOT NULL AND last_contacted_at < $1
        FOR UPDATE`, []any{cutoff}, reason, at, actorID)
}

// removeBatch locks the qualifying rows, flips auto_removed, cancels
// pending touches and writes the auto_removed audit events as one
// transaction. Either the removals and their audit trail both land or
// neither does.
func (r *ContactRepository) removeBatch(ctx context.Context, selectQuery string, selectArgs []any, reason string, at time.Time, actorID string) ([]model.Contact, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, appErrors.NewStorageUnavailable(err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, selectQuery, selectArgs...)
	if err != nil {
		return nil, appErrors.NewStorageUnavailable(err)
	}
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, appErrors.NewStorageUnavailable(err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, appErrors.NewStorageUnavailable(err)
	}

	if len(ids) == 0 {
		return []model.Contact{}, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `
        UPDATE contacts
        SET auto_removed=true, auto_removed_at=$1, auto_removed_reason=$2
        WHERE id = ANY($3)`, at, reason, pq.Array(ids)); err != nil {
		return nil, appErrors.NewStorageUnavailable(err)
	}

	if _, err := tx.ExecContext(ctx, `
        UPDATE scheduled_touches SET status='cancelled'
        WHERE contact_id = ANY($1) AND status='pending'`, pq.Array(ids)); err != nil {
		return nil, appErrors.NewStorageUnavailable(err)
	}

	removed := []model.Contact{}
	crows, err := tx.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = ANY($1) ORDER BY id`, pq.Array(ids))
	if err != nil {
		return nil, appErrors.NewStorageUnavailable(err)
	}
	defer crows.Close()
	for crows.Next() {
		c, err := scanContact(crows)
		if err != nil {
			return nil, appErrors.NewStorageUnavailable(err)
		}
		removed = append(removed, *c)
	}
	if err := crows.Err(); err != nil {
		return nil, appErrors.NewStorageUnavailable(err)
	}
	crows.Close()

	for _, c := range removed {
		details := map[string]any{"reason": reason}
		if c.LastContactedAt != nil {
			details["last_contacted_at"] = c.LastContactedAt.Format(time.RFC3339)
		}
		payload, err := json.Marshal(details)
		if err != nil {
			return nil, appErrors.NewStorageUnavailable(err)
		}
		if _, err := tx.ExecContext(ctx, `
        INSERT INTO audit_events (id, contact_id, company_id, actor_id, kind, timestamp, details_json)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.NewString(), c.ID, c.CompanyID, actorID, model.AuditAutoRemoved, at, payload); err != nil {
			return nil, appErrors.NewStorageUnavailable(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.NewStorageUnavailable(err)
	}
	return removed, nil
}

func requireRow(res sql.Result, notFound func() error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return appErrors.NewStorageUnavailable(err)
	}
	if n == 0 {
		return notFound()
	}
	return nil
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)
