// internal/model/audit_event.go
package model

import "time"

// Audit event kinds. The audit log is append-only; events are never updated
// or deleted once written.
const (
	AuditInviteAcknowledged = "invite_acknowledged"
	AuditInviteRevoked      = "invite_revoked"
	AuditMessageSent        = "message_sent"
	AuditTouchCompleted     = "touch_completed"
	AuditResponseReceived   = "response_received"
	AuditNegativeResponse   = "negative_response"
	AuditAutoRemoved        = "auto_removed"
	AuditRemovedFromQueue   = "removed_from_queue"
)

// SystemActorID is recorded for events produced by background jobs rather
// than a user action.
const SystemActorID = "system"

type AuditEvent struct {
	ID        string         `db:"id" json:"id"`
	ContactID string         `db:"contact_id" json:"contact_id"`
	CompanyID string         `db:"company_id" json:"company_id"`
	ActorID   string         `db:"actor_id" json:"actor_id"`
	Kind      string         `db:"kind" json:"kind"`
	Timestamp time.Time      `db:"timestamp" json:"timestamp"`
	Details   map[string]any `db:"details_json" json:"details,omitempty"`
}
