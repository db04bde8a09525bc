// internal/model/touch.go
package model

import "time"

// TouchStatus is the lifecycle state of a scheduled follow-up touch.
// A touch only ever leaves "pending"; sent, completed and cancelled are final.
type TouchStatus string

const (
	TouchPending   TouchStatus = "pending"
	TouchSent      TouchStatus = "sent"
	TouchCompleted TouchStatus = "completed"
	TouchCancelled TouchStatus = "cancelled"
)

type ScheduledTouch struct {
	ID               string      `db:"id" json:"id"`
	ContactID        string      `db:"contact_id" json:"contact_id"`
	CompanyID        string      `db:"company_id" json:"company_id"`
	SequencePosition int         `db:"sequence_position" json:"sequence_position"`
	ScheduledFor     time.Time   `db:"scheduled_for" json:"scheduled_for"`
	Status           TouchStatus `db:"status" json:"status"`
	SentAt           *time.Time  `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt        time.Time   `db:"created_at" json:"created_at"`
}
