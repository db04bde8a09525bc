// internal/model/template.go
package model

import "time"

// Template is a reusable follow-up message body. FollowupDay ties a template
// to a sequence position (1..3); nil means the template is generic.
type Template struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Body        string    `db:"body" json:"body"`
	FollowupDay *int      `db:"followup_day" json:"followup_day,omitempty"`
	IsShared    bool      `db:"is_shared" json:"is_shared"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
