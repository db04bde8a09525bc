// internal/model/lead.go
package model

import "time"

// Lead is a target company. Contacts reference their lead through company_id.
type Lead struct {
	ID             string    `db:"id" json:"id"`
	CompanyName    string    `db:"company_name" json:"company_name"`
	CompanyWebsite *string   `db:"company_website" json:"company_website,omitempty"`
	Campaign       *string   `db:"campaign" json:"campaign,omitempty"`
	Source         *string   `db:"source" json:"source,omitempty"`
	Notes          *string   `db:"notes" json:"notes,omitempty"`
	CreatedBy      string    `db:"created_by" json:"created_by"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
