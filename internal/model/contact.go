// internal/model/contact.go
package model

import "time"

// ResponseType classifies how a contact replied to outreach.
type ResponseType string

const (
	ResponseNone     ResponseType = "none"
	ResponsePositive ResponseType = "positive"
	ResponseNegative ResponseType = "negative"
	ResponseNeutral  ResponseType = "neutral"
)

// Terminal reports whether the response ends the follow-up sequence.
func (r ResponseType) Terminal() bool {
	return r == ResponsePositive || r == ResponseNegative || r == ResponseNeutral
}

// Valid reports whether r is one of the recordable response types.
func (r ResponseType) Valid() bool {
	return r.Terminal()
}

type Contact struct {
	ID                string       `db:"id" json:"id"`
	CompanyID         string       `db:"company_id" json:"company_id"`
	Name              string       `db:"name" json:"name"`
	Email             *string      `db:"email" json:"email,omitempty"`
	Title             *string      `db:"title" json:"title,omitempty"`
	LinkedinURL       *string      `db:"linkedin_url" json:"linkedin_url,omitempty"`
	InviteAccepted    bool         `db:"invite_accepted" json:"invite_accepted"`
	InviteAcceptedAt  *time.Time   `db:"invite_accepted_at" json:"invite_accepted_at,omitempty"`
	LastContactedAt   *time.Time   `db:"last_contacted_at" json:"last_contacted_at,omitempty"`
	Response          ResponseType `db:"response" json:"response"`
	AutoRemoved       bool         `db:"auto_removed" json:"auto_removed"`
	AutoRemovedAt     *time.Time   `db:"auto_removed_at" json:"auto_removed_at,omitempty"`
	AutoRemovedReason *string      `db:"auto_removed_reason" json:"auto_removed_reason,omitempty"`
	CreatedAt         time.Time    `db:"created_at" json:"created_at"`
}

// InQueue reports whether the contact is still an active follow-up target:
// invite acknowledged, no terminal response, not removed.
func (c *Contact) InQueue() bool {
	return c.InviteAccepted && c.Response == ResponseNone && !c.AutoRemoved
}

// FirstName returns the leading word of the contact's name, used for
// template substitution.
func (c *Contact) FirstName() string {
	for i := 0; i < len(c.Name); i++ {
		if c.Name[i] == ' ' {
			return c.Name[:i]
		}
	}
	return c.Name
}
