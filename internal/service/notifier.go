package service

import (
	"context"

	appErrors "github.com/leadloop/outreach-backend/internal/errors"
)

// Reminder is the rendered follow-up handed to a delivery channel.
type Reminder struct {
	TouchID     string `json:"touch_id"`
	ContactID   string `json:"contact_id"`
	ContactName string `json:"contact_name"`
	CompanyName string `json:"company_name"`
	FollowupDay int    `json:"followup_day"`
	Message     string `json:"message"`
}

// BuildReminder assembles the reminder for a touch, rendering the message
// body for the touch's follow-up day.
func (s *OutreachService) BuildReminder(ctx context.Context, touchID string) (*Reminder, error) {
	touch, err := s.TouchRepo.GetByID(ctx, touchID)
	if err != nil {
		return nil, err
	}
	contact, err := s.ContactRepo.GetByID(ctx, touch.ContactID)
	if err != nil {
		return nil, err
	}

	companyName := "Unknown"
	if s.LeadRepo != nil {
		lead, err := s.LeadRepo.GetByID(ctx, touch.CompanyID)
		if err == nil {
			companyName = lead.CompanyName
		} else if !appErrors.IsNotFound(err) {
			return nil, err
		}
	}

	message, _, err := s.RenderFollowup(ctx, contact, companyName, touch.SequencePosition)
	if err != nil {
		return nil, err
	}

	return &Reminder{
		TouchID:     touch.ID,
		ContactID:   contact.ID,
		ContactName: contact.Name,
		CompanyName: companyName,
		FollowupDay: touch.SequencePosition,
		Message:     message,
	}, nil
}

// Notifier processes follow-up reminder jobs
type Notifier struct {
	Service *OutreachService
	JobChan <-chan string
	Deliver func(Reminder) error
}

// Constructor
func NewNotifier(svc *OutreachService, jobChan <-chan string, deliver func(Reminder) error) *Notifier {
	return &Notifier{
		Service: svc,
		JobChan: jobChan,
		Deliver: deliver,
	}
}

// Process builds and delivers the reminder for a single touch.
func (n *Notifier) Process(ctx context.Context, touchID string) error {
	reminder, err := n.Service.BuildReminder(ctx, touchID)
	if err != nil {
		return err
	}
	return n.Deliver(*reminder)
}

// Start begins processing jobs. It returns when JobChan is closed.
func (n *Notifier) Start() {
	log := n.Service.logger()
	for touchID := range n.JobChan {
		if err := n.Process(context.Background(), touchID); err != nil {
			log.WithError(err).WithField("touch_id", touchID).Error("failed to deliver reminder")
		}
	}
}
