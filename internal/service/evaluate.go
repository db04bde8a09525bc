// internal/service/evaluate.go
package service

import (
	"context"
	"sort"
	"time"

	"github.com/leadloop/outreach-backend/internal/model"
)

// IsQueueExpired reports whether the contact's follow-up window has closed:
// strictly later than window past the acknowledgment instant. Expiry is a
// view filter only; it never cancels anything by itself.
func IsQueueExpired(c *model.Contact, now time.Time, window time.Duration) bool {
	if c.InviteAcceptedAt == nil {
		return false
	}
	return now.After(c.InviteAcceptedAt.Add(window))
}

// dueNow filters pending touches down to the due set. A touch is due iff it
// is pending, its scheduled instant has passed, its contact is still in the
// queue, and the contact's window has not expired. Pure: no state is read
// beyond the arguments and nothing is mutated.
func dueNow(touches []model.ScheduledTouch, contacts map[string]*model.Contact, now time.Time, window time.Duration) []model.ScheduledTouch {
	due := []model.ScheduledTouch{}
	for _, t := range touches {
		if t.Status != model.TouchPending {
			continue
		}
		if t.ScheduledFor.After(now) {
			continue
		}
		c := contacts[t.ContactID]
		if c == nil || !c.InQueue() {
			continue
		}
		if IsQueueExpired(c, now, window) {
			continue
		}
		due = append(due, t)
	}
	sort.Slice(due, func(i, j int) bool {
		a, b := due[i], due[j]
		if !a.ScheduledFor.Equal(b.ScheduledFor) {
			return a.ScheduledFor.Before(b.ScheduledFor)
		}
		if a.ContactID != b.ContactID {
			return a.ContactID < b.ContactID
		}
		return a.SequencePosition < b.SequencePosition
	})
	return due
}

// DueTouchesNow returns the touches due at this instant, earliest first,
// ties broken by contact id. Read-only and safe to call concurrently with
// mutations.
func (s *OutreachService) DueTouchesNow(ctx context.Context) ([]model.ScheduledTouch, error) {
	touches, contacts, err := s.loadQueueState(ctx)
	if err != nil {
		return nil, err
	}
	return dueNow(touches, contacts, s.now(), s.cfg().QueueWindow), nil
}

// DueCount is DueTouchesNow reduced to a count, for badges and the refresh
// subscriber.
func (s *OutreachService) DueCount(ctx context.Context) (int, error) {
	due, err := s.DueTouchesNow(ctx)
	if err != nil {
		return 0, err
	}
	return len(due), nil
}

func (s *OutreachService) loadQueueState(ctx context.Context) ([]model.ScheduledTouch, map[string]*model.Contact, error) {
	touches, err := s.TouchRepo.ListPending(ctx)
	if err != nil {
		return nil, nil, err
	}
	eligible, err := s.ContactRepo.ListEligible(ctx)
	if err != nil {
		return nil, nil, err
	}
	contacts := make(map[string]*model.Contact, len(eligible))
	for i := range eligible {
		contacts[eligible[i].ID] = &eligible[i]
	}
	return touches, contacts, nil
}

// TodayTask is a due touch joined with its contact and company, the shape
// the "today" panel renders.
type TodayTask struct {
	TouchID      string    `json:"touch_id"`
	ContactID    string    `json:"contact_id"`
	ContactName  string    `json:"contact_name"`
	CompanyID    string    `json:"company_id"`
	CompanyName  string    `json:"company_name"`
	LinkedinURL  *string   `json:"linkedin_url,omitempty"`
	FollowupDay  int       `json:"followup_day"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

func (s *OutreachService) TodayTasks(ctx context.Context) ([]TodayTask, error) {
	touches, contacts, err := s.loadQueueState(ctx)
	if err != nil {
		return nil, err
	}
	due := dueNow(touches, contacts, s.now(), s.cfg().QueueWindow)
	if len(due) == 0 {
		return []TodayTask{}, nil
	}

	leads, err := s.LeadRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	companyNames := make(map[string]string, len(leads))
	for _, l := range leads {
		companyNames[l.ID] = l.CompanyName
	}

	tasks := make([]TodayTask, 0, len(due))
	for _, t := range due {
		c := contacts[t.ContactID]
		name := companyNames[t.CompanyID]
		if name == "" {
			name = "Unknown"
		}
		tasks = append(tasks, TodayTask{
			TouchID:      t.ID,
			ContactID:    c.ID,
			ContactName:  c.Name,
			CompanyID:    t.CompanyID,
			CompanyName:  name,
			LinkedinURL:  c.LinkedinURL,
			FollowupDay:  t.SequencePosition,
			ScheduledFor: t.ScheduledFor,
		})
	}
	return tasks, nil
}
