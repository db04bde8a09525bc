// internal/service/schedule.go
package service

import (
	"context"
	"time"

	appErrors "github.com/leadloop/outreach-backend/internal/errors"
	"github.com/leadloop/outreach-backend/internal/model"
)

// ScheduleSequence creates the follow-up touches for a contact anchored at
// the acknowledgment instant: position k is due at
// acknowledgedAt + firstTouchOffset + (k-1) * touchInterval. Positions that
// already have a pending touch are skipped, so calling this twice never
// produces duplicates. Returns the touches actually created.
func (s *OutreachService) ScheduleSequence(ctx context.Context, contactID string, acknowledgedAt time.Time) ([]model.ScheduledTouch, error) {
	contact, err := s.ContactRepo.GetByID(ctx, contactID)
	if err != nil {
		return nil, err
	}
	if !contact.InviteAccepted {
		return nil, appErrors.NewInvalidStateTransition("contact", contactID, "invite not acknowledged")
	}
	if contact.Response != model.ResponseNone {
		return nil, appErrors.NewInvalidStateTransition("contact", contactID, "response already recorded")
	}
	if contact.AutoRemoved {
		return nil, appErrors.NewInvalidStateTransition("contact", contactID, "contact removed from queue")
	}

	cfg := s.cfg()
	created := []model.ScheduledTouch{}
	for pos := 1; pos <= cfg.SequenceLength; pos++ {
		t := model.ScheduledTouch{
			ContactID:        contact.ID,
			CompanyID:        contact.CompanyID,
			SequencePosition: pos,
			ScheduledFor:     acknowledgedAt.Add(cfg.FirstTouchOffset + time.Duration(pos-1)*cfg.TouchInterval),
		}
		ok, err := s.TouchRepo.CreatePendingIfAbsent(ctx, &t)
		if err != nil {
			if appErrors.IsConcurrentModification(err) {
				// another caller won the insert; the position is covered
				continue
			}
			return nil, err
		}
		if ok {
			created = append(created, t)
		}
	}

	s.logger().WithFields(map[string]any{
		"contact_id": contact.ID,
		"company_id": contact.CompanyID,
		"created":    len(created),
	}).Info("follow-up sequence scheduled")
	return created, nil
}

// SetInviteAccepted records or retracts the invite acknowledgment. Accepting
// schedules the follow-up sequence anchored at "now"; retracting cancels all
// of the contact's pending touches without deleting historical rows.
func (s *OutreachService) SetInviteAccepted(ctx context.Context, contactID string, accepted bool, actorID string) error {
	contact, err := s.ContactRepo.GetByID(ctx, contactID)
	if err != nil {
		return err
	}

	now := s.now()
	if accepted {
		// A second acknowledgment must not move the anchor: the expiry
		// window stays measured from the original acceptance.
		if contact.InviteAccepted {
			return appErrors.NewInvalidStateTransition("contact", contactID, "invite already acknowledged")
		}
		at := now
		if err := s.ContactRepo.SetInviteAccepted(ctx, contactID, &at); err != nil {
			return err
		}
		if _, err := s.ScheduleSequence(ctx, contactID, at); err != nil {
			return err
		}
		if err := s.audit(ctx, contact.ID, contact.CompanyID, actorID, model.AuditInviteAcknowledged, map[string]any{
			"invite_accepted_at": at.Format(time.RFC3339),
		}); err != nil {
			return err
		}
	} else {
		if err := s.ContactRepo.SetInviteAccepted(ctx, contactID, nil); err != nil {
			return err
		}
		cancelled, err := s.TouchRepo.CancelPendingByContact(ctx, contactID)
		if err != nil {
			return err
		}
		if err := s.audit(ctx, contact.ID, contact.CompanyID, actorID, model.AuditInviteRevoked, map[string]any{
			"cancelled_touches": cancelled,
		}); err != nil {
			return err
		}
	}

	s.publishRefresh(contactID)
	return nil
}

// ReconcileSchedules backfills missing sequence positions for contacts that
// should have an active schedule. A contact counts as covered once it has at
// least two non-cancelled touches; below that, the gaps are recreated
// anchored at the original acknowledgment instant. Run periodically as a
// self-healing pass.
func (s *OutreachService) ReconcileSchedules(ctx context.Context) (int, error) {
	contacts, err := s.ContactRepo.ListEligible(ctx)
	if err != nil {
		return 0, err
	}

	cfg := s.cfg()
	created := 0
	for _, c := range contacts {
		if c.InviteAcceptedAt == nil {
			continue
		}
		touches, err := s.TouchRepo.ListByContact(ctx, c.ID)
		if err != nil {
			return created, err
		}
		covered := map[int]bool{}
		live := 0
		for _, t := range touches {
			if t.Status != model.TouchCancelled {
				covered[t.SequencePosition] = true
				live++
			}
		}
		if live >= 2 {
			continue
		}
		for pos := 1; pos <= cfg.SequenceLength; pos++ {
			if covered[pos] {
				continue
			}
			t := model.ScheduledTouch{
				ContactID:        c.ID,
				CompanyID:        c.CompanyID,
				SequencePosition: pos,
				ScheduledFor:     c.InviteAcceptedAt.Add(cfg.FirstTouchOffset + time.Duration(pos-1)*cfg.TouchInterval),
			}
			ok, err := s.TouchRepo.CreatePendingIfAbsent(ctx, &t)
			if err != nil {
				if appErrors.IsConcurrentModification(err) {
					continue
				}
				return created, err
			}
			if ok {
				created++
				s.logger().WithFields(map[string]any{
					"contact_id": c.ID,
					"position":   pos,
				}).Info("backfilled missing follow-up touch")
			}
		}
	}
	return created, nil
}
