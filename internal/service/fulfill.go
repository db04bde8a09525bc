// internal/service/fulfill.go
package service

import (
	"context"

	"github.com/leadloop/outreach-backend/internal/model"
	"github.com/leadloop/outreach-backend/internal/queue"
)

// MarkTouchSent records that the follow-up message for this touch went out.
// It also bumps the contact's last_contacted_at, which is what keeps the
// contact out of the staleness sweep. Invoking it on a non-pending touch
// returns ErrInvalidStateTransition so duplicate UI actions are detectable.
func (s *OutreachService) MarkTouchSent(ctx context.Context, touchID, actorID string) (*model.ScheduledTouch, error) {
	touch, err := s.TouchRepo.GetByID(ctx, touchID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.TouchRepo.MarkSent(ctx, touchID, now); err != nil {
		return nil, err
	}
	if err := s.ContactRepo.SetLastContactedAt(ctx, touch.ContactID, now); err != nil {
		return nil, err
	}
	if err := s.audit(ctx, touch.ContactID, touch.CompanyID, actorID, model.AuditMessageSent, map[string]any{
		"followup_day": touch.SequencePosition,
	}); err != nil {
		return nil, err
	}

	touch.Status = model.TouchSent
	touch.SentAt = &now

	s.publishRefresh(touch.ContactID)
	if s.Queue != nil {
		if err := s.Queue.Publish(queue.TopicFollowupSent, touch.ID); err != nil {
			s.logger().WithError(err).WithField("touch_id", touch.ID).
				Warn("failed to publish follow-up sent event")
		}
	}
	return touch, nil
}

// MarkTouchComplete is the operator override: stop tracking the touch
// without sending. It deliberately does NOT bump last_contacted_at, so the
// staleness clock keeps running. Completing is not contacting.
func (s *OutreachService) MarkTouchComplete(ctx context.Context, touchID, actorID string) (*model.ScheduledTouch, error) {
	touch, err := s.TouchRepo.GetByID(ctx, touchID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.TouchRepo.MarkCompleted(ctx, touchID, now); err != nil {
		return nil, err
	}
	if err := s.audit(ctx, touch.ContactID, touch.CompanyID, actorID, model.AuditTouchCompleted, map[string]any{
		"followup_day": touch.SequencePosition,
	}); err != nil {
		return nil, err
	}

	touch.Status = model.TouchCompleted
	touch.SentAt = &now

	s.publishRefresh(touch.ContactID)
	return touch, nil
}
