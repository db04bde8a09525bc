// internal/service/respond.go
package service

import (
	"context"
	"fmt"

	appErrors "github.com/leadloop/outreach-backend/internal/errors"
	"github.com/leadloop/outreach-backend/internal/model"
)

// ManualRemovalReason is recorded on contacts removed by an operator.
const ManualRemovalReason = "Manually removed from queue"

// RecordResponse applies a terminal response to a contact and cancels its
// pending touches. A negative response additionally silences the whole
// account: every other contact at the company that has not already responded
// or been removed is auto-removed in one transaction.
func (s *OutreachService) RecordResponse(ctx context.Context, contactID string, response model.ResponseType, actorID string) error {
	if !response.Valid() {
		return fmt.Errorf("invalid response type: %q", response)
	}

	contact, err := s.ContactRepo.GetByID(ctx, contactID)
	if err != nil {
		return err
	}
	if contact.Response != model.ResponseNone {
		return appErrors.NewInvalidStateTransition("contact", contactID, "response already recorded")
	}

	now := s.now()
	if err := s.ContactRepo.SetResponse(ctx, contactID, response); err != nil {
		return err
	}
	if _, err := s.TouchRepo.CancelPendingByContact(ctx, contactID); err != nil {
		return err
	}

	kind := model.AuditResponseReceived
	if response == model.ResponseNegative {
		kind = model.AuditNegativeResponse
	}
	if err := s.audit(ctx, contact.ID, contact.CompanyID, actorID, kind, map[string]any{
		"response_type": string(response),
	}); err != nil {
		return err
	}

	if response == model.ResponseNegative {
		// The cascade writes each sibling's auto_removed audit event in the
		// same transaction as the removal.
		reason := fmt.Sprintf("Negative response from %s", contact.Name)
		removed, err := s.ContactRepo.CascadeAutoRemove(ctx, contact.CompanyID, contact.ID, reason, now, actorID)
		if err != nil && appErrors.IsConcurrentModification(err) {
			removed, err = s.ContactRepo.CascadeAutoRemove(ctx, contact.CompanyID, contact.ID, reason, now, actorID)
		}
		if err != nil {
			return err
		}
		for _, sibling := range removed {
			s.publishRefresh(sibling.ID)
		}
		s.logger().WithFields(map[string]any{
			"contact_id": contact.ID,
			"company_id": contact.CompanyID,
			"removed":    len(removed),
		}).Info("negative response cascaded to company contacts")
	}

	s.publishRefresh(contactID)
	return nil
}

// RemoveFromQueue is the operator's manual removal: same cancellation effect
// as auto-removal but with its own reason, and no cascade to siblings.
func (s *OutreachService) RemoveFromQueue(ctx context.Context, contactID, actorID string) error {
	contact, err := s.ContactRepo.GetByID(ctx, contactID)
	if err != nil {
		return err
	}
	if contact.AutoRemoved {
		return appErrors.NewInvalidStateTransition("contact", contactID, "already removed from queue")
	}

	ok, err := s.ContactRepo.AutoRemove(ctx, contactID, ManualRemovalReason, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return appErrors.NewInvalidStateTransition("contact", contactID, "already removed from queue")
	}

	if err := s.audit(ctx, contact.ID, contact.CompanyID, actorID, model.AuditRemovedFromQueue, map[string]any{
		"reason": ManualRemovalReason,
	}); err != nil {
		return err
	}
	s.publishRefresh(contactID)
	return nil
}
