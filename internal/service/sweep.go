// internal/service/sweep.go
package service

import (
	"context"

	appErrors "github.com/leadloop/outreach-backend/internal/errors"
	"github.com/leadloop/outreach-backend/internal/model"
)

// StaleRemovalReason is recorded on contacts removed by the sweep.
const StaleRemovalReason = "No response after 3 days"

// SweepStaleContacts auto-removes contacts that stayed silent for longer
// than the staleness window after they were last contacted. Never-contacted
// contacts are not eligible: the staleness clock only starts at the first
// sent touch. Idempotent; re-running removes nothing new and re-fires no
// audit events. Returns the contacts removed by this call.
func (s *OutreachService) SweepStaleContacts(ctx context.Context) ([]model.Contact, error) {
	now := s.now()
	cutoff := now.Add(-s.cfg().StaleAfter)

	// Each removal's auto_removed audit event lands in the same repository
	// transaction, attributed to the system actor.
	removed, err := s.ContactRepo.AutoRemoveStale(ctx, cutoff, now, StaleRemovalReason, model.SystemActorID)
	if err != nil && appErrors.IsConcurrentModification(err) {
		removed, err = s.ContactRepo.AutoRemoveStale(ctx, cutoff, now, StaleRemovalReason, model.SystemActorID)
	}
	if err != nil {
		return nil, err
	}

	for _, c := range removed {
		s.publishRefresh(c.ID)
	}

	if len(removed) > 0 {
		s.logger().WithField("removed", len(removed)).Info("staleness sweep removed contacts")
	}
	return removed, nil
}
