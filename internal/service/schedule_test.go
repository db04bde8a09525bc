package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/leadloop/outreach-backend/internal/errors"
	"github.com/leadloop/outreach-backend/internal/model"
)

func TestAcknowledgeSchedulesThreeTouches(t *testing.T) {
	f := newFixture(t)
	c := f.addContact(t, "acme", "Jane Doe")

	f.acknowledge(t, c.ID)

	got := f.contact(t, c.ID)
	assert.True(t, got.InviteAccepted)
	require.NotNil(t, got.InviteAcceptedAt)
	assert.Equal(t, baseTime, *got.InviteAcceptedAt)

	touches := f.touches(t, c.ID)
	require.Len(t, touches, 3)
	for i, touch := range touches {
		assert.Equal(t, i+1, touch.SequencePosition)
		assert.Equal(t, model.TouchPending, touch.Status)
		assert.Equal(t, baseTime.Add(time.Duration(i)*24*time.Hour), touch.ScheduledFor)
	}

	assert.Equal(t, []string{model.AuditInviteAcknowledged}, f.auditKinds(t, c.ID))
}

func TestScheduleSequenceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	c := f.addContact(t, "acme", "Jane Doe")
	f.acknowledge(t, c.ID)

	// A second scheduling pass finds every position covered.
	created, err := f.svc.ScheduleSequence(context.Background(), c.ID, baseTime)
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Len(t, f.touches(t, c.ID), 3)
}

func TestFirstTouchOffsetShiftsSequence(t *testing.T) {
	f := newFixture(t)
	f.svc.Config.FirstTouchOffset = 2 * time.Hour
	c := f.addContact(t, "acme", "Jane Doe")

	f.acknowledge(t, c.ID)

	touches := f.touches(t, c.ID)
	require.Len(t, touches, 3)
	assert.Equal(t, baseTime.Add(2*time.Hour), touches[0].ScheduledFor)
	assert.Equal(t, baseTime.Add(26*time.Hour), touches[1].ScheduledFor)
	assert.Equal(t, baseTime.Add(50*time.Hour), touches[2].ScheduledFor)
}

func TestRetractAcknowledgmentCancelsPending(t *testing.T) {
	f := newFixture(t)
	c := f.addContact(t, "acme", "Jane Doe")
	f.acknowledge(t, c.ID)

	require.NoError(t, f.svc.SetInviteAccepted(context.Background(), c.ID, false, testActor))

	got := f.contact(t, c.ID)
	assert.False(t, got.InviteAccepted)
	assert.Nil(t, got.InviteAcceptedAt)

	for _, touch := range f.touches(t, c.ID) {
		assert.Equal(t, model.TouchCancelled, touch.Status)
	}
	assert.ElementsMatch(t,
		[]string{model.AuditInviteAcknowledged, model.AuditInviteRevoked},
		f.auditKinds(t, c.ID))
}

func TestReacknowledgeSchedulesFreshSequence(t *testing.T) {
	f := newFixture(t)
	c := f.addContact(t, "acme", "Jane Doe")
	f.acknowledge(t, c.ID)
	require.NoError(t, f.svc.SetInviteAccepted(context.Background(), c.ID, false, testActor))

	f.clk.Advance(48 * time.Hour)
	f.acknowledge(t, c.ID)

	pending := f.pendingTouches(t, c.ID)
	require.Len(t, pending, 3)
	assert.Equal(t, baseTime.Add(48*time.Hour), pending[0].ScheduledFor)

	// cancelled rows from the first acknowledgment are kept as history
	assert.Len(t, f.touches(t, c.ID), 6)
}

func TestSecondAcknowledgmentKeepsOriginalAnchor(t *testing.T) {
	f := newFixture(t)
	c := f.addContact(t, "acme", "Jane Doe")
	f.acknowledge(t, c.ID)

	// Well past the 72h window: the queue is expired for this contact.
	f.clk.Advance(96 * time.Hour)
	due, err := f.svc.DueTouchesNow(context.Background())
	require.NoError(t, err)
	require.Empty(t, due)

	// Acknowledging again must not restart the expiry window.
	err = f.svc.SetInviteAccepted(context.Background(), c.ID, true, testActor)
	assert.True(t, appErrors.IsInvalidStateTransition(err))

	got := f.contact(t, c.ID)
	require.NotNil(t, got.InviteAcceptedAt)
	assert.Equal(t, baseTime, *got.InviteAcceptedAt)

	due, err = f.svc.DueTouchesNow(context.Background())
	require.NoError(t, err)
	assert.Empty(t, due)

	// The write layer enforces the same rule for callers that skip the
	// service precondition.
	later := f.clk.Now()
	err = f.store.SetInviteAccepted(context.Background(), c.ID, &later)
	assert.True(t, appErrors.IsInvalidStateTransition(err))
	assert.Equal(t, baseTime, *f.contact(t, c.ID).InviteAcceptedAt)
}

func TestScheduleSequenceRequiresAcknowledgment(t *testing.T) {
	f := newFixture(t)
	c := f.addContact(t, "acme", "Jane Doe")

	_, err := f.svc.ScheduleSequence(context.Background(), c.ID, baseTime)
	assert.True(t, appErrors.IsInvalidStateTransition(err))

	_, err = f.svc.ScheduleSequence(context.Background(), "missing", baseTime)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestScheduleSequenceRejectsRespondedContact(t *testing.T) {
	f := newFixture(t)
	c := f.addContact(t, "acme", "Jane Doe")
	f.acknowledge(t, c.ID)
	require.NoError(t, f.svc.RecordResponse(context.Background(), c.ID, model.ResponsePositive, testActor))

	_, err := f.svc.ScheduleSequence(context.Background(), c.ID, baseTime)
	assert.True(t, appErrors.IsInvalidStateTransition(err))
}

func TestReconcileBackfillsMissingTouches(t *testing.T) {
	f := newFixture(t)
	c := f.addContact(t, "acme", "Jane Doe")
	f.acknowledge(t, c.ID)

	// Simulate a partial write: every touch gone except a cancelled trail.
	_, err := f.store.CancelPendingByContact(context.Background(), c.ID)
	require.NoError(t, err)

	created, err := f.svc.ReconcileSchedules(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	// Backfilled touches are anchored at the original acknowledgment, not
	// at reconcile time.
	pending := f.pendingTouches(t, c.ID)
	require.Len(t, pending, 3)
	assert.Equal(t, baseTime, pending[0].ScheduledFor)
	assert.Equal(t, baseTime.Add(24*time.Hour), pending[1].ScheduledFor)
	assert.Equal(t, baseTime.Add(48*time.Hour), pending[2].ScheduledFor)
}

func TestReconcileSkipsCoveredContacts(t *testing.T) {
	f := newFixture(t)
	c := f.addContact(t, "acme", "Jane Doe")
	f.acknowledge(t, c.ID)

	created, err := f.svc.ReconcileSchedules(context.Background())
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Len(t, f.touches(t, c.ID), 3)
}
