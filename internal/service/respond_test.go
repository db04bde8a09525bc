package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/leadloop/outreach-backend/internal/errors"
	"github.com/leadloop/outreach-backend/internal/model"
	"github.com/leadloop/outreach-backend/internal/repository"
	"github.com/leadloop/outreach-backend/internal/service"
)

// rejectKindAudit refuses to append events of one kind, delegating the rest.
type rejectKindAudit struct {
	repository.AuditRepositoryInterface
	kind string
}

func (r *rejectKindAudit) Append(ctx context.Context, e *model.AuditEvent) error {
	if e.Kind == r.kind {
		return appErrors.NewStorageUnavailable(errors.New("append rejected"))
	}
	return r.AuditRepositoryInterface.Append(ctx, e)
}

// flakyContacts fails batch removals a configured number of times with a
// concurrency conflict before delegating.
type flakyContacts struct {
	repository.ContactRepositoryInterface
	cascadeFailures int
	staleFailures   int
	cascadeCalls    int
	staleCalls      int
}

func (r *flakyContacts) CascadeAutoRemove(ctx context.Context, companyID, excludeContactID, reason string, at time.Time, actorID string) ([]model.Contact, error) {
	r.cascadeCalls++
	if r.cascadeFailures > 0 {
		r.cascadeFailures--
		return nil, appErrors.NewConcurrentModification("contact", companyID)
	}
	return r.ContactRepositoryInterface.CascadeAutoRemove(ctx, companyID, excludeContactID, reason, at, actorID)
}

func (r *flakyContacts) AutoRemoveStale(ctx context.Context, cutoff, at time.Time, reason, actorID string) ([]model.Contact, error) {
	r.staleCalls++
	if r.staleFailures > 0 {
		r.staleFailures--
		return nil, appErrors.NewConcurrentModification("contact", "sweep")
	}
	return r.ContactRepositoryInterface.AutoRemoveStale(ctx, cutoff, at, reason, actorID)
}

func TestPositiveResponseCancelsOwnTouchesOnly(t *testing.T) {
	f := newFixture(t)
	a := f.addContact(t, "acme", "Jane Doe")
	b := f.addContact(t, "acme", "John Roe")
	f.acknowledge(t, a.ID)
	f.acknowledge(t, b.ID)

	require.NoError(t, f.svc.RecordResponse(context.Background(), a.ID, model.ResponsePositive, testActor))

	got := f.contact(t, a.ID)
	assert.Equal(t, model.ResponsePositive, got.Response)
	assert.False(t, got.AutoRemoved)
	assert.Empty(t, f.pendingTouches(t, a.ID))

	// The sibling is untouched.
	assert.False(t, f.contact(t, b.ID).AutoRemoved)
	assert.Len(t, f.pendingTouches(t, b.ID), 3)

	assert.Contains(t, f.auditKinds(t, a.ID), model.AuditResponseReceived)
	assert.NotContains(t, f.auditKinds(t, a.ID), model.AuditNegativeResponse)
}

func TestNegativeResponseCascadesAcrossCompany(t *testing.T) {
	f := newFixture(t)
	a := f.addContact(t, "acme", "Jane Doe")
	b := f.addContact(t, "acme", "John Roe")
	c := f.addContact(t, "acme", "Ada Lovelace")
	other := f.addContact(t, "globex", "Grace Hopper")
	for _, id := range []string{a.ID, b.ID, c.ID, other.ID} {
		f.acknowledge(t, id)
	}

	require.NoError(t, f.svc.RecordResponse(context.Background(), a.ID, model.ResponseNegative, testActor))

	// The responder keeps its response and is not itself auto-removed.
	got := f.contact(t, a.ID)
	assert.Equal(t, model.ResponseNegative, got.Response)
	assert.False(t, got.AutoRemoved)
	assert.Empty(t, f.pendingTouches(t, a.ID))

	// Both siblings are silenced with the responder named in the reason.
	for _, sibling := range []string{b.ID, c.ID} {
		s := f.contact(t, sibling)
		assert.True(t, s.AutoRemoved)
		require.NotNil(t, s.AutoRemovedReason)
		assert.Equal(t, "Negative response from Jane Doe", *s.AutoRemovedReason)
		assert.Empty(t, f.pendingTouches(t, sibling))
		assert.Contains(t, f.auditKinds(t, sibling), model.AuditAutoRemoved)
	}

	// Contacts at other companies are untouched.
	assert.False(t, f.contact(t, other.ID).AutoRemoved)
	assert.Len(t, f.pendingTouches(t, other.ID), 3)

	assert.Contains(t, f.auditKinds(t, a.ID), model.AuditNegativeResponse)
}

func TestCascadeSkipsSiblingsWithOwnResponse(t *testing.T) {
	f := newFixture(t)
	a := f.addContact(t, "acme", "Jane Doe")
	b := f.addContact(t, "acme", "John Roe")
	f.acknowledge(t, a.ID)
	f.acknowledge(t, b.ID)

	require.NoError(t, f.svc.RecordResponse(context.Background(), b.ID, model.ResponsePositive, testActor))
	require.NoError(t, f.svc.RecordResponse(context.Background(), a.ID, model.ResponseNegative, testActor))

	// b already responded; the cascade leaves its state alone.
	got := f.contact(t, b.ID)
	assert.False(t, got.AutoRemoved)
	assert.Equal(t, model.ResponsePositive, got.Response)
}

func TestRecordResponseRejectsSecondResponse(t *testing.T) {
	f := newFixture(t)
	c := f.addContact(t, "acme", "Jane Doe")
	f.acknowledge(t, c.ID)

	require.NoError(t, f.svc.RecordResponse(context.Background(), c.ID, model.ResponseNeutral, testActor))
	err := f.svc.RecordResponse(context.Background(), c.ID, model.ResponsePositive, testActor)
	assert.True(t, appErrors.IsInvalidStateTransition(err))
	assert.Equal(t, model.ResponseNeutral, f.contact(t, c.ID).Response)
}

func TestRecordResponseRejectsUnknownType(t *testing.T) {
	f := newFixture(t)
	c := f.addContact(t, "acme", "Jane Doe")
	f.acknowledge(t, c.ID)

	err := f.svc.RecordResponse(context.Background(), c.ID, model.ResponseType("maybe"), testActor)
	assert.Error(t, err)

	err = f.svc.RecordResponse(context.Background(), c.ID, model.ResponseNone, testActor)
	assert.Error(t, err)
}

func TestManualRemoval(t *testing.T) {
	f := newFixture(t)
	a := f.addContact(t, "acme", "Jane Doe")
	b := f.addContact(t, "acme", "John Roe")
	f.acknowledge(t, a.ID)
	f.acknowledge(t, b.ID)

	require.NoError(t, f.svc.RemoveFromQueue(context.Background(), a.ID, testActor))

	got := f.contact(t, a.ID)
	assert.True(t, got.AutoRemoved)
	require.NotNil(t, got.AutoRemovedReason)
	assert.Equal(t, service.ManualRemovalReason, *got.AutoRemovedReason)
	assert.Empty(t, f.pendingTouches(t, a.ID))
	assert.Contains(t, f.auditKinds(t, a.ID), model.AuditRemovedFromQueue)

	// Manual removal never cascades.
	assert.False(t, f.contact(t, b.ID).AutoRemoved)

	err := f.svc.RemoveFromQueue(context.Background(), a.ID, testActor)
	assert.True(t, appErrors.IsInvalidStateTransition(err))
}

func TestCascadeAuditLandsWithRemoval(t *testing.T) {
	f := newFixture(t)
	a := f.addContact(t, "acme", "Jane Doe")
	b := f.addContact(t, "acme", "John Roe")
	f.acknowledge(t, a.ID)
	f.acknowledge(t, b.ID)

	// Sibling events are written inside the removal transaction, so an
	// unavailable audit append path cannot leave a removed sibling without
	// its auto_removed event.
	f.svc.AuditRepo = &rejectKindAudit{
		AuditRepositoryInterface: f.store.Audit(),
		kind:                     model.AuditAutoRemoved,
	}

	require.NoError(t, f.svc.RecordResponse(context.Background(), a.ID, model.ResponseNegative, testActor))

	sibling := f.contact(t, b.ID)
	assert.True(t, sibling.AutoRemoved)

	events := []model.AuditEvent{}
	for _, e := range f.auditEvents(t, b.ID) {
		if e.Kind == model.AuditAutoRemoved {
			events = append(events, e)
		}
	}
	require.Len(t, events, 1)
	assert.Equal(t, testActor, events[0].ActorID)
	assert.Equal(t, "Negative response from Jane Doe", events[0].Details["reason"])
}

func TestNegativeCascadeRetriesAfterConcurrentWrite(t *testing.T) {
	f := newFixture(t)
	a := f.addContact(t, "acme", "Jane Doe")
	b := f.addContact(t, "acme", "John Roe")
	f.acknowledge(t, a.ID)
	f.acknowledge(t, b.ID)

	flaky := &flakyContacts{ContactRepositoryInterface: f.store.Contacts(), cascadeFailures: 1}
	f.svc.ContactRepo = flaky

	require.NoError(t, f.svc.RecordResponse(context.Background(), a.ID, model.ResponseNegative, testActor))
	assert.Equal(t, 2, flaky.cascadeCalls)

	sibling := f.contact(t, b.ID)
	assert.True(t, sibling.AutoRemoved)
	assert.Empty(t, f.pendingTouches(t, b.ID))

	events := 0
	for _, e := range f.auditEvents(t, b.ID) {
		if e.Kind == model.AuditAutoRemoved {
			events++
		}
	}
	assert.Equal(t, 1, events)
}

func TestNegativeCascadeGivesUpAfterSecondConflict(t *testing.T) {
	f := newFixture(t)
	a := f.addContact(t, "acme", "Jane Doe")
	b := f.addContact(t, "acme", "John Roe")
	f.acknowledge(t, a.ID)
	f.acknowledge(t, b.ID)

	flaky := &flakyContacts{ContactRepositoryInterface: f.store.Contacts(), cascadeFailures: 2}
	f.svc.ContactRepo = flaky

	err := f.svc.RecordResponse(context.Background(), a.ID, model.ResponseNegative, testActor)
	assert.True(t, appErrors.IsConcurrentModification(err))
	assert.Equal(t, 2, flaky.cascadeCalls)
	assert.False(t, f.contact(t, b.ID).AutoRemoved)
}
