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

func TestMarkTouchSentStampsLastContacted(t *testing.T) {
	f := newFixture(t)
	c := f.addContact(t, "acme", "Jane Doe")
	f.acknowledge(t, c.ID)
	f.clk.Advance(time.Hour)

	pending := f.pendingTouches(t, c.ID)
	sent, err := f.svc.MarkTouchSent(context.Background(), pending[0].ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, model.TouchSent, sent.Status)
	require.NotNil(t, sent.SentAt)
	assert.Equal(t, f.clk.Now(), *sent.SentAt)

	got := f.contact(t, c.ID)
	require.NotNil(t, got.LastContactedAt)
	assert.Equal(t, f.clk.Now(), *got.LastContactedAt)

	var event *model.AuditEvent
	for _, e := range f.auditEvents(t, c.ID) {
		if e.Kind == model.AuditMessageSent {
			ev := e
			event = &ev
		}
	}
	require.NotNil(t, event)
	assert.Equal(t, 1, event.Details["followup_day"])
	assert.Equal(t, testActor, event.ActorID)

	// The rest of the sequence stays pending.
	assert.Len(t, f.pendingTouches(t, c.ID), 2)
}

func TestMarkTouchCompleteSkipsLastContacted(t *testing.T) {
	f := newFixture(t)
	c := f.addContact(t, "acme", "Jane Doe")
	f.acknowledge(t, c.ID)

	pending := f.pendingTouches(t, c.ID)
	done, err := f.svc.MarkTouchComplete(context.Background(), pending[0].ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, model.TouchCompleted, done.Status)

	// Completing without sending does not count as contact, so the
	// staleness clock never starts.
	assert.Nil(t, f.contact(t, c.ID).LastContactedAt)
	assert.Contains(t, f.auditKinds(t, c.ID), model.AuditTouchCompleted)
}

func TestTouchTransitionsAreOneShot(t *testing.T) {
	f := newFixture(t)
	c := f.addContact(t, "acme", "Jane Doe")
	f.acknowledge(t, c.ID)
	pending := f.pendingTouches(t, c.ID)

	_, err := f.svc.MarkTouchSent(context.Background(), pending[0].ID, testActor)
	require.NoError(t, err)

	_, err = f.svc.MarkTouchSent(context.Background(), pending[0].ID, testActor)
	assert.True(t, appErrors.IsInvalidStateTransition(err))

	_, err = f.svc.MarkTouchComplete(context.Background(), pending[0].ID, testActor)
	assert.True(t, appErrors.IsInvalidStateTransition(err))

	_, err = f.svc.MarkTouchSent(context.Background(), "missing", testActor)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestSentTouchLeavesDueSet(t *testing.T) {
	f := newFixture(t)
	c := f.addContact(t, "acme", "Jane Doe")
	f.acknowledge(t, c.ID)

	due, err := f.svc.DueTouchesNow(context.Background())
	require.NoError(t, err)
	require.Len(t, due, 1)

	_, err = f.svc.MarkTouchSent(context.Background(), due[0].ID, testActor)
	require.NoError(t, err)

	due, err = f.svc.DueTouchesNow(context.Background())
	require.NoError(t, err)
	assert.Empty(t, due)
}
