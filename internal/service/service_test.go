package service_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/leadloop/outreach-backend/internal/clock"
	"github.com/leadloop/outreach-backend/internal/model"
	"github.com/leadloop/outreach-backend/internal/repository"
	"github.com/leadloop/outreach-backend/internal/service"
)

var baseTime = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

const testActor = "rep-1"

type fixture struct {
	store *repository.MemoryStore
	clk   *clock.Fixed
	svc   *service.OutreachService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	clk := clock.NewFixed(baseTime)
	log := logrus.New()
	log.SetOutput(io.Discard)
	svc := &service.OutreachService{
		ContactRepo:  store.Contacts(),
		TouchRepo:    store.Touches(),
		LeadRepo:     store.Leads(),
		AuditRepo:    store.Audit(),
		TemplateRepo: store.Templates(),
		Clock:        clk,
		Log:          log,
		Config:       service.DefaultConfig(),
	}
	return &fixture{store: store, clk: clk, svc: svc}
}

func (f *fixture) addContact(t *testing.T, companyID, name string) *model.Contact {
	t.Helper()
	c := &model.Contact{CompanyID: companyID, Name: name, CreatedAt: f.clk.Now()}
	require.NoError(t, f.store.Create(context.Background(), c))
	return c
}

func (f *fixture) addLead(t *testing.T, companyName string) *model.Lead {
	t.Helper()
	l := &model.Lead{CompanyName: companyName, CreatedBy: testActor, CreatedAt: f.clk.Now()}
	require.NoError(t, f.store.CreateLead(context.Background(), l))
	return l
}

func (f *fixture) acknowledge(t *testing.T, contactID string) {
	t.Helper()
	require.NoError(t, f.svc.SetInviteAccepted(context.Background(), contactID, true, testActor))
}

func (f *fixture) contact(t *testing.T, id string) *model.Contact {
	t.Helper()
	c, err := f.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	return c
}

func (f *fixture) touches(t *testing.T, contactID string) []model.ScheduledTouch {
	t.Helper()
	touches, err := f.store.ListByContact(context.Background(), contactID)
	require.NoError(t, err)
	return touches
}

func (f *fixture) pendingTouches(t *testing.T, contactID string) []model.ScheduledTouch {
	t.Helper()
	pending := []model.ScheduledTouch{}
	for _, touch := range f.touches(t, contactID) {
		if touch.Status == model.TouchPending {
			pending = append(pending, touch)
		}
	}
	return pending
}

// auditKinds returns the kinds of all events recorded for the contact.
func (f *fixture) auditKinds(t *testing.T, contactID string) []string {
	t.Helper()
	kinds := []string{}
	for _, e := range f.auditEvents(t, contactID) {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func (f *fixture) auditEvents(t *testing.T, contactID string) []model.AuditEvent {
	t.Helper()
	events, err := f.store.ListRecent(context.Background(), 1000)
	require.NoError(t, err)
	matched := []model.AuditEvent{}
	for _, e := range events {
		if e.ContactID == contactID {
			matched = append(matched, e)
		}
	}
	return matched
}
