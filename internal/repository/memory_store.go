package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/leadloop/outreach-backend/internal/errors"
	"github.com/leadloop/outreach-backend/internal/model"
)

// MemoryStore is an in-memory implementation of every repository interface,
// with the same conditional-write semantics as the Postgres repositories.
// It backs the service tests and local development without a database.
type MemoryStore struct {
	mu        sync.Mutex
	contacts  map[string]*model.Contact
	touches   map[string]*model.ScheduledTouch
	leads     map[string]*model.Lead
	templates map[string]*model.Template
	events    []model.AuditEvent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contacts:  make(map[string]*model.Contact),
		touches:   make(map[string]*model.ScheduledTouch),
		leads:     make(map[string]*model.Lead),
		templates: make(map[string]*model.Template),
	}
}

// ---------- contacts ----------

func (s *MemoryStore) Create(ctx context.Context, c *model.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Response == "" {
		c.Response = model.ResponseNone
	}
	cp := *c
	s.contacts[c.ID] = &cp
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (*model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok {
		return nil, appErrors.NewContactNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) listContacts(filter func(*model.Contact) bool) []model.Contact {
	out := []model.Contact{}
	for _, c := range s.contacts {
		if filter == nil || filter(c) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listContacts(nil), nil
}

func (s *MemoryStore) ListByCompany(ctx context.Context, companyID string) ([]model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listContacts(func(c *model.Contact) bool { return c.CompanyID == companyID }), nil
}

func (s *MemoryStore) ListEligible(ctx context.Context) ([]model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listContacts(func(c *model.Contact) bool { return c.InQueue() }), nil
}

func (s *MemoryStore) SetInviteAccepted(ctx context.Context, id string, acceptedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok {
		return appErrors.NewContactNotFound(id)
	}
	if acceptedAt != nil && c.InviteAccepted {
		return appErrors.NewInvalidStateTransition("contact", id, "invite already acknowledged")
	}
	c.InviteAccepted = acceptedAt != nil
	c.InviteAcceptedAt = acceptedAt
	return nil
}

func (s *MemoryStore) SetResponse(ctx context.Context, id string, response model.ResponseType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok {
		return appErrors.NewContactNotFound(id)
	}
	if c.Response != model.ResponseNone {
		return appErrors.NewInvalidStateTransition("contact", id, "response already recorded")
	}
	c.Response = response
	return nil
}

func (s *MemoryStore) SetLastContactedAt(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok {
		return appErrors.NewContactNotFound(id)
	}
	t := at
	c.LastContactedAt = &t
	return nil
}

func (s *MemoryStore) removeLocked(c *model.Contact, reason string, at time.Time) {
	t := at
	c.AutoRemoved = true
	c.AutoRemovedAt = &t
	c.AutoRemovedReason = &reason
	for _, touch := range s.touches {
		if touch.ContactID == c.ID && touch.Status == model.TouchPending {
			touch.Status = model.TouchCancelled
		}
	}
}

func (s *MemoryStore) AutoRemove(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok {
		return false, appErrors.NewContactNotFound(id)
	}
	if c.AutoRemoved {
		return false, nil
	}
	s.removeLocked(c, reason, at)
	return true, nil
}

func (s *MemoryStore) CascadeAutoRemove(ctx context.Context, companyID, excludeContactID, reason string, at time.Time, actorID string) ([]model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := []model.Contact{}
	for _, c := range s.contacts {
		if c.CompanyID != companyID || c.ID == excludeContactID {
			continue
		}
		if c.AutoRemoved || c.Response != model.ResponseNone {
			continue
		}
		s.removeLocked(c, reason, at)
		s.appendRemovalEventLocked(c, reason, at, actorID)
		removed = append(removed, *c)
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i].ID < removed[j].ID })
	return removed, nil
}

func (s *MemoryStore) AutoRemoveStale(ctx context.Context, cutoff, at time.Time, reason, actorID string) ([]model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := []model.Contact{}
	for _, c := range s.contacts {
		if !c.InQueue() || c.LastContactedAt == nil || !c.LastContactedAt.Before(cutoff) {
			continue
		}
		s.removeLocked(c, reason, at)
		s.appendRemovalEventLocked(c, reason, at, actorID)
		removed = append(removed, *c)
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i].ID < removed[j].ID })
	return removed, nil
}

// appendRemovalEventLocked records the audit event under the same lock as
// the removal, so a removed contact is never visible without its event.
func (s *MemoryStore) appendRemovalEventLocked(c *model.Contact, reason string, at time.Time, actorID string) {
	details := map[string]any{"reason": reason}
	if c.LastContactedAt != nil {
		details["last_contacted_at"] = c.LastContactedAt.Format(time.RFC3339)
	}
	s.events = append(s.events, model.AuditEvent{
		ID:        uuid.NewString(),
		ContactID: c.ID,
		CompanyID: c.CompanyID,
		ActorID:   actorID,
		Kind:      model.AuditAutoRemoved,
		Timestamp: at,
		Details:   details,
	})
}

// ---------- touches ----------

func (s *MemoryStore) CreatePendingIfAbsent(ctx context.Context, t *model.ScheduledTouch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.touches {
		if existing.ContactID == t.ContactID &&
			existing.SequencePosition == t.SequencePosition &&
			existing.Status == model.TouchPending {
			return false, nil
		}
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Status = model.TouchPending
	cp := *t
	s.touches[t.ID] = &cp
	return true, nil
}

func (s *MemoryStore) TouchByID(ctx context.Context, id string) (*model.ScheduledTouch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.touches[id]
	if !ok {
		return nil, appErrors.NewTouchNotFound(id)
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) listTouches(filter func(*model.ScheduledTouch) bool) []model.ScheduledTouch {
	out := []model.ScheduledTouch{}
	for _, t := range s.touches {
		if filter == nil || filter(t) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.ScheduledFor.Equal(b.ScheduledFor) {
			return a.ScheduledFor.Before(b.ScheduledFor)
		}
		if a.ContactID != b.ContactID {
			return a.ContactID < b.ContactID
		}
		return a.SequencePosition < b.SequencePosition
	})
	return out
}

func (s *MemoryStore) ListByContact(ctx context.Context, contactID string) ([]model.ScheduledTouch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listTouches(func(t *model.ScheduledTouch) bool { return t.ContactID == contactID }), nil
}

func (s *MemoryStore) ListPending(ctx context.Context) ([]model.ScheduledTouch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listTouches(func(t *model.ScheduledTouch) bool { return t.Status == model.TouchPending }), nil
}

func (s *MemoryStore) CancelPendingByContact(ctx context.Context, contactID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, t := range s.touches {
		if t.ContactID == contactID && t.Status == model.TouchPending {
			t.Status = model.TouchCancelled
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) transition(id string, to model.TouchStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.touches[id]
	if !ok {
		return appErrors.NewTouchNotFound(id)
	}
	if t.Status != model.TouchPending {
		return appErrors.NewInvalidStateTransition("touch", id, "touch is "+string(t.Status)+", not pending")
	}
	sent := at
	t.Status = to
	t.SentAt = &sent
	return nil
}

func (s *MemoryStore) MarkSent(ctx context.Context, id string, at time.Time) error {
	return s.transition(id, model.TouchSent, at)
}

func (s *MemoryStore) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	return s.transition(id, model.TouchCompleted, at)
}

func (s *MemoryStore) StatusCounts(ctx context.Context) (map[model.TouchStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[model.TouchStatus]int{
		model.TouchPending:   0,
		model.TouchSent:      0,
		model.TouchCompleted: 0,
		model.TouchCancelled: 0,
	}
	for _, t := range s.touches {
		counts[t.Status]++
	}
	return counts, nil
}

func (s *MemoryStore) PendingCounts(ctx context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[string]int{}
	for _, t := range s.touches {
		if t.Status == model.TouchPending {
			counts[t.ContactID]++
		}
	}
	return counts, nil
}

// ---------- leads ----------

func (s *MemoryStore) CreateLead(ctx context.Context, l *model.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	cp := *l
	s.leads[l.ID] = &cp
	return nil
}

func (s *MemoryStore) LeadByID(ctx context.Context, id string) (*model.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return nil, appErrors.NewLeadNotFound(id)
	}
	cp := *l
	return &cp, nil
}

func (s *MemoryStore) ListLeads(ctx context.Context) ([]model.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Lead{}
	for _, l := range s.leads {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) DeleteLead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leads[id]; !ok {
		return appErrors.NewLeadNotFound(id)
	}
	delete(s.leads, id)
	return nil
}

// ---------- templates ----------

func (s *MemoryStore) CreateTemplate(ctx context.Context, t *model.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	cp := *t
	s.templates[t.ID] = &cp
	return nil
}

func (s *MemoryStore) TemplateByID(ctx context.Context, id string) (*model.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[id]
	if !ok {
		return nil, appErrors.NewTemplateNotFound(id)
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) ListTemplates(ctx context.Context) ([]model.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Template{}
	for _, t := range s.templates {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) FindByDay(ctx context.Context, day int) (*model.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var match *model.Template
	for _, t := range s.templates {
		if t.FollowupDay != nil && *t.FollowupDay == day {
			if match == nil || t.CreatedAt.Before(match.CreatedAt) {
				match = t
			}
		}
	}
	if match == nil {
		return nil, nil
	}
	cp := *match
	return &cp, nil
}

func (s *MemoryStore) DeleteTemplate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[id]; !ok {
		return appErrors.NewTemplateNotFound(id)
	}
	delete(s.templates, id)
	return nil
}

// ---------- audit ----------

func (s *MemoryStore) Append(ctx context.Context, e *model.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	s.events = append(s.events, *e)
	return nil
}

func (s *MemoryStore) ListRecent(ctx context.Context, limit int) ([]model.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit < 1 {
		limit = 50
	}
	out := make([]model.AuditEvent, len(s.events))
	copy(out, s.events)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Typed views so one store can be passed everywhere a repository interface
// is expected.

type memoryContacts struct{ *MemoryStore }
type memoryTouches struct{ *MemoryStore }
type memoryLeads struct{ *MemoryStore }
type memoryTemplates struct{ *MemoryStore }
type memoryAudit struct{ *MemoryStore }

func (m memoryTouches) GetByID(ctx context.Context, id string) (*model.ScheduledTouch, error) {
	return m.TouchByID(ctx, id)
}

func (m memoryLeads) Create(ctx context.Context, l *model.Lead) error { return m.CreateLead(ctx, l) }
func (m memoryLeads) GetByID(ctx context.Context, id string) (*model.Lead, error) {
	return m.LeadByID(ctx, id)
}
func (m memoryLeads) ListAll(ctx context.Context) ([]model.Lead, error) { return m.ListLeads(ctx) }
func (m memoryLeads) Delete(ctx context.Context, id string) error       { return m.DeleteLead(ctx, id) }

func (m memoryTemplates) Create(ctx context.Context, t *model.Template) error {
	return m.CreateTemplate(ctx, t)
}
func (m memoryTemplates) GetByID(ctx context.Context, id string) (*model.Template, error) {
	return m.TemplateByID(ctx, id)
}
func (m memoryTemplates) ListAll(ctx context.Context) ([]model.Template, error) {
	return m.ListTemplates(ctx)
}
func (m memoryTemplates) Delete(ctx context.Context, id string) error {
	return m.DeleteTemplate(ctx, id)
}

func (s *MemoryStore) Contacts() ContactRepositoryInterface   { return memoryContacts{s} }
func (s *MemoryStore) Touches() TouchRepositoryInterface      { return memoryTouches{s} }
func (s *MemoryStore) Leads() LeadRepositoryInterface         { return memoryLeads{s} }
func (s *MemoryStore) Templates() TemplateRepositoryInterface { return memoryTemplates{s} }
func (s *MemoryStore) Audit() AuditRepositoryInterface        { return memoryAudit{s} }

var (
	_ ContactRepositoryInterface  = memoryContacts{}
	_ TouchRepositoryInterface    = memoryTouches{}
	_ LeadRepositoryInterface     = memoryLeads{}
	_ TemplateRepositoryInterface = memoryTemplates{}
	_ AuditRepositoryInterface    = memoryAudit{}
)
