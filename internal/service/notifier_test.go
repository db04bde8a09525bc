package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadloop/outreach-backend/internal/service"
)

func TestBuildReminder(t *testing.T) {
	f := newFixture(t)
	lead := f.addLead(t, "Acme Corp")
	c := f.addContact(t, lead.ID, "Jane Doe")
	f.acknowledge(t, c.ID)
	pending := f.pendingTouches(t, c.ID)

	reminder, err := f.svc.BuildReminder(context.Background(), pending[1].ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, reminder.ContactID)
	assert.Equal(t, "Jane Doe", reminder.ContactName)
	assert.Equal(t, "Acme Corp", reminder.CompanyName)
	assert.Equal(t, 2, reminder.FollowupDay)
	assert.Contains(t, reminder.Message, "Hi Jane")
	assert.Contains(t, reminder.Message, "Acme Corp")
}

func TestNotifierDeliversReminders(t *testing.T) {
	f := newFixture(t)
	c := f.addContact(t, "acme", "Jane Doe")
	f.acknowledge(t, c.ID)
	pending := f.pendingTouches(t, c.ID)

	jobs := make(chan string, 3)
	var mu sync.Mutex
	delivered := []service.Reminder{}

	notifier := service.NewNotifier(f.svc, jobs, func(r service.Reminder) error {
		mu.Lock()
		delivered = append(delivered, r)
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		notifier.Start()
	}()

	jobs <- pending[0].ID
	jobs <- "missing" // bad job is logged and skipped
	jobs <- pending[2].ID
	close(jobs)
	wg.Wait()

	require.Len(t, delivered, 2)
	assert.Equal(t, pending[0].ID, delivered[0].TouchID)
	assert.Equal(t, pending[2].ID, delivered[1].TouchID)
	assert.Equal(t, "Unknown", delivered[0].CompanyName)
}
