package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/leadloop/outreach-backend/internal/errors"
	"github.com/leadloop/outreach-backend/internal/model"
	"github.com/leadloop/outreach-backend/internal/service"
)

func TestRenderTemplate(t *testing.T) {
	out := service.RenderTemplate("Hi {firstName}, news about {company}!", map[string]string{
		"firstName": "Jane",
		"company":   "Acme",
	})
	assert.Equal(t, "Hi Jane, news about Acme!", out)

	// Unknown placeholders are left as-is.
	out = service.RenderTemplate("Hi {firstName} {nickname}", map[string]string{"firstName": "Jane"})
	assert.Equal(t, "Hi Jane {nickname}", out)
}

func TestRenderFollowupFallsBackToDefault(t *testing.T) {
	f := newFixture(t)
	c := &model.Contact{Name: "Jane Doe"}

	msg, tmpl, err := f.svc.RenderFollowup(context.Background(), c, "Acme", 1)
	require.NoError(t, err)
	assert.Nil(t, tmpl)
	assert.Equal(t, "Hi Jane, I wanted to follow up on my previous message regarding Acme...", msg)
}

func TestRenderFollowupUsesDayTemplate(t *testing.T) {
	f := newFixture(t)
	day := 2
	stored := &model.Template{
		Name:        "second touch",
		Body:        "Hey {firstName}, day {day} check-in from {company}.",
		FollowupDay: &day,
		CreatedBy:   testActor,
	}
	require.NoError(t, f.store.CreateTemplate(context.Background(), stored))

	c := &model.Contact{Name: "Jane Doe"}
	msg, tmpl, err := f.svc.RenderFollowup(context.Background(), c, "Acme", 2)
	require.NoError(t, err)
	require.NotNil(t, tmpl)
	assert.Equal(t, stored.ID, tmpl.ID)
	assert.Equal(t, "Hey Jane, day 2 check-in from Acme.", msg)

	// Other days still fall back.
	msg, tmpl, err = f.svc.RenderFollowup(context.Background(), c, "Acme", 3)
	require.NoError(t, err)
	assert.Nil(t, tmpl)
	assert.Contains(t, msg, "follow up on my previous message")
}

func TestRenderPreview(t *testing.T) {
	f := newFixture(t)
	stored := &model.Template{Name: "intro", Body: "Hello {firstName}", CreatedBy: testActor}
	require.NoError(t, f.store.CreateTemplate(context.Background(), stored))

	out, err := f.svc.RenderPreview(context.Background(), stored.ID, "", map[string]string{"firstName": "Jane"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Jane", out)

	// A draft body overrides the stored one.
	out, err = f.svc.RenderPreview(context.Background(), stored.ID, "Bye {firstName}", map[string]string{"firstName": "Jane"})
	require.NoError(t, err)
	assert.Equal(t, "Bye Jane", out)

	_, err = f.svc.RenderPreview(context.Background(), "missing", "", nil)
	assert.True(t, appErrors.IsNotFound(err))
}
