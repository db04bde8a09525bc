// internal/service/template_service.go
package service

import (
	"context"
	"fmt"
	"strings"

	appErrors "github.com/leadloop/outreach-backend/internal/errors"
	"github.com/leadloop/outreach-backend/internal/model"
)

// DefaultTemplateBody is used when no template is mapped to a follow-up day.
const DefaultTemplateBody = "Hi {firstName}, I wanted to follow up on my previous message regarding {company}..."

func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}

// RenderFollowup produces the outgoing message body for a contact's touch on
// the given follow-up day. Day-specific templates win; otherwise the default
// body is used and the returned template is nil.
func (s *OutreachService) RenderFollowup(ctx context.Context, contact *model.Contact, companyName string, followupDay int) (string, *model.Template, error) {
	body := DefaultTemplateBody
	var tmpl *model.Template
	if s.TemplateRepo != nil {
		t, err := s.TemplateRepo.FindByDay(ctx, followupDay)
		if err != nil {
			return "", nil, err
		}
		if t != nil {
			body = t.Body
			tmpl = t
		}
	}

	rendered := RenderTemplate(body, map[string]string{
		"firstName": contact.FirstName(),
		"name":      contact.Name,
		"company":   companyName,
		"day":       fmt.Sprintf("%d", followupDay),
	})
	return rendered, tmpl, nil
}

// RenderPreview renders a template body against sample data. When body is
// empty the stored template's body is used, so the UI can preview either a
// draft or a saved template.
func (s *OutreachService) RenderPreview(ctx context.Context, templateID, body string, data map[string]string) (string, error) {
	if body == "" {
		tmpl, err := s.TemplateRepo.GetByID(ctx, templateID)
		if err != nil {
			return "", err
		}
		body = tmpl.Body
	}
	if strings.TrimSpace(body) == "" {
		return "", appErrors.NewInvalidStateTransition("template", templateID, "template body is empty")
	}
	return RenderTemplate(body, data), nil
}
