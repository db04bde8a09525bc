// internal/controller/outreach_controller.go
package controller

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/streadway/amqp"

	appErrors "github.com/leadloop/outreach-backend/internal/errors"
	"github.com/leadloop/outreach-backend/internal/logger"
	"github.com/leadloop/outreach-backend/internal/model"
	"github.com/leadloop/outreach-backend/internal/service"
)

// followupEventsQueue carries sent-touch events to the notification worker.
const followupEventsQueue = "followup_events"

type OutreachController struct {
	Service *service.OutreachService
	// AMQPURL is the broker for follow-up sent events; empty disables
	// publishing (local development without RabbitMQ).
	AMQPURL string
}

// actorID identifies the operator behind a request. Background callers and
// anonymous requests fall back to the system actor.
func actorID(r *http.Request) string {
	if id := r.Header.Get("X-Actor-ID"); id != "" {
		return id
	}
	return model.SystemActorID
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func httpStatus(err error) int {
	switch {
	case appErrors.IsNotFound(err):
		return http.StatusNotFound
	case appErrors.IsInvalidStateTransition(err):
		return http.StatusConflict
	case appErrors.IsConcurrentModification(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(w http.ResponseWriter, err error) {
	writeJSON(w, httpStatus(err), map[string]string{"error": err.Error()})
}

// ---------- leads ----------

func (c *OutreachController) CreateLead(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CompanyName    string  `json:"company_name"`
		CompanyWebsite *string `json:"company_website"`
		Campaign       *string `json:"campaign"`
		Source         *string `json:"source"`
		Notes          *string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.CompanyName == "" {
		http.Error(w, "company_name is required", http.StatusBadRequest)
		return
	}

	lead := &model.Lead{
		CompanyName:    body.CompanyName,
		CompanyWebsite: body.CompanyWebsite,
		Campaign:       body.Campaign,
		Source:         body.Source,
		Notes:          body.Notes,
		CreatedBy:      actorID(r),
	}
	if err := c.Service.LeadRepo.Create(r.Context(), lead); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

func (c *OutreachController) ListLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := c.Service.LeadRepo.ListAll(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": leads})
}

func (c *OutreachController) DeleteLead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := c.Service.LeadRepo.Delete(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------- contacts ----------

func (c *OutreachController) CreateContact(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "id")
	var body struct {
		Name        string  `json:"name"`
		Email       *string `json:"email"`
		Title       *string `json:"title"`
		LinkedinURL *string `json:"linkedin_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	if _, err := c.Service.LeadRepo.GetByID(r.Context(), leadID); err != nil {
		respondError(w, err)
		return
	}

	contact := &model.Contact{
		CompanyID:   leadID,
		Name:        body.Name,
		Email:       body.Email,
		Title:       body.Title,
		LinkedinURL: body.LinkedinURL,
		Response:    model.ResponseNone,
	}
	if err := c.Service.ContactRepo.Create(r.Context(), contact); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, contact)
}

func (c *OutreachController) ListContacts(w http.ResponseWriter, r *http.Request) {
	var (
		contacts []model.Contact
		err      error
	)
	if companyID := r.URL.Query().Get("company_id"); companyID != "" {
		contacts, err = c.Service.ContactRepo.ListByCompany(r.Context(), companyID)
	} else {
		contacts, err = c.Service.ContactRepo.ListAll(r.Context())
	}
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": contacts})
}

func (c *OutreachController) GetContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	contact, err := c.Service.ContactRepo.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	touches, err := c.Service.TouchRepo.ListByContact(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"contact": contact,
		"touches": touches,
	})
}

// SetInvite records or retracts the invite acknowledgment. Accepting kicks
// off the follow-up sequence.
func (c *OutreachController) SetInvite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body struct {
		Accepted bool `json:"accepted"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if err := c.Service.SetInviteAccepted(r.Context(), id, body.Accepted, actorID(r)); err != nil {
		respondError(w, err)
		return
	}
	contact, err := c.Service.ContactRepo.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

func (c *OutreachController) RecordResponse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	response := model.ResponseType(body.Response)
	if !response.Valid() {
		http.Error(w, "response must be positive, negative or neutral", http.StatusBadRequest)
		return
	}

	if err := c.Service.RecordResponse(r.Context(), id, response, actorID(r)); err != nil {
		respondError(w, err)
		return
	}
	contact, err := c.Service.ContactRepo.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

func (c *OutreachController) RemoveContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := c.Service.RemoveFromQueue(r.Context(), id, actorID(r)); err != nil {
		respondError(w, err)
		return
	}
	contact, err := c.Service.ContactRepo.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

// ---------- touches ----------

func (c *OutreachController) SendTouch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	touch, err := c.Service.MarkTouchSent(r.Context(), id, actorID(r))
	if err != nil {
		respondError(w, err)
		return
	}

	if c.AMQPURL != "" {
		if err := c.publishFollowupEvent(touch.ID); err != nil {
			logger.Get().WithError(err).WithField("touch_id", touch.ID).
				Error("failed to queue follow-up event")
		}
	}

	writeJSON(w, http.StatusOK, touch)
}

func (c *OutreachController) CompleteTouch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	touch, err := c.Service.MarkTouchComplete(r.Context(), id, actorID(r))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, touch)
}

func (c *OutreachController) publishFollowupEvent(touchID string) error {
	conn, err := amqp.Dial(c.AMQPURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		followupEventsQueue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	body, _ := json.Marshal(map[string]string{"touch_id": touchID})
	return ch.Publish(
		"",
		q.Name,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// ---------- queue ----------

func (c *OutreachController) SweepQueue(w http.ResponseWriter, r *http.Request) {
	removed, err := c.Service.SweepStaleContacts(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"removed":  len(removed),
		"contacts": removed,
	})
}

// ---------- templates ----------

func (c *OutreachController) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Body        string `json:"body"`
		FollowupDay *int   `json:"followup_day"`
		IsShared    bool   `json:"is_shared"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.Name == "" || body.Body == "" {
		http.Error(w, "name and body are required", http.StatusBadRequest)
		return
	}

	tmpl := &model.Template{
		Name:        body.Name,
		Body:        body.Body,
		FollowupDay: body.FollowupDay,
		IsShared:    body.IsShared,
		CreatedBy:   actorID(r),
	}
	if err := c.Service.TemplateRepo.Create(r.Context(), tmpl); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tmpl)
}

func (c *OutreachController) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := c.Service.TemplateRepo.ListAll(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": templates})
}

func (c *OutreachController) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := c.Service.TemplateRepo.Delete(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *OutreachController) PreviewTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body struct {
		OverrideBody string            `json:"override_body"`
		Data         map[string]string `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	rendered, err := c.Service.RenderPreview(r.Context(), id, body.OverrideBody, body.Data)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rendered_message": rendered,
		"template_id":      id,
	})
}

// ---------- activity ----------

func (c *OutreachController) ListActivity(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := c.Service.AuditRepo.ListRecent(r.Context(), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": events})
}
