// internal/handler/queue_handler.go
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/leadloop/outreach-backend/internal/service"
)

// QueueHandler holds the dependencies for queue view HTTP handlers
type QueueHandler struct {
	Service *service.OutreachService
}

func NewQueueHandler(svc *service.OutreachService) *QueueHandler {
	return &QueueHandler{Service: svc}
}

// TodayHandler returns the due follow-up tasks, earliest first
func (h *QueueHandler) TodayHandler(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Service.TodayTasks(r.Context())
	if err != nil {
		http.Error(w, "failed to evaluate queue: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data":  tasks,
		"count": len(tasks),
	})
}

// StatsHandler returns queue counters for the dashboard header
func (h *QueueHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	statusCounts, err := h.Service.TouchRepo.StatusCounts(r.Context())
	if err != nil {
		http.Error(w, "failed to count touches: "+err.Error(), http.StatusInternalServerError)
		return
	}
	pendingByContact, err := h.Service.TouchRepo.PendingCounts(r.Context())
	if err != nil {
		http.Error(w, "failed to count pending touches: "+err.Error(), http.StatusInternalServerError)
		return
	}
	dueNow, err := h.Service.DueCount(r.Context())
	if err != nil {
		http.Error(w, "failed to evaluate queue: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"due_now":               dueNow,
		"touches":               statusCounts,
		"contacts_with_pending": len(pendingByContact),
	})
}
