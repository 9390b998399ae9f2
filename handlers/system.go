package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/CrowderSoup/project-tracker/services"
)

// DeadlineRunner is satisfied by services.DeadlineScheduler.
type DeadlineRunner interface {
	RunOnce(ctx context.Context) (services.RunReport, error)
}

type SystemHandler struct {
	deadlines DeadlineRunner
	pinger    interface{ Ping(ctx context.Context) error }
	hub       *services.Hub
	errors    errorWriter
}

func NewSystemHandler(deadlines DeadlineRunner, pinger interface{ Ping(ctx context.Context) error }, hub *services.Hub, development bool) *SystemHandler {
	return &SystemHandler{deadlines: deadlines, pinger: pinger, hub: hub, errors: errorWriter{development: development}}
}

func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.pinger.Ping(ctx); err != nil {
		h.errors.write(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Project Tracker API is running", map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"clients":   h.hub.ClientCount(),
	})
}

// RunDeadlines triggers a deadline scan outside the daily schedule.
func (h *SystemHandler) RunDeadlines(w http.ResponseWriter, r *http.Request) {
	report, err := h.deadlines.RunOnce(r.Context())
	if err != nil {
		h.errors.write(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Deadline check completed", report)
}
