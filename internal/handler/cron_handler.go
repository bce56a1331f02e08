package handler

import (
	"net/http"
	"time"

	"github.com/givewidget/givewidget/internal/pkg/response"
	"github.com/givewidget/givewidget/internal/service"
)

// CronHandler exposes scheduled jobs as HTTP endpoints for an external
// scheduler. The cmd/reminders daemon runs the same jobs on an internal
// timer; deployments pick one driver.
type CronHandler struct {
	reminders service.ReminderService
}

// NewCronHandler creates a new cron handler.
func NewCronHandler(reminders service.ReminderService) *CronHandler {
	return &CronHandler{reminders: reminders}
}

// Reminders handles GET /cron/reminders
func (h *CronHandler) Reminders(w http.ResponseWriter, r *http.Request) {
	result, err := h.reminders.RunReminders(r.Context(), time.Now())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, result)
}

// Keepalive handles GET /cron/keepalive
func (h *CronHandler) Keepalive(w http.ResponseWriter, r *http.Request) {
	if err := h.reminders.Keepalive(r.Context()); err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, map[string]string{"status": "ok"})
}
