package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/skillshare/internal/service"
)

type NotificationHandler struct {
	notifications *service.NotificationService
	logger        *slog.Logger
}

func NewNotificationHandler(notifications *service.NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, logger: logger}
}

// HandleList handles GET /notifications.
func (h *NotificationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	me, ok := principal(w, r)
	if !ok {
		return
	}
	out, err := h.notifications.List(r.Context(), me)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleMarkRead handles POST /notifications/{notificationId}/read.
func (h *NotificationHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	me, ok := principal(w, r)
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(r.Context(), me, chi.URLParam(r, "notificationId")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
