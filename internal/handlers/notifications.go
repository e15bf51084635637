package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/velvetpaws/groomhub/internal/model"
)

// NotificationStore is the admin read surface over the notification log.
type NotificationStore interface {
	List(ctx context.Context, status string, limit int) ([]model.NotificationRecord, error)
}

type NotificationsHandler struct {
	store  NotificationStore
	logger *slog.Logger
}

func NewNotificationsHandler(store NotificationStore, logger *slog.Logger) *NotificationsHandler {
	return &NotificationsHandler{store: store, logger: logger}
}

type notificationPayload struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Channel      string `json:"channel"`
	Recipient    string `json:"recipient"`
	Status       string `json:"status"`
	Permanent    bool   `json:"permanent,omitempty"`
	RetryCount   int    `json:"retry_count"`
	RetryAfter   string `json:"retry_after,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	SentAt       string `json:"sent_at,omitempty"`
	CreatedAt    string `json:"created_at"`
}

type notificationsListResponse struct {
	Success       bool                  `json:"success"`
	Notifications []notificationPayload `json:"notifications"`
}

// List answers GET /admin/notifications?status=&limit=.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	status := r.URL.Query().Get("status")
	switch status {
	case "", model.NotificationPending, model.NotificationSent, model.NotificationFailed:
	default:
		writeError(w, http.StatusBadRequest, codeBadRequest, "status must be pending, sent or failed")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.store.List(r.Context(), status, limit)
	if err != nil {
		h.logger.Error("notification list failed", "err", err)
		writeInternalError(w)
		return
	}

	out := make([]notificationPayload, 0, len(records))
	for _, n := range records {
		p := notificationPayload{
			ID:           n.ID,
			Type:         n.Type,
			Channel:      n.Channel,
			Recipient:    n.Recipient,
			Status:       n.Status,
			Permanent:    n.Permanent,
			RetryCount:   n.RetryCount,
			ErrorMessage: n.ErrorMessage,
			CreatedAt:    n.CreatedAt.UTC().Format(time.RFC3339),
		}
		if n.RetryAfter != nil {
			p.RetryAfter = n.RetryAfter.UTC().Format(time.RFC3339)
		}
		if n.SentAt != nil {
			p.SentAt = n.SentAt.UTC().Format(time.RFC3339)
		}
		out = append(out, p)
	}
	writeJSON(w, http.StatusOK, notificationsListResponse{Success: true, Notifications: out})
}
