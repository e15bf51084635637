package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/velvetpaws/groomhub/internal/model"
)

// AppointmentStore is the admin read/transition surface over appointments.
type AppointmentStore interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]model.Appointment, error)
	Get(ctx context.Context, id string) (model.Appointment, error)
	// TransitionStatus applies the update only when the current status is one
	// of expected; false means the row moved underneath the caller.
	TransitionStatus(ctx context.Context, id string, expected []string, to string) (bool, error)
}

type AppointmentsHandler struct {
	store  AppointmentStore
	logger *slog.Logger
	loc    *time.Location
}

func NewAppointmentsHandler(store AppointmentStore, logger *slog.Logger, loc *time.Location) *AppointmentsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AppointmentsHandler{store: store, logger: logger, loc: loc}
}

type appointmentsListResponse struct {
	Success      bool                 `json:"success"`
	Appointments []appointmentPayload `json:"appointments"`
}

// List answers GET /admin/appointments?date=YYYY-MM-DD (default: today).
func (h *AppointmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	var day time.Time
	if date == "" {
		now := time.Now().In(h.loc)
		day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)
	} else {
		var err error
		day, err = time.ParseInLocation("2006-01-02", date, h.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "invalid date")
			return
		}
	}

	appts, err := h.store.ListBetween(r.Context(), day, day.AddDate(0, 0, 1))
	if err != nil {
		h.logger.Error("appointments list failed", "date", date, "err", err)
		writeInternalError(w)
		return
	}
	out := make([]appointmentPayload, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentPayload(a))
	}
	writeJSON(w, http.StatusOK, appointmentsListResponse{Success: true, Appointments: out})
}

// statusTransitions is the allowed day-of-service flow. Cancellation has its
// own endpoint and is not reachable from here.
var statusTransitions = map[string][]string{
	model.StatusConfirmed:  {model.StatusPending},
	model.StatusCheckedIn:  {model.StatusPending, model.StatusConfirmed},
	model.StatusInProgress: {model.StatusCheckedIn},
	model.StatusCompleted:  {model.StatusInProgress},
	model.StatusNoShow:     {model.StatusPending, model.StatusConfirmed},
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus answers PUT /admin/appointments/{id}/status. The store runs a
// compare-and-swap, so two admins racing the same row get one winner and one
// 409.
func (h *AppointmentsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPut) {
		return
	}
	id := r.PathValue("id")
	var req updateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	expected, ok := statusTransitions[req.Status]
	if !ok {
		writeError(w, http.StatusBadRequest, codeBadRequest, "unsupported status")
		return
	}

	applied, err := h.store.TransitionStatus(r.Context(), id, expected, req.Status)
	if err != nil {
		h.logger.Error("status transition failed", "id", id, "status", req.Status, "err", err)
		writeInternalError(w)
		return
	}
	if !applied {
		appt, err := h.store.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusNotFound, codeNotFound, "appointment not found")
			return
		}
		writeError(w, http.StatusConflict, codeStatusConflict,
			"appointment is "+appt.Status+" and cannot become "+req.Status)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": req.Status})
}
