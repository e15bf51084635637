package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/velvetpaws/groomhub/internal/booking"
	"github.com/velvetpaws/groomhub/internal/model"
	"github.com/velvetpaws/groomhub/internal/schedule"
	"github.com/velvetpaws/groomhub/internal/storage"
)

// BookingService is the booking write path behind the public endpoints.
type BookingService interface {
	Book(ctx context.Context, req booking.Request) (model.Appointment, bool, error)
	Cancel(ctx context.Context, id, reason string) (model.Appointment, error)
}

// SlotFiller offers a freed slot to waitlisted customers after a cancellation.
type SlotFiller interface {
	FillSlot(ctx context.Context, serviceID, date, slotTime string) ([]model.SlotOffer, error)
}

type BookingHandler struct {
	svc    BookingService
	filler SlotFiller
	logger *slog.Logger
	loc    *time.Location
}

func NewBookingHandler(svc BookingService, filler SlotFiller, logger *slog.Logger, loc *time.Location) *BookingHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingHandler{svc: svc, filler: filler, logger: logger, loc: loc}
}

type createBookingRequest struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	PetID         string `json:"pet_id"`
	PetName       string `json:"pet_name"`
	ServiceID     string `json:"service_id"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	Notes         string `json:"notes"`
}

type appointmentPayload struct {
	ID           string `json:"id"`
	CustomerName string `json:"customer_name"`
	PetName      string `json:"pet_name,omitempty"`
	ServiceID    string `json:"service_id"`
	ServiceName  string `json:"service_name,omitempty"`
	ScheduledAt  string `json:"scheduled_at"`
	DurationMins int    `json:"duration_minutes"`
	Status       string `json:"status"`
	CancelledAt  string `json:"cancelled_at,omitempty"`
	CancelReason string `json:"cancellation_reason,omitempty"`
}

func toAppointmentPayload(a model.Appointment) appointmentPayload {
	p := appointmentPayload{
		ID:           a.ID,
		CustomerName: a.CustomerName,
		PetName:      a.PetName,
		ServiceID:    a.ServiceID,
		ServiceName:  a.ServiceName,
		ScheduledAt:  a.ScheduledAt.UTC().Format(time.RFC3339),
		DurationMins: a.DurationMins,
		Status:       a.Status,
		CancelReason: a.CancelReason,
	}
	if a.CancelledAt != nil {
		p.CancelledAt = a.CancelledAt.UTC().Format(time.RFC3339)
	}
	return p
}

type bookingResponse struct {
	Success     bool               `json:"success"`
	Appointment appointmentPayload `json:"appointment"`
}

// Create answers POST /bookings. An Idempotency-Key header makes client
// retries replay the first booking with a 200 instead of creating a second
// one.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req createBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	appt, replayed, err := h.svc.Book(r.Context(), booking.Request{
		CustomerID:     req.CustomerID,
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		CustomerPhone:  req.CustomerPhone,
		PetID:          req.PetID,
		PetName:        req.PetName,
		ServiceID:      req.ServiceID,
		Date:           req.Date,
		StartTime:      req.StartTime,
		Notes:          req.Notes,
		IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	})
	if err != nil {
		h.writeBookingError(w, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, bookingResponse{Success: true, Appointment: toAppointmentPayload(appt)})
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

// Cancel answers POST /bookings/{id}/cancel and, when the slot frees up,
// offers it to matching waitlist customers. The fill outcome never blocks the
// cancellation response.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "appointment id is required")
		return
	}
	var req cancelBookingRequest
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}

	appt, err := h.svc.Cancel(r.Context(), id, strings.TrimSpace(req.Reason))
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, codeNotFound, "appointment not found")
			return
		}
		h.writeBookingError(w, err)
		return
	}

	if h.filler != nil {
		// Waitlist matching works in salon-local dates and times.
		freed := appt.ScheduledAt.In(h.loc)
		date := freed.Format("2006-01-02")
		slotTime := freed.Format("15:04")
		if _, err := h.filler.FillSlot(r.Context(), appt.ServiceID, date, slotTime); err != nil {
			h.logger.Error("waitlist fill after cancel failed",
				"appointment_id", appt.ID, "date", date, "time", slotTime, "err", err)
		}
	}

	writeJSON(w, http.StatusOK, bookingResponse{Success: true, Appointment: toAppointmentPayload(appt)})
}

func (h *BookingHandler) writeBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrSlotConflict):
		writeError(w, http.StatusConflict, codeSlotConflict, "time slot is no longer available")
	case errors.Is(err, booking.ErrSalonClosed), errors.Is(err, booking.ErrOutsideHours), errors.Is(err, booking.ErrInvalid):
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
	default:
		h.logger.Error("booking request failed", "err", err)
		writeInternalError(w)
	}
}
