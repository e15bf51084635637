package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/velvetpaws/groomhub/internal/booking"
	"github.com/velvetpaws/groomhub/internal/model"
	"github.com/velvetpaws/groomhub/internal/schedule"
)

// AvailabilityProvider computes the slot list for one date and service.
type AvailabilityProvider interface {
	Availability(ctx context.Context, date, serviceID string) (schedule.DayAvailability, error)
}

type AvailabilityHandler struct {
	provider AvailabilityProvider
	logger   *slog.Logger
}

func NewAvailabilityHandler(provider AvailabilityProvider, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{provider: provider, logger: logger}
}

type availabilityResponse struct {
	Success      bool             `json:"success"`
	Date         string           `json:"date"`
	IsClosed     bool             `json:"is_closed"`
	ClosedReason string           `json:"closed_reason,omitempty"`
	TimeSlots    []model.TimeSlot `json:"time_slots"`
}

// Get answers GET /availability?date=YYYY-MM-DD&service_id=...
func (h *AvailabilityHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	serviceID := strings.TrimSpace(r.URL.Query().Get("service_id"))
	if date == "" || serviceID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "date and service_id are required")
		return
	}

	day, err := h.provider.Availability(r.Context(), date, serviceID)
	if err != nil {
		if errors.Is(err, booking.ErrInvalid) {
			writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
			return
		}
		h.logger.Error("availability lookup failed", "date", date, "service_id", serviceID, "err", err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, availabilityResponse{
		Success:      true,
		Date:         date,
		IsClosed:     day.IsClosed,
		ClosedReason: day.ClosedReason,
		TimeSlots:    day.Slots,
	})
}
