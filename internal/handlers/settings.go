package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/velvetpaws/groomhub/internal/model"
)

// SettingsStore is the persistence surface behind the admin settings endpoints.
type SettingsStore interface {
	GetHours(ctx context.Context) ([]model.DayHours, error)
	UpsertHours(ctx context.Context, hours []model.DayHours) error
	ListBlockedDates(ctx context.Context) ([]model.BlockedDate, error)
	ReplaceBlockedDates(ctx context.Context, dates []model.BlockedDate) error
	GetBookingSettings(ctx context.Context) (model.BookingSettings, error)
	UpdateBookingSettings(ctx context.Context, s model.BookingSettings) error
}

type SettingsHandler struct {
	store  SettingsStore
	logger *slog.Logger
}

func NewSettingsHandler(store SettingsStore, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{store: store, logger: logger}
}

type hoursResponse struct {
	Success bool             `json:"success"`
	Hours   []model.DayHours `json:"hours"`
}

// Hours answers GET and PUT /admin/settings/hours.
func (h *SettingsHandler) Hours(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		hours, err := h.store.GetHours(r.Context())
		if err != nil {
			h.logger.Error("hours fetch failed", "err", err)
			writeInternalError(w)
			return
		}
		writeJSON(w, http.StatusOK, hoursResponse{Success: true, Hours: hours})
	case http.MethodPut:
		var req struct {
			Hours []model.DayHours `json:"hours"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		for _, d := range req.Hours {
			if d.Weekday < 0 || d.Weekday > 6 {
				writeError(w, http.StatusBadRequest, codeBadRequest, "weekday must be 0..6")
				return
			}
			if !d.Closed && (d.OpenMinute < 0 || d.CloseMinute > 24*60 || d.CloseMinute <= d.OpenMinute) {
				writeError(w, http.StatusBadRequest, codeBadRequest, "open_minute must be before close_minute")
				return
			}
		}
		if err := h.store.UpsertHours(r.Context(), req.Hours); err != nil {
			h.logger.Error("hours update failed", "err", err)
			writeInternalError(w)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	}
}

type blockedDatesResponse struct {
	Success bool                `json:"success"`
	Dates   []model.BlockedDate `json:"blocked_dates"`
}

// BlockedDates answers GET and PUT /admin/settings/blocked-dates. PUT
// replaces the whole set, same shape the GET returns.
func (h *SettingsHandler) BlockedDates(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		dates, err := h.store.ListBlockedDates(r.Context())
		if err != nil {
			h.logger.Error("blocked dates fetch failed", "err", err)
			writeInternalError(w)
			return
		}
		writeJSON(w, http.StatusOK, blockedDatesResponse{Success: true, Dates: dates})
	case http.MethodPut:
		var req struct {
			Dates []model.BlockedDate `json:"blocked_dates"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		for _, d := range req.Dates {
			if d.Recurring {
				if d.Weekday < 0 || d.Weekday > 6 {
					writeError(w, http.StatusBadRequest, codeBadRequest, "weekday must be 0..6")
					return
				}
				continue
			}
			if _, err := time.Parse("2006-01-02", d.Date); err != nil {
				writeError(w, http.StatusBadRequest, codeBadRequest, "invalid date")
				return
			}
		}
		if err := h.store.ReplaceBlockedDates(r.Context(), req.Dates); err != nil {
			h.logger.Error("blocked dates update failed", "err", err)
			writeInternalError(w)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	}
}

type bookingSettingsResponse struct {
	Success  bool                  `json:"success"`
	Settings model.BookingSettings `json:"settings"`
}

// Booking answers GET and PUT /admin/settings/booking.
func (h *SettingsHandler) Booking(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s, err := h.store.GetBookingSettings(r.Context())
		if err != nil {
			h.logger.Error("booking settings fetch failed", "err", err)
			writeInternalError(w)
			return
		}
		writeJSON(w, http.StatusOK, bookingSettingsResponse{Success: true, Settings: s})
	case http.MethodPut:
		var req model.BookingSettings
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.GranularityMins <= 0 || req.BufferMins < 0 {
			writeError(w, http.StatusBadRequest, codeBadRequest, "granularity must be positive and buffer non-negative")
			return
		}
		if err := h.store.UpdateBookingSettings(r.Context(), req); err != nil {
			h.logger.Error("booking settings update failed", "err", err)
			writeInternalError(w)
			return
		}
		writeJSON(w, http.StatusOK, bookingSettingsResponse{Success: true, Settings: req})
	default:
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	}
}
