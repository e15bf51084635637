package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/velvetpaws/groomhub/internal/model"
	"github.com/velvetpaws/groomhub/internal/schedule"
	"github.com/velvetpaws/groomhub/internal/storage"
)

// WaitlistService covers slot matching, offers and bookings off the waitlist.
type WaitlistService interface {
	MatchSlot(ctx context.Context, serviceID, date, slotTime string) ([]model.WaitlistEntry, error)
	FillSlot(ctx context.Context, serviceID, date, slotTime string) ([]model.SlotOffer, error)
	Book(ctx context.Context, entryID, date, slotTime string) (model.Appointment, error)
}

// WaitlistStore is the direct persistence surface for join and admin listing.
type WaitlistStore interface {
	CreateEntry(ctx context.Context, e *model.WaitlistEntry) (string, error)
	List(ctx context.Context, status string, limit int) ([]model.WaitlistEntry, error)
}

type WaitlistHandler struct {
	svc    WaitlistService
	store  WaitlistStore
	logger *slog.Logger
}

func NewWaitlistHandler(svc WaitlistService, store WaitlistStore, logger *slog.Logger) *WaitlistHandler {
	return &WaitlistHandler{svc: svc, store: store, logger: logger}
}

type joinWaitlistRequest struct {
	CustomerID     string `json:"customer_id"`
	CustomerName   string `json:"customer_name"`
	CustomerPhone  string `json:"customer_phone"`
	CustomerEmail  string `json:"customer_email"`
	ServiceID      string `json:"service_id"`
	RequestedDate  string `json:"requested_date"`
	TimePreference string `json:"time_preference"`
}

type joinWaitlistResponse struct {
	Success bool   `json:"success"`
	EntryID string `json:"entry_id"`
}

// Join answers POST /waitlist.
func (h *WaitlistHandler) Join(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req joinWaitlistRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	if req.CustomerName == "" || req.ServiceID == "" || req.RequestedDate == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "customer_name, service_id and requested_date are required")
		return
	}
	if req.CustomerPhone == "" && req.CustomerEmail == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "a phone or email contact is required")
		return
	}
	if _, err := time.Parse("2006-01-02", req.RequestedDate); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid requested_date")
		return
	}
	switch req.TimePreference {
	case "", model.PreferAny, model.PreferMorning, model.PreferAfternoon:
	default:
		writeError(w, http.StatusBadRequest, codeBadRequest, "time_preference must be morning, afternoon or any")
		return
	}

	entry := model.WaitlistEntry{
		CustomerID:     req.CustomerID,
		CustomerName:   req.CustomerName,
		CustomerPhone:  req.CustomerPhone,
		CustomerEmail:  req.CustomerEmail,
		ServiceID:      req.ServiceID,
		RequestedDate:  req.RequestedDate,
		TimePreference: req.TimePreference,
	}
	id, err := h.store.CreateEntry(r.Context(), &entry)
	if err != nil {
		h.logger.Error("waitlist join failed", "err", err)
		writeInternalError(w)
		return
	}
	writeJSON(w, http.StatusCreated, joinWaitlistResponse{Success: true, EntryID: id})
}

type waitlistEntryPayload struct {
	ID             string `json:"id"`
	CustomerName   string `json:"customer_name"`
	CustomerPhone  string `json:"customer_phone,omitempty"`
	CustomerEmail  string `json:"customer_email,omitempty"`
	ServiceID      string `json:"service_id"`
	RequestedDate  string `json:"requested_date"`
	TimePreference string `json:"time_preference,omitempty"`
	Status         string `json:"status"`
	CreatedAt      string `json:"created_at"`
}

func toWaitlistPayload(e model.WaitlistEntry) waitlistEntryPayload {
	return waitlistEntryPayload{
		ID:             e.ID,
		CustomerName:   e.CustomerName,
		CustomerPhone:  e.CustomerPhone,
		CustomerEmail:  e.CustomerEmail,
		ServiceID:      e.ServiceID,
		RequestedDate:  e.RequestedDate,
		TimePreference: e.TimePreference,
		Status:         e.Status,
		CreatedAt:      e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type waitlistListResponse struct {
	Success bool                   `json:"success"`
	Entries []waitlistEntryPayload `json:"entries"`
}

// List answers GET /admin/waitlist?status=&limit=.
func (h *WaitlistHandler) List(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.store.List(r.Context(), r.URL.Query().Get("status"), limit)
	if err != nil {
		h.logger.Error("waitlist list failed", "err", err)
		writeInternalError(w)
		return
	}
	out := make([]waitlistEntryPayload, 0, len(entries))
	for _, e := range entries {
		out = append(out, toWaitlistPayload(e))
	}
	writeJSON(w, http.StatusOK, waitlistListResponse{Success: true, Entries: out})
}

type slotRequest struct {
	ServiceID string `json:"service_id"`
	Date      string `json:"date"`
	SlotTime  string `json:"slot_time"`
}

func (s *slotRequest) valid() bool {
	return s.ServiceID != "" && s.Date != "" && s.SlotTime != ""
}

// Match answers POST /admin/waitlist/match: a side-effect-free preview of who
// would be offered a freed slot.
func (h *WaitlistHandler) Match(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req slotRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.valid() {
		writeError(w, http.StatusBadRequest, codeBadRequest, "service_id, date and slot_time are required")
		return
	}

	entries, err := h.svc.MatchSlot(r.Context(), req.ServiceID, req.Date, req.SlotTime)
	if err != nil {
		h.logger.Error("waitlist match failed", "err", err)
		writeInternalError(w)
		return
	}
	out := make([]waitlistEntryPayload, 0, len(entries))
	for _, e := range entries {
		out = append(out, toWaitlistPayload(e))
	}
	writeJSON(w, http.StatusOK, waitlistListResponse{Success: true, Entries: out})
}

type fillSlotResponse struct {
	Success bool `json:"success"`
	Offers  int  `json:"offers"`
}

// FillSlot answers POST /admin/waitlist/fill-slot: offer the slot to matching
// customers and notify them.
func (h *WaitlistHandler) FillSlot(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req slotRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.valid() {
		writeError(w, http.StatusBadRequest, codeBadRequest, "service_id, date and slot_time are required")
		return
	}

	offers, err := h.svc.FillSlot(r.Context(), req.ServiceID, req.Date, req.SlotTime)
	if err != nil {
		h.logger.Error("waitlist fill failed", "err", err)
		writeInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, fillSlotResponse{Success: true, Offers: len(offers)})
}

type bookFromWaitlistRequest struct {
	Date     string `json:"date"`
	SlotTime string `json:"slot_time"`
}

// Book answers POST /admin/waitlist/{id}/book: an admin books the entry
// straight into the given slot.
func (h *WaitlistHandler) Book(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	id := r.PathValue("id")
	var req bookFromWaitlistRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if id == "" || req.Date == "" || req.SlotTime == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "entry id, date and slot_time are required")
		return
	}

	appt, err := h.svc.Book(r.Context(), id, req.Date, req.SlotTime)
	if err != nil {
		switch {
		case storage.IsNotFound(err):
			writeError(w, http.StatusNotFound, codeNotFound, "waitlist entry not found")
		case errors.Is(err, schedule.ErrSlotConflict):
			writeError(w, http.StatusConflict, codeSlotConflict, "time slot is no longer available")
		default:
			h.logger.Error("waitlist book failed", "entry_id", id, "err", err)
			writeInternalError(w)
		}
		return
	}
	writeJSON(w, http.StatusCreated, bookingResponse{Success: true, Appointment: toAppointmentPayload(appt)})
}
