package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/velvetpaws/groomhub/internal/notify"
)

// ReminderRunner drives the scheduled notification runs.
type ReminderRunner interface {
	RunAppointmentReminders(ctx context.Context, lookahead time.Duration) (notify.RunResult, error)
	RunRetention(ctx context.Context, lapsedAfter time.Duration, limit int) (notify.RunResult, error)
}

// RetrySweeper re-attempts failed notification sends.
type RetrySweeper interface {
	Sweep(ctx context.Context) (notify.SweepResult, error)
}

// WaitlistExpirer ages out stale offers and entries.
type WaitlistExpirer interface {
	ExpireSweep(ctx context.Context) (offers int, entries int, err error)
}

// CronHandler exposes the scheduled jobs as POST endpoints for an external
// scheduler. Authentication happens in middleware; every job here is safe to
// re-trigger.
type CronHandler struct {
	reminders ReminderRunner
	sweeper   RetrySweeper
	waitlist  WaitlistExpirer
	logger    *slog.Logger

	ReminderLookahead time.Duration
	RetentionAfter    time.Duration
	RetentionLimit    int
}

func NewCronHandler(reminders ReminderRunner, sweeper RetrySweeper, waitlist WaitlistExpirer, logger *slog.Logger) *CronHandler {
	return &CronHandler{
		reminders:         reminders,
		sweeper:           sweeper,
		waitlist:          waitlist,
		logger:            logger,
		ReminderLookahead: 24 * time.Hour,
		RetentionAfter:    60 * 24 * time.Hour,
		RetentionLimit:    100,
	}
}

type cronRunResponse struct {
	Success bool             `json:"success"`
	Result  notify.RunResult `json:"result"`
}

// Reminders answers GET /cron/notifications/reminders.
func (h *CronHandler) Reminders(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	res, err := h.reminders.RunAppointmentReminders(r.Context(), h.ReminderLookahead)
	if err != nil {
		h.logger.Error("reminder run failed", "err", err)
		writeInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, cronRunResponse{Success: true, Result: res})
}

// Retention answers GET /cron/notifications/retention.
func (h *CronHandler) Retention(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	res, err := h.reminders.RunRetention(r.Context(), h.RetentionAfter, h.RetentionLimit)
	if err != nil {
		h.logger.Error("retention run failed", "err", err)
		writeInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, cronRunResponse{Success: true, Result: res})
}

type cronSweepResponse struct {
	Success bool               `json:"success"`
	Result  notify.SweepResult `json:"result"`
}

// Retry answers GET /cron/notifications/retry. A sweep already in flight
// answers 200 with skipped=true rather than erroring, so overlapping cron
// triggers stay quiet.
func (h *CronHandler) Retry(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	res, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		if errors.Is(err, notify.ErrSweepInProgress) {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "skipped": true})
			return
		}
		h.logger.Error("retry sweep failed", "err", err)
		writeInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, cronSweepResponse{Success: true, Result: res})
}

// WaitlistExpiration answers GET /cron/waitlist-expiration.
func (h *CronHandler) WaitlistExpiration(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	offers, entries, err := h.waitlist.ExpireSweep(r.Context())
	if err != nil {
		h.logger.Error("waitlist expiration failed", "err", err)
		writeInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"expired_offers":  offers,
		"expired_entries": entries,
	})
}
