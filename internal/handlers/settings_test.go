package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/velvetpaws/groomhub/internal/model"
)

type fakeSettingsStore struct {
	hours    []model.DayHours
	blocked  []model.BlockedDate
	settings model.BookingSettings

	replaced [][]model.BlockedDate
}

func (f *fakeSettingsStore) GetHours(ctx context.Context) ([]model.DayHours, error) {
	return f.hours, nil
}

func (f *fakeSettingsStore) UpsertHours(ctx context.Context, hours []model.DayHours) error {
	f.hours = hours
	return nil
}

func (f *fakeSettingsStore) ListBlockedDates(ctx context.Context) ([]model.BlockedDate, error) {
	return f.blocked, nil
}

func (f *fakeSettingsStore) ReplaceBlockedDates(ctx context.Context, dates []model.BlockedDate) error {
	f.replaced = append(f.replaced, dates)
	f.blocked = dates
	return nil
}

func (f *fakeSettingsStore) GetBookingSettings(ctx context.Context) (model.BookingSettings, error) {
	return f.settings, nil
}

func (f *fakeSettingsStore) UpdateBookingSettings(ctx context.Context, s model.BookingSettings) error {
	f.settings = s
	return nil
}

func TestSettingsHandler_HoursRejectsInvertedWindow(t *testing.T) {
	h := NewSettingsHandler(&fakeSettingsStore{}, testLogger())

	body := `{"hours":[{"weekday":1,"closed":false,"open_minute":600,"close_minute":540}]}`
	req := httptest.NewRequest(http.MethodPut, "/admin/settings/hours", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Hours(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSettingsHandler_HoursRoundTrip(t *testing.T) {
	store := &fakeSettingsStore{}
	h := NewSettingsHandler(store, testLogger())

	body := `{"hours":[{"weekday":0,"closed":true},{"weekday":1,"open_minute":540,"close_minute":1020}]}`
	req := httptest.NewRequest(http.MethodPut, "/admin/settings/hours", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Hours(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if len(store.hours) != 2 {
		t.Fatalf("stored %d day rows, want 2", len(store.hours))
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/settings/hours", nil)
	rec = httptest.NewRecorder()
	h.Hours(rec, req)

	var resp struct {
		Success bool             `json:"success"`
		Hours   []model.DayHours `json:"hours"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || len(resp.Hours) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSettingsHandler_BlockedDatesReplace(t *testing.T) {
	store := &fakeSettingsStore{
		blocked: []model.BlockedDate{{ID: "old", Date: "2026-09-01"}},
	}
	h := NewSettingsHandler(store, testLogger())

	body := `{"blocked_dates":[{"date":"2026-12-25","reason":"holiday"},{"recurring":true,"weekday":0}]}`
	req := httptest.NewRequest(http.MethodPut, "/admin/settings/blocked-dates", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.BlockedDates(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if len(store.replaced) != 1 {
		t.Fatalf("replace called %d times, want 1", len(store.replaced))
	}
	if len(store.blocked) != 2 || store.blocked[0].Date != "2026-12-25" {
		t.Fatalf("stored dates = %+v", store.blocked)
	}
}

func TestSettingsHandler_BlockedDatesRejectsBadDate(t *testing.T) {
	store := &fakeSettingsStore{}
	h := NewSettingsHandler(store, testLogger())

	body := `{"blocked_dates":[{"date":"not-a-date"}]}`
	req := httptest.NewRequest(http.MethodPut, "/admin/settings/blocked-dates", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.BlockedDates(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(store.replaced) != 0 {
		t.Fatal("store should not be touched on validation failure")
	}
}

func TestSettingsHandler_BookingSettingsUpdate(t *testing.T) {
	store := &fakeSettingsStore{settings: model.DefaultBookingSettings()}
	h := NewSettingsHandler(store, testLogger())

	body := `{"granularity_minutes":15,"buffer_minutes":10}`
	req := httptest.NewRequest(http.MethodPut, "/admin/settings/booking", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Booking(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if store.settings.GranularityMins != 15 || store.settings.BufferMins != 10 {
		t.Fatalf("settings = %+v", store.settings)
	}

	body = `{"granularity_minutes":0,"buffer_minutes":10}`
	req = httptest.NewRequest(http.MethodPut, "/admin/settings/booking", strings.NewReader(body))
	rec = httptest.NewRecorder()
	h.Booking(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
