package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/velvetpaws/groomhub/internal/model"
)

type fakeAppointmentStore struct {
	appts       []model.Appointment
	transitions []string
	applied     bool
}

func (f *fakeAppointmentStore) ListBetween(_ context.Context, from, to time.Time) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range f.appts {
		if !a.ScheduledAt.Before(from) && a.ScheduledAt.Before(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAppointmentStore) Get(_ context.Context, id string) (model.Appointment, error) {
	for _, a := range f.appts {
		if a.ID == id {
			return a, nil
		}
	}
	return model.Appointment{}, context.Canceled
}

func (f *fakeAppointmentStore) TransitionStatus(_ context.Context, id string, expected []string, to string) (bool, error) {
	f.transitions = append(f.transitions, id+"->"+to)
	return f.applied, nil
}

func TestListAppointmentsFiltersByDate(t *testing.T) {
	store := &fakeAppointmentStore{appts: []model.Appointment{
		{ID: "a1", ScheduledAt: time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC), Status: model.StatusConfirmed},
		{ID: "a2", ScheduledAt: time.Date(2026, 9, 8, 10, 0, 0, 0, time.UTC), Status: model.StatusConfirmed},
	}}
	h := NewAppointmentsHandler(store, testLogger(), time.UTC)

	req := httptest.NewRequest(http.MethodGet, "/admin/appointments?date=2026-09-07", nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "a1") || strings.Contains(rr.Body.String(), "a2") {
		t.Fatalf("expected only the requested day's appointments: %s", rr.Body.String())
	}
}

func TestUpdateStatusApplied(t *testing.T) {
	store := &fakeAppointmentStore{applied: true}
	h := NewAppointmentsHandler(store, testLogger(), time.UTC)

	req := httptest.NewRequest(http.MethodPut, "/admin/appointments/a1/status",
		strings.NewReader(`{"status":"checked_in"}`))
	req.SetPathValue("id", "a1")
	rr := httptest.NewRecorder()
	h.UpdateStatus(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(store.transitions) != 1 || store.transitions[0] != "a1->checked_in" {
		t.Fatalf("unexpected transitions: %v", store.transitions)
	}
}

func TestUpdateStatusLostRaceAnswers409(t *testing.T) {
	store := &fakeAppointmentStore{
		applied: false,
		appts:   []model.Appointment{{ID: "a1", Status: model.StatusCompleted}},
	}
	h := NewAppointmentsHandler(store, testLogger(), time.UTC)

	req := httptest.NewRequest(http.MethodPut, "/admin/appointments/a1/status",
		strings.NewReader(`{"status":"checked_in"}`))
	req.SetPathValue("id", "a1")
	rr := httptest.NewRecorder()
	h.UpdateStatus(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 when the CAS loses, got %d", rr.Code)
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	h := NewAppointmentsHandler(&fakeAppointmentStore{}, testLogger(), time.UTC)

	req := httptest.NewRequest(http.MethodPut, "/admin/appointments/a1/status",
		strings.NewReader(`{"status":"teleported"}`))
	req.SetPathValue("id", "a1")
	rr := httptest.NewRecorder()
	h.UpdateStatus(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}
