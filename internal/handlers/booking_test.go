package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/velvetpaws/groomhub/internal/booking"
	"github.com/velvetpaws/groomhub/internal/model"
	"github.com/velvetpaws/groomhub/internal/schedule"
)

type fakeBookingService struct {
	booked      []booking.Request
	bookErr     error
	replay      bool
	cancelErr   error
	cancelled   []string
	appointment model.Appointment
}

func (f *fakeBookingService) Book(_ context.Context, req booking.Request) (model.Appointment, bool, error) {
	if f.bookErr != nil {
		return model.Appointment{}, false, f.bookErr
	}
	f.booked = append(f.booked, req)
	return f.appointment, f.replay, nil
}

func (f *fakeBookingService) Cancel(_ context.Context, id, reason string) (model.Appointment, error) {
	if f.cancelErr != nil {
		return model.Appointment{}, f.cancelErr
	}
	f.cancelled = append(f.cancelled, id)
	a := f.appointment
	a.Status = model.StatusCancelled
	return a, nil
}

type fakeFiller struct {
	calls []string
	err   error
}

func (f *fakeFiller) FillSlot(_ context.Context, serviceID, date, slotTime string) ([]model.SlotOffer, error) {
	f.calls = append(f.calls, serviceID+" "+date+" "+slotTime)
	return nil, f.err
}

func sampleAppointment() model.Appointment {
	return model.Appointment{
		ID:           "appt-1",
		CustomerName: "Dana",
		PetName:      "Biscuit",
		ServiceID:    "svc-1",
		ServiceName:  "Full Groom",
		ScheduledAt:  time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC),
		DurationMins: 60,
		Status:       model.StatusConfirmed,
	}
}

const bookingBody = `{
	"customer_name": "Dana",
	"customer_email": "dana@example.com",
	"pet_name": "Biscuit",
	"service_id": "svc-1",
	"date": "2026-09-07",
	"start_time": "10:00"
}`

func TestCreateBooking(t *testing.T) {
	svc := &fakeBookingService{appointment: sampleAppointment()}
	h := NewBookingHandler(svc, &fakeFiller{}, testLogger(), time.UTC)

	req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(bookingBody))
	req.Header.Set("Idempotency-Key", "key-1")
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(svc.booked) != 1 {
		t.Fatalf("expected one booking call, got %d", len(svc.booked))
	}
	if svc.booked[0].IdempotencyKey != "key-1" {
		t.Fatalf("idempotency key not forwarded: %+v", svc.booked[0])
	}
	var resp bookingResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Appointment.ID != "appt-1" || resp.Appointment.Status != model.StatusConfirmed {
		t.Fatalf("unexpected appointment payload: %+v", resp.Appointment)
	}
}

func TestCreateBookingReplayAnswers200(t *testing.T) {
	svc := &fakeBookingService{appointment: sampleAppointment(), replay: true}
	h := NewBookingHandler(svc, &fakeFiller{}, testLogger(), time.UTC)

	req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(bookingBody))
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("replayed booking should answer 200, got %d", rr.Code)
	}
}

func TestCreateBookingConflict(t *testing.T) {
	svc := &fakeBookingService{bookErr: schedule.ErrSlotConflict}
	h := NewBookingHandler(svc, &fakeFiller{}, testLogger(), time.UTC)

	req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(bookingBody))
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Success || resp.Code != codeSlotConflict {
		t.Fatalf("expected slot_conflict envelope, got %+v", resp)
	}
}

func TestCreateBookingClosedDay(t *testing.T) {
	svc := &fakeBookingService{bookErr: booking.ErrSalonClosed}
	h := NewBookingHandler(svc, &fakeFiller{}, testLogger(), time.UTC)

	req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(bookingBody))
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestCancelTriggersWaitlistFill(t *testing.T) {
	svc := &fakeBookingService{appointment: sampleAppointment()}
	filler := &fakeFiller{}
	h := NewBookingHandler(svc, filler, testLogger(), time.UTC)

	req := httptest.NewRequest(http.MethodPost, "/bookings/appt-1/cancel", strings.NewReader(`{"reason":"sick pet"}`))
	req.SetPathValue("id", "appt-1")
	rr := httptest.NewRecorder()
	h.Cancel(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(filler.calls) != 1 {
		t.Fatalf("expected one fill call, got %d", len(filler.calls))
	}
	if filler.calls[0] != "svc-1 2026-09-07 10:00" {
		t.Fatalf("fill called with wrong slot: %q", filler.calls[0])
	}
}

func TestCancelFillsSlotInSalonLocalTime(t *testing.T) {
	// A 14:00 New York appointment is stored as 18:00 UTC; the waitlist must
	// be offered the salon-local slot, not the UTC one.
	loc := time.FixedZone("America/New_York", -4*3600)
	appt := sampleAppointment()
	appt.ScheduledAt = time.Date(2026, 9, 7, 18, 0, 0, 0, time.UTC)

	svc := &fakeBookingService{appointment: appt}
	filler := &fakeFiller{}
	h := NewBookingHandler(svc, filler, testLogger(), loc)

	req := httptest.NewRequest(http.MethodPost, "/bookings/appt-1/cancel", nil)
	req.SetPathValue("id", "appt-1")
	rr := httptest.NewRecorder()
	h.Cancel(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(filler.calls) != 1 {
		t.Fatalf("expected one fill call, got %d", len(filler.calls))
	}
	if filler.calls[0] != "svc-1 2026-09-07 14:00" {
		t.Fatalf("fill must use salon-local time, got %q", filler.calls[0])
	}
}

func TestCancelSurvivesFillFailure(t *testing.T) {
	svc := &fakeBookingService{appointment: sampleAppointment()}
	filler := &fakeFiller{err: context.DeadlineExceeded}
	h := NewBookingHandler(svc, filler, testLogger(), time.UTC)

	req := httptest.NewRequest(http.MethodPost, "/bookings/appt-1/cancel", nil)
	req.SetPathValue("id", "appt-1")
	rr := httptest.NewRecorder()
	h.Cancel(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("cancel must succeed even when the fill fails, got %d", rr.Code)
	}
}
