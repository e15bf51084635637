package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/velvetpaws/groomhub/internal/model"
	"github.com/velvetpaws/groomhub/internal/notify"
	"github.com/velvetpaws/groomhub/internal/outbox"
	"github.com/velvetpaws/groomhub/internal/schedule"
	"github.com/velvetpaws/groomhub/internal/storage"
)

// ErrSalonClosed reports a booking attempt on a day the salon does not open.
var ErrSalonClosed = errors.New("salon is closed on the requested date")

// ErrOutsideHours reports a slot that starts or ends outside the open window.
var ErrOutsideHours = errors.New("requested time is outside business hours")

// ErrInvalid wraps request validation failures.
var ErrInvalid = errors.New("invalid booking request")

// Notifier sends the booking confirmation after commit.
type Notifier interface {
	Dispatch(ctx context.Context, msg notify.Message) (*model.NotificationRecord, error)
}

// Service owns the booking write path. Slot availability shown to clients is
// advisory; the conflict check under row locks inside Book is authoritative.
type Service struct {
	appts    *storage.AppointmentRepository
	services *storage.ServiceRepository
	settings *storage.SettingsRepository
	outbox   *outbox.Repository
	notifier Notifier
	logger   *slog.Logger
	loc      *time.Location
	now      func() time.Time
}

func NewService(
	appts *storage.AppointmentRepository,
	services *storage.ServiceRepository,
	settings *storage.SettingsRepository,
	outboxRepo *outbox.Repository,
	notifier Notifier,
	logger *slog.Logger,
	loc *time.Location,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		appts:    appts,
		services: services,
		settings: settings,
		outbox:   outboxRepo,
		notifier: notifier,
		logger:   logger,
		loc:      loc,
		now:      time.Now,
	}
}

// Availability computes the slot list for one date and service. Slots are
// recomputed on every call and never persisted.
func (s *Service) Availability(ctx context.Context, date, serviceID string) (schedule.DayAvailability, error) {
	day, err := time.ParseInLocation("2006-01-02", date, s.loc)
	if err != nil {
		return schedule.DayAvailability{}, fmt.Errorf("%w: invalid date", ErrInvalid)
	}
	svc, err := s.services.Get(ctx, serviceID)
	if err != nil {
		if storage.IsNotFound(err) {
			return schedule.DayAvailability{}, fmt.Errorf("%w: unknown service", ErrInvalid)
		}
		return schedule.DayAvailability{}, err
	}

	win, settings, err := s.resolveDay(ctx, day)
	if err != nil {
		return schedule.DayAvailability{}, err
	}
	if win.Closed {
		return schedule.DayAvailability{IsClosed: true, ClosedReason: win.ClosedReason, Slots: []model.TimeSlot{}}, nil
	}

	appts, err := s.appts.ListBetween(ctx, dayStart(day), dayStart(day).AddDate(0, 0, 1))
	if err != nil {
		return schedule.DayAvailability{}, err
	}

	return schedule.SlotsForDay(win,
		time.Duration(svc.DurationMins)*time.Minute,
		time.Duration(settings.GranularityMins)*time.Minute,
		time.Duration(settings.BufferMins)*time.Minute,
		appts), nil
}

// Request is a booking attempt. IdempotencyKey, when set, makes retries of
// the same request replay the first outcome instead of double-booking.
type Request struct {
	CustomerID     string
	CustomerName   string
	CustomerEmail  string
	CustomerPhone  string
	PetID          string
	PetName        string
	ServiceID      string
	Date           string // YYYY-MM-DD
	StartTime      string // HH:MM
	Notes          string
	IdempotencyKey string
}

func (r *Request) validate() error {
	r.CustomerName = strings.TrimSpace(r.CustomerName)
	r.CustomerEmail = strings.TrimSpace(r.CustomerEmail)
	r.CustomerPhone = strings.TrimSpace(r.CustomerPhone)
	r.PetName = strings.TrimSpace(r.PetName)
	switch {
	case r.CustomerName == "":
		return fmt.Errorf("%w: customer_name is required", ErrInvalid)
	case r.CustomerEmail == "" && r.CustomerPhone == "":
		return fmt.Errorf("%w: an email or phone contact is required", ErrInvalid)
	case r.ServiceID == "":
		return fmt.Errorf("%w: service_id is required", ErrInvalid)
	}
	return nil
}

// Book validates the request, re-checks conflicts under row locks and commits
// the appointment together with its outbox event. The confirmation
// notification goes out after commit; its failure never unwinds the booking.
// The replayed return is true when an idempotency key matched a previous
// booking.
func (s *Service) Book(ctx context.Context, req Request) (model.Appointment, bool, error) {
	if err := req.validate(); err != nil {
		return model.Appointment{}, false, err
	}
	start, svc, err := s.parseSlot(ctx, req.Date, req.StartTime, req.ServiceID)
	if err != nil {
		return model.Appointment{}, false, err
	}

	tx, err := s.appts.Begin(ctx)
	if err != nil {
		return model.Appointment{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if req.IdempotencyKey != "" {
		existingID, err := s.appts.LockIdempotencyKey(ctx, tx, req.IdempotencyKey)
		if err != nil {
			return model.Appointment{}, false, err
		}
		if existingID != "" {
			appt, err := s.appts.Get(ctx, existingID)
			if err != nil {
				return model.Appointment{}, false, err
			}
			return appt, true, nil
		}
	}

	appt, err := s.createLocked(ctx, tx, req, start, svc)
	if err != nil {
		return model.Appointment{}, false, err
	}

	if req.IdempotencyKey != "" {
		if err := s.appts.FinalizeIdempotencyKey(ctx, tx, req.IdempotencyKey, appt.ID); err != nil {
			return model.Appointment{}, false, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, false, err
	}

	s.sendConfirmation(ctx, appt)
	return appt, false, nil
}

// BookForWaitlist books a freed slot for a waitlist entry. Racing acceptances
// hit the same conflict check; losers get schedule.ErrSlotConflict.
func (s *Service) BookForWaitlist(ctx context.Context, entry model.WaitlistEntry, date, slotTime string) (model.Appointment, error) {
	start, svc, err := s.parseSlot(ctx, date, slotTime, entry.ServiceID)
	if err != nil {
		return model.Appointment{}, err
	}

	tx, err := s.appts.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := s.createLocked(ctx, tx, Request{
		CustomerID:    entry.CustomerID,
		CustomerName:  entry.CustomerName,
		CustomerEmail: entry.CustomerEmail,
		CustomerPhone: entry.CustomerPhone,
		ServiceID:     entry.ServiceID,
		Notes:         "booked from waitlist",
	}, start, svc)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}

	s.sendConfirmation(ctx, appt)
	return appt, nil
}

// createLocked is the shared write path: lock the day's appointments, run the
// conflict check, insert, stage the outbox event. Callers own the transaction.
func (s *Service) createLocked(ctx context.Context, tx pgx.Tx, req Request, start time.Time, svc model.GroomService) (model.Appointment, error) {
	settings, err := s.settings.GetBookingSettings(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	duration := time.Duration(svc.DurationMins) * time.Minute
	buffer := time.Duration(settings.BufferMins) * time.Minute

	day := dayStart(start)
	existing, err := s.appts.ListBetweenForUpdate(ctx, tx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return model.Appointment{}, err
	}
	if schedule.HasConflict(start, duration, existing, buffer) {
		return model.Appointment{}, schedule.ErrSlotConflict
	}

	appt := model.Appointment{
		CustomerID:    req.CustomerID,
		PetID:         req.PetID,
		PetName:       req.PetName,
		ServiceID:     req.ServiceID,
		ServiceName:   svc.Name,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		ScheduledAt:   start,
		DurationMins:  svc.DurationMins,
		Status:        model.StatusConfirmed,
		Notes:         req.Notes,
	}
	id, err := s.appts.Create(ctx, tx, &appt)
	if err != nil {
		if storage.IsConflict(err) {
			// The exclusion constraint is the backstop under the row locks.
			return model.Appointment{}, schedule.ErrSlotConflict
		}
		return model.Appointment{}, err
	}
	appt.ID = id
	appt.CreatedAt = s.now().UTC()

	evt, err := outbox.AppointmentBooked(appt)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := s.outbox.Insert(ctx, tx, evt); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// Cancel marks an appointment cancelled and frees its slot. Cancelling an
// already-cancelled appointment is a no-op returning the current row. The
// returned appointment lets the caller kick off a waitlist fill for the freed
// slot.
func (s *Service) Cancel(ctx context.Context, id, reason string) (model.Appointment, error) {
	tx, err := s.appts.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := s.appts.GetForUpdate(ctx, tx, id)
	if err != nil {
		return model.Appointment{}, err
	}
	if appt.Status == model.StatusCancelled {
		return appt, tx.Commit(ctx)
	}
	if appt.Status == model.StatusCompleted {
		return model.Appointment{}, fmt.Errorf("%w: completed appointments cannot be cancelled", ErrInvalid)
	}

	cancelledAt, err := s.appts.Cancel(ctx, tx, id, reason)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Status = model.StatusCancelled
	appt.CancelledAt = &cancelledAt
	appt.CancelReason = reason

	evt, err := outbox.AppointmentCancelled(appt, reason)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := s.outbox.Insert(ctx, tx, evt); err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}

	s.sendCancellation(ctx, appt)
	return appt, nil
}

// parseSlot resolves the requested date and time against business hours and
// the service catalog.
func (s *Service) parseSlot(ctx context.Context, date, startTime, serviceID string) (time.Time, model.GroomService, error) {
	start, err := time.ParseInLocation("2006-01-02 15:04", date+" "+startTime, s.loc)
	if err != nil {
		return time.Time{}, model.GroomService{}, fmt.Errorf("%w: invalid date or time", ErrInvalid)
	}
	svc, err := s.services.Get(ctx, serviceID)
	if err != nil {
		if storage.IsNotFound(err) {
			return time.Time{}, model.GroomService{}, fmt.Errorf("%w: unknown service", ErrInvalid)
		}
		return time.Time{}, model.GroomService{}, err
	}

	win, _, err := s.resolveDay(ctx, start)
	if err != nil {
		return time.Time{}, model.GroomService{}, err
	}
	if win.Closed {
		return time.Time{}, model.GroomService{}, ErrSalonClosed
	}
	end := start.Add(time.Duration(svc.DurationMins) * time.Minute)
	if start.Before(win.Open) || end.After(win.Close) {
		return time.Time{}, model.GroomService{}, ErrOutsideHours
	}
	return start, svc, nil
}

func (s *Service) resolveDay(ctx context.Context, day time.Time) (schedule.DayWindow, model.BookingSettings, error) {
	hours, err := s.settings.GetHours(ctx)
	if err != nil {
		return schedule.DayWindow{}, model.BookingSettings{}, err
	}
	blocked, err := s.settings.ListBlockedDates(ctx)
	if err != nil {
		return schedule.DayWindow{}, model.BookingSettings{}, err
	}
	settings, err := s.settings.GetBookingSettings(ctx)
	if err != nil {
		return schedule.DayWindow{}, model.BookingSettings{}, err
	}
	return schedule.ResolveDay(day, hours, blocked), settings, nil
}

func (s *Service) sendConfirmation(ctx context.Context, appt model.Appointment) {
	s.sendLifecycle(ctx, appt, model.NotificationBookingConfirmation)
}

func (s *Service) sendCancellation(ctx context.Context, appt model.Appointment) {
	s.sendLifecycle(ctx, appt, model.NotificationCancellation)
}

func (s *Service) sendLifecycle(ctx context.Context, appt model.Appointment, msgType string) {
	channel := model.ChannelEmail
	recipient := appt.CustomerEmail
	if recipient == "" {
		channel = model.ChannelSMS
		recipient = appt.CustomerPhone
	}
	_, err := s.notifier.Dispatch(ctx, notify.Message{
		Type:       msgType,
		Channel:    channel,
		Recipient:  recipient,
		CustomerID: appt.CustomerID,
		Vars: map[string]string{
			"customer_name": appt.CustomerName,
			"pet_name":      appt.PetName,
			"service_name":  appt.ServiceName,
			"date":          appt.ScheduledAt.In(s.loc).Format("2006-01-02"),
			"time":          appt.ScheduledAt.In(s.loc).Format("15:04"),
		},
	})
	if err != nil && !errors.Is(err, notify.ErrSuppressed) {
		s.logger.Error("lifecycle notification failed",
			"appointment_id", appt.ID, "type", msgType, "err", err)
	}
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
