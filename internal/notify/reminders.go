package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/velvetpaws/groomhub/internal/model"
)

// ReminderSource supplies the appointments and customers the reminder crons
// work through.
type ReminderSource interface {
	ListUpcoming(ctx context.Context, from, to time.Time) ([]model.Appointment, error)
	ListLapsedCustomers(ctx context.Context, cutoff time.Time, limit int) ([]model.CustomerContact, error)
}

// Reminders drives the scheduled notification runs. Dedup inside the
// dispatcher makes both runs safe to re-trigger within the same day.
type Reminders struct {
	source     ReminderSource
	dispatcher *Dispatcher
	logger     *slog.Logger
	loc        *time.Location
	now        func() time.Time
}

func NewReminders(source ReminderSource, dispatcher *Dispatcher, logger *slog.Logger, loc *time.Location) *Reminders {
	if loc == nil {
		loc = time.UTC
	}
	return &Reminders{
		source:     source,
		dispatcher: dispatcher,
		logger:     logger,
		loc:        loc,
		now:        time.Now,
	}
}

type RunResult struct {
	Candidates int `json:"candidates"`
	Sent       int `json:"sent"`
	Suppressed int `json:"suppressed"`
	Failed     int `json:"failed"`
}

// RunAppointmentReminders notifies customers with an appointment starting
// within the lookahead window.
func (r *Reminders) RunAppointmentReminders(ctx context.Context, lookahead time.Duration) (RunResult, error) {
	if lookahead <= 0 {
		lookahead = 24 * time.Hour
	}
	now := r.now()
	appts, err := r.source.ListUpcoming(ctx, now, now.Add(lookahead))
	if err != nil {
		return RunResult{}, err
	}

	var res RunResult
	res.Candidates = len(appts)
	for _, a := range appts {
		channel, recipient := preferredContact(a.CustomerEmail, a.CustomerPhone)
		r.tally(&res, r.dispatch(ctx, Message{
			Type:       model.NotificationAppointmentReminder,
			Channel:    channel,
			Recipient:  recipient,
			CustomerID: a.CustomerID,
			Vars: map[string]string{
				"customer_name": a.CustomerName,
				"pet_name":      a.PetName,
				"service_name":  a.ServiceName,
				"date":          a.ScheduledAt.In(r.loc).Format("2006-01-02"),
				"time":          a.ScheduledAt.In(r.loc).Format("15:04"),
			},
		}))
	}
	r.logger.Info("appointment reminder run finished",
		"candidates", res.Candidates, "sent", res.Sent, "suppressed", res.Suppressed, "failed", res.Failed)
	return res, nil
}

// RunRetention nudges customers whose last completed visit is older than the
// cutoff and who have nothing booked.
func (r *Reminders) RunRetention(ctx context.Context, lapsedAfter time.Duration, limit int) (RunResult, error) {
	if lapsedAfter <= 0 {
		lapsedAfter = 60 * 24 * time.Hour
	}
	customers, err := r.source.ListLapsedCustomers(ctx, r.now().Add(-lapsedAfter), limit)
	if err != nil {
		return RunResult{}, err
	}

	var res RunResult
	res.Candidates = len(customers)
	for _, c := range customers {
		channel, recipient := preferredContact(c.Email, c.Phone)
		r.tally(&res, r.dispatch(ctx, Message{
			Type:       model.NotificationRetentionReminder,
			Channel:    channel,
			Recipient:  recipient,
			CustomerID: c.CustomerID,
			Vars: map[string]string{
				"customer_name": c.Name,
				"pet_name":      c.PetName,
			},
		}))
	}
	r.logger.Info("retention run finished",
		"candidates", res.Candidates, "sent", res.Sent, "suppressed", res.Suppressed, "failed", res.Failed)
	return res, nil
}

type runOutcome int

const (
	outcomeSent runOutcome = iota
	outcomeSuppressed
	outcomeFailed
)

func (r *Reminders) dispatch(ctx context.Context, msg Message) runOutcome {
	rec, err := r.dispatcher.Dispatch(ctx, msg)
	switch {
	case errors.Is(err, ErrSuppressed):
		return outcomeSuppressed
	case err != nil:
		r.logger.Error("reminder dispatch failed", "type", msg.Type, "customer_id", msg.CustomerID, "err", err)
		return outcomeFailed
	case rec.Status != model.NotificationSent:
		return outcomeFailed
	default:
		return outcomeSent
	}
}

func (r *Reminders) tally(res *RunResult, o runOutcome) {
	switch o {
	case outcomeSent:
		res.Sent++
	case outcomeSuppressed:
		res.Suppressed++
	default:
		res.Failed++
	}
}

func preferredContact(email, phone string) (channel, recipient string) {
	if email != "" {
		return model.ChannelEmail, email
	}
	return model.ChannelSMS, phone
}
