package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/velvetpaws/groomhub/internal/model"
)

// ErrSuppressed marks a dispatch that was skipped because an identical reminder
// was already sent within the type's lookback window.
var ErrSuppressed = errors.New("duplicate notification suppressed")

// Message describes one notification to deliver.
type Message struct {
	Type       string
	Channel    string
	Recipient  string
	CustomerID string
	Vars       map[string]string
}

// EmailSender delivers a rendered email message.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMSSender delivers a rendered SMS message.
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
	ProviderID() string
}

// Store persists notification attempt records and answers dedup lookups.
type Store interface {
	Insert(ctx context.Context, rec *model.NotificationRecord) error
	HasRecentSent(ctx context.Context, msgType, customerID string, since time.Time) (bool, error)
}

// Events stages a domain event after a notification outcome is persisted.
type Events interface {
	NotificationOutcome(ctx context.Context, rec model.NotificationRecord) error
}

type Dispatcher struct {
	store   Store
	email   EmailSender
	sms     SMSSender
	logger  *slog.Logger
	backoff Backoff
	events  Events
	now     func() time.Time
}

func NewDispatcher(store Store, email EmailSender, sms SMSSender, logger *slog.Logger, backoff Backoff) *Dispatcher {
	return &Dispatcher{
		store:   store,
		email:   email,
		sms:     sms,
		logger:  logger,
		backoff: backoff,
		now:     time.Now,
	}
}

// SetEvents wires outcome event staging. Without it outcomes are only
// persisted to the notifications log.
func (d *Dispatcher) SetEvents(events Events) { d.events = events }

// DedupWindow is how far back a sent record of the same type for the same
// customer suppresses a new send. Zero means no dedup for that type.
func DedupWindow(msgType string) time.Duration {
	switch msgType {
	case model.NotificationAppointmentReminder:
		return 24 * time.Hour
	case model.NotificationRetentionReminder:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// Dispatch renders the message template, sends it through the channel provider
// and persists exactly one NotificationRecord for the attempt. The returned
// record carries the outcome; a failed send is not an error for the caller.
// Returns ErrSuppressed when the dedup window skips the send entirely.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) (*model.NotificationRecord, error) {
	if window := DedupWindow(msg.Type); window > 0 && msg.CustomerID != "" {
		dup, err := d.store.HasRecentSent(ctx, msg.Type, msg.CustomerID, d.now().Add(-window))
		if err != nil {
			return nil, err
		}
		if dup {
			d.logger.Info("notification suppressed by dedup window",
				"type", msg.Type, "customer_id", msg.CustomerID)
			return nil, ErrSuppressed
		}
	}

	rec := &model.NotificationRecord{
		ID:         uuid.NewString(),
		Type:       msg.Type,
		Channel:    msg.Channel,
		Recipient:  strings.TrimSpace(msg.Recipient),
		CustomerID: msg.CustomerID,
		Status:     model.NotificationPending,
		CreatedAt:  d.now().UTC(),
	}

	tmpl, ok := ForType(msg.Type, msg.Channel)
	if !ok {
		return d.recordFailure(ctx, rec, PermanentError(fmt.Errorf("no template for %s/%s", msg.Type, msg.Channel)))
	}
	subject, body, err := tmpl.RenderTemplate(msg.Vars)
	if err != nil {
		return d.recordFailure(ctx, rec, PermanentError(err))
	}
	rec.Subject = subject
	rec.Body = body

	if rec.Recipient == "" {
		return d.recordFailure(ctx, rec, PermanentError(errors.New("empty recipient")))
	}

	if err := d.send(ctx, rec.Channel, rec.Recipient, subject, body); err != nil {
		d.logger.Error("notification send failed",
			"type", msg.Type, "channel", msg.Channel, "permanent", IsPermanent(err), "err", err)
		return d.recordFailure(ctx, rec, err)
	}

	sentAt := d.now().UTC()
	rec.Status = model.NotificationSent
	rec.SentAt = &sentAt
	if err := d.store.Insert(ctx, rec); err != nil {
		return nil, err
	}
	d.stageOutcome(ctx, *rec)
	return rec, nil
}

// stageOutcome is best effort; the log row is already committed and the event
// only mirrors it.
func (d *Dispatcher) stageOutcome(ctx context.Context, rec model.NotificationRecord) {
	if d.events == nil {
		return
	}
	if err := d.events.NotificationOutcome(ctx, rec); err != nil {
		d.logger.Error("notification outcome event not staged", "id", rec.ID, "err", err)
	}
}

func (d *Dispatcher) send(ctx context.Context, channel, recipient, subject, body string) error {
	switch channel {
	case model.ChannelEmail:
		return d.email.Send(ctx, recipient, subject, body)
	case model.ChannelSMS:
		return d.sms.Send(ctx, recipient, body)
	default:
		return PermanentError(fmt.Errorf("unsupported channel: %s", channel))
	}
}

func (d *Dispatcher) recordFailure(ctx context.Context, rec *model.NotificationRecord, sendErr error) (*model.NotificationRecord, error) {
	rec.Status = model.NotificationFailed
	rec.ErrorMessage = sendErr.Error()
	if IsPermanent(sendErr) {
		rec.Permanent = true
	} else {
		retryAfter := d.now().UTC().Add(d.backoff.Delay(1))
		rec.RetryAfter = &retryAfter
	}
	if err := d.store.Insert(ctx, rec); err != nil {
		return nil, err
	}
	d.stageOutcome(ctx, *rec)
	return rec, nil
}
