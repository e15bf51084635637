package waitlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/velvetpaws/groomhub/internal/model"
	"github.com/velvetpaws/groomhub/internal/notify"
	"github.com/velvetpaws/groomhub/internal/schedule"
)

// ErrNoPendingOffer reports an inbound acceptance with nothing to claim.
var ErrNoPendingOffer = errors.New("no pending slot offer")

// Store is the persistence surface for waitlist entries and slot offers.
type Store interface {
	ListActiveEntries(ctx context.Context, serviceID, date string) ([]model.WaitlistEntry, error)
	GetEntry(ctx context.Context, id string) (model.WaitlistEntry, error)
	// MarkOffered transitions active -> offered; a false return means the entry
	// was concurrently claimed by another fill and must be skipped.
	MarkOffered(ctx context.Context, entryID string) (bool, error)
	CreateOffer(ctx context.Context, offer model.SlotOffer) error
	// LatestPendingOffer returns the newest unexpired pending offer for a phone.
	LatestPendingOffer(ctx context.Context, phone string, now time.Time) (model.SlotOffer, model.WaitlistEntry, error)
	MarkBooked(ctx context.Context, entryID, offerID string) error
	CancelActiveByPhone(ctx context.Context, phone string) (int, error)
	// ExpireDue transitions offers and entries past their window to expired.
	// Re-running on already-expired rows is a no-op.
	ExpireDue(ctx context.Context, now time.Time) (offers int, entries int, err error)
}

// Booker commits an appointment for a freed slot. It re-runs the authoritative
// conflict check; losers of an acceptance race get schedule.ErrSlotConflict.
type Booker interface {
	BookForWaitlist(ctx context.Context, entry model.WaitlistEntry, date, slotTime string) (model.Appointment, error)
}

// Notifier sends waitlist offer notifications.
type Notifier interface {
	Dispatch(ctx context.Context, msg notify.Message) (*model.NotificationRecord, error)
}

// Events stages a domain event for each created slot offer.
type Events interface {
	OfferCreated(ctx context.Context, offer model.SlotOffer, entry model.WaitlistEntry) error
}

type Service struct {
	store       Store
	booker      Booker
	notifier    Notifier
	logger      *slog.Logger
	events      Events
	offerWindow time.Duration
	offerLimit  int
	now         func() time.Time
}

type Config struct {
	OfferWindow time.Duration // how long an offer stays claimable
	OfferLimit  int           // max customers notified per freed slot
}

func NewService(store Store, booker Booker, notifier Notifier, logger *slog.Logger, cfg Config) *Service {
	if cfg.OfferWindow <= 0 {
		cfg.OfferWindow = 2 * time.Hour
	}
	if cfg.OfferLimit <= 0 {
		cfg.OfferLimit = 3
	}
	return &Service{
		store:       store,
		booker:      booker,
		notifier:    notifier,
		logger:      logger,
		offerWindow: cfg.OfferWindow,
		offerLimit:  cfg.OfferLimit,
		now:         time.Now,
	}
}

// SetEvents wires offer event staging.
func (s *Service) SetEvents(events Events) { s.events = events }

// MatchSlot returns the waitlist entries that would be offered a freed slot,
// without side effects. Admins use it to preview before filling.
func (s *Service) MatchSlot(ctx context.Context, serviceID, date, slotTime string) ([]model.WaitlistEntry, error) {
	entries, err := s.store.ListActiveEntries(ctx, serviceID, date)
	if err != nil {
		return nil, err
	}
	return Match(entries, slotTime, s.offerLimit), nil
}

// FillSlot offers a freed slot to matching waitlist customers: each selected
// entry moves to offered, gets a time-bounded SlotOffer and a notification.
// Nothing is booked here; booking happens when a customer accepts.
func (s *Service) FillSlot(ctx context.Context, serviceID, date, slotTime string) ([]model.SlotOffer, error) {
	matched, err := s.MatchSlot(ctx, serviceID, date, slotTime)
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().UTC().Add(s.offerWindow)
	var offers []model.SlotOffer
	for _, entry := range matched {
		claimed, err := s.store.MarkOffered(ctx, entry.ID)
		if err != nil {
			return offers, err
		}
		if !claimed {
			continue
		}

		offer := model.SlotOffer{
			ID:              uuid.NewString(),
			WaitlistEntryID: entry.ID,
			SlotDate:        date,
			SlotTime:        slotTime,
			Status:          model.OfferPending,
			ExpiresAt:       expiresAt,
		}
		if err := s.store.CreateOffer(ctx, offer); err != nil {
			return offers, err
		}
		offers = append(offers, offer)

		if s.events != nil {
			if err := s.events.OfferCreated(ctx, offer, entry); err != nil {
				s.logger.Error("offer event not staged", "offer_id", offer.ID, "err", err)
			}
		}
		s.notifyOffer(ctx, entry, date, slotTime)
	}
	return offers, nil
}

func (s *Service) notifyOffer(ctx context.Context, entry model.WaitlistEntry, date, slotTime string) {
	channel := model.ChannelSMS
	recipient := entry.CustomerPhone
	if recipient == "" {
		channel = model.ChannelEmail
		recipient = entry.CustomerEmail
	}
	if recipient == "" {
		s.logger.Warn("waitlist entry has no reachable contact", "entry_id", entry.ID)
		return
	}

	_, err := s.notifier.Dispatch(ctx, notify.Message{
		Type:       model.NotificationWaitlistOffer,
		Channel:    channel,
		Recipient:  recipient,
		CustomerID: entry.CustomerID,
		Vars: map[string]string{
			"customer_name": entry.CustomerName,
			"date":          date,
			"time":          slotTime,
			"expires_in":    formatWindow(s.offerWindow),
		},
	})
	if err != nil && !errors.Is(err, notify.ErrSuppressed) {
		// Offer stands even if the notification attempt failed; the retry
		// sweep picks up transient failures.
		s.logger.Error("waitlist offer notification failed", "entry_id", entry.ID, "err", err)
	}
}

// Book converts an entry into a confirmed appointment for the offered slot.
// The conflict check inside the booker is the source of truth: when several
// customers accept the same offer the first writer wins and the rest get
// schedule.ErrSlotConflict.
func (s *Service) Book(ctx context.Context, entryID, date, slotTime string) (model.Appointment, error) {
	entry, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		return model.Appointment{}, err
	}
	if entry.Status != model.WaitlistActive && entry.Status != model.WaitlistOffered {
		return model.Appointment{}, fmt.Errorf("waitlist entry is %s", entry.Status)
	}

	appt, err := s.booker.BookForWaitlist(ctx, entry, date, slotTime)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := s.store.MarkBooked(ctx, entry.ID, ""); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// HandleInboundSMS processes a customer reply and returns the response text to
// hand back to the SMS provider.
func (s *Service) HandleInboundSMS(ctx context.Context, from, body string) (string, error) {
	switch normalizeReply(body) {
	case "yes":
		return s.acceptOffer(ctx, from)
	case "stop":
		n, err := s.store.CancelActiveByPhone(ctx, from)
		if err != nil {
			return "", err
		}
		if n == 0 {
			return "You have no active waitlist entries.", nil
		}
		return "You have been removed from the waitlist.", nil
	default:
		return "Reply YES to claim an offered slot, or STOP to leave the waitlist.", nil
	}
}

func (s *Service) acceptOffer(ctx context.Context, from string) (string, error) {
	offer, entry, err := s.store.LatestPendingOffer(ctx, from, s.now().UTC())
	if err != nil {
		if errors.Is(err, ErrNoPendingOffer) {
			return "We couldn't find an open offer for this number.", nil
		}
		return "", err
	}

	appt, err := s.booker.BookForWaitlist(ctx, entry, offer.SlotDate, offer.SlotTime)
	if err != nil {
		if isConflict(err) {
			return "Sorry, that slot is no longer available.", nil
		}
		return "", err
	}
	if err := s.store.MarkBooked(ctx, entry.ID, offer.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("You're booked for %s at %s. See you then! (ref %s)", offer.SlotDate, offer.SlotTime, appt.ID), nil
}

// ExpireSweep batch-transitions offers and entries past their window. Safe to
// re-run; a second pass over the same data is a no-op.
func (s *Service) ExpireSweep(ctx context.Context) (offers int, entries int, err error) {
	return s.store.ExpireDue(ctx, s.now().UTC())
}

func isConflict(err error) bool {
	return errors.Is(err, schedule.ErrSlotConflict)
}

func normalizeReply(body string) string {
	b := strings.ToLower(strings.TrimSpace(body))
	switch b {
	case "yes", "y", "yes!", "yes.":
		return "yes"
	case "stop", "unsubscribe", "cancel":
		return "stop"
	default:
		return b
	}
}

func formatWindow(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	return fmt.Sprintf("%d minutes", int(d/time.Minute))
}
