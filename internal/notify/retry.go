package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/velvetpaws/groomhub/internal/model"
)

// ErrSweepInProgress reports that another sweep holds the lock.
var ErrSweepInProgress = errors.New("retry sweep already running")

// RetryStore is the storage surface the sweeper drains. ClaimDue leases
// matching failed records by pushing retry_after forward inside one statement
// (FOR UPDATE SKIP LOCKED underneath), so two sweeps racing past the lock never
// claim the same row, and a claim whose sweep dies falls due again when the
// lease lapses.
type RetryStore interface {
	ClaimDue(ctx context.Context, now time.Time, maxRetries, limit int) ([]model.NotificationRecord, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, retryCount int, permanent bool, retryAfter *time.Time, errMsg string) error
}

type SweepResult struct {
	Claimed   int `json:"claimed"`
	Sent      int `json:"sent"`
	Retried   int `json:"retried"`
	Exhausted int `json:"exhausted"`
}

// Sweeper re-attempts failed notification sends. A record stays failed until a
// redelivery lands (-> sent) or the retry budget is spent (-> failed
// permanently).
type Sweeper struct {
	store     RetryStore
	email     EmailSender
	sms       SMSSender
	lock      Locker
	logger    *slog.Logger
	backoff   Backoff
	events    Events
	batchSize int
	now       func() time.Time
}

func NewSweeper(store RetryStore, email EmailSender, sms SMSSender, lock Locker, logger *slog.Logger, backoff Backoff, batchSize int) *Sweeper {
	if batchSize <= 0 {
		batchSize = 50
	}
	if lock == nil {
		lock = NoopLock{}
	}
	return &Sweeper{
		store:     store,
		email:     email,
		sms:       sms,
		lock:      lock,
		logger:    logger,
		backoff:   backoff,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// SetEvents wires outcome event staging for redelivery results.
func (s *Sweeper) SetEvents(events Events) { s.events = events }

// Sweep claims due retryable records and redelivers them using the stored
// rendered subject/body. Retry counts only ever increase; a record at the max
// is marked permanently failed and never claimed again.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	release, ok := s.lock.TryLock(ctx)
	if !ok {
		return SweepResult{}, ErrSweepInProgress
	}
	defer release()

	var res SweepResult
	records, err := s.store.ClaimDue(ctx, s.now().UTC(), s.backoff.MaxRetries, s.batchSize)
	if err != nil {
		return res, err
	}
	res.Claimed = len(records)

	for _, rec := range records {
		if err := s.redeliver(ctx, rec); err != nil {
			attempt := rec.RetryCount + 1
			permanent := IsPermanent(err) || attempt >= s.backoff.MaxRetries
			var retryAfter *time.Time
			if !permanent {
				at := s.now().UTC().Add(s.backoff.Delay(attempt))
				retryAfter = &at
			}
			if markErr := s.store.MarkFailed(ctx, rec.ID, attempt, permanent, retryAfter, err.Error()); markErr != nil {
				return res, markErr
			}
			rec.Status = model.NotificationFailed
			rec.RetryCount = attempt
			rec.Permanent = permanent
			rec.RetryAfter = retryAfter
			rec.ErrorMessage = err.Error()
			s.stageOutcome(ctx, rec)
			if permanent {
				res.Exhausted++
				s.logger.Warn("notification permanently failed",
					"id", rec.ID, "type", rec.Type, "retries", attempt, "err", err)
			} else {
				res.Retried++
			}
			continue
		}
		sentAt := s.now().UTC()
		if err := s.store.MarkSent(ctx, rec.ID, sentAt); err != nil {
			return res, err
		}
		rec.Status = model.NotificationSent
		rec.SentAt = &sentAt
		rec.ErrorMessage = ""
		s.stageOutcome(ctx, rec)
		res.Sent++
	}

	s.logger.Info("retry sweep finished",
		"claimed", res.Claimed, "sent", res.Sent, "retried", res.Retried, "exhausted", res.Exhausted)
	return res, nil
}

func (s *Sweeper) stageOutcome(ctx context.Context, rec model.NotificationRecord) {
	if s.events == nil {
		return
	}
	if err := s.events.NotificationOutcome(ctx, rec); err != nil {
		s.logger.Error("notification outcome event not staged", "id", rec.ID, "err", err)
	}
}

func (s *Sweeper) redeliver(ctx context.Context, rec model.NotificationRecord) error {
	switch rec.Channel {
	case model.ChannelEmail:
		return s.email.Send(ctx, rec.Recipient, rec.Subject, rec.Body)
	case model.ChannelSMS:
		return s.sms.Send(ctx, rec.Recipient, rec.Body)
	default:
		return PermanentError(errors.New("unsupported channel: " + rec.Channel))
	}
}
