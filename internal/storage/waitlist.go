package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/velvetpaws/groomhub/internal/model"
	"github.com/velvetpaws/groomhub/internal/waitlist"
	"github.com/velvetpaws/groomhub/libs/db"
)

// WaitlistRepository backs the waitlist service. It satisfies waitlist.Store.
type WaitlistRepository struct {
	pool *db.Pool
}

func NewWaitlistRepository(pool *db.Pool) *WaitlistRepository {
	return &WaitlistRepository{pool: pool}
}

const waitlistColumns = `
	id::text, customer_id::text, customer_name, customer_phone, customer_email,
	service_id::text, requested_date::text, time_preference, status, created_at`

func scanWaitlistEntry(row pgx.Row) (model.WaitlistEntry, error) {
	var e model.WaitlistEntry
	err := row.Scan(
		&e.ID, &e.CustomerID, &e.CustomerName, &e.CustomerPhone, &e.CustomerEmail,
		&e.ServiceID, &e.RequestedDate, &e.TimePreference, &e.Status, &e.CreatedAt,
	)
	return e, err
}

func (r *WaitlistRepository) CreateEntry(ctx context.Context, e *model.WaitlistEntry) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO waitlist_entries
			(customer_id, customer_name, customer_phone, customer_email,
			 service_id, requested_date, time_preference, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'active')
		RETURNING id::text
	`, e.CustomerID, e.CustomerName, e.CustomerPhone, e.CustomerEmail,
		e.ServiceID, e.RequestedDate, e.TimePreference).Scan(&id)
	return id, err
}

func (r *WaitlistRepository) ListActiveEntries(ctx context.Context, serviceID, date string) ([]model.WaitlistEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+waitlistColumns+`
		FROM waitlist_entries
		WHERE status = 'active'
			AND service_id = $1
			AND requested_date = $2
		ORDER BY created_at ASC
	`, serviceID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WaitlistEntry
	for rows.Next() {
		e, err := scanWaitlistEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// List returns entries for the admin view, optionally filtered by status.
func (r *WaitlistRepository) List(ctx context.Context, status string, limit int) ([]model.WaitlistEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+waitlistColumns+`
		FROM waitlist_entries
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WaitlistEntry
	for rows.Next() {
		e, err := scanWaitlistEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *WaitlistRepository) GetEntry(ctx context.Context, id string) (model.WaitlistEntry, error) {
	return scanWaitlistEntry(r.pool.QueryRow(ctx, `
		SELECT `+waitlistColumns+`
		FROM waitlist_entries
		WHERE id = $1
	`, id))
}

func (r *WaitlistRepository) MarkOffered(ctx context.Context, entryID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE waitlist_entries
		SET status = 'offered'
		WHERE id = $1 AND status = 'active'
	`, entryID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *WaitlistRepository) CreateOffer(ctx context.Context, offer model.SlotOffer) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO waitlist_slot_offers
			(id, waitlist_entry_id, slot_date, slot_time, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, offer.ID, offer.WaitlistEntryID, offer.SlotDate, offer.SlotTime, offer.Status, offer.ExpiresAt)
	return err
}

func (r *WaitlistRepository) LatestPendingOffer(ctx context.Context, phone string, now time.Time) (model.SlotOffer, model.WaitlistEntry, error) {
	var o model.SlotOffer
	var e model.WaitlistEntry
	err := r.pool.QueryRow(ctx, `
		SELECT o.id::text, o.waitlist_entry_id::text, o.slot_date::text, o.slot_time, o.status, o.expires_at, o.created_at,
			w.id::text, w.customer_id::text, w.customer_name, w.customer_phone, w.customer_email,
			w.service_id::text, w.requested_date::text, w.time_preference, w.status, w.created_at
		FROM waitlist_slot_offers o
		JOIN waitlist_entries w ON w.id = o.waitlist_entry_id
		WHERE w.customer_phone = $1
			AND o.status = 'pending'
			AND o.expires_at > $2
		ORDER BY o.created_at DESC
		LIMIT 1
	`, phone, now).Scan(
		&o.ID, &o.WaitlistEntryID, &o.SlotDate, &o.SlotTime, &o.Status, &o.ExpiresAt, &o.CreatedAt,
		&e.ID, &e.CustomerID, &e.CustomerName, &e.CustomerPhone, &e.CustomerEmail,
		&e.ServiceID, &e.RequestedDate, &e.TimePreference, &e.Status, &e.CreatedAt,
	)
	if IsNotFound(err) {
		return model.SlotOffer{}, model.WaitlistEntry{}, waitlist.ErrNoPendingOffer
	}
	return o, e, err
}

func (r *WaitlistRepository) MarkBooked(ctx context.Context, entryID, offerID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE waitlist_entries SET status = 'booked' WHERE id = $1
	`, entryID); err != nil {
		return err
	}
	if offerID != "" {
		if _, err := tx.Exec(ctx, `
			UPDATE waitlist_slot_offers SET status = 'accepted' WHERE id = $1
		`, offerID); err != nil {
			return err
		}
	}
	// Outstanding offers for the same entry are dead once the customer booked.
	if _, err := tx.Exec(ctx, `
		UPDATE waitlist_slot_offers
		SET status = 'expired'
		WHERE waitlist_entry_id = $1 AND status = 'pending'
	`, entryID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *WaitlistRepository) CancelActiveByPhone(ctx context.Context, phone string) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE waitlist_entries
		SET status = 'cancelled'
		WHERE customer_phone = $1 AND status IN ('active', 'offered')
	`, phone)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// ExpireDue runs three idempotent updates: pending offers past their window
// go to expired, offered entries with no pending offer left fall back to
// active so a later fill can reach them again, and entries whose requested
// date has passed go to expired.
func (r *WaitlistRepository) ExpireDue(ctx context.Context, now time.Time) (offers int, entries int, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE waitlist_slot_offers
		SET status = 'expired'
		WHERE status = 'pending' AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, 0, err
	}
	offers = int(tag.RowsAffected())

	tag, err = tx.Exec(ctx, `
		UPDATE waitlist_entries w
		SET status = 'active'
		WHERE w.status = 'offered'
			AND NOT EXISTS (
				SELECT 1 FROM waitlist_slot_offers o
				WHERE o.waitlist_entry_id = w.id AND o.status = 'pending'
			)
	`)
	if err != nil {
		return 0, 0, err
	}

	tag, err = tx.Exec(ctx, `
		UPDATE waitlist_entries
		SET status = 'expired'
		WHERE status IN ('active', 'offered')
			AND requested_date < ($1 AT TIME ZONE 'UTC')::date
	`, now)
	if err != nil {
		return 0, 0, err
	}
	entries = int(tag.RowsAffected())

	return offers, entries, tx.Commit(ctx)
}
