package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/velvetpaws/groomhub/internal/model"
	"github.com/velvetpaws/groomhub/libs/db"
)

// NotificationRepository persists the notification log. It satisfies both
// notify.Store and notify.RetryStore.
type NotificationRepository struct {
	pool *db.Pool
}

func NewNotificationRepository(pool *db.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

const notificationColumns = `
	id::text, type, channel, recipient, COALESCE(customer_id::text, ''),
	subject, body, status, permanent, retry_count, retry_after,
	COALESCE(error_message, ''), sent_at, created_at`

func scanNotification(row pgx.Row) (model.NotificationRecord, error) {
	var n model.NotificationRecord
	err := row.Scan(
		&n.ID, &n.Type, &n.Channel, &n.Recipient, &n.CustomerID,
		&n.Subject, &n.Body, &n.Status, &n.Permanent, &n.RetryCount, &n.RetryAfter,
		&n.ErrorMessage, &n.SentAt, &n.CreatedAt,
	)
	return n, err
}

func (r *NotificationRepository) Insert(ctx context.Context, rec *model.NotificationRecord) error {
	var customerID any
	if rec.CustomerID != "" {
		customerID = rec.CustomerID
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications_log
			(id, type, channel, recipient, customer_id, subject, body,
			 status, permanent, retry_count, retry_after, error_message, sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), $13, $14)
	`, rec.ID, rec.Type, rec.Channel, rec.Recipient, customerID, rec.Subject, rec.Body,
		rec.Status, rec.Permanent, rec.RetryCount, rec.RetryAfter, rec.ErrorMessage, rec.SentAt, rec.CreatedAt)
	return err
}

func (r *NotificationRepository) HasRecentSent(ctx context.Context, msgType, customerID string, since time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notifications_log
			WHERE type = $1 AND customer_id = $2
				AND status = 'sent' AND sent_at >= $3
		)
	`, msgType, customerID, since).Scan(&exists)
	return exists, err
}

// claimLease is how long a claimed row stays invisible to other sweeps.
const claimLease = 5 * time.Minute

// ClaimDue leases due retryable failures by pushing retry_after past the claim
// window, and returns them. The rows stay failed, so claims held by a sweep
// that died before MarkSent/MarkFailed fall due again once the lease lapses.
// SKIP LOCKED keeps concurrent sweeps from claiming the same rows.
func (r *NotificationRepository) ClaimDue(ctx context.Context, now time.Time, maxRetries, limit int) ([]model.NotificationRecord, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE notifications_log
		SET retry_after = $4
		WHERE id IN (
			SELECT id FROM notifications_log
			WHERE status = 'failed'
				AND permanent = false
				AND retry_count < $2
				AND retry_after IS NOT NULL
				AND retry_after <= $1
			ORDER BY retry_after ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+notificationColumns,
		now, maxRetries, limit, now.Add(claimLease))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.NotificationRecord
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NotificationRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications_log
		SET status = 'sent', sent_at = $2, error_message = NULL, retry_after = NULL
		WHERE id = $1
	`, id, at)
	return err
}

func (r *NotificationRepository) MarkFailed(ctx context.Context, id string, retryCount int, permanent bool, retryAfter *time.Time, errMsg string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications_log
		SET status = 'failed',
			retry_count = $2,
			permanent = $3,
			retry_after = $4,
			error_message = $5
		WHERE id = $1
	`, id, retryCount, permanent, retryAfter, errMsg)
	return err
}

// List returns recent log rows for the admin view, optionally filtered by
// status.
func (r *NotificationRepository) List(ctx context.Context, status string, limit int) ([]model.NotificationRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications_log
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.NotificationRecord
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
