package storage

import (
	"context"

	"github.com/velvetpaws/groomhub/internal/model"
	"github.com/velvetpaws/groomhub/libs/db"
)

// SettingsRepository holds business hours, blocked dates and the booking
// knobs. All of it fits in three small tables; the booking settings row is a
// single-row upsert.
type SettingsRepository struct {
	pool *db.Pool
}

func NewSettingsRepository(pool *db.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// GetHours returns the weekly schedule. Weekdays without a row come back
// absent; callers treat those as closed.
func (r *SettingsRepository) GetHours(ctx context.Context) ([]model.DayHours, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT weekday, closed, open_minute, close_minute
		FROM business_hours
		ORDER BY weekday
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.DayHours, 0, 7)
	for rows.Next() {
		var h model.DayHours
		if err := rows.Scan(&h.Weekday, &h.Closed, &h.OpenMinute, &h.CloseMinute); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *SettingsRepository) UpsertHours(ctx context.Context, hours []model.DayHours) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, h := range hours {
		if _, err := tx.Exec(ctx, `
			INSERT INTO business_hours (weekday, closed, open_minute, close_minute)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (weekday) DO UPDATE
			SET closed = EXCLUDED.closed,
				open_minute = EXCLUDED.open_minute,
				close_minute = EXCLUDED.close_minute
		`, h.Weekday, h.Closed, h.OpenMinute, h.CloseMinute); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *SettingsRepository) ListBlockedDates(ctx context.Context) ([]model.BlockedDate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, COALESCE(blocked_date::text, ''), COALESCE(weekday, 0), recurring, COALESCE(reason, '')
		FROM blocked_dates
		ORDER BY recurring DESC, blocked_date
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BlockedDate
	for rows.Next() {
		var b model.BlockedDate
		if err := rows.Scan(&b.ID, &b.Date, &b.Weekday, &b.Recurring, &b.Reason); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ReplaceBlockedDates swaps the whole set in one transaction, so a partial
// failure never leaves the calendar half-updated.
func (r *SettingsRepository) ReplaceBlockedDates(ctx context.Context, dates []model.BlockedDate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM blocked_dates`); err != nil {
		return err
	}
	for _, b := range dates {
		var date any
		if b.Date != "" {
			date = b.Date
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO blocked_dates (blocked_date, weekday, recurring, reason)
			VALUES ($1, $2, $3, $4)
		`, date, b.Weekday, b.Recurring, b.Reason); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// GetBookingSettings falls back to the defaults when the settings row was
// never written.
func (r *SettingsRepository) GetBookingSettings(ctx context.Context) (model.BookingSettings, error) {
	s := model.DefaultBookingSettings()
	err := r.pool.QueryRow(ctx, `
		SELECT granularity_minutes, buffer_minutes
		FROM salon_settings
		WHERE id = 1
	`).Scan(&s.GranularityMins, &s.BufferMins)
	if IsNotFound(err) {
		return model.DefaultBookingSettings(), nil
	}
	return s, err
}

func (r *SettingsRepository) UpdateBookingSettings(ctx context.Context, s model.BookingSettings) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO salon_settings (id, granularity_minutes, buffer_minutes)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE
		SET granularity_minutes = EXCLUDED.granularity_minutes,
			buffer_minutes = EXCLUDED.buffer_minutes
	`, s.GranularityMins, s.BufferMins)
	return err
}
