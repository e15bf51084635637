package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/velvetpaws/groomhub/internal/model"
	"github.com/velvetpaws/groomhub/libs/db"
)

type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const appointmentColumns = `
	a.id::text, a.customer_id::text, a.pet_id::text, a.pet_name,
	a.service_id::text, COALESCE(s.name, ''),
	a.customer_name, a.customer_email, a.customer_phone,
	a.scheduled_at, a.duration_minutes, a.status, a.notes,
	a.cancelled_at, COALESCE(a.cancellation_reason, ''), a.created_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	var cancelledAt *time.Time
	err := row.Scan(
		&a.ID, &a.CustomerID, &a.PetID, &a.PetName,
		&a.ServiceID, &a.ServiceName,
		&a.CustomerName, &a.CustomerEmail, &a.CustomerPhone,
		&a.ScheduledAt, &a.DurationMins, &a.Status, &a.Notes,
		&cancelledAt, &a.CancelReason, &a.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	a.CancelledAt = cancelledAt
	return a, nil
}

func collectAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	defer rows.Close()
	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// ListBetween returns appointments scheduled in [from, to), newest constraint
// first. Cancelled rows are included; callers filter via Blocks().
func (r *AppointmentRepository) ListBetween(ctx context.Context, from, to time.Time) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		LEFT JOIN services s ON s.id = a.service_id
		WHERE a.scheduled_at >= $1 AND a.scheduled_at < $2
		ORDER BY a.scheduled_at ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// ListBetweenForUpdate locks the day's occupying appointments inside the
// booking transaction. The lock plus the conflict check is the authoritative
// double-booking guard; the slot list shown to clients is only a hint.
func (r *AppointmentRepository) ListBetweenForUpdate(ctx context.Context, tx pgx.Tx, from, to time.Time) ([]model.Appointment, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		LEFT JOIN services s ON s.id = a.service_id
		WHERE a.scheduled_at >= $1 AND a.scheduled_at < $2
			AND a.status NOT IN ('cancelled', 'no_show')
		ORDER BY a.scheduled_at ASC
		FOR UPDATE OF a
	`, from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *AppointmentRepository) Create(ctx context.Context, tx pgx.Tx, a *model.Appointment) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO appointments
			(customer_id, pet_id, pet_name, service_id, customer_name, customer_email, customer_phone,
			 scheduled_at, duration_minutes, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id::text
	`, a.CustomerID, a.PetID, a.PetName, a.ServiceID, a.CustomerName, a.CustomerEmail, a.CustomerPhone,
		a.ScheduledAt, a.DurationMins, a.Status, a.Notes).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// LockIdempotencyKey claims a client idempotency key inside the booking
// transaction. The second return is the appointment already recorded under
// the key, empty when this request is the first claimant.
func (r *AppointmentRepository) LockIdempotencyKey(ctx context.Context, tx pgx.Tx, key string) (string, error) {
	selectForUpdate := `
		SELECT COALESCE(appointment_id::text, '')
		FROM booking_idempotency_keys
		WHERE idempotency_key = $1
		FOR UPDATE`

	var appointmentID string
	err := tx.QueryRow(ctx, selectForUpdate, key).Scan(&appointmentID)
	if err == nil {
		return appointmentID, nil
	}
	if !IsNotFound(err) {
		return "", err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (idempotency_key)
		VALUES ($1)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, key); err != nil {
		return "", err
	}
	return "", tx.QueryRow(ctx, selectForUpdate, key).Scan(&appointmentID)
}

func (r *AppointmentRepository) FinalizeIdempotencyKey(ctx context.Context, tx pgx.Tx, key, appointmentID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE booking_idempotency_keys
		SET appointment_id = $2, updated_at = now()
		WHERE idempotency_key = $1
	`, key, appointmentID)
	return err
}

func (r *AppointmentRepository) Get(ctx context.Context, id string) (model.Appointment, error) {
	return scanAppointment(r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		LEFT JOIN services s ON s.id = a.service_id
		WHERE a.id = $1
	`, id))
}

func (r *AppointmentRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.Appointment, error) {
	return scanAppointment(tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		LEFT JOIN services s ON s.id = a.service_id
		WHERE a.id = $1
		FOR UPDATE OF a
	`, id))
}

func (r *AppointmentRepository) Cancel(ctx context.Context, tx pgx.Tx, id, reason string) (time.Time, error) {
	var cancelledAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
			cancelled_at = now(),
			cancellation_reason = $2
		WHERE id = $1
		RETURNING cancelled_at
	`, id, reason).Scan(&cancelledAt)
	return cancelledAt, err
}

// TransitionStatus is a compare-and-swap over the status column: the update
// applies only when the current status is one of expected. A false return
// means another writer got there first.
func (r *AppointmentRepository) TransitionStatus(ctx context.Context, id string, expected []string, to string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET status = $3
		WHERE id = $1 AND status = ANY($2)
	`, id, expected, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListUpcoming returns confirmed or pending appointments starting in [from, to),
// the reminder cron's working set.
func (r *AppointmentRepository) ListUpcoming(ctx context.Context, from, to time.Time) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		LEFT JOIN services s ON s.id = a.service_id
		WHERE a.scheduled_at >= $1 AND a.scheduled_at < $2
			AND a.status IN ('pending', 'confirmed')
		ORDER BY a.scheduled_at ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// ListLapsedCustomers returns customers whose most recent completed appointment
// is before cutoff and who have none scheduled, for retention reminders.
func (r *AppointmentRepository) ListLapsedCustomers(ctx context.Context, cutoff time.Time, limit int) ([]model.CustomerContact, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT customer_id::text,
			max(customer_name),
			max(customer_email),
			max(customer_phone),
			max(pet_name),
			max(scheduled_at) AS last_visit
		FROM appointments
		WHERE status = 'completed'
		GROUP BY customer_id
		HAVING max(scheduled_at) < $1
			AND NOT EXISTS (
				SELECT 1 FROM appointments b
				WHERE b.customer_id = appointments.customer_id
					AND b.status IN ('pending', 'confirmed')
					AND b.scheduled_at > now()
			)
		ORDER BY last_visit ASC
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CustomerContact
	for rows.Next() {
		var c model.CustomerContact
		if err := rows.Scan(&c.CustomerID, &c.Name, &c.Email, &c.Phone, &c.PetName, &c.LastVisit); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
