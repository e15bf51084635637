package model

import "time"

// Appointment statuses. Appointments are soft-cancelled, never deleted.
const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusCheckedIn  = "checked_in"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusNoShow     = "no_show"
)

type Appointment struct {
	ID            string
	CustomerID    string
	PetID         string
	PetName       string
	ServiceID     string
	ServiceName   string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	ScheduledAt   time.Time
	DurationMins  int
	Status        string
	Notes         string
	CancelledAt   *time.Time
	CancelReason  string
	CreatedAt     time.Time
}

// End returns the end of the service itself, without cleanup buffer.
func (a Appointment) End() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.DurationMins) * time.Minute)
}

// Blocks reports whether the appointment occupies calendar time.
// Cancelled and no-show appointments free their slot.
func (a Appointment) Blocks() bool {
	return a.Status != StatusCancelled && a.Status != StatusNoShow
}

// CustomerContact is the reachable identity of a customer, used by reminder
// and retention jobs.
type CustomerContact struct {
	CustomerID string
	Name       string
	Email      string
	Phone      string
	PetName    string
	LastVisit  time.Time
}

// TimeSlot is a computed candidate start time for a given date. It is never
// persisted; slot lists are regenerated per availability query.
type TimeSlot struct {
	StartTime     string `json:"start_time"` // HH:MM, salon-local
	Available     bool   `json:"available"`
	ConflictCount int    `json:"conflict_count,omitempty"`
}
