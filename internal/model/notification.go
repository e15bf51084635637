package model

import "time"

// Notification channels and record statuses.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"

	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

// Notification types drive template choice and dedup lookback windows.
const (
	NotificationBookingConfirmation = "booking_confirmation"
	NotificationAppointmentReminder = "appointment_reminder"
	NotificationRetentionReminder   = "retention_reminder"
	NotificationWaitlistOffer       = "waitlist_offer"
	NotificationCancellation        = "cancellation"
)

// NotificationRecord is one attempted message. The rendered subject/body are
// stored so the retry sweep can redeliver without re-rendering templates.
type NotificationRecord struct {
	ID           string
	Type         string
	Channel      string
	Recipient    string
	CustomerID   string
	Subject      string
	Body         string
	Status       string
	Permanent    bool
	RetryCount   int
	RetryAfter   *time.Time
	ErrorMessage string
	SentAt       *time.Time
	CreatedAt    time.Time
}
