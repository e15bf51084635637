package outbox

import (
	"encoding/json"
	"time"

	"github.com/velvetpaws/groomhub/internal/model"
)

// Event types double as Kafka topic names, one topic per event.
const (
	EventAppointmentBooked    = "booking.appointment.booked.v1"
	EventAppointmentCancelled = "booking.appointment.cancelled.v1"
	EventOfferCreated         = "waitlist.offer.created.v1"
	EventNotificationSent     = "notification.sent.v1"
	EventNotificationFailed   = "notification.failed.v1"
)

// Event is the domain event envelope staged in the outbox table and published
// by the relay.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

func newEvent(aggregateType, aggregateID, eventType string, payload any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       body,
	}, nil
}

func AppointmentBooked(a model.Appointment) (Event, error) {
	return newEvent("appointment", a.ID, EventAppointmentBooked, map[string]any{
		"appointment_id": a.ID,
		"customer_id":    a.CustomerID,
		"service_id":     a.ServiceID,
		"scheduled_at":   a.ScheduledAt.UTC().Format(time.RFC3339),
		"duration_mins":  a.DurationMins,
	})
}

func AppointmentCancelled(a model.Appointment, reason string) (Event, error) {
	return newEvent("appointment", a.ID, EventAppointmentCancelled, map[string]any{
		"appointment_id": a.ID,
		"customer_id":    a.CustomerID,
		"service_id":     a.ServiceID,
		"scheduled_at":   a.ScheduledAt.UTC().Format(time.RFC3339),
		"reason":         reason,
	})
}

func OfferCreated(offer model.SlotOffer, entry model.WaitlistEntry) (Event, error) {
	return newEvent("slot_offer", offer.ID, EventOfferCreated, map[string]any{
		"offer_id":    offer.ID,
		"waitlist_id": entry.ID,
		"customer_id": entry.CustomerID,
		"slot_date":   offer.SlotDate,
		"slot_time":   offer.SlotTime,
		"expires_at":  offer.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func NotificationOutcome(rec model.NotificationRecord) (Event, error) {
	eventType := EventNotificationSent
	if rec.Status == model.NotificationFailed {
		eventType = EventNotificationFailed
	}
	return newEvent("notification", rec.ID, eventType, map[string]any{
		"notification_id": rec.ID,
		"type":            rec.Type,
		"channel":         rec.Channel,
		"status":          rec.Status,
		"permanent":       rec.Permanent,
		"retry_count":     rec.RetryCount,
	})
}
