package model

import "time"

// Waitlist entry statuses.
const (
	WaitlistActive    = "active"
	WaitlistOffered   = "offered"
	WaitlistBooked    = "booked"
	WaitlistExpired   = "expired"
	WaitlistCancelled = "cancelled"
)

// Time-of-day preferences. Morning is before 12:00, afternoon 12:00 or later.
const (
	PreferMorning   = "morning"
	PreferAfternoon = "afternoon"
	PreferAny       = "any"
)

type WaitlistEntry struct {
	ID             string
	CustomerID     string
	CustomerName   string
	CustomerPhone  string
	CustomerEmail  string
	ServiceID      string
	RequestedDate  string // YYYY-MM-DD
	TimePreference string
	Status         string
	CreatedAt      time.Time
}

// Slot offer statuses.
const (
	OfferPending  = "pending"
	OfferAccepted = "accepted"
	OfferExpired  = "expired"
)

// SlotOffer is a time-bounded invitation to book an opened slot, granting
// first-come booking rights until it expires.
type SlotOffer struct {
	ID              string
	WaitlistEntryID string
	SlotDate        string // YYYY-MM-DD
	SlotTime        string // HH:MM
	Status          string
	ExpiresAt       time.Time
	CreatedAt       time.Time
}
