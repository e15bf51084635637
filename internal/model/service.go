package model

// GroomService is an offered grooming service; its duration drives slot
// computation.
type GroomService struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DurationMins int    `json:"duration_minutes"`
	PriceCents   int    `json:"price_cents"`
	Description  string `json:"description,omitempty"`
	Active       bool   `json:"active"`
}
