package models

// EventsRequest filters the recent audit events listing.
type EventsRequest struct {
	Limit int    `query:"limit" default:"50" validate:"gte=1,lte=500"`
	Kind  string `query:"kind" validate:"omitempty,oneof=regime_transition entry exit blocked_entry periodic_summary"`
	Since string `query:"since"`
}
