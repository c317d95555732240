package models

import "time"

// Booking occupies a practitioner's time for a single patient visit.
// The occupied window is the half-open interval [Start, End()).
type Booking struct {
	ID              string    `json:"id"`
	ResourceID      string    `json:"resource_id"`
	SubjectID       string    `json:"subject_id"`
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"duration_minutes"`
	Kind            string    `json:"kind"`
	Status          string    `json:"status"` // SCHEDULED, CONFIRMED, CANCELLED
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Version         int64     `json:"version"`
}

// End returns the exclusive end of the occupied window.
func (b *Booking) End() time.Time {
	return b.Start.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// IsActive reports whether the booking still occupies its window.
// Cancelled bookings leave the schedule permanently.
func (b *Booking) IsActive() bool {
	return b.Status == StatusScheduled || b.Status == StatusConfirmed
}

// BookingFilter constrains List and CountByStatus queries.
// Zero-valued fields are ignored. From/To bound Start as [From, To).
type BookingFilter struct {
	ResourceID string
	SubjectID  string
	Status     string
	Kind       string
	From       time.Time
	To         time.Time
}
