package schedule

import (
	"time"

	"clinicbook/internal/models"
)

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow builds a window from a start time and duration.
func NewWindow(start time.Time, duration time.Duration) Window {
	return Window{Start: start, End: start.Add(duration)}
}

// BookingWindow returns the window occupied by a booking.
func BookingWindow(b *models.Booking) Window {
	return Window{Start: b.Start, End: b.End()}
}

// Overlaps reports whether two windows intersect. Windows that merely
// touch (w.End == other.Start) do not overlap: booking ends are exclusive,
// so a visit may start the instant the previous one ends.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// Duration returns the window length.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}
