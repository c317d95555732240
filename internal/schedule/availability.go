package schedule

import (
	"time"

	"clinicbook/internal/models"
)

// BusinessHours bound the bookable part of a day, whole hours.
type BusinessHours struct {
	StartHour int
	EndHour   int
}

// AvailableSlots enumerates the free slot start times for one resource on
// one day. Candidates step from hours.StartHour by slotMinutes; a candidate
// survives iff a slot-sized window starting there conflicts with nothing in
// the snapshot. No slot is produced that would extend past hours.EndHour.
//
// Output is chronological and recomputed fresh on every call. An empty
// snapshot yields the full grid.
func AvailableSlots(bookings []*models.Booking, day time.Time, hours BusinessHours, slotMinutes int) []time.Time {
	if slotMinutes <= 0 {
		slotMinutes = models.DefaultSlotMinutes
	}
	step := time.Duration(slotMinutes) * time.Minute

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), hours.StartHour, 0, 0, 0, day.Location())
	dayEnd := time.Date(day.Year(), day.Month(), day.Day(), hours.EndHour, 0, 0, 0, day.Location())

	var slots []time.Time
	for cur := dayStart; !cur.Add(step).After(dayEnd); cur = cur.Add(step) {
		if !HasConflict(bookings, Window{Start: cur, End: cur.Add(step)}, "") {
			slots = append(slots, cur)
		}
	}
	return slots
}
