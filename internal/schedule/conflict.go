package schedule

import "clinicbook/internal/models"

// HasConflict reports whether the candidate window overlaps any active
// booking in the snapshot. excludeID skips one booking so a reschedule is
// not checked against itself; pass "" when creating.
//
// The snapshot is expected to hold a single resource's bookings; the
// function itself is a pure decision over whatever it is given, so the
// caller owns snapshot freshness.
func HasConflict(bookings []*models.Booking, candidate Window, excludeID string) bool {
	for _, b := range bookings {
		if b.ID == excludeID {
			continue
		}
		if !b.IsActive() {
			continue
		}
		if candidate.Overlaps(BookingWindow(b)) {
			return true
		}
	}
	return false
}
