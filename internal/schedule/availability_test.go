package schedule

import (
	"testing"
	"time"

	"clinicbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slotTimes(t *testing.T, slots []time.Time) []string {
	t.Helper()
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Format("15:04"))
	}
	return out
}

func TestAvailableSlotsFullGridWhenEmpty(t *testing.T) {
	day := time.Date(2026, 9, 14, 0, 0, 0, 0, time.Local)
	slots := AvailableSlots(nil, day, BusinessHours{StartHour: 8, EndHour: 10}, 30)

	assert.Equal(t, []string{"08:00", "08:30", "09:00", "09:30"}, slotTimes(t, slots))
}

func TestAvailableSlotsSkipsBookedWindow(t *testing.T) {
	day := time.Date(2026, 9, 14, 0, 0, 0, 0, time.Local)
	bookings := []*models.Booking{
		booking("b1", models.StatusConfirmed, 9, 0, 30),
	}

	slots := AvailableSlots(bookings, day, BusinessHours{StartHour: 8, EndHour: 10}, 30)
	assert.Equal(t, []string{"08:00", "08:30", "09:30"}, slotTimes(t, slots))
}

func TestAvailableSlotsAfterCancellation(t *testing.T) {
	day := time.Date(2026, 9, 14, 0, 0, 0, 0, time.Local)
	b := booking("b1", models.StatusConfirmed, 9, 0, 30)
	bookings := []*models.Booking{b}

	before := AvailableSlots(bookings, day, BusinessHours{StartHour: 8, EndHour: 10}, 30)
	assert.NotContains(t, slotTimes(t, before), "09:00")

	b.Status = models.StatusCancelled
	after := AvailableSlots(bookings, day, BusinessHours{StartHour: 8, EndHour: 10}, 30)
	assert.Contains(t, slotTimes(t, after), "09:00")
}

func TestAvailableSlotsStopsBeforeClosing(t *testing.T) {
	day := time.Date(2026, 9, 14, 0, 0, 0, 0, time.Local)

	// 25-minute slots in a 8:00-9:00 day: 08:50 would run past 9:00.
	slots := AvailableSlots(nil, day, BusinessHours{StartHour: 8, EndHour: 9}, 25)
	assert.Equal(t, []string{"08:00", "08:25"}, slotTimes(t, slots))
}

func TestAvailableSlotsNeverConflict(t *testing.T) {
	day := time.Date(2026, 9, 14, 0, 0, 0, 0, time.Local)
	bookings := []*models.Booking{
		booking("b1", models.StatusConfirmed, 8, 15, 45),
		booking("b2", models.StatusScheduled, 11, 0, 90),
		booking("b3", models.StatusCancelled, 14, 0, 240),
	}

	slots := AvailableSlots(bookings, day, BusinessHours{StartHour: 8, EndHour: 18}, 30)
	require.NotEmpty(t, slots)
	for _, s := range slots {
		assert.False(t, HasConflict(bookings, NewWindow(s, 30*time.Minute), ""),
			"slot %s conflicts with an active booking", s.Format("15:04"))
	}
}

func TestAvailableSlotsChronological(t *testing.T) {
	day := time.Date(2026, 9, 14, 0, 0, 0, 0, time.Local)
	slots := AvailableSlots(nil, day, BusinessHours{StartHour: 8, EndHour: 18}, 30)

	require.Len(t, slots, 20)
	for i := 1; i < len(slots); i++ {
		assert.True(t, slots[i-1].Before(slots[i]))
	}
}
