package models

const (
	StatusScheduled = "SCHEDULED"
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
)

// ValidStatus reports whether s is one of the known booking statuses.
func ValidStatus(s string) bool {
	return s == StatusScheduled || s == StatusConfirmed || s == StatusCancelled
}

const (
	// DefaultDurationMinutes applies when a create request omits duration.
	DefaultDurationMinutes = 60

	// DefaultSlotMinutes is the availability probing granularity.
	DefaultSlotMinutes = 30

	// DefaultBusinessDayStartHour / EndHour bound the bookable day.
	DefaultBusinessDayStartHour = 8
	DefaultBusinessDayEndHour   = 18

	// DefaultMaxAdvanceDays is how far ahead a booking may be placed.
	DefaultMaxAdvanceDays = 365

	// DefaultLockWaitSeconds bounds resource lock acquisition.
	DefaultLockWaitSeconds = 5

	// DefaultLockTTLSeconds is the Redis lock lease time.
	DefaultLockTTLSeconds = 10
)
