package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBookingEnd(t *testing.T) {
	start := time.Date(2026, 9, 14, 9, 0, 0, 0, time.Local)
	b := &Booking{Start: start, DurationMinutes: 90}
	assert.Equal(t, start.Add(90*time.Minute), b.End())
}

func TestBookingIsActive(t *testing.T) {
	assert.True(t, (&Booking{Status: StatusScheduled}).IsActive())
	assert.True(t, (&Booking{Status: StatusConfirmed}).IsActive())
	assert.False(t, (&Booking{Status: StatusCancelled}).IsActive())
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusScheduled))
	assert.True(t, ValidStatus(StatusConfirmed))
	assert.True(t, ValidStatus(StatusCancelled))
	assert.False(t, ValidStatus("COMPLETED"))
	assert.False(t, ValidStatus("scheduled"))
}
