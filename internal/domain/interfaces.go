package domain

import (
	"context"
	"time"

	"clinicbook/internal/models"
)

// BookingStore is the persistence collaborator for the booking core.
type BookingStore interface {
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	GetActiveBookingsForResource(ctx context.Context, resourceID string) ([]*models.Booking, error)

	// CreateSerialized runs the conflict check and the insert as one
	// atomic unit with respect to other mutations on the same resource.
	CreateSerialized(ctx context.Context, booking *models.Booking) error

	// RescheduleSerialized re-validates the merged window (excluding the
	// booking itself) and commits the field changes atomically, guarded
	// by the booking's version.
	RescheduleSerialized(ctx context.Context, booking *models.Booking) error

	UpdateStatusWithVersion(ctx context.Context, id string, fromVersion int64, status string) error

	List(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error)
	CountByStatus(ctx context.Context, filter models.BookingFilter) (map[string]int64, error)
}

// ResourceLocker serializes mutations per resource. Acquire blocks until
// the lock is held or ctx expires; the returned func releases it.
type ResourceLocker interface {
	Acquire(ctx context.Context, resourceID string) (func(), error)
}

// EventPublisher emits booking lifecycle events to in-process consumers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// BookingLifecycle is what the transport layer sees of the lifecycle manager.
type BookingLifecycle interface {
	Create(ctx context.Context, req CreateRequest) (*models.Booking, error)
	Reschedule(ctx context.Context, req RescheduleRequest) (*models.Booking, error)
	Confirm(ctx context.Context, id string) (*models.Booking, error)
	Cancel(ctx context.Context, id string) (*models.Booking, error)
	Get(ctx context.Context, id string) (*models.Booking, error)
	AvailableSlots(ctx context.Context, resourceID string, day time.Time) ([]time.Time, error)
}

// BookingReporter is the read-only query surface.
type BookingReporter interface {
	List(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error)
	AggregateByStatus(ctx context.Context, filter models.BookingFilter) (map[string]int64, error)
}

// CreateRequest carries the validated inputs for a new booking.
type CreateRequest struct {
	ResourceID      string    `json:"resource_id"`
	SubjectID       string    `json:"subject_id"`
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"duration_minutes"` // 0 means the configured default
	Kind            string    `json:"kind"`
	Notes           string    `json:"notes"`
}

// RescheduleRequest carries partial updates to a booking's window.
// Nil fields keep their current value.
type RescheduleRequest struct {
	ID              string     `json:"-"`
	ResourceID      *string    `json:"resource_id"`
	Start           *time.Time `json:"start"`
	DurationMinutes *int       `json:"duration_minutes"`
	Notes           *string    `json:"notes"`
}
