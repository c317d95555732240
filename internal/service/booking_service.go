package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clinicbook/internal/config"
	"clinicbook/internal/domain"
	"clinicbook/internal/events"
	"clinicbook/internal/metrics"
	"clinicbook/internal/models"
	"clinicbook/internal/schedule"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BookingService is the booking lifecycle manager. Every create and
// reschedule holds the resource lock across its conflict check and commit;
// confirm and cancel are optimistic single-row transitions.
type BookingService struct {
	store    domain.BookingStore
	locker   domain.ResourceLocker
	eventBus domain.EventPublisher
	cfg      config.BookingConfig
	retry    RetryPolicy
	logger   *zerolog.Logger
}

func NewBookingService(store domain.BookingStore, locker domain.ResourceLocker, eventBus domain.EventPublisher, cfg config.BookingConfig, logger *zerolog.Logger) *BookingService {
	if cfg.DefaultDurationMinutes <= 0 {
		cfg.DefaultDurationMinutes = models.DefaultDurationMinutes
	}
	if cfg.SlotMinutes <= 0 {
		cfg.SlotMinutes = models.DefaultSlotMinutes
	}
	if cfg.BusinessDayStartHour == 0 && cfg.BusinessDayEndHour == 0 {
		cfg.BusinessDayStartHour = models.DefaultBusinessDayStartHour
		cfg.BusinessDayEndHour = models.DefaultBusinessDayEndHour
	}
	if cfg.MaxAdvanceDays <= 0 {
		cfg.MaxAdvanceDays = models.DefaultMaxAdvanceDays
	}
	if cfg.LockWaitSeconds <= 0 {
		cfg.LockWaitSeconds = models.DefaultLockWaitSeconds
	}
	return &BookingService{
		store:    store,
		locker:   locker,
		eventBus: eventBus,
		cfg:      cfg,
		retry:    DefaultRetryPolicy,
		logger:   logger,
	}
}

// Create validates the request, conflict-checks the window and persists a
// new SCHEDULED booking, atomically per resource.
func (s *BookingService) Create(ctx context.Context, req domain.CreateRequest) (*models.Booking, error) {
	if req.DurationMinutes == 0 {
		req.DurationMinutes = s.cfg.DefaultDurationMinutes
	}
	if err := s.validateCreate(req); err != nil {
		metrics.ObserveOp("create", "invalid")
		return nil, err
	}

	booking := &models.Booking{
		ID:              uuid.NewString(),
		ResourceID:      req.ResourceID,
		SubjectID:       req.SubjectID,
		Start:           req.Start,
		DurationMinutes: req.DurationMinutes,
		Kind:            req.Kind,
		Status:          models.StatusScheduled,
		Notes:           req.Notes,
	}

	release, err := s.acquireResource(ctx, booking.ResourceID)
	if err != nil {
		metrics.ObserveOp("create", "transient")
		return nil, err
	}
	defer release()

	if err := s.store.CreateSerialized(ctx, booking); err != nil {
		if errors.Is(err, domain.ErrBookingConflict) {
			metrics.IncConflict()
			metrics.ObserveOp("create", "conflict")
		} else {
			metrics.ObserveOp("create", "error")
		}
		return nil, err
	}

	metrics.ObserveOp("create", "ok")
	s.publish(events.EventBookingCreated, booking)
	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("resource_id", booking.ResourceID).
		Time("start", booking.Start).
		Int("duration_minutes", booking.DurationMinutes).
		Msg("booking created")
	return booking, nil
}

// Reschedule merges the requested field changes into the booking,
// re-validates the window against the target resource excluding the booking
// itself, and commits atomically.
func (s *BookingService) Reschedule(ctx context.Context, req domain.RescheduleRequest) (*models.Booking, error) {
	if req.ID == "" {
		metrics.ObserveOp("reschedule", "invalid")
		return nil, domain.NewValidationError("id", "required")
	}
	if req.ResourceID == nil && req.Start == nil && req.DurationMinutes == nil && req.Notes == nil {
		metrics.ObserveOp("reschedule", "invalid")
		return nil, domain.NewValidationError("fields", "at least one field must be provided")
	}

	current, err := s.store.FindByID(ctx, req.ID)
	if err != nil {
		metrics.ObserveOp("reschedule", lookupOutcome(err))
		return nil, err
	}
	if current.Status == models.StatusCancelled {
		metrics.ObserveOp("reschedule", "invalid_transition")
		return nil, fmt.Errorf("%w: cannot reschedule a cancelled booking", domain.ErrInvalidTransition)
	}

	merged := *current
	if req.ResourceID != nil {
		merged.ResourceID = *req.ResourceID
	}
	if req.Start != nil {
		merged.Start = *req.Start
	}
	if req.DurationMinutes != nil {
		merged.DurationMinutes = *req.DurationMinutes
	}
	if req.Notes != nil {
		merged.Notes = *req.Notes
	}
	if err := s.validateWindow(merged.ResourceID, merged.Start, merged.DurationMinutes); err != nil {
		metrics.ObserveOp("reschedule", "invalid")
		return nil, err
	}

	// Conflicts can only arise on the resource the booking lands on, so
	// only that one is locked even when the booking moves between
	// practitioners.
	release, err := s.acquireResource(ctx, merged.ResourceID)
	if err != nil {
		metrics.ObserveOp("reschedule", "transient")
		return nil, err
	}
	defer release()

	if err := s.store.RescheduleSerialized(ctx, &merged); err != nil {
		if errors.Is(err, domain.ErrBookingConflict) {
			metrics.IncConflict()
			metrics.ObserveOp("reschedule", "conflict")
		} else {
			metrics.ObserveOp("reschedule", "error")
		}
		return nil, err
	}

	metrics.ObserveOp("reschedule", "ok")
	s.publish(events.EventBookingRescheduled, &merged)
	s.logger.Info().
		Str("booking_id", merged.ID).
		Str("resource_id", merged.ResourceID).
		Time("start", merged.Start).
		Msg("booking rescheduled")
	return &merged, nil
}

// Confirm transitions a SCHEDULED booking to CONFIRMED.
func (s *BookingService) Confirm(ctx context.Context, id string) (*models.Booking, error) {
	return s.transition(ctx, id, "confirm")
}

// Cancel transitions an active booking to CANCELLED, freeing its window.
// CANCELLED is terminal; cancelling again is an invalid transition.
func (s *BookingService) Cancel(ctx context.Context, id string) (*models.Booking, error) {
	return s.transition(ctx, id, "cancel")
}

// transition performs an optimistic read-modify-write of the status field,
// retrying lost version races per the retry policy. The resource lock is
// not needed: status changes never widen a booking's window.
func (s *BookingService) transition(ctx context.Context, id string, op string) (*models.Booking, error) {
	if id == "" {
		metrics.ObserveOp(op, "invalid")
		return nil, domain.NewValidationError("id", "required")
	}

	var lastErr error
	for attempt := 1; attempt <= s.retry.MaxRetries; attempt++ {
		booking, err := s.store.FindByID(ctx, id)
		if err != nil {
			metrics.ObserveOp(op, lookupOutcome(err))
			return nil, err
		}

		var target, eventType string
		switch op {
		case "confirm":
			if booking.Status != models.StatusScheduled {
				metrics.ObserveOp(op, "invalid_transition")
				return nil, fmt.Errorf("%w: confirm requires SCHEDULED, booking is %s",
					domain.ErrInvalidTransition, booking.Status)
			}
			target, eventType = models.StatusConfirmed, events.EventBookingConfirmed
		case "cancel":
			if !booking.IsActive() {
				metrics.ObserveOp(op, "invalid_transition")
				return nil, fmt.Errorf("%w: booking is already %s",
					domain.ErrInvalidTransition, booking.Status)
			}
			target, eventType = models.StatusCancelled, events.EventBookingCancelled
		default:
			return nil, fmt.Errorf("unknown transition %q", op)
		}

		err = s.store.UpdateStatusWithVersion(ctx, booking.ID, booking.Version, target)
		if errors.Is(err, domain.ErrTransientStore) {
			lastErr = err
			if waitErr := s.retry.Wait(ctx, attempt); waitErr != nil {
				break
			}
			continue
		}
		if err != nil {
			metrics.ObserveOp(op, "error")
			return nil, err
		}

		booking.Status = target
		booking.Version++
		metrics.ObserveOp(op, "ok")
		s.publish(eventType, booking)
		s.logger.Info().Str("booking_id", booking.ID).Str("status", target).Msg("booking status changed")
		return booking, nil
	}

	metrics.ObserveOp(op, "transient")
	return nil, lastErr
}

// Get returns a booking by id.
func (s *BookingService) Get(ctx context.Context, id string) (*models.Booking, error) {
	if id == "" {
		return nil, domain.NewValidationError("id", "required")
	}
	return s.store.FindByID(ctx, id)
}

// AvailableSlots returns the free slot start times for a resource on a day,
// probing the configured grid against the resource's active bookings.
func (s *BookingService) AvailableSlots(ctx context.Context, resourceID string, day time.Time) ([]time.Time, error) {
	if resourceID == "" {
		return nil, domain.NewValidationError("resource_id", "required")
	}

	started := time.Now()
	defer func() { metrics.ObserveAvailability(time.Since(started)) }()

	bookings, err := s.store.GetActiveBookingsForResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	hours := schedule.BusinessHours{
		StartHour: s.cfg.BusinessDayStartHour,
		EndHour:   s.cfg.BusinessDayEndHour,
	}
	return schedule.AvailableSlots(bookings, day, hours, s.cfg.SlotMinutes), nil
}

func (s *BookingService) validateCreate(req domain.CreateRequest) error {
	if req.SubjectID == "" {
		return domain.NewValidationError("subject_id", "required")
	}
	if req.Kind == "" {
		return domain.NewValidationError("kind", "required")
	}
	return s.validateWindow(req.ResourceID, req.Start, req.DurationMinutes)
}

func (s *BookingService) validateWindow(resourceID string, start time.Time, durationMinutes int) error {
	if resourceID == "" {
		return domain.NewValidationError("resource_id", "required")
	}
	if start.IsZero() {
		return domain.NewValidationError("start", "required")
	}
	if durationMinutes <= 0 {
		return domain.NewValidationError("duration_minutes", "must be positive")
	}

	now := time.Now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, start.Location())
	if start.Before(todayStart) {
		return domain.NewValidationError("start", "is in the past")
	}
	if start.After(now.AddDate(0, 0, s.cfg.MaxAdvanceDays)) {
		return domain.NewValidationError("start", fmt.Sprintf("more than %d days ahead", s.cfg.MaxAdvanceDays))
	}
	return nil
}

// lookupOutcome labels a FindByID failure for the operations counter: a
// missing booking is "not_found", everything else is a store "error".
func lookupOutcome(err error) string {
	if errors.Is(err, domain.ErrNotFound) {
		return "not_found"
	}
	return "error"
}

func (s *BookingService) acquireResource(ctx context.Context, resourceID string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.LockWaitSeconds)*time.Second)
	defer cancel()
	return s.locker.Acquire(lockCtx, resourceID)
}

func (s *BookingService) publish(eventType string, booking *models.Booking) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:       booking.ID,
		ResourceID:      booking.ResourceID,
		SubjectID:       booking.SubjectID,
		Start:           booking.Start,
		DurationMinutes: booking.DurationMinutes,
		Kind:            booking.Kind,
		Status:          booking.Status,
		Notes:           booking.Notes,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", booking.ID).Msg("publish event error")
	}
}
