package service

import (
	"context"

	"clinicbook/internal/domain"
	"clinicbook/internal/models"

	"github.com/rs/zerolog"
)

// ReportService is the read-only query surface over the booking store.
type ReportService struct {
	store  domain.BookingStore
	logger *zerolog.Logger
}

func NewReportService(store domain.BookingStore, logger *zerolog.Logger) *ReportService {
	return &ReportService{store: store, logger: logger}
}

// List returns bookings matching the filter, ordered by start ascending.
func (s *ReportService) List(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	return s.store.List(ctx, filter)
}

// AggregateByStatus counts the filtered bookings per status. Only statuses
// present in the filtered set appear as keys.
func (s *ReportService) AggregateByStatus(ctx context.Context, filter models.BookingFilter) (map[string]int64, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	return s.store.CountByStatus(ctx, filter)
}

func validateFilter(filter models.BookingFilter) error {
	if filter.Status != "" && !models.ValidStatus(filter.Status) {
		return domain.NewValidationError("status", "unknown status "+filter.Status)
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return domain.NewValidationError("to", "precedes from")
	}
	return nil
}
