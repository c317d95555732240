package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"clinicbook/internal/config"
	"clinicbook/internal/domain"
	"clinicbook/internal/models"

	"github.com/rs/zerolog"
)

// HTTPServer exposes the booking core over a small JSON API.
type HTTPServer struct {
	cfg      *config.APIConfig
	bookings domain.BookingLifecycle
	reports  domain.BookingReporter
	server   *http.Server
	log      zerolog.Logger
}

func NewHTTPServer(cfg *config.APIConfig, bookings domain.BookingLifecycle, reports domain.BookingReporter, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:      cfg,
		bookings: bookings,
		reports:  reports,
		log:      logger.With().Str("component", "http").Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	mux.HandleFunc("/api/v1/bookings/", srv.handleBooking)
	mux.HandleFunc("/api/v1/availability/", srv.handleAvailability)
	mux.HandleFunc("/api/v1/reports/status", srv.handleStatusReport)
	mux.HandleFunc("/healthz", srv.handleHealth)

	limiter := newRateLimiter(cfg)
	handler := srv.loggingMiddleware(limiter.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// POST /api/v1/bookings          create
// GET  /api/v1/bookings?filters  list
func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createBooking(w, r)
	case http.MethodGet:
		s.listBookings(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type createBookingRequest struct {
	ResourceID      string `json:"resource_id"`
	SubjectID       string `json:"subject_id"`
	Start           string `json:"start"`
	DurationMinutes int    `json:"duration_minutes"`
	Kind            string `json:"kind"`
	Notes           string `json:"notes"`
}

func (s *HTTPServer) createBooking(w http.ResponseWriter, r *http.Request) {
	var body createBookingRequest
	if err := decodeStrict(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := domain.CreateRequest{
		ResourceID:      body.ResourceID,
		SubjectID:       body.SubjectID,
		DurationMinutes: body.DurationMinutes,
		Kind:            body.Kind,
		Notes:           body.Notes,
	}
	if body.Start != "" {
		start, err := parseLocalTime(body.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start; expected RFC3339 or YYYY-MM-DDTHH:MM")
			return
		}
		req.Start = start
	}

	booking, err := s.bookings.Create(r.Context(), req)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) listBookings(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bookings, err := s.reports.List(r.Context(), filter)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if bookings == nil {
		bookings = []*models.Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

// GET  /api/v1/bookings/{id}
// POST /api/v1/bookings/{id}/confirm
// POST /api/v1/bookings/{id}/cancel
// POST /api/v1/bookings/{id}/reschedule
func (s *HTTPServer) handleBooking(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/bookings/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	id := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		booking, err := s.bookings.Get(r.Context(), id)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)
		return
	}

	if len(parts) != 2 || r.Method != http.MethodPost {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	var booking *models.Booking
	var err error
	switch parts[1] {
	case "confirm":
		booking, err = s.bookings.Confirm(r.Context(), id)
	case "cancel":
		booking, err = s.bookings.Cancel(r.Context(), id)
	case "reschedule":
		booking, err = s.rescheduleBooking(r, id)
	default:
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

type rescheduleBookingRequest struct {
	ResourceID      *string `json:"resource_id"`
	Start           *string `json:"start"`
	DurationMinutes *int    `json:"duration_minutes"`
	Notes           *string `json:"notes"`
}

func (s *HTTPServer) rescheduleBooking(r *http.Request, id string) (*models.Booking, error) {
	var body rescheduleBookingRequest
	if err := decodeStrict(r, &body); err != nil {
		return nil, domain.NewValidationError("body", err.Error())
	}

	req := domain.RescheduleRequest{
		ID:              id,
		ResourceID:      body.ResourceID,
		DurationMinutes: body.DurationMinutes,
		Notes:           body.Notes,
	}
	if body.Start != nil {
		start, err := parseLocalTime(*body.Start)
		if err != nil {
			return nil, domain.NewValidationError("start", "expected RFC3339 or YYYY-MM-DDTHH:MM")
		}
		req.Start = &start
	}

	return s.bookings.Reschedule(r.Context(), req)
}

// GET /api/v1/availability/{resourceID}?date=YYYY-MM-DD
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resourceID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/availability/"), "/")
	if resourceID == "" || strings.Contains(resourceID, "/") {
		writeError(w, http.StatusBadRequest, "resource id is required")
		return
	}

	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	day, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	slots, err := s.bookings.AvailableSlots(r.Context(), resourceID, day)
	if err != nil {
		s.writeFailure(w, err)
		return
	}

	// Local times of day, no timezone conversion.
	formatted := make([]string, 0, len(slots))
	for _, slot := range slots {
		formatted = append(formatted, slot.Format("15:04"))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"resource_id": resourceID,
		"date":        dateStr,
		"slots":       formatted,
	})
}

// GET /api/v1/reports/status?filters
func (s *HTTPServer) handleStatusReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	counts, err := s.reports.AggregateByStatus(r.Context(), filter)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"counts": counts})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func filterFromQuery(r *http.Request) (models.BookingFilter, error) {
	q := r.URL.Query()
	filter := models.BookingFilter{
		ResourceID: q.Get("resource_id"),
		SubjectID:  q.Get("subject_id"),
		Status:     q.Get("status"),
		Kind:       q.Get("kind"),
	}
	if from := q.Get("from"); from != "" {
		t, err := parseLocalTime(from)
		if err != nil {
			return filter, fmt.Errorf("invalid from: %s", from)
		}
		filter.From = t
	}
	if to := q.Get("to"); to != "" {
		t, err := parseLocalTime(to)
		if err != nil {
			return filter, fmt.Errorf("invalid to: %s", to)
		}
		filter.To = t
	}
	return filter, nil
}

// parseLocalTime accepts RFC3339, a local datetime, or a bare date.
func parseLocalTime(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", value)
}

func decodeStrict(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %v", err)
	}
	return nil
}

// writeFailure maps the failure taxonomy onto HTTP status codes.
func (s *HTTPServer) writeFailure(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrBookingConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrTransientStore):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.log.Error().Err(err).Msg("unhandled API error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	})
}
