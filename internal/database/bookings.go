package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"clinicbook/internal/domain"
	"clinicbook/internal/models"
	"clinicbook/internal/schedule"

	"github.com/mattn/go-sqlite3"
)

const bookingColumns = `id, resource_id, subject_id, start, duration_minutes,
                 kind, status, notes, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	b := &models.Booking{}
	err := row.Scan(
		&b.ID, &b.ResourceID, &b.SubjectID, &b.Start, &b.DurationMinutes,
		&b.Kind, &b.Status, &b.Notes, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// FindByID returns the booking or domain.ErrNotFound.
func (db *DB) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find booking %s: %w", id, err)
	}
	return b, nil
}

// GetActiveBookingsForResource returns the SCHEDULED and CONFIRMED bookings
// occupying the resource's schedule, ordered by start.
func (db *DB) GetActiveBookingsForResource(ctx context.Context, resourceID string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
              FROM bookings
              WHERE resource_id = ? AND status IN (?, ?)
              ORDER BY start ASC`
	rows, err := db.QueryContext(ctx, query, resourceID, models.StatusScheduled, models.StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("get active bookings for %s: %w", resourceID, err)
	}
	defer rows.Close()
	return collectBookings(rows)
}

func getActiveForResourceTx(ctx context.Context, tx *sql.Tx, resourceID string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
              FROM bookings
              WHERE resource_id = ? AND status IN (?, ?)
              ORDER BY start ASC`
	rows, err := tx.QueryContext(ctx, query, resourceID, models.StatusScheduled, models.StatusConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

func collectBookings(rows *sql.Rows) ([]*models.Booking, error) {
	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

// wrapWriteError types SQLite writer contention (SQLITE_BUSY/SQLITE_LOCKED)
// as domain.ErrTransientStore so callers can retry; anything else keeps its
// plain wrapping.
func wrapWriteError(op string, err error) error {
	var serr sqlite3.Error
	if errors.As(err, &serr) && (serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%w: %s: %v", domain.ErrTransientStore, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// CreateSerialized checks the candidate window against the resource's active
// bookings and inserts, all inside one transaction, so no conflicting pair
// can both pass the check and commit.
func (db *DB) CreateSerialized(ctx context.Context, booking *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", domain.ErrTransientStore, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	active, err := getActiveForResourceTx(ctx, tx, booking.ResourceID)
	if err != nil {
		return wrapWriteError("check conflicts in tx", err)
	}
	if schedule.HasConflict(active, schedule.BookingWindow(booking), "") {
		return fmt.Errorf("%w: resource %s at %s", domain.ErrBookingConflict,
			booking.ResourceID, booking.Start.Format(time.RFC3339))
	}

	now := time.Now()
	query := `INSERT INTO bookings (
                id, resource_id, subject_id, start, duration_minutes,
                kind, status, notes, created_at, updated_at, version
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, query,
		booking.ID,
		booking.ResourceID,
		booking.SubjectID,
		booking.Start,
		booking.DurationMinutes,
		booking.Kind,
		booking.Status,
		booking.Notes,
		now,
		now,
		1,
	)
	if err != nil {
		return wrapWriteError("insert booking in tx", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit create: %v", domain.ErrTransientStore, err)
	}

	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	return nil
}

// RescheduleSerialized re-validates the booking's merged window against the
// target resource (excluding the booking itself) and commits the new fields
// under the booking's version, all inside one transaction.
func (db *DB) RescheduleSerialized(ctx context.Context, booking *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", domain.ErrTransientStore, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	active, err := getActiveForResourceTx(ctx, tx, booking.ResourceID)
	if err != nil {
		return wrapWriteError("check conflicts in tx", err)
	}
	if schedule.HasConflict(active, schedule.BookingWindow(booking), booking.ID) {
		return fmt.Errorf("%w: resource %s at %s", domain.ErrBookingConflict,
			booking.ResourceID, booking.Start.Format(time.RFC3339))
	}

	now := time.Now()
	query := `UPDATE bookings
              SET resource_id = ?, start = ?, duration_minutes = ?, notes = ?,
                  version = version + 1, updated_at = ?
              WHERE id = ? AND version = ?`
	result, err := tx.ExecContext(ctx, query,
		booking.ResourceID, booking.Start, booking.DurationMinutes, booking.Notes,
		now, booking.ID, booking.Version,
	)
	if err != nil {
		return wrapWriteError("update booking in tx", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: booking %s modified concurrently", domain.ErrTransientStore, booking.ID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit reschedule: %v", domain.ErrTransientStore, err)
	}

	booking.Version++
	booking.UpdatedAt = now
	return nil
}

// UpdateStatusWithVersion transitions a booking's status with optimistic
// locking. A lost version race surfaces as domain.ErrTransientStore so the
// caller can refetch and retry.
func (db *DB) UpdateStatusWithVersion(ctx context.Context, id string, fromVersion int64, status string) error {
	query := `UPDATE bookings
              SET status = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now(), id, fromVersion)
	if err != nil {
		return wrapWriteError("update booking status", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("%w: booking %s modified concurrently", domain.ErrTransientStore, id)
	}
	return nil
}

// List returns bookings matching the filter, ordered by start ascending.
func (db *DB) List(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	where, args := buildFilter(filter)
	query := `SELECT ` + bookingColumns + ` FROM bookings` + where + ` ORDER BY start ASC`
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()
	return collectBookings(rows)
}

// CountByStatus aggregates the filtered set by status. Statuses absent from
// the set are omitted, not zero-filled.
func (db *DB) CountByStatus(ctx context.Context, filter models.BookingFilter) (map[string]int64, error) {
	where, args := buildFilter(filter)
	query := `SELECT status, COUNT(*) FROM bookings` + where + ` GROUP BY status`
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count bookings by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

func buildFilter(filter models.BookingFilter) (string, []any) {
	var conds []string
	var args []any

	if filter.ResourceID != "" {
		conds = append(conds, "resource_id = ?")
		args = append(args, filter.ResourceID)
	}
	if filter.SubjectID != "" {
		conds = append(conds, "subject_id = ?")
		args = append(args, filter.SubjectID)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, filter.Kind)
	}
	if !filter.From.IsZero() {
		conds = append(conds, "start >= ?")
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		conds = append(conds, "start < ?")
		args = append(args, filter.To)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
