package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nylour/internal/models"
)

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	query := `INSERT INTO bookings (
				salon_id, customer_id, service_name, price, status, date,
				cancellation_fee, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	if booking.Status == "" {
		booking.Status = models.StatusPending
	}
	result, err := db.ExecContext(ctx, query,
		booking.SalonID,
		booking.CustomerID,
		booking.ServiceName,
		booking.Price,
		booking.Status,
		booking.Date,
		booking.CancellationFee,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1

	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT id, salon_id, customer_id, service_name, price, status, date,
                     cancellation_fee, created_at, updated_at, version
              FROM bookings WHERE id = ?`
	var b models.Booking
	err := db.QueryRowContext(ctx, query, id).Scan(
		&b.ID, &b.SalonID, &b.CustomerID, &b.ServiceName, &b.Price, &b.Status,
		&b.Date, &b.CancellationFee, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &b, nil
}

func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error {
	query := `UPDATE bookings SET status = ?, updated_at = ?, version = version + 1
              WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		var exists int
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE id = ?`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check booking existence: %w", err)
		}
		if exists == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

// CancelBookingWithFee cancels the booking and records the fee in one
// transaction, mirroring the multi-step "apply cancellation fee"
// procedure of the backing store.
func (db *DB) CancelBookingWithFee(ctx context.Context, id, fromVersion int64, fee float64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `UPDATE bookings SET status = ?, cancellation_fee = ?, updated_at = ?, version = version + 1
              WHERE id = ? AND version = ?`
	result, err := tx.ExecContext(ctx, query, models.StatusCancelled, fee, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to cancel booking in tx: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE id = ?`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check booking existence in tx: %w", err)
		}
		if exists == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	// A cancelled booking releases its queue slot too.
	queueQuery := `UPDATE queue_entries SET status = ?, updated_at = ?, version = version + 1
                   WHERE booking_id = ? AND status = ?`
	if _, err := tx.ExecContext(ctx, queueQuery, models.QueueStatusCancelled, time.Now(), id, models.QueueStatusWaiting); err != nil {
		return fmt.Errorf("failed to release queue entry in tx: %w", err)
	}

	return tx.Commit()
}

// HasActiveBooking reports whether the customer already holds a
// non-cancelled booking at the salon for the given day.
func (db *DB) HasActiveBooking(ctx context.Context, salonID, customerID int64, dayStart time.Time) (bool, error) {
	dayEnd := dayStart.AddDate(0, 0, 1)
	query := `SELECT COUNT(*) FROM bookings
              WHERE salon_id = ? AND customer_id = ? AND status NOT IN (?, ?)
                AND date >= ? AND date < ?`
	var count int
	err := db.QueryRowContext(ctx, query, salonID, customerID,
		models.StatusCancelled, models.StatusCompleted, dayStart, dayEnd).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check active booking: %w", err)
	}
	return count > 0, nil
}

func (db *DB) GetCustomerBookings(ctx context.Context, customerID int64) ([]*models.Booking, error) {
	query := `SELECT id, salon_id, customer_id, service_name, price, status, date,
                     cancellation_fee, created_at, updated_at, version
              FROM bookings WHERE customer_id = ? ORDER BY date DESC`
	rows, err := db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get customer bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(
			&b.ID, &b.SalonID, &b.CustomerID, &b.ServiceName, &b.Price, &b.Status,
			&b.Date, &b.CancellationFee, &b.CreatedAt, &b.UpdatedAt, &b.Version,
		); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, &b)
	}
	return bookings, rows.Err()
}
