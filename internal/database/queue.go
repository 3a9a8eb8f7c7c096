package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nylour/internal/models"
)

func (db *DB) GetQueueEntry(ctx context.Context, id int64) (*models.QueueEntry, error) {
	query := `SELECT id, salon_id, customer_id, COALESCE(booking_id, 0), position, status,
                     check_in_time, created_at, updated_at, version
              FROM queue_entries WHERE id = ?`
	return db.scanEntry(db.QueryRowContext(ctx, query, id))
}

// GetWaitingEntry returns the customer's waiting entry checked in on or
// after dayStart. Entries from prior days are stale and never matched.
func (db *DB) GetWaitingEntry(ctx context.Context, salonID, customerID int64, dayStart time.Time) (*models.QueueEntry, error) {
	dayEnd := dayStart.AddDate(0, 0, 1)
	query := `SELECT id, salon_id, customer_id, COALESCE(booking_id, 0), position, status,
                     check_in_time, created_at, updated_at, version
              FROM queue_entries
              WHERE salon_id = ? AND customer_id = ? AND status = ?
                AND check_in_time >= ? AND check_in_time < ?
              ORDER BY position LIMIT 1`
	return db.scanEntry(db.QueryRowContext(ctx, query, salonID, customerID, models.QueueStatusWaiting, dayStart, dayEnd))
}

// CountWaitingAhead counts same-day waiting entries with a strictly
// smaller position.
func (db *DB) CountWaitingAhead(ctx context.Context, salonID int64, position int, dayStart time.Time) (int, error) {
	dayEnd := dayStart.AddDate(0, 0, 1)
	query := `SELECT COUNT(*) FROM queue_entries
              WHERE salon_id = ? AND status = ? AND position < ?
                AND check_in_time >= ? AND check_in_time < ?`
	var count int
	err := db.QueryRowContext(ctx, query, salonID, models.QueueStatusWaiting, position, dayStart, dayEnd).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count waiting ahead: %w", err)
	}
	return count, nil
}

// WaitingSnapshot fetches everything the estimator needs in one call:
// the customer's waiting entry, the people-ahead count and the salon's
// average service time. Returns ErrNotFound when no waiting entry
// exists for today.
func (db *DB) WaitingSnapshot(ctx context.Context, salonID, customerID int64, dayStart time.Time) (*models.QueueSnapshot, error) {
	entry, err := db.GetWaitingEntry(ctx, salonID, customerID, dayStart)
	if err != nil {
		return nil, err
	}

	ahead, err := db.CountWaitingAhead(ctx, salonID, entry.Position, dayStart)
	if err != nil {
		return nil, err
	}

	var avg int
	query := `SELECT avg_service_minutes FROM salons WHERE id = ?`
	if err := db.QueryRowContext(ctx, query, salonID).Scan(&avg); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get avg service time: %w", err)
	}

	return &models.QueueSnapshot{Entry: entry, PeopleAhead: ahead, AvgServiceMinutes: avg}, nil
}

// CreateQueueEntryWithLock assigns the next position inside a
// transaction. A customer may hold at most one waiting entry per salon
// per day, and a paused salon accepts no check-ins.
func (db *DB) CreateQueueEntryWithLock(ctx context.Context, entry *models.QueueEntry) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var isActive bool
	if err := tx.QueryRowContext(ctx, `SELECT is_active FROM salons WHERE id = ?`, entry.SalonID).Scan(&isActive); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("failed to check salon in tx: %w", err)
	}
	if !isActive {
		return ErrSalonInactive
	}

	now := time.Now()
	if entry.CheckInTime.IsZero() {
		entry.CheckInTime = now
	}
	dayStart := time.Date(entry.CheckInTime.Year(), entry.CheckInTime.Month(), entry.CheckInTime.Day(), 0, 0, 0, 0, entry.CheckInTime.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var existing int
	queryExisting := `SELECT COUNT(*) FROM queue_entries
                      WHERE salon_id = ? AND customer_id = ? AND status = ?
                        AND check_in_time >= ? AND check_in_time < ?`
	if err := tx.QueryRowContext(ctx, queryExisting,
		entry.SalonID, entry.CustomerID, models.QueueStatusWaiting, dayStart, dayEnd,
	).Scan(&existing); err != nil {
		return fmt.Errorf("failed to check existing entry in tx: %w", err)
	}
	if existing > 0 {
		return ErrAlreadyQueued
	}

	// Position is assigned here and only here; waiting positions for a
	// salon+day stay a total order with no ties.
	var maxPosition sql.NullInt64
	queryMax := `SELECT MAX(position) FROM queue_entries
                 WHERE salon_id = ? AND check_in_time >= ? AND check_in_time < ?`
	if err := tx.QueryRowContext(ctx, queryMax, entry.SalonID, dayStart, dayEnd).Scan(&maxPosition); err != nil {
		return fmt.Errorf("failed to get max position in tx: %w", err)
	}
	entry.Position = int(maxPosition.Int64) + 1

	var bookingID interface{}
	if entry.BookingID != 0 {
		bookingID = entry.BookingID
	}
	queryInsert := `INSERT INTO queue_entries (
                salon_id, customer_id, booking_id, position, status,
                check_in_time, created_at, updated_at, version
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, queryInsert,
		entry.SalonID, entry.CustomerID, bookingID, entry.Position,
		models.QueueStatusWaiting, entry.CheckInTime, now, now, 1,
	)
	if err != nil {
		return fmt.Errorf("failed to insert queue entry in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}
	entry.ID = id
	entry.Status = models.QueueStatusWaiting
	entry.CreatedAt = now
	entry.UpdatedAt = now
	entry.Version = 1

	return tx.Commit()
}

func (db *DB) UpdateQueueEntryStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error {
	query := `UPDATE queue_entries SET status = ?, updated_at = ?, version = version + 1
              WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update queue entry status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		// Distinguish a stale version from a missing row.
		var exists int
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queue_entries WHERE id = ?`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check queue entry existence: %w", err)
		}
		if exists == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

// ListWaitingEntries returns the salon's same-day waiting entries in
// position order.
func (db *DB) ListWaitingEntries(ctx context.Context, salonID int64, dayStart time.Time) ([]*models.QueueEntry, error) {
	dayEnd := dayStart.AddDate(0, 0, 1)
	query := `SELECT id, salon_id, customer_id, COALESCE(booking_id, 0), position, status,
                     check_in_time, created_at, updated_at, version
              FROM queue_entries
              WHERE salon_id = ? AND status = ? AND check_in_time >= ? AND check_in_time < ?
              ORDER BY position`
	return db.queryEntries(ctx, query, salonID, models.QueueStatusWaiting, dayStart, dayEnd)
}

// NextWaitingEntry returns the lowest-position waiting entry for the
// salon today, or ErrNotFound when the queue is empty.
func (db *DB) NextWaitingEntry(ctx context.Context, salonID int64, dayStart time.Time) (*models.QueueEntry, error) {
	dayEnd := dayStart.AddDate(0, 0, 1)
	query := `SELECT id, salon_id, customer_id, COALESCE(booking_id, 0), position, status,
                     check_in_time, created_at, updated_at, version
              FROM queue_entries
              WHERE salon_id = ? AND status = ? AND check_in_time >= ? AND check_in_time < ?
              ORDER BY position LIMIT 1`
	return db.scanEntry(db.QueryRowContext(ctx, query, salonID, models.QueueStatusWaiting, dayStart, dayEnd))
}

// DailyQueueLog returns all entries for the salon day regardless of
// status, for reporting.
func (db *DB) DailyQueueLog(ctx context.Context, salonID int64, dayStart time.Time) ([]*models.QueueEntry, error) {
	dayEnd := dayStart.AddDate(0, 0, 1)
	query := `SELECT id, salon_id, customer_id, COALESCE(booking_id, 0), position, status,
                     check_in_time, created_at, updated_at, version
              FROM queue_entries
              WHERE salon_id = ? AND check_in_time >= ? AND check_in_time < ?
              ORDER BY position`
	return db.queryEntries(ctx, query, salonID, dayStart, dayEnd)
}

func (db *DB) queryEntries(ctx context.Context, query string, args ...interface{}) ([]*models.QueueEntry, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.QueueEntry
	for rows.Next() {
		var e models.QueueEntry
		if err := rows.Scan(
			&e.ID, &e.SalonID, &e.CustomerID, &e.BookingID, &e.Position, &e.Status,
			&e.CheckInTime, &e.CreatedAt, &e.UpdatedAt, &e.Version,
		); err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (db *DB) scanEntry(row *sql.Row) (*models.QueueEntry, error) {
	var e models.QueueEntry
	err := row.Scan(
		&e.ID, &e.SalonID, &e.CustomerID, &e.BookingID, &e.Position, &e.Status,
		&e.CheckInTime, &e.CreatedAt, &e.UpdatedAt, &e.Version,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan queue entry: %w", err)
	}
	return &e, nil
}

func checkAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
