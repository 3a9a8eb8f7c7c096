package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nylour/internal/models"
)

func (db *DB) GetSalon(ctx context.Context, id int64) (*models.Salon, error) {
	query := `SELECT id, name, address, avg_service_minutes, is_active, created_at, updated_at
              FROM salons WHERE id = ?`
	var salon models.Salon
	err := db.QueryRowContext(ctx, query, id).Scan(
		&salon.ID, &salon.Name, &salon.Address, &salon.AvgServiceMinutes,
		&salon.IsActive, &salon.CreatedAt, &salon.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get salon: %w", err)
	}
	return &salon, nil
}

func (db *DB) ListSalons(ctx context.Context) ([]*models.Salon, error) {
	query := `SELECT id, name, address, avg_service_minutes, is_active, created_at, updated_at
              FROM salons ORDER BY id`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list salons: %w", err)
	}
	defer rows.Close()

	var salons []*models.Salon
	for rows.Next() {
		var salon models.Salon
		if err := rows.Scan(
			&salon.ID, &salon.Name, &salon.Address, &salon.AvgServiceMinutes,
			&salon.IsActive, &salon.CreatedAt, &salon.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan salon: %w", err)
		}
		salons = append(salons, &salon)
	}
	return salons, rows.Err()
}

// SetSalonActive flips the manual pause override.
func (db *DB) SetSalonActive(ctx context.Context, id int64, isActive bool) error {
	query := `UPDATE salons SET is_active = ?, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query, isActive, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set salon active: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSalonHours returns all weekly rows for the salon. An empty slice
// means the salon has no configured schedule.
func (db *DB) GetSalonHours(ctx context.Context, salonID int64) ([]models.SalonHours, error) {
	query := `SELECT salon_id, day_of_week, open_time, close_time, is_closed
              FROM salon_hours WHERE salon_id = ? ORDER BY day_of_week`
	rows, err := db.QueryContext(ctx, query, salonID)
	if err != nil {
		return nil, fmt.Errorf("failed to get salon hours: %w", err)
	}
	defer rows.Close()

	var hours []models.SalonHours
	for rows.Next() {
		var h models.SalonHours
		if err := rows.Scan(&h.SalonID, &h.DayOfWeek, &h.OpenTime, &h.CloseTime, &h.IsClosed); err != nil {
			return nil, fmt.Errorf("failed to scan salon hours: %w", err)
		}
		hours = append(hours, h)
	}
	return hours, rows.Err()
}

// UpsertSalonHours replaces the row for one weekday.
func (db *DB) UpsertSalonHours(ctx context.Context, h models.SalonHours) error {
	if h.DayOfWeek < 0 || h.DayOfWeek > 6 {
		return fmt.Errorf("day_of_week out of range: %d", h.DayOfWeek)
	}
	query := `INSERT INTO salon_hours (salon_id, day_of_week, open_time, close_time, is_closed)
              VALUES (?, ?, ?, ?, ?)
              ON CONFLICT(salon_id, day_of_week) DO UPDATE SET
                  open_time = excluded.open_time,
                  close_time = excluded.close_time,
                  is_closed = excluded.is_closed`
	if _, err := db.ExecContext(ctx, query, h.SalonID, h.DayOfWeek, h.OpenTime, h.CloseTime, h.IsClosed); err != nil {
		return fmt.Errorf("failed to upsert salon hours: %w", err)
	}
	return nil
}
