package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nylour/internal/models"
)

func (db *DB) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	query := `INSERT INTO customers (name, phone, telegram_chat_id, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query, customer.Name, customer.Phone, customer.TelegramChatID, now, now)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	customer.ID = id
	customer.CreatedAt = now
	customer.UpdatedAt = now
	return nil
}

func (db *DB) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	query := `SELECT id, name, COALESCE(phone, ''), COALESCE(telegram_chat_id, 0), created_at, updated_at
              FROM customers WHERE id = ?`
	var c models.Customer
	err := db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Phone, &c.TelegramChatID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &c, nil
}

// LinkTelegramChat attaches a telegram chat for queue alerts.
func (db *DB) LinkTelegramChat(ctx context.Context, customerID, chatID int64) error {
	query := `UPDATE customers SET telegram_chat_id = ?, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query, chatID, time.Now(), customerID)
	if err != nil {
		return fmt.Errorf("failed to link telegram chat: %w", err)
	}
	return checkAffected(result)
}
