package models

import "time"

type Booking struct {
	ID              int64     `json:"id"`
	SalonID         int64     `json:"salon_id"`
	CustomerID      int64     `json:"customer_id"`
	ServiceName     string    `json:"service_name"`
	Price           float64   `json:"price"`
	Status          string    `json:"status"` // pending, confirmed, cancelled, completed
	Date            time.Time `json:"date"`
	CancellationFee float64   `json:"cancellation_fee,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Version         int64     `json:"version"`
}
