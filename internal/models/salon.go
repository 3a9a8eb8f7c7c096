package models

import "time"

type Salon struct {
	ID                int64     `json:"id" yaml:"id"`
	Name              string    `json:"name" yaml:"name"`
	Address           string    `json:"address" yaml:"address"`
	AvgServiceMinutes int       `json:"avg_service_minutes" yaml:"avg_service_minutes"`
	IsActive          bool      `json:"is_active" yaml:"is_active"`
	CreatedAt         time.Time `json:"created_at" yaml:"-"`
	UpdatedAt         time.Time `json:"updated_at" yaml:"-"`
}

// SalonHours is one weekly-schedule row. At most one row exists per
// (salon, day_of_week); a salon with no rows at all has no schedule and
// is treated as always within business hours.
type SalonHours struct {
	SalonID   int64  `json:"salon_id" yaml:"salon_id"`
	DayOfWeek int    `json:"day_of_week" yaml:"day_of_week"` // 0=Sunday .. 6=Saturday
	OpenTime  string `json:"open_time" yaml:"open_time"`     // "HH:MM", 24h
	CloseTime string `json:"close_time" yaml:"close_time"`   // "HH:MM", 24h
	IsClosed  bool   `json:"is_closed" yaml:"is_closed"`
}

// OpenStatus is derived, never persisted.
type OpenStatus struct {
	IsOpen                bool   `json:"is_open"`
	IsWithinBusinessHours bool   `json:"is_within_business_hours"`
	NextOpenInfo          string `json:"next_open_info,omitempty"`
	ClosingTime           string `json:"closing_time,omitempty"`
	// Degraded marks a status produced by the configured error policy
	// instead of real schedule data.
	Degraded bool `json:"degraded,omitempty"`
}

type Customer struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	TelegramChatID int64     `json:"telegram_chat_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
