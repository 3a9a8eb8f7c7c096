package models

import "time"

type QueueEntry struct {
	ID          int64     `json:"id"`
	SalonID     int64     `json:"salon_id"`
	CustomerID  int64     `json:"customer_id"`
	BookingID   int64     `json:"booking_id,omitempty"`
	Position    int       `json:"position"` // assigned at check-in, 1-based
	Status      string    `json:"status"`   // waiting, in_service, completed, cancelled, no_show
	CheckInTime time.Time `json:"check_in_time"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int64     `json:"version"`
}

// QueueEstimate is derived wholesale on every recompute and discarded;
// it carries no identity.
type QueueEstimate struct {
	QueuePosition        int    `json:"queue_position"`
	PeopleAhead          int    `json:"people_ahead"`
	EstimatedWaitMinutes int    `json:"estimated_wait_minutes"`
	ActualWaitMinutes    int    `json:"actual_wait_minutes"`
	TimeRemainingMinutes int    `json:"time_remaining_minutes"`
	StatusText           string `json:"status_text"`
	StatusColor          string `json:"status_color"`
}

// ArrivalCountdown is one tick's view of the arrival deadline.
type ArrivalCountdown struct {
	RemainingSeconds int     `json:"remaining_seconds"`
	Progress         float64 `json:"progress"` // 0..1 of the deadline's window elapsed
	Severity         string  `json:"severity"`
	Expired          bool    `json:"expired"`
}

// QueueSnapshot is everything the estimator needs, fetched in a single
// repository call so the computation never stitches rows client-side.
type QueueSnapshot struct {
	Entry             *QueueEntry
	PeopleAhead       int
	AvgServiceMinutes int
}
