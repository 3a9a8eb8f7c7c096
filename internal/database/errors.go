package database

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist. The
	// estimator treats it as a valid zero state, not a failure.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned when an optimistic version check
	// fails on update.
	ErrVersionConflict = errors.New("version conflict")

	// ErrAlreadyQueued is returned when a customer already holds a
	// waiting entry at the salon for the current day.
	ErrAlreadyQueued = errors.New("customer already in queue")

	// ErrSalonInactive is returned when checking in at a paused salon.
	ErrSalonInactive = errors.New("salon is not accepting customers")

	// ErrPastDate is returned for bookings dated in the past.
	ErrPastDate = errors.New("date is in the past")

	// ErrBookingExists is returned when the customer already holds an
	// active booking at the salon for the requested day.
	ErrBookingExists = errors.New("customer already has a booking")
)
