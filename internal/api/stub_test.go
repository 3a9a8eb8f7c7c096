package api

import (
	"context"
	"time"

	"nylour/internal/database"
	"nylour/internal/models"
)

// repoStub satisfies domain.Repository with empty defaults; tests embed
// it and override the methods they exercise.
type repoStub struct{}

func (repoStub) GetSalon(ctx context.Context, id int64) (*models.Salon, error) {
	return nil, database.ErrNotFound
}

func (repoStub) ListSalons(ctx context.Context) ([]*models.Salon, error) { return nil, nil }

func (repoStub) SetSalonActive(ctx context.Context, id int64, isActive bool) error { return nil }

func (repoStub) GetSalonHours(ctx context.Context, salonID int64) ([]models.SalonHours, error) {
	return nil, nil
}

func (repoStub) UpsertSalonHours(ctx context.Context, h models.SalonHours) error { return nil }

func (repoStub) GetQueueEntry(ctx context.Context, id int64) (*models.QueueEntry, error) {
	return nil, database.ErrNotFound
}

func (repoStub) GetWaitingEntry(ctx context.Context, salonID, customerID int64, dayStart time.Time) (*models.QueueEntry, error) {
	return nil, database.ErrNotFound
}

func (repoStub) WaitingSnapshot(ctx context.Context, salonID, customerID int64, dayStart time.Time) (*models.QueueSnapshot, error) {
	return nil, database.ErrNotFound
}

func (repoStub) CreateQueueEntryWithLock(ctx context.Context, entry *models.QueueEntry) error {
	return nil
}

func (repoStub) UpdateQueueEntryStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error {
	return nil
}

func (repoStub) ListWaitingEntries(ctx context.Context, salonID int64, dayStart time.Time) ([]*models.QueueEntry, error) {
	return nil, nil
}

func (repoStub) NextWaitingEntry(ctx context.Context, salonID int64, dayStart time.Time) (*models.QueueEntry, error) {
	return nil, database.ErrNotFound
}

func (repoStub) DailyQueueLog(ctx context.Context, salonID int64, dayStart time.Time) ([]*models.QueueEntry, error) {
	return nil, nil
}

func (repoStub) CreateBooking(ctx context.Context, booking *models.Booking) error { return nil }

func (repoStub) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return nil, database.ErrNotFound
}

func (repoStub) UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error {
	return nil
}

func (repoStub) CancelBookingWithFee(ctx context.Context, id, fromVersion int64, fee float64) error {
	return nil
}

func (repoStub) HasActiveBooking(ctx context.Context, salonID, customerID int64, dayStart time.Time) (bool, error) {
	return false, nil
}

func (repoStub) GetCustomerBookings(ctx context.Context, customerID int64) ([]*models.Booking, error) {
	return nil, nil
}

func (repoStub) CreateCustomer(ctx context.Context, customer *models.Customer) error { return nil }

func (repoStub) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	return nil, database.ErrNotFound
}

func (repoStub) LinkTelegramChat(ctx context.Context, customerID, chatID int64) error { return nil }
