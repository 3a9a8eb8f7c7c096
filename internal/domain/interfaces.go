package domain

import (
	"context"
	"time"

	"nylour/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Repository interface {
	GetSalon(ctx context.Context, id int64) (*models.Salon, error)
	ListSalons(ctx context.Context) ([]*models.Salon, error)
	SetSalonActive(ctx context.Context, id int64, isActive bool) error
	GetSalonHours(ctx context.Context, salonID int64) ([]models.SalonHours, error)
	UpsertSalonHours(ctx context.Context, h models.SalonHours) error

	GetQueueEntry(ctx context.Context, id int64) (*models.QueueEntry, error)
	GetWaitingEntry(ctx context.Context, salonID, customerID int64, dayStart time.Time) (*models.QueueEntry, error)
	WaitingSnapshot(ctx context.Context, salonID, customerID int64, dayStart time.Time) (*models.QueueSnapshot, error)
	CreateQueueEntryWithLock(ctx context.Context, entry *models.QueueEntry) error
	UpdateQueueEntryStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error
	ListWaitingEntries(ctx context.Context, salonID int64, dayStart time.Time) ([]*models.QueueEntry, error)
	NextWaitingEntry(ctx context.Context, salonID int64, dayStart time.Time) (*models.QueueEntry, error)
	DailyQueueLog(ctx context.Context, salonID int64, dayStart time.Time) ([]*models.QueueEntry, error)

	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error
	CancelBookingWithFee(ctx context.Context, id, fromVersion int64, fee float64) error
	HasActiveBooking(ctx context.Context, salonID, customerID int64, dayStart time.Time) (bool, error)
	GetCustomerBookings(ctx context.Context, customerID int64) ([]*models.Booking, error)

	CreateCustomer(ctx context.Context, customer *models.Customer) error
	GetCustomer(ctx context.Context, id int64) (*models.Customer, error)
	LinkTelegramChat(ctx context.Context, customerID, chatID int64) error
}

// LocationStore keeps resolved customer locations and short-lived
// throttle counters. Backed by redis with an in-memory fallback.
type LocationStore interface {
	GetLocation(ctx context.Context, customerID int64) (*models.Location, error)
	SetLocation(ctx context.Context, location *models.Location) error
	ClearLocation(ctx context.Context, customerID int64) error
	CheckRateLimit(ctx context.Context, customerID int64, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Geocoder resolves coordinates and free-text queries against an
// external geocoding provider.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (*models.GeocodeResult, error)
	Search(ctx context.Context, query string, limit int) ([]*models.GeocodeResult, error)
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Notifier pushes queue progress messages to customers.
type Notifier interface {
	NotifyNextInLine(ctx context.Context, customer *models.Customer, salon *models.Salon) error
	NotifyAlmostReady(ctx context.Context, customer *models.Customer, salon *models.Salon, minutesLeft int) error
	NotifyBookingCancelled(ctx context.Context, customer *models.Customer, booking *models.Booking) error
}

type SheetsWriter interface {
	ReplaceDaySheet(salonID int64, day time.Time, entries []*models.QueueEntry) error
	UpsertEntry(entry *models.QueueEntry) error
	UpdateEntryStatus(entryID int64, status string) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, entryID int64, entry *models.QueueEntry, status string) error
	EnqueueSyncDay(ctx context.Context, salonID int64, day time.Time) error
}

type OpenStatusService interface {
	Status(ctx context.Context, salonID int64, now time.Time) (*models.OpenStatus, error)
	SetActive(ctx context.Context, salonID int64, isActive bool) error
	SetHours(ctx context.Context, salonID int64, hours []models.SalonHours) error
}

type EstimatorService interface {
	Estimate(ctx context.Context, salonID, customerID int64, now time.Time) (*models.QueueEstimate, error)
}

type BookingService interface {
	CheckIn(ctx context.Context, salonID, customerID, bookingID int64) (*models.QueueEntry, error)
	LeaveQueue(ctx context.Context, entryID, version int64) error
	MarkCompleted(ctx context.Context, entryID, version int64) error
	MarkNoShow(ctx context.Context, entryID, version int64) error
	CreateBooking(ctx context.Context, booking *models.Booking) error
	CancelBooking(ctx context.Context, bookingID, version int64) (float64, error)
	AdvanceQueue(ctx context.Context, salonID int64) (*models.QueueEntry, error)
}

type LocationService interface {
	Resolve(ctx context.Context, customerID int64, lat, lon float64) (*models.Location, error)
	Search(ctx context.Context, query string) ([]*models.GeocodeResult, error)
	Cached(ctx context.Context, customerID int64) (*models.Location, error)
}
