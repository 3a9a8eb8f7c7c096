package service

import (
	"context"
	"errors"
	"time"

	"nylour/internal/config"
	"nylour/internal/database"
	"nylour/internal/domain"
	"nylour/internal/events"
	"nylour/internal/models"

	"github.com/rs/zerolog"
)

// ErrRateLimited is returned when a customer exceeds the check-in
// attempt budget.
var ErrRateLimited = errors.New("too many check-in attempts")

// BookingService owns queue and booking mutations: check-in, leaving
// the queue, advancing it, and booking create/cancel with the late
// cancellation fee.
type BookingService struct {
	repo       domain.Repository
	store      domain.LocationStore
	eventBus   domain.EventPublisher
	syncWorker domain.SyncWorker
	feePercent float64
	cutoff     time.Duration
	rateLimit  int
	rateWindow time.Duration
	logger     *zerolog.Logger
}

func NewBookingService(repo domain.Repository, store domain.LocationStore, eventBus domain.EventPublisher, syncWorker domain.SyncWorker, cfg config.QueueConfig, logger *zerolog.Logger) *BookingService {
	if cfg.CancellationFeePercent <= 0 {
		cfg.CancellationFeePercent = models.DefaultCancellationFeePercent
	}
	if cfg.CancellationCutoffHours <= 0 {
		cfg.CancellationCutoffHours = models.DefaultCancellationCutoffHours
	}
	if cfg.CheckInRateLimit <= 0 {
		cfg.CheckInRateLimit = models.RateLimitCheckIns
	}
	if cfg.CheckInRateWindow <= 0 {
		cfg.CheckInRateWindow = models.RateLimitWindow
	}
	return &BookingService{
		repo:       repo,
		store:      store,
		eventBus:   eventBus,
		syncWorker: syncWorker,
		feePercent: cfg.CancellationFeePercent,
		cutoff:     time.Duration(cfg.CancellationCutoffHours) * time.Hour,
		rateLimit:  cfg.CheckInRateLimit,
		rateWindow: time.Duration(cfg.CheckInRateWindow) * time.Second,
		logger:     logger,
	}
}

// CheckIn joins the customer to today's queue. Position assignment and
// the one-entry-per-day guard happen inside the repository transaction.
func (s *BookingService) CheckIn(ctx context.Context, salonID, customerID, bookingID int64) (*models.QueueEntry, error) {
	if s.store != nil {
		allowed, err := s.store.CheckRateLimit(ctx, customerID, s.rateLimit, s.rateWindow)
		if err != nil {
			s.logger.Error().Err(err).Int64("customer_id", customerID).Msg("rate limit check failed")
		} else if !allowed {
			return nil, ErrRateLimited
		}
	}

	entry := &models.QueueEntry{
		SalonID:    salonID,
		CustomerID: customerID,
		BookingID:  bookingID,
	}
	if err := s.repo.CreateQueueEntryWithLock(ctx, entry); err != nil {
		return nil, err
	}

	s.publishQueueEvent(events.EventQueueEntryChanged, entry)
	s.enqueueSync(ctx, entry, "upsert")

	return entry, nil
}

// LeaveQueue cancels the customer's waiting entry.
func (s *BookingService) LeaveQueue(ctx context.Context, entryID, version int64) error {
	if err := s.repo.UpdateQueueEntryStatusWithVersion(ctx, entryID, version, models.QueueStatusCancelled); err != nil {
		return err
	}

	entry, err := s.repo.GetQueueEntry(ctx, entryID)
	if err == nil {
		s.publishQueueEvent(events.EventQueueEntryChanged, entry)
		s.enqueueSync(ctx, entry, "update_status")
	}

	return nil
}

// AdvanceQueue moves the salon's front waiting entry into service and
// announces the customer as next in line.
func (s *BookingService) AdvanceQueue(ctx context.Context, salonID int64) (*models.QueueEntry, error) {
	dayStart := todayStart()
	next, err := s.repo.NextWaitingEntry(ctx, salonID, dayStart)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateQueueEntryStatusWithVersion(ctx, next.ID, next.Version, models.QueueStatusInService); err != nil {
		return nil, err
	}
	next.Status = models.QueueStatusInService

	s.publishQueueEvent(events.EventCustomerNext, next)
	s.publishQueueEvent(events.EventQueueEntryChanged, next)
	s.enqueueSync(ctx, next, "update_status")

	return next, nil
}

// MarkCompleted finishes the entry's visit.
func (s *BookingService) MarkCompleted(ctx context.Context, entryID, version int64) error {
	return s.finishEntry(ctx, entryID, version, models.QueueStatusCompleted)
}

// MarkNoShow records that the customer never arrived.
func (s *BookingService) MarkNoShow(ctx context.Context, entryID, version int64) error {
	return s.finishEntry(ctx, entryID, version, models.QueueStatusNoShow)
}

func (s *BookingService) finishEntry(ctx context.Context, entryID, version int64, status string) error {
	if err := s.repo.UpdateQueueEntryStatusWithVersion(ctx, entryID, version, status); err != nil {
		return err
	}

	entry, err := s.repo.GetQueueEntry(ctx, entryID)
	if err == nil {
		s.publishQueueEvent(events.EventQueueEntryChanged, entry)
		s.enqueueSync(ctx, entry, "update_status")

		if status == models.QueueStatusCompleted && entry.BookingID != 0 {
			s.completeLinkedBooking(ctx, entry.BookingID)
		}
	}

	return nil
}

// completeLinkedBooking closes the booking a served entry checked in
// against. The visit itself already succeeded, so a failure here is
// logged rather than surfaced.
func (s *BookingService) completeLinkedBooking(ctx context.Context, bookingID int64) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		s.logger.Error().Err(err).Int64("booking_id", bookingID).Msg("load linked booking error")
		return
	}
	if booking.Status == models.StatusCancelled || booking.Status == models.StatusCompleted {
		return
	}
	if err := s.repo.UpdateBookingStatusWithVersion(ctx, bookingID, booking.Version, models.StatusCompleted); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", bookingID).Msg("complete linked booking error")
	}
}

// CreateBooking validates and stores a new booking. A customer holds
// at most one active booking per salon per day.
func (s *BookingService) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if booking.Date.Before(time.Now().AddDate(0, 0, -1)) {
		return database.ErrPastDate
	}

	dayStart := time.Date(booking.Date.Year(), booking.Date.Month(), booking.Date.Day(), 0, 0, 0, 0, booking.Date.Location())
	active, err := s.repo.HasActiveBooking(ctx, booking.SalonID, booking.CustomerID, dayStart)
	if err != nil {
		return err
	}
	if active {
		return database.ErrBookingExists
	}

	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		return err
	}

	s.publishBookingEvent(events.EventBookingCreated, booking)
	return nil
}

// CancelBooking cancels a booking and returns the fee charged. Inside
// the cutoff window the fee is the configured percentage of the price;
// earlier cancellations are free.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, version int64) (float64, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return 0, err
	}

	var fee float64
	if time.Until(booking.Date) < s.cutoff {
		fee = booking.Price * s.feePercent / 100
	}

	if err := s.repo.CancelBookingWithFee(ctx, bookingID, version, fee); err != nil {
		return 0, err
	}

	booking.Status = models.StatusCancelled
	booking.CancellationFee = fee
	s.publishBookingEvent(events.EventBookingCancelled, booking)

	return fee, nil
}

func (s *BookingService) publishQueueEvent(eventType string, entry *models.QueueEntry) {
	if s.eventBus == nil {
		return
	}

	payload := events.QueueEventPayload{
		EntryID:    entry.ID,
		SalonID:    entry.SalonID,
		CustomerID: entry.CustomerID,
		Position:   entry.Position,
		Status:     entry.Status,
		At:         time.Now(),
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("entry_id", entry.ID).Msg("publish event error")
	}
}

func (s *BookingService) publishBookingEvent(eventType string, booking *models.Booking) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:       booking.ID,
		SalonID:         booking.SalonID,
		CustomerID:      booking.CustomerID,
		Status:          booking.Status,
		Date:            booking.Date,
		CancellationFee: booking.CancellationFee,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueSync(ctx context.Context, entry *models.QueueEntry, taskType string) {
	if s.syncWorker == nil {
		return
	}

	var status string
	if taskType == "update_status" {
		status = entry.Status
	}

	if err := s.syncWorker.EnqueueTask(ctx, taskType, entry.ID, entry, status); err != nil {
		s.logger.Error().Err(err).Int64("entry_id", entry.ID).Str("task", taskType).Msg("sheets enqueue error")
	}
}

func todayStart() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
