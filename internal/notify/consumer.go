package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"nylour/internal/domain"
	"nylour/internal/events"
	"nylour/internal/models"

	"github.com/rs/zerolog"
)

// Consumer reacts to queue events and runs the periodic almost-ready
// sweep. Each entry is alerted at most once per day.
type Consumer struct {
	repo      domain.Repository
	notifier  domain.Notifier
	estimator domain.EstimatorService
	logger    *zerolog.Logger

	mu      sync.Mutex
	alerted map[int64]struct{}
}

func NewConsumer(repo domain.Repository, notifier domain.Notifier, estimator domain.EstimatorService, logger *zerolog.Logger) *Consumer {
	return &Consumer{
		repo:      repo,
		notifier:  notifier,
		estimator: estimator,
		logger:    logger,
		alerted:   make(map[int64]struct{}),
	}
}

// Register subscribes the consumer on the bus.
func (c *Consumer) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventCustomerNext, c.handleCustomerNext)
	bus.Subscribe(events.EventBookingCancelled, c.handleBookingCancelled)
}

func (c *Consumer) handleCustomerNext(event *events.Event) error {
	var payload events.QueueEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	customer, err := c.repo.GetCustomer(ctx, payload.CustomerID)
	if err != nil {
		c.logger.Error().Err(err).Int64("customer_id", payload.CustomerID).Msg("notify: load customer error")
		return err
	}
	salon, err := c.repo.GetSalon(ctx, payload.SalonID)
	if err != nil {
		c.logger.Error().Err(err).Int64("salon_id", payload.SalonID).Msg("notify: load salon error")
		return err
	}

	return c.notifier.NotifyNextInLine(ctx, customer, salon)
}

func (c *Consumer) handleBookingCancelled(event *events.Event) error {
	var payload events.BookingEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	customer, err := c.repo.GetCustomer(ctx, payload.CustomerID)
	if err != nil {
		c.logger.Error().Err(err).Int64("customer_id", payload.CustomerID).Msg("notify: load customer error")
		return err
	}
	booking, err := c.repo.GetBooking(ctx, payload.BookingID)
	if err != nil {
		c.logger.Error().Err(err).Int64("booking_id", payload.BookingID).Msg("notify: load booking error")
		return err
	}

	return c.notifier.NotifyBookingCancelled(ctx, customer, booking)
}

// SweepAlmostReady alerts waiting customers whose remaining wait has
// dropped to the almost-ready band.
func (c *Consumer) SweepAlmostReady(ctx context.Context) {
	salons, err := c.repo.ListSalons(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("notify: list salons error")
		return
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	live := make(map[int64]struct{})
	for _, salon := range salons {
		entries, err := c.repo.ListWaitingEntries(ctx, salon.ID, today)
		if err != nil {
			c.logger.Error().Err(err).Int64("salon_id", salon.ID).Msg("notify: list waiting error")
			continue
		}

		for _, entry := range entries {
			live[entry.ID] = struct{}{}
			if c.wasAlerted(entry.ID) {
				continue
			}

			estimate, err := c.estimator.Estimate(ctx, salon.ID, entry.CustomerID, now)
			if err != nil {
				c.logger.Error().Err(err).Int64("entry_id", entry.ID).Msg("notify: estimate error")
				continue
			}
			if estimate.TimeRemainingMinutes > models.AlmostReadyThresholdMinutes {
				continue
			}

			customer, err := c.repo.GetCustomer(ctx, entry.CustomerID)
			if err != nil {
				c.logger.Error().Err(err).Int64("customer_id", entry.CustomerID).Msg("notify: load customer error")
				continue
			}

			if err := c.notifier.NotifyAlmostReady(ctx, customer, salon, estimate.TimeRemainingMinutes); err != nil {
				c.logger.Error().Err(err).Int64("entry_id", entry.ID).Msg("notify: almost-ready send error")
				continue
			}
			c.markAlerted(entry.ID)
		}
	}

	c.prune(live)
}

func (c *Consumer) wasAlerted(entryID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.alerted[entryID]
	return ok
}

func (c *Consumer) markAlerted(entryID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerted[entryID] = struct{}{}
}

// prune drops alert marks for entries no longer waiting.
func (c *Consumer) prune(live map[int64]struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.alerted {
		if _, ok := live[id]; !ok {
			delete(c.alerted, id)
		}
	}
}
