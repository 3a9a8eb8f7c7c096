package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"nylour/internal/database"
	"nylour/internal/domain"
	"nylour/internal/models"

	"github.com/rs/zerolog"
)

// EstimatorService derives queue position and wait time for a customer.
// Estimates are recomputed wholesale from a repository snapshot; the
// last good estimate per (salon, customer) is kept so a transient
// storage failure never blanks what the customer already sees.
type EstimatorService struct {
	repo              domain.Repository
	defaultAvgMinutes int
	logger            *zerolog.Logger

	mu    sync.Mutex
	cache map[estimateKey]*cachedEstimate
}

type estimateKey struct {
	salonID    int64
	customerID int64
}

type cachedEstimate struct {
	estimate   *models.QueueEstimate
	lastAccess time.Time
}

func NewEstimatorService(repo domain.Repository, defaultAvgMinutes int, logger *zerolog.Logger) *EstimatorService {
	if defaultAvgMinutes <= 0 {
		defaultAvgMinutes = models.DefaultAvgServiceMinutes
	}
	return &EstimatorService{
		repo:              repo,
		defaultAvgMinutes: defaultAvgMinutes,
		logger:            logger,
		cache:             make(map[estimateKey]*cachedEstimate),
	}
}

// Estimate recomputes the customer's queue estimate at the given
// instant. A customer with no waiting entry today gets a zero estimate.
func (s *EstimatorService) Estimate(ctx context.Context, salonID, customerID int64, now time.Time) (*models.QueueEstimate, error) {
	key := estimateKey{salonID: salonID, customerID: customerID}
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	snapshot, err := s.repo.WaitingSnapshot(ctx, salonID, customerID, dayStart)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			estimate := &models.QueueEstimate{}
			s.store(key, estimate, now)
			return estimate, nil
		}

		s.logger.Error().Err(err).Int64("salon_id", salonID).Int64("customer_id", customerID).Msg("failed to fetch queue snapshot")
		if cached := s.lastGood(key, now); cached != nil {
			return cached, nil
		}
		return nil, err
	}

	estimate := ComputeEstimate(snapshot, s.defaultAvgMinutes, now)
	s.store(key, estimate, now)
	return estimate, nil
}

// RefreshCached recomputes every cached estimate in place, so a queue
// change pushes fresh numbers to watched customers without waiting for
// their next poll. Last-access times are preserved to keep idle
// eviction working.
func (s *EstimatorService) RefreshCached(ctx context.Context, now time.Time) {
	s.mu.Lock()
	access := make(map[estimateKey]time.Time, len(s.cache))
	for key, cached := range s.cache {
		access[key] = cached.lastAccess
	}
	s.mu.Unlock()

	for key, seen := range access {
		if _, err := s.Estimate(ctx, key.salonID, key.customerID, now); err != nil {
			s.logger.Error().Err(err).Int64("salon_id", key.salonID).Int64("customer_id", key.customerID).Msg("estimate refresh failed")
			continue
		}
		s.mu.Lock()
		if cached, ok := s.cache[key]; ok {
			cached.lastAccess = seen
		}
		s.mu.Unlock()
	}
}

// EvictIdle drops cached estimates not read for the given duration.
func (s *EstimatorService) EvictIdle(olderThan time.Duration, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, cached := range s.cache {
		if now.Sub(cached.lastAccess) > olderThan {
			delete(s.cache, key)
		}
	}
}

func (s *EstimatorService) store(key estimateKey, estimate *models.QueueEstimate, now time.Time) {
	s.mu.Lock()
	s.cache[key] = &cachedEstimate{estimate: estimate, lastAccess: now}
	s.mu.Unlock()
}

func (s *EstimatorService) lastGood(key estimateKey, now time.Time) *models.QueueEstimate {
	s.mu.Lock()
	defer s.mu.Unlock()
	cached, ok := s.cache[key]
	if !ok {
		return nil
	}
	cached.lastAccess = now
	return cached.estimate
}

// ComputeEstimate derives the wait estimate from a queue snapshot.
func ComputeEstimate(snapshot *models.QueueSnapshot, defaultAvgMinutes int, now time.Time) *models.QueueEstimate {
	avg := snapshot.AvgServiceMinutes
	if avg <= 0 {
		avg = defaultAvgMinutes
	}

	estimated := snapshot.PeopleAhead * avg

	actual := int(now.Sub(snapshot.Entry.CheckInTime).Minutes())
	if actual < 0 {
		actual = 0
	}

	// Remaining time is the projection from the people still ahead, not
	// the projection minus time already waited: the queue ahead shrinks
	// as it is served, so elapsed wait is already reflected there.
	remaining := estimated
	if remaining < 0 {
		remaining = 0
	}

	text, color := estimateStatus(snapshot.Entry.Position, remaining)

	return &models.QueueEstimate{
		QueuePosition:        snapshot.Entry.Position,
		PeopleAhead:          snapshot.PeopleAhead,
		EstimatedWaitMinutes: estimated,
		ActualWaitMinutes:    actual,
		TimeRemainingMinutes: remaining,
		StatusText:           text,
		StatusColor:          color,
	}
}

func estimateStatus(position, remainingMinutes int) (string, string) {
	switch {
	case position <= 1:
		return "You're next!", models.StatusColorGreen
	case remainingMinutes <= 5:
		return "Almost ready!", models.StatusColorYellow
	case remainingMinutes <= 20:
		return "Get ready soon", models.StatusColorOrange
	default:
		return "Please wait", models.StatusColorBlue
	}
}
