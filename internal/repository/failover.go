package repository

import (
	"context"
	"sync/atomic"
	"time"

	"nylour/internal/domain"
	"nylour/internal/models"

	"github.com/rs/zerolog"
)

type FailoverLocationStore struct {
	primary   domain.LocationStore
	fallback  domain.LocationStore
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverLocationStore(primary, fallback domain.LocationStore, logger *zerolog.Logger) *FailoverLocationStore {
	return &FailoverLocationStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverLocationStore) GetLocation(ctx context.Context, customerID int64) (*models.Location, error) {
	if !r.isDown.Load() {
		location, err := r.primary.GetLocation(ctx, customerID)
		if err == nil {
			return location, nil
		}
		r.logger.Error().Err(err).Msg("Primary location store failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		location, err := r.primary.GetLocation(ctx, customerID)
		if err == nil {
			r.isDown.Store(false)
			return location, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.GetLocation(ctx, customerID)
}

func (r *FailoverLocationStore) SetLocation(ctx context.Context, location *models.Location) error {
	if !r.isDown.Load() {
		err := r.primary.SetLocation(ctx, location)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary location store failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.SetLocation(ctx, location)
}

func (r *FailoverLocationStore) ClearLocation(ctx context.Context, customerID int64) error {
	if !r.isDown.Load() {
		err := r.primary.ClearLocation(ctx, customerID)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary location store failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.ClearLocation(ctx, customerID)
}

func (r *FailoverLocationStore) CheckRateLimit(ctx context.Context, customerID int64, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, customerID, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.logger.Error().Err(err).Msg("Primary location store failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.CheckRateLimit(ctx, customerID, limit, window)
}
