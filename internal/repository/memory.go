package repository

import (
	"context"
	"sync"
	"time"

	"nylour/internal/models"
)

type MemoryLocationStore struct {
	locations  sync.Map
	rateLimits sync.Map
	ttl        time.Duration
}

func NewMemoryLocationStore(ttl time.Duration) *MemoryLocationStore {
	return &MemoryLocationStore{
		ttl: ttl,
	}
}

type locationEntry struct {
	location  *models.Location
	expiresAt time.Time
}

func (r *MemoryLocationStore) GetLocation(ctx context.Context, customerID int64) (*models.Location, error) {
	val, ok := r.locations.Load(customerID)
	if !ok {
		return nil, nil
	}
	entry := val.(*locationEntry)
	if time.Now().After(entry.expiresAt) {
		r.locations.Delete(customerID)
		return nil, nil
	}
	return entry.location, nil
}

func (r *MemoryLocationStore) SetLocation(ctx context.Context, location *models.Location) error {
	r.locations.Store(location.CustomerID, &locationEntry{
		location:  location,
		expiresAt: time.Now().Add(r.ttl),
	})
	return nil
}

func (r *MemoryLocationStore) ClearLocation(ctx context.Context, customerID int64) error {
	r.locations.Delete(customerID)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryLocationStore) CheckRateLimit(ctx context.Context, customerID int64, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, ok := r.rateLimits.Load(customerID)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(customerID, entry)
	return entry.count <= limit, nil
}
