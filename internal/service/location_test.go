package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"nylour/internal/models"
	"nylour/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGeocoder struct {
	reverse    *models.GeocodeResult
	search     []*models.GeocodeResult
	err        error
	lastQuery  string
	lastLimit  int
	reverseLat float64
}

func (g *fakeGeocoder) Reverse(ctx context.Context, lat, lon float64) (*models.GeocodeResult, error) {
	g.reverseLat = lat
	if g.err != nil {
		return nil, g.err
	}
	return g.reverse, nil
}

func (g *fakeGeocoder) Search(ctx context.Context, query string, limit int) ([]*models.GeocodeResult, error) {
	g.lastQuery = query
	g.lastLimit = limit
	if g.err != nil {
		return nil, g.err
	}
	return g.search, nil
}

func newLocationService(geocoder *fakeGeocoder) (*LocationService, *repository.MemoryLocationStore) {
	logger := zerolog.New(io.Discard)
	store := repository.NewMemoryLocationStore(time.Hour)
	return NewLocationService(geocoder, store, 5, &logger), store
}

func TestLocationResolve(t *testing.T) {
	geocoder := &fakeGeocoder{
		reverse: &models.GeocodeResult{
			DisplayName: "100 Feet Road, Indiranagar, Bengaluru",
			Address: models.GeocodeAddress{
				Suburb: "Indiranagar",
				City:   "Bengaluru",
			},
		},
	}
	svc, store := newLocationService(geocoder)
	ctx := context.Background()

	location, err := svc.Resolve(ctx, 10, 12.9716, 77.5946)
	require.NoError(t, err)
	assert.Equal(t, "Indiranagar", location.Area)
	assert.Equal(t, "Bengaluru", location.City)
	assert.Equal(t, "100 Feet Road, Indiranagar, Bengaluru", location.Address)

	// Persisted for the next session
	cached, err := store.GetLocation(ctx, 10)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "Indiranagar", cached.Area)

	got, err := svc.Cached(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, cached, got)
}

func TestLocationResolveInvalidCoordinates(t *testing.T) {
	svc, _ := newLocationService(&fakeGeocoder{})

	_, err := svc.Resolve(context.Background(), 10, 91, 0)
	assert.ErrorIs(t, err, ErrInvalidCoordinates)

	_, err = svc.Resolve(context.Background(), 10, 0, -181)
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestLocationResolveProviderError(t *testing.T) {
	svc, _ := newLocationService(&fakeGeocoder{err: errors.New("timeout")})

	_, err := svc.Resolve(context.Background(), 10, 12.9716, 77.5946)
	assert.ErrorContains(t, err, "failed to reverse geocode")
	assert.NotErrorIs(t, err, ErrPermissionDenied)
}

func TestLocationSearch(t *testing.T) {
	results := make([]*models.GeocodeResult, 7)
	for i := range results {
		results[i] = &models.GeocodeResult{DisplayName: "candidate"}
	}
	geocoder := &fakeGeocoder{search: results}
	svc, _ := newLocationService(geocoder)

	got, err := svc.Search(context.Background(), "  indiranagar  ")
	require.NoError(t, err)
	assert.Equal(t, "indiranagar", geocoder.lastQuery)
	assert.Equal(t, 5, geocoder.lastLimit)
	assert.Len(t, got, 5)
}

func TestLocationSearchTooShort(t *testing.T) {
	svc, _ := newLocationService(&fakeGeocoder{})

	_, err := svc.Search(context.Background(), "ab")
	assert.ErrorIs(t, err, ErrQueryTooShort)

	_, err = svc.Search(context.Background(), "  a  ")
	assert.ErrorIs(t, err, ErrQueryTooShort)
}
