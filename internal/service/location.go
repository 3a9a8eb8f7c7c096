package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"nylour/internal/domain"
	"nylour/internal/models"

	"github.com/rs/zerolog"
)

var (
	// ErrPermissionDenied means the customer refused to share their
	// location; distinct from a provider failure.
	ErrPermissionDenied = errors.New("location permission denied")

	ErrQueryTooShort      = errors.New("search query too short")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

const (
	minSearchChars = 3
	resolveTimeout = 10 * time.Second
)

// LocationService resolves customer coordinates into a named place and
// keeps the choice in the location store for the next session.
type LocationService struct {
	geocoder    domain.Geocoder
	store       domain.LocationStore
	resultLimit int
	logger      *zerolog.Logger
}

func NewLocationService(geocoder domain.Geocoder, store domain.LocationStore, resultLimit int, logger *zerolog.Logger) *LocationService {
	if resultLimit <= 0 {
		resultLimit = 5
	}
	return &LocationService{
		geocoder:    geocoder,
		store:       store,
		resultLimit: resultLimit,
		logger:      logger,
	}
}

// Resolve reverse-geocodes the coordinates and persists the derived
// place for the customer.
func (s *LocationService) Resolve(ctx context.Context, customerID int64, lat, lon float64) (*models.Location, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, ErrInvalidCoordinates
	}

	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	result, err := s.geocoder.Reverse(ctx, lat, lon)
	if err != nil {
		return nil, fmt.Errorf("failed to reverse geocode: %w", err)
	}

	location := &models.Location{
		CustomerID: customerID,
		Area:       result.Area(),
		City:       result.CityName(),
		Address:    result.DisplayName,
		Latitude:   lat,
		Longitude:  lon,
		ResolvedAt: time.Now(),
	}

	if err := s.store.SetLocation(ctx, location); err != nil {
		// The resolved place is still usable this session
		s.logger.Error().Err(err).Int64("customer_id", customerID).Msg("failed to persist location")
	}

	return location, nil
}

// Search forward-geocodes free text, scoped to the configured country.
func (s *LocationService) Search(ctx context.Context, query string) ([]*models.GeocodeResult, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minSearchChars {
		return nil, ErrQueryTooShort
	}

	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	results, err := s.geocoder.Search(ctx, query, s.resultLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search locations: %w", err)
	}
	if len(results) > s.resultLimit {
		results = results[:s.resultLimit]
	}
	return results, nil
}

// Cached returns the customer's stored location, nil when none exists.
func (s *LocationService) Cached(ctx context.Context, customerID int64) (*models.Location, error) {
	return s.store.GetLocation(ctx, customerID)
}
