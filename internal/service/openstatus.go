package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"nylour/internal/domain"
	"nylour/internal/events"
	"nylour/internal/models"

	"github.com/rs/zerolog"
)

// OpenStatusService derives whether a salon is currently accepting
// walk-ins from its weekly schedule and the manual pause override.
type OpenStatusService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	failOpen bool
	logger   *zerolog.Logger

	mu         sync.RWMutex
	hoursCache map[int64][]models.SalonHours
}

func NewOpenStatusService(repo domain.Repository, eventBus domain.EventPublisher, failOpen bool, logger *zerolog.Logger) *OpenStatusService {
	return &OpenStatusService{
		repo:       repo,
		eventBus:   eventBus,
		failOpen:   failOpen,
		logger:     logger,
		hoursCache: make(map[int64][]models.SalonHours),
	}
}

// Status evaluates the salon's open status at the given instant.
// Schedule fetch failures fall back to the configured policy instead of
// surfacing an error to callers.
func (s *OpenStatusService) Status(ctx context.Context, salonID int64, now time.Time) (*models.OpenStatus, error) {
	salon, err := s.repo.GetSalon(ctx, salonID)
	if err != nil {
		return nil, err
	}

	hours, err := s.repo.GetSalonHours(ctx, salonID)
	if err != nil {
		s.logger.Error().Err(err).Int64("salon_id", salonID).Msg("failed to fetch salon hours")
		if cached, ok := s.cachedHours(salonID); ok {
			status := EvaluateOpenStatus(cached, salon.IsActive, now)
			return &status, nil
		}
		status := models.OpenStatus{
			IsOpen:                s.failOpen,
			IsWithinBusinessHours: s.failOpen,
			Degraded:              true,
		}
		if !s.failOpen {
			status.NextOpenInfo = "Currently closed"
		}
		return &status, nil
	}

	s.mu.Lock()
	s.hoursCache[salonID] = hours
	s.mu.Unlock()

	status := EvaluateOpenStatus(hours, salon.IsActive, now)
	return &status, nil
}

// SetActive flips the manual pause override. The re-evaluation reuses
// cached hours; the schedule cannot have changed because of a pause.
func (s *OpenStatusService) SetActive(ctx context.Context, salonID int64, isActive bool) error {
	if err := s.repo.SetSalonActive(ctx, salonID, isActive); err != nil {
		return err
	}

	if s.eventBus != nil {
		payload := events.SalonEventPayload{SalonID: salonID, IsActive: isActive}
		if err := s.eventBus.PublishJSON(events.EventSalonActiveChanged, payload); err != nil {
			s.logger.Error().Err(err).Int64("salon_id", salonID).Msg("publish event error")
		}
	}

	return nil
}

// SetHours replaces the salon's schedule rows and refreshes the cache,
// so the next evaluation sees the new schedule without waiting for a
// supervisor tick.
func (s *OpenStatusService) SetHours(ctx context.Context, salonID int64, hours []models.SalonHours) error {
	if _, err := s.repo.GetSalon(ctx, salonID); err != nil {
		return err
	}

	for _, h := range hours {
		h.SalonID = salonID
		if err := s.repo.UpsertSalonHours(ctx, h); err != nil {
			return err
		}
	}

	return s.Refresh(ctx, salonID)
}

// Refresh refetches the schedule into the cache; called by the
// supervisor tick.
func (s *OpenStatusService) Refresh(ctx context.Context, salonID int64) error {
	hours, err := s.repo.GetSalonHours(ctx, salonID)
	if err != nil {
		return fmt.Errorf("failed to refresh salon hours: %w", err)
	}

	s.mu.Lock()
	s.hoursCache[salonID] = hours
	s.mu.Unlock()
	return nil
}

func (s *OpenStatusService) cachedHours(salonID int64) ([]models.SalonHours, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hours, ok := s.hoursCache[salonID]
	return hours, ok
}

// EvaluateOpenStatus derives open status from a weekly schedule, the
// pause override and a clock reading. A salon with no schedule rows is
// always within business hours. The working interval is half-open:
// the salon is open at open_time and closed at close_time.
func EvaluateOpenStatus(hours []models.SalonHours, isActive bool, now time.Time) models.OpenStatus {
	status := models.OpenStatus{}

	if len(hours) == 0 {
		status.IsWithinBusinessHours = true
		status.IsOpen = isActive
		if !isActive {
			status.NextOpenInfo = "Temporarily closed"
		}
		return status
	}

	byDay := make(map[int]models.SalonHours, len(hours))
	for _, h := range hours {
		byDay[h.DayOfWeek] = h
	}

	today := int(now.Weekday())
	nowMinutes := now.Hour()*60 + now.Minute()

	row, ok := byDay[today]
	if !ok || row.IsClosed {
		status.NextOpenInfo = nextOpening(byDay, today)
		return status
	}

	openMinutes, errOpen := parseClock(row.OpenTime)
	closeMinutes, errClose := parseClock(row.CloseTime)
	if errOpen != nil || errClose != nil {
		status.NextOpenInfo = nextOpening(byDay, today)
		return status
	}

	switch {
	case nowMinutes < openMinutes:
		status.NextOpenInfo = "Opens at " + formatClock(openMinutes)
	case nowMinutes >= closeMinutes:
		status.NextOpenInfo = nextOpening(byDay, today)
	default:
		status.IsWithinBusinessHours = true
		status.ClosingTime = formatClock(closeMinutes)
		if isActive {
			status.IsOpen = true
		} else {
			status.NextOpenInfo = "Temporarily closed"
		}
	}

	return status
}

// nextOpening scans forward up to a week for the next working day.
func nextOpening(byDay map[int]models.SalonHours, today int) string {
	for offset := 1; offset <= 7; offset++ {
		day := (today + offset) % 7
		row, ok := byDay[day]
		if !ok || row.IsClosed {
			continue
		}
		openMinutes, err := parseClock(row.OpenTime)
		if err != nil {
			continue
		}
		if offset == 1 {
			return "Opens Tomorrow at " + formatClock(openMinutes)
		}
		return fmt.Sprintf("Opens %s at %s", time.Weekday(day), formatClock(openMinutes))
	}
	return "Currently closed"
}

func parseClock(value string) (int, error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	return hour*60 + minute, nil
}

// formatClock renders minutes-since-midnight as 12-hour time, "9:00 AM".
func formatClock(minutes int) string {
	hour := minutes / 60
	minute := minutes % 60

	period := "AM"
	if hour >= 12 {
		period = "PM"
	}
	hour12 := hour % 12
	if hour12 == 0 {
		hour12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour12, minute, period)
}
