package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"nylour/internal/database"
	"nylour/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotFor(position, ahead, avg int, checkedInAt time.Time) *models.QueueSnapshot {
	return &models.QueueSnapshot{
		Entry:             &models.QueueEntry{Position: position, CheckInTime: checkedInAt, Status: models.QueueStatusWaiting},
		PeopleAhead:       ahead,
		AvgServiceMinutes: avg,
	}
}

func TestComputeEstimateProduct(t *testing.T) {
	now := time.Now()

	// Position 3, two ahead, 20 minutes per customer
	estimate := ComputeEstimate(snapshotFor(3, 2, 20, now), models.DefaultAvgServiceMinutes, now)
	assert.Equal(t, 3, estimate.QueuePosition)
	assert.Equal(t, 2, estimate.PeopleAhead)
	assert.Equal(t, 40, estimate.EstimatedWaitMinutes)
	assert.Equal(t, 40, estimate.TimeRemainingMinutes)
}

func TestComputeEstimateDefaultAverage(t *testing.T) {
	now := time.Now()

	estimate := ComputeEstimate(snapshotFor(4, 3, 0, now), models.DefaultAvgServiceMinutes, now)
	assert.Equal(t, 90, estimate.EstimatedWaitMinutes)
}

func TestComputeEstimateRemainingIgnoresElapsedWait(t *testing.T) {
	now := time.Now()

	// Checked in 30 minutes ago with the same two people still ahead:
	// the remaining projection stays peopleAhead x avg.
	estimate := ComputeEstimate(snapshotFor(3, 2, 20, now.Add(-30*time.Minute)), models.DefaultAvgServiceMinutes, now)
	assert.Equal(t, 30, estimate.ActualWaitMinutes)
	assert.Equal(t, 40, estimate.TimeRemainingMinutes)
}

func TestEstimateStatusBands(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		position  int
		ahead     int
		wantText  string
		wantColor string
	}{
		{"first in line", 1, 0, "You're next!", models.StatusColorGreen},
		{"almost ready", 2, 1, "Almost ready!", models.StatusColorYellow},
		{"get ready", 2, 4, "Get ready soon", models.StatusColorOrange},
		{"long wait", 5, 10, "Please wait", models.StatusColorBlue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// 5 minutes per customer keeps the remaining-time bands distinct
			estimate := ComputeEstimate(snapshotFor(tt.position, tt.ahead, 5, now), models.DefaultAvgServiceMinutes, now)
			assert.Equal(t, tt.wantText, estimate.StatusText)
			assert.Equal(t, tt.wantColor, estimate.StatusColor)
		})
	}
}

type estimatorRepo struct {
	repoStub
	snapshot *models.QueueSnapshot
	err      error
	calls    int
}

func (r *estimatorRepo) WaitingSnapshot(ctx context.Context, salonID, customerID int64, dayStart time.Time) (*models.QueueSnapshot, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.snapshot, nil
}

func TestEstimatorServiceZeroWhenNotQueued(t *testing.T) {
	logger := zerolog.New(io.Discard)
	repo := &estimatorRepo{err: database.ErrNotFound}
	svc := NewEstimatorService(repo, 0, &logger)

	estimate, err := svc.Estimate(context.Background(), 1, 10, time.Now())
	require.NoError(t, err)
	assert.Zero(t, estimate.QueuePosition)
	assert.Zero(t, estimate.EstimatedWaitMinutes)
	assert.Empty(t, estimate.StatusText)
}

func TestEstimatorServiceKeepsLastGood(t *testing.T) {
	logger := zerolog.New(io.Discard)
	now := time.Now()
	repo := &estimatorRepo{snapshot: snapshotFor(3, 2, 20, now)}
	svc := NewEstimatorService(repo, 0, &logger)

	estimate, err := svc.Estimate(context.Background(), 1, 10, now)
	require.NoError(t, err)
	assert.Equal(t, 40, estimate.EstimatedWaitMinutes)

	// A transient failure serves the previous estimate
	repo.err = errors.New("db down")
	estimate, err = svc.Estimate(context.Background(), 1, 10, now)
	require.NoError(t, err)
	assert.Equal(t, 40, estimate.EstimatedWaitMinutes)

	// With nothing cached the error surfaces
	_, err = svc.Estimate(context.Background(), 2, 10, now)
	assert.Error(t, err)
}

func TestEstimatorServiceRefreshCached(t *testing.T) {
	logger := zerolog.New(io.Discard)
	now := time.Now()
	repo := &estimatorRepo{snapshot: snapshotFor(3, 2, 20, now)}
	svc := NewEstimatorService(repo, 0, &logger)

	_, err := svc.Estimate(context.Background(), 1, 10, now)
	require.NoError(t, err)

	// The queue moved: one person left ahead of the customer
	repo.snapshot = snapshotFor(2, 1, 20, now)
	svc.RefreshCached(context.Background(), now)

	// A fetch failure now serves the refreshed estimate, not the stale one
	repo.err = errors.New("db down")
	estimate, err := svc.Estimate(context.Background(), 1, 10, now)
	require.NoError(t, err)
	assert.Equal(t, 20, estimate.EstimatedWaitMinutes)
	assert.Equal(t, 2, estimate.QueuePosition)
}

func TestEstimatorServiceRefreshCachedKeepsIdleClock(t *testing.T) {
	logger := zerolog.New(io.Discard)
	now := time.Now()
	repo := &estimatorRepo{snapshot: snapshotFor(3, 2, 20, now)}
	svc := NewEstimatorService(repo, 0, &logger)

	_, err := svc.Estimate(context.Background(), 1, 10, now)
	require.NoError(t, err)

	// A refresh is not a customer read, so it must not reset idle age
	svc.RefreshCached(context.Background(), now.Add(5*time.Minute))
	svc.EvictIdle(10*time.Minute, now.Add(11*time.Minute))

	repo.err = errors.New("db down")
	_, err = svc.Estimate(context.Background(), 1, 10, now)
	assert.Error(t, err)
}

func TestEstimatorServiceEvictIdle(t *testing.T) {
	logger := zerolog.New(io.Discard)
	now := time.Now()
	repo := &estimatorRepo{snapshot: snapshotFor(3, 2, 20, now)}
	svc := NewEstimatorService(repo, 0, &logger)

	_, err := svc.Estimate(context.Background(), 1, 10, now)
	require.NoError(t, err)

	svc.EvictIdle(10*time.Minute, now.Add(11*time.Minute))

	// The cache is gone, so the next failure has nothing to fall back on
	repo.err = errors.New("db down")
	_, err = svc.Estimate(context.Background(), 1, 10, now)
	assert.Error(t, err)
}
