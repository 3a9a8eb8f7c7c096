package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"nylour/internal/events"
	"nylour/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type watchRepo struct {
	repoStub
	mu      sync.Mutex
	entries map[int64]*models.QueueEntry
}

func (r *watchRepo) GetQueueEntry(ctx context.Context, id int64) (*models.QueueEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		copied := *e
		return &copied, nil
	}
	return r.repoStub.GetQueueEntry(ctx, id)
}

type noShowRecorder struct {
	mu     sync.Mutex
	marked []int64
}

func (f *noShowRecorder) MarkNoShow(ctx context.Context, entryID, version int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, entryID)
	return nil
}

func (f *noShowRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.marked)
}

func newTestWatch(t *testing.T, entries map[int64]*models.QueueEntry, window time.Duration) (*ArrivalWatch, *noShowRecorder) {
	t.Helper()
	logger := zerolog.New(io.Discard)
	recorder := &noShowRecorder{}
	watch := NewArrivalWatch(&watchRepo{entries: entries}, recorder, window, &logger)
	return watch, recorder
}

func TestArrivalWatchCountdown(t *testing.T) {
	watch, _ := newTestWatch(t, nil, 10*time.Minute)

	assert.Nil(t, watch.Countdown(1, time.Now()))

	watch.Watch(1)
	countdown := watch.Countdown(1, time.Now())
	require.NotNil(t, countdown)
	assert.InDelta(t, 600, countdown.RemainingSeconds, 2)
	assert.Equal(t, models.SeverityNominal, countdown.Severity)
	assert.False(t, countdown.Expired)

	// 6:05 left lands in the warning band
	countdown = watch.Countdown(1, time.Now().Add(5*time.Minute+5*time.Second))
	require.NotNil(t, countdown)
	assert.Equal(t, models.SeverityWarning, countdown.Severity)

	watch.Unwatch(1)
	assert.Nil(t, watch.Countdown(1, time.Now()))
}

func TestArrivalWatchRearmKeepsOneTimer(t *testing.T) {
	watch, _ := newTestWatch(t, nil, time.Minute)

	watch.Watch(1)
	watch.Watch(1)

	watch.mu.Lock()
	assert.Len(t, watch.timers, 1)
	watch.mu.Unlock()
}

func TestArrivalWatchExpiryMarksNoShow(t *testing.T) {
	entries := map[int64]*models.QueueEntry{
		1: {ID: 1, SalonID: 1, CustomerID: 9, Status: models.QueueStatusInService, Version: 2},
	}
	watch, recorder := newTestWatch(t, entries, time.Minute)

	watch.Watch(1)
	watch.mu.Lock()
	timer := watch.timers[1].timer
	watch.mu.Unlock()

	// Drive the tick past the deadline by hand.
	timer.Tick(time.Now().Add(2 * time.Minute))
	timer.Tick(time.Now().Add(3 * time.Minute))

	assert.Equal(t, 1, recorder.count())
	assert.Nil(t, watch.Countdown(1, time.Now()))
}

func TestArrivalWatchExpirySkipsMovedOnEntry(t *testing.T) {
	entries := map[int64]*models.QueueEntry{
		1: {ID: 1, SalonID: 1, CustomerID: 9, Status: models.QueueStatusCompleted, Version: 3},
	}
	watch, recorder := newTestWatch(t, entries, time.Minute)

	watch.Watch(1)
	watch.mu.Lock()
	timer := watch.timers[1].timer
	watch.mu.Unlock()

	timer.Tick(time.Now().Add(2 * time.Minute))

	assert.Equal(t, 0, recorder.count())
}

func TestArrivalWatchEventWiring(t *testing.T) {
	entries := map[int64]*models.QueueEntry{
		1: {ID: 1, SalonID: 1, CustomerID: 9, Status: models.QueueStatusInService, Version: 2},
	}
	watch, _ := newTestWatch(t, entries, time.Minute)

	bus := events.NewEventBus()
	watch.Register(bus)

	err := bus.PublishJSON(events.EventCustomerNext, events.QueueEventPayload{EntryID: 1, SalonID: 1, CustomerID: 9})
	require.NoError(t, err)
	assert.NotNil(t, watch.Countdown(1, time.Now()))

	err = bus.PublishJSON(events.EventQueueEntryChanged, events.QueueEventPayload{EntryID: 1, Status: models.QueueStatusCompleted})
	require.NoError(t, err)
	assert.Nil(t, watch.Countdown(1, time.Now()))
}
