package service

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

// QueueFinisher closes out a queue entry the watch gave up on.
type QueueFinisher interface {
	MarkNoShow(ctx context.Context, entryID, version int64) error
}

// ArrivalWatch runs one ArrivalTimer per called-up customer. A
// customer_next event arms the timer; a terminal queue event for the
// same entry disarms it; expiry marks the entry no_show.
type ArrivalWatch struct {
	repo     domain.Repository
	finisher QueueFinisher
	window   time.Duration
	logger   *zerolog.Logger

	ctx    context.Context
	mu     sync.Mutex
	timers map[int64]*watchedTimer
}

type watchedTimer struct {
	timer  *ArrivalTimer
	cancel context.CancelFunc
}

func NewArrivalWatch(repo domain.Repository, finisher QueueFinisher, window time.Duration, logger *zerolog.Logger) *ArrivalWatch {
	if window <= 0 {
		window = models.DefaultArrivalWindowSeconds * time.Second
	}
	return &ArrivalWatch{
		repo:     repo,
		finisher: finisher,
		window:   window,
		logger:   logger,
		timers:   make(map[int64]*watchedTimer),
	}
}

// Start binds the watch to its root context; cancelling it disarms
// every live timer.
func (w *ArrivalWatch) Start(ctx context.Context) {
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()

	go func() {
		<-ctx.Done()
		w.mu.Lock()
		defer w.mu.Unlock()
		for id, wt := range w.timers {
			wt.cancel()
			delete(w.timers, id)
		}
	}()
}

// Register subscribes the watch to queue events.
func (w *ArrivalWatch) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventCustomerNext, w.handleCustomerNext)
	bus.Subscribe(events.EventQueueEntryChanged, w.handleEntryChanged)
}

func (w *ArrivalWatch) handleCustomerNext(event *events.Event) error {
	var payload events.QueueEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return err
	}
	w.Watch(payload.EntryID)
	return nil
}

func (w *ArrivalWatch) handleEntryChanged(event *events.Event) error {
	var payload events.QueueEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return err
	}

	switch payload.Status {
	case models.QueueStatusCompleted, models.QueueStatusCancelled, models.QueueStatusNoShow:
		w.Unwatch(payload.EntryID)
	}
	return nil
}

// Watch arms a deadline for the entry. Re-watching an entry resets its
// deadline instead of stacking a second timer.
func (w *ArrivalWatch) Watch(entryID int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	deadline := time.Now().Add(w.window)
	if existing, ok := w.timers[entryID]; ok {
		existing.timer.Reset(deadline, w.window)
		return
	}

	timer := NewArrivalTimer(func() { w.expire(entryID) })
	timer.Reset(deadline, w.window)

	parent := w.ctx
	if parent == nil {
		parent = context.Background()
	}
	runCtx, cancel := context.WithCancel(parent)
	w.timers[entryID] = &watchedTimer{timer: timer, cancel: cancel}
	go timer.Run(runCtx)

	w.logger.Info().Int64("entry_id", entryID).Time("deadline", deadline).Msg("arrival deadline armed")
}

// Unwatch disarms the entry's timer, if any.
func (w *ArrivalWatch) Unwatch(entryID int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	wt, ok := w.timers[entryID]
	if !ok {
		return
	}
	wt.cancel()
	delete(w.timers, entryID)
}

// Countdown reports the entry's current countdown, or nil when the
// entry is not being watched.
func (w *ArrivalWatch) Countdown(entryID int64, now time.Time) *models.ArrivalCountdown {
	w.mu.Lock()
	wt, ok := w.timers[entryID]
	w.mu.Unlock()
	if !ok {
		return nil
	}
	snapshot := wt.timer.Snapshot(now)
	return &snapshot
}

// expire marks the entry no_show, unless it already moved on.
func (w *ArrivalWatch) expire(entryID int64) {
	defer w.Unwatch(entryID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entry, err := w.repo.GetQueueEntry(ctx, entryID)
	if err != nil {
		w.logger.Error().Err(err).Int64("entry_id", entryID).Msg("arrival expiry lookup failed")
		return
	}
	if entry.Status != models.QueueStatusInService {
		return
	}

	if err := w.finisher.MarkNoShow(ctx, entryID, entry.Version); err != nil {
		w.logger.Error().Err(err).Int64("entry_id", entryID).Msg("mark no_show failed")
		return
	}
	w.logger.Info().Int64("entry_id", entryID).Msg("arrival deadline expired, marked no_show")
}
