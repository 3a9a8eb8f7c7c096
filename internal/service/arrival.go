package service

import (
	"context"
	"sync"
	"time"

	"nylour/internal/models"
)

// ArrivalTimer counts down to a customer's arrival deadline on a
// one-second tick. The expiry callback fires exactly once per deadline;
// only Reset with a new deadline re-arms it.
type ArrivalTimer struct {
	mu       sync.Mutex
	deadline time.Time
	window   time.Duration
	expired  bool
	fired    bool
	onExpire func()
}

func NewArrivalTimer(onExpire func()) *ArrivalTimer {
	return &ArrivalTimer{onExpire: onExpire}
}

// Reset arms the timer for a new deadline. The window is the span the
// progress bar is drawn against; zero or negative means the default.
func (t *ArrivalTimer) Reset(deadline time.Time, window time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deadline = deadline
	t.window = window
	if t.window <= 0 {
		t.window = models.DefaultArrivalWindowSeconds * time.Second
	}
	t.expired = false
	t.fired = false
}

// Run ticks every second until the context is cancelled.
func (t *ArrivalTimer) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.Tick(now)
		}
	}
}

// Tick advances the timer to the given instant.
func (t *ArrivalTimer) Tick(now time.Time) {
	t.mu.Lock()
	if t.deadline.IsZero() || now.Before(t.deadline) {
		t.mu.Unlock()
		return
	}
	t.expired = true
	fire := !t.fired && t.onExpire != nil
	t.fired = true
	t.mu.Unlock()

	if fire {
		t.onExpire()
	}
}

// Snapshot derives the countdown state at the given instant.
func (t *ArrivalTimer) Snapshot(now time.Time) models.ArrivalCountdown {
	t.mu.Lock()
	defer t.mu.Unlock()

	remaining := t.deadline.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	seconds := int(remaining / time.Second)

	progress := 1 - float64(remaining)/float64(t.window)
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}

	return models.ArrivalCountdown{
		RemainingSeconds: seconds,
		Progress:         progress,
		Severity:         arrivalSeverity(seconds),
		Expired:          t.expired || seconds == 0,
	}
}

func arrivalSeverity(remainingSeconds int) string {
	switch {
	case remainingSeconds <= models.ArrivalCriticalSeconds:
		return models.SeverityCritical
	case remainingSeconds <= models.ArrivalWarningSeconds:
		return models.SeverityWarning
	default:
		return models.SeverityNominal
	}
}
