package service

import (
	"context"
	"sync"
	"time"
)

// AlertLoop is an explicitly owned repeating-alert handle. Start and
// Stop are idempotent: starting a running loop keeps the one already
// playing, stopping a stopped loop is a no-op.
type AlertLoop struct {
	interval time.Duration
	fire     func(ctx context.Context)

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewAlertLoop(interval time.Duration, fire func(ctx context.Context)) *AlertLoop {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &AlertLoop{interval: interval, fire: fire}
}

// Start begins firing; the first alert goes out immediately.
func (l *AlertLoop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	go func() {
		l.fire(loopCtx)

		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				l.fire(loopCtx)
			}
		}
	}()
}

func (l *AlertLoop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel == nil {
		return
	}
	l.cancel()
	l.cancel = nil
}

func (l *AlertLoop) IsActive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}
