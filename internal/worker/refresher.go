package worker

import (
	"context"
	"time"

	"nylour/internal/metrics"

	"github.com/rs/zerolog"
)

// Refresher is a recompute supervisor: one goroutine owns a polling
// ticker and a trigger channel, so tick-driven and event-driven
// recomputes can never race each other. Triggers arriving within the
// debounce window collapse into a single recompute; recomputes are
// idempotent and last-write-wins.
type Refresher struct {
	name     string
	interval time.Duration
	debounce time.Duration
	refresh  func(ctx context.Context) error
	trigger  chan struct{}
	logger   *zerolog.Logger
}

func NewRefresher(name string, interval, debounce time.Duration, refresh func(ctx context.Context) error, logger *zerolog.Logger) *Refresher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Refresher{
		name:     name,
		interval: interval,
		debounce: debounce,
		refresh:  refresh,
		trigger:  make(chan struct{}, 1),
		logger:   logger,
	}
}

// Trigger requests an immediate recompute. Non-blocking: a trigger
// already pending absorbs this one.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run refreshes on the interval and on triggers until the context is
// cancelled. The initial refresh happens immediately.
func (r *Refresher) Run(ctx context.Context) {
	r.logger.Info().Str("refresher", r.name).Dur("interval", r.interval).Msg("refresher started")
	defer r.logger.Info().Str("refresher", r.name).Msg("refresher stopped")

	r.recompute(ctx, "tick")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.recompute(ctx, "tick")
		case <-r.trigger:
			if !r.settle(ctx) {
				return
			}
			r.recompute(ctx, "event")
		}
	}
}

// settle waits out the debounce window, absorbing further triggers.
// Returns false when the context was cancelled while waiting.
func (r *Refresher) settle(ctx context.Context) bool {
	if r.debounce <= 0 {
		return true
	}
	timer := time.NewTimer(r.debounce)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-r.trigger:
			// Coalesced into the pending recompute
		case <-timer.C:
			return true
		}
	}
}

func (r *Refresher) recompute(ctx context.Context, cause string) {
	metrics.IncRecompute(cause)
	if err := r.refresh(ctx); err != nil {
		metrics.IncRecomputeError()
		r.logger.Error().Err(err).Str("refresher", r.name).Str("cause", cause).Msg("refresh failed")
	}
}
