package api

import (
	"sync"

	"nylour/internal/config"

	"golang.org/x/time/rate"
)

const defaultBurst = 5

// keyLimiters hands out one token bucket per API key. Buckets are
// created lazily on first use and live for the process lifetime.
type keyLimiters struct {
	buckets sync.Map // key -> *rate.Limiter
	cfg     *config.APIConfig
}

func newKeyLimiters(cfg *config.APIConfig) *keyLimiters {
	return &keyLimiters{cfg: cfg}
}

func (l *keyLimiters) limiterFor(key string) *rate.Limiter {
	if v, ok := l.buckets.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := l.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	fresh := rate.NewLimiter(rate.Limit(l.cfg.RateLimit.RPS), burst)
	v, _ := l.buckets.LoadOrStore(key, fresh)
	return v.(*rate.Limiter)
}
