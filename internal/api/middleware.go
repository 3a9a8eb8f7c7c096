package api

import (
	"net/http"
	"strings"
	"time"

	"nylour/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-Id"

// Middleware is an http.Handler decorator.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares outermost-first.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// LoggingMiddleware tags every request with an id and logs the outcome.
func LoggingMiddleware(logger *zerolog.Logger) Middleware {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "http").Logger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, requestID)

			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			base.Info().
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote", r.RemoteAddr).
				Int("status", recorder.status).
				Dur("duration", time.Since(start)).
				Msg("http request")
		})
	}
}

// MetricsMiddleware counts requests per logical endpoint, keeping IDs
// out of the label.
func MetricsMiddleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			metrics.IncHTTP(endpointLabel(r))
			next.ServeHTTP(w, r)
		})
	}
}

func endpointLabel(r *http.Request) string {
	path := r.URL.Path
	switch {
	case path == "/healthz":
		return "healthz"
	case strings.HasPrefix(path, "/api/v1/location/search"):
		return "location_search"
	case strings.HasPrefix(path, "/api/v1/location/reverse"):
		return "location_reverse"
	case strings.HasPrefix(path, "/api/v1/location/"):
		return "location_cached"
	case strings.HasSuffix(path, "/open-status"):
		return "open_status"
	case strings.HasSuffix(path, "/queue/estimate"):
		return "queue_estimate"
	case strings.HasSuffix(path, "/queue/next"):
		return "queue_next"
	case strings.Contains(path, "/queue"):
		return "queue"
	case strings.HasSuffix(path, "/active"):
		return "salon_active"
	case strings.HasSuffix(path, "/report"):
		return "report"
	case strings.HasPrefix(path, "/api/v1/bookings"):
		return "bookings"
	case strings.HasPrefix(path, "/api/v1/salons"):
		return "salons"
	default:
		return "other"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
