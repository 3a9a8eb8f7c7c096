package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nylour",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	recomputes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nylour",
			Name:      "recompute_total",
			Help:      "Queue estimate recomputations by trigger.",
		},
		[]string{"trigger"},
	)

	recomputeErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "nylour",
			Name:      "recompute_errors_total",
			Help:      "Failed queue estimate recomputations.",
		},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nylour",
			Name:      "notifications_total",
			Help:      "Customer notifications by kind.",
		},
		[]string{"kind"},
	)

	geocodeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nylour",
			Name:      "geocode_requests_total",
			Help:      "Geocoder lookups by result.",
		},
		[]string{"result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, recomputes, recomputeErrors, notifications, geocodeRequests)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncRecompute counts an estimate recomputation; trigger is "tick" or "event".
func IncRecompute(trigger string) {
	recomputes.WithLabelValues(trigger).Inc()
}

// IncRecomputeError counts a failed recomputation.
func IncRecomputeError() {
	recomputeErrors.Inc()
}

// IncNotification counts a sent notification by kind.
func IncNotification(kind string) {
	notifications.WithLabelValues(kind).Inc()
}

// IncGeocode counts a geocoder lookup; result is "hit", "miss" or "error".
func IncGeocode(result string) {
	geocodeRequests.WithLabelValues(result).Inc()
}
