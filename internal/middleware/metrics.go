package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RouteFunc names the route a request matched, keeping label cardinality
// bounded by the route table rather than by raw paths
type RouteFunc func(r *http.Request) string

// Metrics records request counts and latencies per route
func Metrics(reg prometheus.Registerer, route RouteFunc) func(http.Handler) http.Handler {
	factory := promauto.With(reg)
	requests := factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chiptourney_http_requests_total",
			Help: "HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)
	duration := factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chiptourney_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &ResponseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			name := route(r)
			requests.WithLabelValues(name, r.Method, strconv.Itoa(wrapped.status)).Inc()
			duration.WithLabelValues(name, r.Method).Observe(time.Since(start).Seconds())
		})
	}
}
