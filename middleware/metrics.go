package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	requestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	panicsRecoveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "energydesk_panics_recovered_total",
			Help: "Total number of recovered panics",
		},
	)
)

// Metrics returns a middleware that collects Prometheus metrics. It must be
// registered with mux's Router.Use so the matched route template is known.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		// Route templates keep /client-records/{id} to one series
		endpoint := "unmatched"
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tpl
			}
		}
		status := strconv.Itoa(wrapped.statusCode)

		requestDuration.WithLabelValues(r.Method, endpoint, status).Observe(time.Since(start).Seconds())
		requestCount.WithLabelValues(r.Method, endpoint, status).Inc()
	})
}
