// Package server — metrics.go registers all Prometheus metrics for the HTTP
// server and exposes helpers used by handlers and middleware.
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// labelHandler is the "handler" label value used to partition metrics by
// the logical endpoint name rather than the raw URL path.
const labelHandler = "handler"

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// chatRequestsTotal counts completed /chat requests, partitioned by
	// outcome: "ok", "timeout", or "error".
	chatRequestsTotal *prometheus.CounterVec

	// chatDurationSeconds records the wall-clock duration of each /chat
	// request from receipt to response.
	chatDurationSeconds *prometheus.HistogramVec

	// contactRequestsTotal counts completed /contact deliveries, partitioned
	// by outcome: "ok" or "error".
	contactRequestsTotal *prometheus.CounterVec

	// httpRequestsTotal counts all HTTP requests on instrumented endpoints,
	// partitioned by method, handler name, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of instrumented HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) is used so that each call
// registers into the provided registry rather than the global default —
// this keeps unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		chatRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitechat",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Total number of /chat requests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		chatDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sitechat",
			Subsystem: "chat",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of /chat requests from receipt to response.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"outcome"}),

		contactRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitechat",
			Subsystem: "contact",
			Name:      "requests_total",
			Help:      "Total number of /contact deliveries attempted, partitioned by outcome.",
		}, []string{"outcome"}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitechat",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests on instrumented endpoints, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sitechat",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of instrumented HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}

// instrument wraps next so every request updates the per-handler counters and
// latency histogram under the given handler name.
func (m *serverMetrics) instrument(name string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		start := time.Now()
		next.ServeHTTP(rw, r)

		m.httpRequestsTotal.WithLabelValues(r.Method, name, strconv.Itoa(rw.status)).Inc()
		m.httpDurationSeconds.WithLabelValues(r.Method, name).Observe(time.Since(start).Seconds())
	})
}
