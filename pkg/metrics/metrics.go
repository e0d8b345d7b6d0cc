// Package metrics holds the Prometheus collectors for platter.
//
// Outgoing backend calls, poll cycles and session store operations are
// instrumented from their own packages; the dashboard server mounts
// Middleware and Handler:
//
//	r.Use(metrics.Middleware())
//	r.Get("/metrics", "metrics", metrics.Handler())
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestDuration tracks backend call latency by endpoint template.
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "platter",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Duration of backend API calls in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "platter",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total backend API calls.",
		},
		[]string{"method", "endpoint", "status"},
	)

	// ForcedLogouts counts 401s that cleared the session.
	ForcedLogouts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "platter",
		Subsystem: "api",
		Name:      "forced_logouts_total",
		Help:      "401 responses on non-exempt endpoints that cleared the session.",
	})

	// PollFetches counts list refreshes per role and outcome
	// ("applied" | "stale" | "failed").
	PollFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "platter",
			Subsystem: "poll",
			Name:      "fetches_total",
			Help:      "Order list fetches by role and outcome.",
		},
		[]string{"role", "outcome"},
	)

	SessionOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "platter",
			Subsystem: "session",
			Name:      "operations_total",
			Help:      "Session store operations by driver and op.",
		},
		[]string{"driver", "op"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "platter",
			Subsystem: "dashboard",
			Name:      "request_duration_seconds",
			Help:      "Duration of dashboard HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "platter",
		Subsystem: "dashboard",
		Name:      "requests_in_flight",
		Help:      "Dashboard HTTP requests currently being served.",
	})
)

// DefaultRegistry is the registry every platter collector lives in.
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(collectors.NewGoCollector())
	DefaultRegistry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	DefaultRegistry.MustRegister(
		APIRequestDuration,
		APIRequestTotal,
		ForcedLogouts,
		PollFetches,
		SessionOps,
		HTTPRequestDuration,
		HTTPInFlight,
	)
}

// ObserveAPI records one backend call. status is 0 for transport failures.
func ObserveAPI(method, endpoint string, status int, start time.Time) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	APIRequestDuration.WithLabelValues(method, endpoint, code).Observe(time.Since(start).Seconds())
	APIRequestTotal.WithLabelValues(method, endpoint, code).Inc()
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware records duration and in-flight count for dashboard requests.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			HTTPInFlight.Inc()
			defer HTTPInFlight.Dec()

			rr := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rr, r)

			HTTPRequestDuration.
				WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rr.status)).
				Observe(time.Since(start).Seconds())
		})
	}
}

// Handler exposes DefaultRegistry in the Prometheus text format.
func Handler() http.HandlerFunc {
	return promhttp.HandlerFor(DefaultRegistry, promhttp.HandlerOpts{EnableOpenMetrics: true}).ServeHTTP
}
