// Package metrics exposes Prometheus collectors for adapter operations, probe
// outcomes and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gurre/awsgate/envelope"
	"github.com/gurre/awsgate/probe"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "awsgate"

// Operation status label values.
const (
	StatusSuccess = "success"
	StatusInvalid = "invalid"
	StatusError   = "error"
)

// Metrics holds the collectors. All methods are safe for concurrent use.
type Metrics struct {
	operations       *prometheus.CounterVec
	operationSeconds *prometheus.HistogramVec
	probes           *prometheus.CounterVec
	requests         *prometheus.CounterVec
	requestSeconds   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// Example:
//
//	reg := prometheus.NewRegistry()
//	m := metrics.NewMetrics(reg)
//	router.Use(m.Middleware)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Adapter operations by operation and status.",
			},
			[]string{"operation", "status"},
		),
		operationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of adapter operations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		probes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "probes_total",
				Help:      "Existence probes by target and outcome.",
			},
			[]string{"target", "outcome"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route pattern and status code.",
			},
			[]string{"method", "route", "code"},
		),
		requestSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by method and route pattern.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	reg.MustRegister(m.operations, m.operationSeconds, m.probes, m.requests, m.requestSeconds)
	return m
}

// ObserveOperation counts one adapter call and records its duration. The
// status label is derived from err: success, invalid for a rejected request,
// error for anything else.
func (m *Metrics) ObserveOperation(operation string, err error, d time.Duration) {
	m.operations.WithLabelValues(operation, statusOf(err)).Inc()
	m.operationSeconds.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordProbe counts one existence probe by its outcome.
func (m *Metrics) RecordProbe(target string, r probe.Result) {
	m.probes.WithLabelValues(target, r.Outcome.String()).Inc()
}

// Middleware records request counts and latency keyed by the chi route
// pattern rather than the raw path, so path parameters do not explode the
// label space. Requests that matched no route are labelled "unmatched".
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(code)).Inc()
		m.requestSeconds.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func statusOf(err error) string {
	switch envelope.StatusCode(err) {
	case http.StatusOK:
		return StatusSuccess
	case http.StatusBadRequest:
		return StatusInvalid
	default:
		return StatusError
	}
}
