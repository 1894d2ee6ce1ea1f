// Package metrics defines the Prometheus collectors for the API.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests labeled by method, route and status",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	storeQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_queries_total",
			Help: "Total number of store operations labeled by table, operation and status",
		},
		[]string{"table", "operation", "status"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by code and severity",
		},
		[]string{"code", "severity"},
	)
	pendingNotifications = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notifications_pending",
			Help: "Current number of notifications waiting for delivery",
		},
	)
	activeUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "users_active",
			Help: "Current number of active users",
		},
	)
)

// RecordHTTPRequest increments request counters and records duration.
func RecordHTTPRequest(method, route string, status string, duration time.Duration) {
	if route == "" {
		route = "unknown"
	}

	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordStoreQuery tracks one store operation.
func RecordStoreQuery(table, operation, status string) {
	if table == "" {
		table = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}

	storeQueriesTotal.WithLabelValues(table, operation, status).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(code, severity string) {
	if code == "" {
		code = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(code, severity).Inc()
}

// SetPendingNotifications updates the pending-delivery gauge.
func SetPendingNotifications(count int) {
	pendingNotifications.Set(float64(count))
}

// SetActiveUsers updates the gauge for current active users.
func SetActiveUsers(count int64) {
	activeUsers.Set(float64(count))
}

// Sampler periodically refreshes the gauges that need a store round-trip.
type Sampler struct {
	pendingCount func(ctx context.Context) (int, error)
	userCount    func(ctx context.Context) (int64, error)
	interval     time.Duration
}

// NewSampler builds a gauge sampler from the two count callbacks.
func NewSampler(pendingCount func(ctx context.Context) (int, error), userCount func(ctx context.Context) (int64, error), interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &Sampler{
		pendingCount: pendingCount,
		userCount:    userCount,
		interval:     interval,
	}
}

// Run polls the callbacks until ctx is cancelled.
func (s *Sampler) Run(ctx context.Context) {
	if s == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		s.collect(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.interval):
		}
	}
}

func (s *Sampler) collect(ctx context.Context) {
	if s.pendingCount != nil {
		if n, err := s.pendingCount(ctx); err == nil {
			SetPendingNotifications(n)
		}
	}
	if s.userCount != nil {
		if n, err := s.userCount(ctx); err == nil {
			SetActiveUsers(n)
		}
	}
}
