// Package metrics registers the Prometheus series exported on /metrics.
package metrics

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Store round trips, labelled by repository table and operation.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mywatchlist_db_query_duration_seconds",
			Help:    "Duration of store round trips in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"table", "operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mywatchlist_db_query_errors_total",
			Help: "Total number of failed store round trips",
		},
		[]string{"table", "operation"},
	)

	DBPoolAcquiredConns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mywatchlist_db_pool_acquired_conns",
			Help: "Connections currently acquired from the pool",
		},
	)

	// Aggregate recomputation outcomes: "ok" or "error".
	RatingRecomputes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mywatchlist_rating_recomputes_total",
			Help: "Total number of title rating aggregate recomputations",
		},
		[]string{"result"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mywatchlist_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mywatchlist_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)
)

// ObserveQuery records the latency and outcome of one store round trip.
// Caller cancellation is not counted as an error.
func ObserveQuery(table, operation string, start time.Time, err error) {
	DBQueryDuration.WithLabelValues(table, operation).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, context.Canceled) {
		DBQueryErrors.WithLabelValues(table, operation).Inc()
	}
}

// ObserveRecompute counts an aggregate recomputation.
func ObserveRecompute(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	RatingRecomputes.WithLabelValues(result).Inc()
}

// ObserveRequest records an HTTP request.
func ObserveRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
