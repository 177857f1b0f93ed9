// Minbar - Mosque Display Content Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/minbar

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cache Metrics
	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "minbar_cache_entries",
			Help: "Current number of entries per cache namespace",
		},
		[]string{"namespace"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minbar_cache_evictions_total",
			Help: "Entries evicted because a namespace reached its ceiling",
		},
		[]string{"namespace"},
	)

	CacheExpirations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minbar_cache_expirations_total",
			Help: "Entries dropped because their TTL elapsed",
		},
		[]string{"namespace"},
	)

	CachePersistErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minbar_cache_persist_errors_total",
			Help: "Failed attempts to write or read a persisted namespace",
		},
		[]string{"namespace", "operation"},
	)

	// Remote Source Metrics
	SourceRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "minbar_source_request_duration_seconds",
			Help:    "Duration of requests against the remote data source",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "entity"},
	)

	SourceRequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minbar_source_request_errors_total",
			Help: "Failed requests against the remote data source",
		},
		[]string{"operation", "entity"},
	)

	DataFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minbar_data_fetches_total",
			Help: "Data access layer reads by kind and outcome (hit, miss, not_found, error)",
		},
		[]string{"kind", "outcome"},
	)

	QuarantinedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minbar_quarantined_records_total",
			Help: "Remote records rejected by schema validation",
		},
		[]string{"entity"},
	)

	HealthStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "minbar_source_health_status",
			Help: "Last health check result (0=healthy, 1=degraded, 2=unhealthy)",
		},
	)

	ChangeEventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minbar_change_events_total",
			Help: "Change notifications delivered to subscribers",
		},
		[]string{"entity", "type"},
	)

	ActiveSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "minbar_change_subscriptions",
			Help: "Number of active change subscriptions",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "minbar_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minbar_circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minbar_circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Content Selection Metrics
	SelectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minbar_content_selections_total",
			Help: "GetDisplayContent calls by outcome (fresh, cached_fallback, empty)",
		},
		[]string{"outcome"},
	)

	SelectionCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "minbar_content_selection_candidates",
			Help:    "Valid candidates considered per selection",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)

	ValidationRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "minbar_content_validation_rejections_total",
			Help: "Content items excluded by the validator",
		},
	)

	// Processing Queue Metrics
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "minbar_queue_depth",
			Help: "Items waiting in the processing queue",
		},
	)

	QueueProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minbar_queue_processed_total",
			Help: "Processing attempts by result (success, retry, dropped)",
		},
		[]string{"result"},
	)

	QueueProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "minbar_queue_processing_duration_seconds",
			Help:    "Duration of a single processing attempt",
			Buckets: prometheus.DefBuckets,
		},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minbar_api_requests_total",
			Help: "HTTP API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "minbar_api_request_duration_seconds",
			Help:    "HTTP API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "minbar_websocket_connections",
			Help: "Connected display websocket clients",
		},
	)
)

// RecordSourceRequest records a remote data source call.
func RecordSourceRequest(operation, entity string, duration time.Duration, err error) {
	SourceRequestDuration.WithLabelValues(operation, entity).Observe(duration.Seconds())
	if err != nil {
		SourceRequestErrors.WithLabelValues(operation, entity).Inc()
	}
}

// RecordAPIRequest records an HTTP API request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordQueueAttempt records one processing attempt.
func RecordQueueAttempt(result string, duration time.Duration) {
	QueueProcessed.WithLabelValues(result).Inc()
	QueueProcessingDuration.Observe(duration.Seconds())
}

// SetHealthStatus maps a health status name to the gauge value.
func SetHealthStatus(status string) {
	switch status {
	case "healthy":
		HealthStatus.Set(0)
	case "degraded":
		HealthStatus.Set(1)
	default:
		HealthStatus.Set(2)
	}
}
