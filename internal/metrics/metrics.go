// CloudSentry - Cloud Security Event Detection and Correlation
// Copyright 2026 R. Haskell (raskell-io)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/raskell-io/cloudsentry

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Detection pipeline metrics

	DetectionPasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detection_passes_total",
			Help: "Total detection passes executed",
		},
		[]string{"outcome"}, // complete, incomplete, error
	)

	DetectionPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "detection_pass_duration_seconds",
			Help:    "Duration of one detection pass in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	EventsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "detection_events_processed_total",
			Help: "Events accepted into detection passes",
		},
	)

	EventsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detection_events_rejected_total",
			Help: "Events rejected at validation",
		},
		[]string{"field"},
	)

	ThreatsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detection_threats_total",
			Help: "Threat signals emitted",
		},
		[]string{"severity", "source"},
	)

	// Model metrics

	ModelTrainings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "model_trainings_total",
			Help: "Ensemble model training runs",
		},
	)

	ModelTrainDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "model_train_duration_seconds",
			Help:    "Duration of ensemble training in seconds",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30},
		},
	)

	ModelTrainingSamples = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_training_samples",
			Help: "Sample count of the most recent training run",
		},
	)

	ProfiledEntities = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "profile_entities",
			Help: "Entities with a stored behavioral profile",
		},
	)

	// Report history / monitor metrics

	HistorySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "report_history_size",
			Help: "Reports currently retained in the rolling history",
		},
	)

	HistoryEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "report_history_evictions_total",
			Help: "Reports evicted from the rolling history",
		},
	)

	// Transport metrics

	MessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transport_messages_consumed_total",
			Help: "Messages consumed from the event transport",
		},
		[]string{"topic", "status"}, // ok, invalid, poison
	)

	MessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transport_messages_published_total",
			Help: "Messages published to the event transport",
		},
		[]string{"topic"},
	)

	BatchFlushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transport_batch_flushes_total",
			Help: "Detection batch flushes by trigger",
		},
		[]string{"trigger"}, // size, interval, shutdown
	)

	// HTTP metrics

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Webhook notifier metrics

	WebhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_deliveries_total",
			Help: "Webhook delivery attempts",
		},
		[]string{"status"}, // ok, error, dropped, breaker_open
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// RecordHTTPRequest records one completed HTTP request.
func RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordPass records the outcome and duration of one detection pass.
func RecordPass(outcome string, duration time.Duration) {
	DetectionPasses.WithLabelValues(outcome).Inc()
	DetectionPassDuration.Observe(duration.Seconds())
}
