// Package metrics provides Prometheus metrics for the Sage service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConfigMergesTotal tracks config merge outcomes
	ConfigMergesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "config",
			Name:      "merges_total",
			Help:      "Total number of customer config merges by outcome",
		},
		[]string{"outcome"},
	)

	// ConfigMergeDuration tracks the read-merge-write cycle duration
	ConfigMergeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sage",
			Subsystem: "config",
			Name:      "merge_duration_seconds",
			Help:      "Duration of the config read-merge-write cycle in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	// ConfigEntitiesModified tracks entities touched per merge by class
	ConfigEntitiesModified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "config",
			Name:      "entities_modified_total",
			Help:      "Total number of entities modified by config merges, by entity class",
		},
		[]string{"entity"},
	)

	// HTTPRequestsTotal tracks outbound HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "http_client",
			Name:      "requests_total",
			Help:      "Total number of outbound HTTP requests",
		},
		[]string{"method", "status_code"},
	)

	// HTTPRequestDuration tracks outbound HTTP request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sage",
			Subsystem: "http_client",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound HTTP requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method"},
	)

	// OnboardingRunsTotal tracks onboarding flows by outcome
	OnboardingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "onboarding",
			Name:      "runs_total",
			Help:      "Total number of site onboarding runs by outcome",
		},
		[]string{"outcome"},
	)

	// CruxCacheHits tracks CrUX metric cache lookups
	CruxCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "crux",
			Name:      "cache_lookups_total",
			Help:      "Total number of CrUX cache lookups by result",
		},
		[]string{"result"},
	)

	// EventsPublished tracks domain events published to Kafka
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of domain events published by type and status",
		},
		[]string{"event_type", "status"},
	)

	// GraphSyncsTotal tracks config graph projections
	GraphSyncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sage",
			Subsystem: "graph",
			Name:      "syncs_total",
			Help:      "Total number of config graph projections by status",
		},
		[]string{"status"},
	)
)
