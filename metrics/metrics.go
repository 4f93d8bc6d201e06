package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AlertsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_alerts_ingested_total",
			Help: "Total number of alerts ingested",
		},
		[]string{"source"},
	)

	AlertsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_alerts_suppressed_total",
			Help: "Total number of alerts dropped by suppression rules",
		},
		[]string{"source"},
	)

	AlertsCategorized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_alerts_categorized_total",
			Help: "Total number of alerts classified, by resulting category",
		},
		[]string{"category", "severity"},
	)

	LifecycleTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_lifecycle_transitions_total",
			Help: "Total number of lifecycle stage transitions",
		},
		[]string{"to_stage", "automated"},
	)

	TransitionFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "argus_lifecycle_transition_failures_total",
			Help: "Total number of lifecycle transitions rolled back",
		},
	)

	AlertsEscalated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_alerts_escalated_total",
			Help: "Total number of alerts escalated, by triggering rule",
		},
		[]string{"rule"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argus_notifications_sent_total",
			Help: "Total number of notification deliveries attempted",
		},
		[]string{"channel", "outcome"},
	)

	IngestProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "argus_ingest_processing_duration_seconds",
			Help:    "Time taken to process one inbound alert payload",
			Buckets: prometheus.DefBuckets,
		},
	)

	EscalationSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "argus_escalation_sweep_duration_seconds",
			Help:    "Time taken by one escalation sweep",
			Buckets: prometheus.DefBuckets,
		},
	)
)
