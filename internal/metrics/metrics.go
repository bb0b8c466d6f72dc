// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "approval"

var (
	// Transitions counts sequencer operations by kind (start, complete,
	// reject, claim) and result (ok or the error code).
	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Total number of workflow and task transitions",
		},
		[]string{"kind", "result"},
	)

	VersionRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "version_conflict_retries_total",
			Help:      "Total number of transitions retried after losing an optimistic version race",
		},
		[]string{"kind"},
	)

	Sweeps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scanner_sweeps_total",
			Help:      "Total number of overdue scanner sweeps",
		},
		[]string{"result"},
	)

	OverdueTasks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "overdue_tasks",
			Help:      "Number of overdue open tasks seen by the last sweep",
		},
	)

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Total number of notifications emitted",
		},
		[]string{"kind"},
	)

	DedupSkips = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_dedup_skips_total",
			Help:      "Total number of scanner notifications skipped because they were already sent",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scanner_sweep_duration_seconds",
			Help:      "Overdue scanner sweep duration distribution",
			Buckets:   prometheus.DefBuckets,
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of API requests",
		},
		[]string{"route", "status_code"},
	)
)
