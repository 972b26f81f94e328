package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "newsportal"

	LabelStatus  = "status"
	LabelOutcome = "outcome"
	LabelMethod  = "method"
	LabelPath    = "path"
)

// Cleanup metrics
var (
	CleanupRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_runs_total",
			Help:      "Total number of retention cleanup runs by final status",
		},
		[]string{LabelStatus},
	)

	CleanupDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_deleted_summaries_total",
			Help:      "Summaries removed by retention cleanup",
		},
	)

	CleanupTenantFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_tenant_failures_total",
			Help:      "Tenants whose cleanup failed and was skipped",
		},
	)

	CleanupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cleanup_duration_seconds",
			Help:      "Wall-clock duration of a cleanup run",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
	)

	CleanupRetentionDays = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cleanup_retention_days",
			Help:      "Retention period applied by the most recent cleanup run",
		},
	)
)

// Ingestion metrics
var (
	SummariesIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_ingested_total",
			Help:      "News items handled by the summarize worker by outcome",
		},
		[]string{LabelOutcome},
	)

	SummarizeTasksEnqueuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summarize_tasks_enqueued_total",
			Help:      "Keyword summarize tasks enqueued by the dispatcher",
		},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)
)
