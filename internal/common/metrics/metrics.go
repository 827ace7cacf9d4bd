// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ehealth"

// Zeebe job worker metrics, labelled by task type.
var (
	WorkerJobsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "jobs_completed_total",
		Help:      "Jobs completed by the worker",
	}, []string{"task_type"})

	WorkerJobsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "jobs_failed_total",
		Help:      "Jobs failed by the worker, by error code",
	}, []string{"task_type", "error_code"})

	WorkerJobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "job_duration_seconds",
		Help:      "Time from activation to completion of a job",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"task_type"})

	WorkerJobsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "jobs_active",
		Help:      "Jobs currently being handled",
	}, []string{"task_type"})
)

// Transfer pipeline metrics.
var (
	// CertificateTransfers counts registry outcomes plus "skipped".
	CertificateTransfers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "transfer",
		Name:      "certificates_total",
		Help:      "Certificate transfers by outcome",
	}, []string{"outcome"})

	CertificateTransferDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "transfer",
		Name:      "request_duration_seconds",
		Help:      "Duration of the registry request",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})

	CompletionEventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "observer",
		Name:      "completion_events_total",
		Help:      "Course-completed events received, by dispatch mode",
	}, []string{"mode"})

	CourseCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "course_lookups_total",
		Help:      "Course field lookups by result: hit, miss or error",
	}, []string{"result"})
)
