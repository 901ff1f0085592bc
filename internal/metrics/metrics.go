package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobcard_jobs_created_total",
		Help: "Total number of job cards created",
	})

	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobcard_transitions_total",
		Help: "Total number of successful status transitions by target status",
	}, []string{"target"})

	TransitionsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobcard_transitions_rejected_total",
		Help: "Total number of rejected status transitions by reason",
	}, []string{"reason"})

	CompletionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobcard_completions_total",
		Help: "Total number of jobs marked completed with evidence",
	})

	EvidenceUploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobcard_evidence_uploads_total",
		Help: "Total number of evidence files uploaded",
	})

	EvidenceUploadFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobcard_evidence_upload_failures_total",
		Help: "Total number of evidence uploads that failed",
	})

	TransitionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "jobcard_transition_duration_seconds",
		Help:    "Time taken to validate and persist a status transition",
		Buckets: prometheus.DefBuckets,
	})

	ExtractionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "jobcard_extraction_duration_seconds",
		Help:    "Time taken to extract client fields from a description",
		Buckets: prometheus.DefBuckets,
	})
)
