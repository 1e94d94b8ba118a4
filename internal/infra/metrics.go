package infra

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "image_jobs_enqueued_total",
		Help: "Image jobs handed to the work queue.",
	}, []string{"mode"}) // durable, inline

	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "image_jobs_processed_total",
		Help: "Image job processing outcomes.",
	}, []string{"outcome"}) // succeeded, retried, failed, skipped

	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "image_job_duration_seconds",
		Help:    "Duration of a single image job attempt.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	JobsSwept = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "image_jobs_swept_total",
		Help: "Jobs returned to the queue by the recovery sweep.",
	}, []string{"kind"}) // retry_due, orphaned, lease_expired, lease_exhausted
)
