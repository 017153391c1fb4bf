package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imagejobs_jobs_submitted_total",
		Help: "Total number of jobs accepted by the submission endpoint",
	})

	InputsStoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imagejobs_inputs_stored_total",
		Help: "Total number of input blobs written to the object store",
	})

	StorageWriteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "imagejobs_storage_write_failures_total",
		Help: "Total number of failed object store writes on the request path",
	})

	RetrievalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imagejobs_retrievals_total",
		Help: "Total number of blob retrievals by outcome",
	}, []string{"outcome"})

	WorkerResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "imagejobs_worker_results_total",
		Help: "Total number of jobs finished by the worker pool by final status",
	}, []string{"status"})

	WorkerProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "imagejobs_worker_processing_duration_seconds",
		Help:    "Time taken by the worker pool to process one job",
		Buckets: prometheus.DefBuckets,
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "imagejobs_active_workers",
		Help: "Current number of running worker goroutines",
	})
)
