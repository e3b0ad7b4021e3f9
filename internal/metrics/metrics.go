package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "captioner_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "captioner_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Upload Metrics
	VideoUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "captioner_video_uploads_total",
			Help: "Total number of video uploads by outcome",
		},
		[]string{"outcome"},
	)

	VideoUploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "captioner_video_upload_size_bytes",
			Help:    "Size of uploaded videos in bytes",
			Buckets: prometheus.ExponentialBuckets(1024*1024, 2, 15), // 1MB to 16GB
		},
	)

	// Job Metrics
	JobsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "captioner_jobs_created_total",
			Help: "Total number of captioning jobs created",
		},
		[]string{"mode"},
	)

	JobsFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "captioner_jobs_finished_total",
			Help: "Total number of finished captioning jobs",
		},
		[]string{"status", "error_kind"},
	)

	JobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "captioner_jobs_in_progress",
			Help: "Number of job pipelines currently running",
		},
	)

	JobsWaiting = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "captioner_jobs_waiting",
			Help: "Number of queued jobs waiting for a pipeline slot",
		},
	)

	JobQueueTime = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "captioner_job_queue_time_seconds",
			Help:    "Time a job spends queued before its pipeline starts",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 16),
		},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "captioner_job_duration_seconds",
			Help:    "Job pipeline duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1 hour
		},
		[]string{"status"},
	)

	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "captioner_step_duration_seconds",
			Help:    "Pipeline step duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"step", "status"},
	)

	CaptionsPerJob = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "captioner_captions_per_job",
			Help:    "Number of captions produced by transcription",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	CaptionsHiddenTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "captioner_captions_hidden_total",
			Help: "Captions left without a display window because the next caption starts at or before them",
		},
	)

	// External tool Metrics
	ToolRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "captioner_tool_runs_total",
			Help: "Total number of external tool runs",
		},
		[]string{"command", "status"},
	)

	ToolRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "captioner_tool_run_duration_seconds",
			Help:    "External tool run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 16),
		},
		[]string{"command"},
	)

	// Storage Metrics
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "captioner_storage_operations_total",
			Help: "Total number of artifact storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageBytesTransferred = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "captioner_storage_bytes_transferred_total",
			Help: "Total bytes transferred to artifact storage",
		},
		[]string{"operation"},
	)

	// Event Metrics
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "captioner_events_published_total",
			Help: "Total number of job lifecycle events published",
		},
		[]string{"type", "status"},
	)
)

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordUpload records an upload attempt
func RecordUpload(outcome string, size int64) {
	VideoUploadsTotal.WithLabelValues(outcome).Inc()
	if size > 0 {
		VideoUploadSizeBytes.Observe(float64(size))
	}
}

// RecordJobCreated records a job creation
func RecordJobCreated(mode string) {
	JobsCreatedTotal.WithLabelValues(mode).Inc()
}

// RecordJobFinished records a job reaching a terminal state
func RecordJobFinished(status, errorKind string, duration float64) {
	JobsFinishedTotal.WithLabelValues(status, errorKind).Inc()
	JobDuration.WithLabelValues(status).Observe(duration)
}

// RecordStep records the duration of one pipeline step
func RecordStep(step, status string, duration float64) {
	StepDuration.WithLabelValues(step, status).Observe(duration)
}

// RecordToolRun records an external tool invocation
func RecordToolRun(command, status string, duration float64) {
	ToolRunsTotal.WithLabelValues(command, status).Inc()
	ToolRunDuration.WithLabelValues(command).Observe(duration)
}

// RecordStorageOperation records an artifact storage operation
func RecordStorageOperation(operation, status string, bytesTransferred int64) {
	StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	StorageBytesTransferred.WithLabelValues(operation).Add(float64(bytesTransferred))
}

// RecordEventPublished records a lifecycle event publication
func RecordEventPublished(eventType, status string) {
	EventsPublishedTotal.WithLabelValues(eventType, status).Inc()
}
