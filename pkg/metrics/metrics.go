package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Publish run metrics
	DeploymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cspublish_deployments_total",
			Help: "Total number of publish runs by result",
		},
		[]string{"result"},
	)

	PhaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cspublish_phase_duration_seconds",
			Help:    "Time spent in each orchestration phase in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"phase"},
	)

	// Polling metrics
	PollAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cspublish_poll_attempts_total",
			Help: "Total number of status queries by poll kind",
		},
		[]string{"kind"},
	)

	ConflictRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cspublish_conflict_retries_total",
			Help: "Total number of delete-and-recreate retries after a slot conflict",
		},
	)

	CertificateUploadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cspublish_certificate_uploads_total",
			Help: "Total number of sample certificate uploads",
		},
	)

	BlobCleanupFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cspublish_blob_cleanup_failures_total",
			Help: "Total number of staged package blobs that could not be deleted",
		},
	)

	// Management API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cspublish_api_requests_total",
			Help: "Total number of management API requests by operation and status code",
		},
		[]string{"operation", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cspublish_api_request_duration_seconds",
			Help:    "Management API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Poll kinds
const (
	PollKindOperation = "operation"
	PollKindRole      = "role"
)

func init() {
	// Register all metrics
	prometheus.MustRegister(DeploymentsTotal)
	prometheus.MustRegister(PhaseDuration)
	prometheus.MustRegister(PollAttemptsTotal)
	prometheus.MustRegister(ConflictRetriesTotal)
	prometheus.MustRegister(CertificateUploadsTotal)
	prometheus.MustRegister(BlobCleanupFailuresTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// WriteTextfile writes every registered metric to path in the text exposition
// format, for pickup by a node exporter textfile collector after a one-shot run.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
