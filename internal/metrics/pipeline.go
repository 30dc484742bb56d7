package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	ExtractionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "facedex",
			Name:      "extraction_requests_total",
			Help:      "Total number of face extraction requests",
		},
		[]string{"status"},
	)

	ExtractionRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "facedex",
			Name:      "extraction_request_duration_seconds",
			Help:      "Face extraction request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	IngestImagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "facedex",
			Name:      "ingest_images_total",
			Help:      "Archive members processed by ingest runs",
		},
		[]string{"result"}, // "indexed" / "skipped" / "failed"
	)

	SearchScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "facedex",
			Name:      "search_scans_total",
			Help:      "Completed search scans",
		},
		[]string{"status"}, // "complete" / "error"
	)

	ProgressUpdatesDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "facedex",
			Name:      "progress_updates_dropped_total",
			Help:      "Progress updates dropped because the reporter queue was full",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(ExtractionRequestsTotal)
	prometheus.MustRegister(ExtractionRequestDuration)
	prometheus.MustRegister(IngestImagesTotal)
	prometheus.MustRegister(SearchScansTotal)
	prometheus.MustRegister(ProgressUpdatesDropped)
	pipelineMetricsRegistered = true
}
