package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Store-level gauges
	CollectionsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_collections_total",
			Help: "Total number of open collections",
		},
	)

	DocumentsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sentinel_documents_total",
			Help: "Total number of live documents by collection",
		},
		[]string{"collection"},
	)

	StoreSizeBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinel_store_size_bytes",
			Help: "Total serialized document bytes across the store",
		},
	)

	// Document operation counters
	DocumentInsertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_document_inserts_total",
			Help: "Total number of document inserts by collection",
		},
		[]string{"collection"},
	)

	DocumentUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_document_updates_total",
			Help: "Total number of document updates by collection",
		},
		[]string{"collection"},
	)

	DocumentDeletesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_document_deletes_total",
			Help: "Total number of document soft-deletes by collection",
		},
		[]string{"collection"},
	)

	DocumentOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_document_operation_duration_seconds",
			Help:    "Duration of a single document operation (insert, update, delete, get)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection", "operation"},
	)

	// Verification outcomes
	VerificationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_verification_failures_total",
			Help: "Total number of hash/signature verification failures by collection and kind",
		},
		[]string{"collection", "kind"},
	)

	// WAL metrics
	WALBytesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_wal_bytes_written_total",
			Help: "Total bytes written to the WAL by collection",
		},
		[]string{"collection"},
	)

	WALActiveSizeBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sentinel_wal_active_size_bytes",
			Help: "Current size of the active WAL file by collection",
		},
		[]string{"collection"},
	)

	WALRotationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_wal_rotations_total",
			Help: "Total number of WAL rotations by collection",
		},
		[]string{"collection"},
	)

	WALCheckpointsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_wal_checkpoints_total",
			Help: "Total number of WAL checkpoints by collection",
		},
		[]string{"collection"},
	)

	// Query engine metrics
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_query_duration_seconds",
			Help:    "Query execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection"},
	)

	QueryResultsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentinel_query_results_returned",
			Help:    "Number of results returned per query",
			Buckets: []float64{0, 1, 10, 100, 1000, 10000},
		},
	)

	// Recovery metrics
	RecoveryRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_recovery_runs_total",
			Help: "Total number of recovery runs by outcome",
		},
		[]string{"outcome"},
	)

	RecoveryRecordsAppliedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_recovery_records_applied_total",
			Help: "Total number of WAL records applied, skipped, or failed during recovery",
		},
		[]string{"result"},
	)

	RecoveryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentinel_recovery_duration_seconds",
			Help:    "Time taken for a recovery run in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(CollectionsTotal)
	prometheus.MustRegister(DocumentsTotal)
	prometheus.MustRegister(StoreSizeBytes)

	prometheus.MustRegister(DocumentInsertsTotal)
	prometheus.MustRegister(DocumentUpdatesTotal)
	prometheus.MustRegister(DocumentDeletesTotal)
	prometheus.MustRegister(DocumentOperationDuration)

	prometheus.MustRegister(VerificationFailuresTotal)

	prometheus.MustRegister(WALBytesWrittenTotal)
	prometheus.MustRegister(WALActiveSizeBytes)
	prometheus.MustRegister(WALRotationsTotal)
	prometheus.MustRegister(WALCheckpointsTotal)

	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryResultsReturned)

	prometheus.MustRegister(RecoveryRunsTotal)
	prometheus.MustRegister(RecoveryRecordsAppliedTotal)
	prometheus.MustRegister(RecoveryDuration)
}

// Handler returns the Prometheus HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer, starting now.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed duration to a labeled histogram.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
