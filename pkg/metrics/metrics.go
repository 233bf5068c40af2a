// Package metrics provides Prometheus metrics for the ingest pipeline.
//
// Metrics:
//   - tmdb_ingest_records_total{outcome}: written, partial or rejected records
//   - tmdb_ingest_entity_writes_total{kind,result}: per-entity write outcomes
//   - tmdb_ingest_dimension_resolutions_total{kind,source}: where a dimension id came from
//   - tmdb_ingest_record_duration_seconds: build plus persist time per record
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Record outcomes.
const (
	OutcomeWritten  = "written"
	OutcomePartial  = "partial"
	OutcomeRejected = "rejected"
)

// Dimension resolution sources.
const (
	SourceCache    = "cache"
	SourceLookup   = "lookup"
	SourceInserted = "inserted"
	SourceFailed   = "failed"
)

var (
	// RecordsTotal counts processed records by outcome.
	RecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmdb_ingest_records_total",
			Help: "Total number of raw records processed, by outcome",
		},
		[]string{"outcome"},
	)

	// EntityWritesTotal counts entity writes by kind and result (ok, failed).
	EntityWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmdb_ingest_entity_writes_total",
			Help: "Total number of entity writes attempted, by kind and result",
		},
		[]string{"kind", "result"},
	)

	// DimensionResolutionsTotal counts dimension id resolutions by kind and source.
	DimensionResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tmdb_ingest_dimension_resolutions_total",
			Help: "Total number of dimension id resolutions, by kind and where the id came from",
		},
		[]string{"kind", "source"},
	)

	// RecordDuration tracks how long one record takes to build and persist.
	RecordDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tmdb_ingest_record_duration_seconds",
			Help:    "Duration of building and persisting one record in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)
)

// RecordOutcome counts one processed record.
func RecordOutcome(outcome string, duration time.Duration) {
	RecordsTotal.WithLabelValues(outcome).Inc()
	RecordDuration.Observe(duration.Seconds())
}

// RecordEntityWrite counts one entity write.
func RecordEntityWrite(kind string, failed bool) {
	result := "ok"
	if failed {
		result = "failed"
	}
	EntityWritesTotal.WithLabelValues(kind, result).Inc()
}

// RecordResolution counts one dimension resolution.
func RecordResolution(kind, source string) {
	DimensionResolutionsTotal.WithLabelValues(kind, source).Inc()
}
