package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion pipeline.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec // label: outcome={success,failure}
	StageFailures   *prometheus.CounterVec // label: stage
	RunDuration     prometheus.Histogram
	RunInProgress   prometheus.Gauge
	ReadingsFetched prometheus.Counter

	FeedRequestDuration    prometheus.Histogram
	TimestampParseFailures prometheus.Counter

	DimensionCandidates *prometheus.CounterVec // label: table
	FactRowsInserted    prometheus.Counter

	// Downstream sink metrics.
	FactsPublished prometheus.Counter
	PublishErrors  prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crossing_etl",
			Name:      "runs_total",
			Help:      "Completed ingestion runs by outcome.",
		}, []string{"outcome"}),
		StageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crossing_etl",
			Name:      "stage_failures_total",
			Help:      "Run failures by pipeline stage.",
		}, []string{"stage"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crossing_etl",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete ingestion run.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RunInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "crossing_etl",
			Name:      "run_in_progress",
			Help:      "1 while an ingestion run is executing.",
		}),
		ReadingsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crossing_etl",
			Name:      "readings_fetched_total",
			Help:      "Raw readings received from the upstream feed.",
		}),
		FeedRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crossing_etl",
			Name:      "feed_request_duration_seconds",
			Help:      "Upstream feed request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		TimestampParseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crossing_etl",
			Name:      "timestamp_parse_failures_total",
			Help:      "Readings dropped because the feed timestamp did not parse.",
		}),
		DimensionCandidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crossing_etl",
			Name:      "dimension_candidates_total",
			Help:      "Deduplicated dimension candidates upserted, by table.",
		}, []string{"table"}),
		FactRowsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crossing_etl",
			Name:      "fact_rows_inserted_total",
			Help:      "Fact rows actually inserted (conflict-ignored duplicates excluded).",
		}),
		FactsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crossing_etl",
			Name:      "facts_published_total",
			Help:      "Fact rows published to the downstream sink.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crossing_etl",
			Name:      "publish_errors_total",
			Help:      "Failed publishes to the downstream sink.",
		}),
	}

	prometheus.MustRegister(
		m.RunsTotal,
		m.StageFailures,
		m.RunDuration,
		m.RunInProgress,
		m.ReadingsFetched,
		m.FeedRequestDuration,
		m.TimestampParseFailures,
		m.DimensionCandidates,
		m.FactRowsInserted,
		m.FactsPublished,
		m.PublishErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RunsTotal:              prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "crossing_etl", Name: "runs_total"}, []string{"outcome"}),
		StageFailures:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "crossing_etl", Name: "stage_failures_total"}, []string{"stage"}),
		RunDuration:            prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "crossing_etl", Name: "run_duration_seconds"}),
		RunInProgress:          prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "crossing_etl", Name: "run_in_progress"}),
		ReadingsFetched:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "crossing_etl", Name: "readings_fetched_total"}),
		FeedRequestDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "crossing_etl", Name: "feed_request_duration_seconds"}),
		TimestampParseFailures: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "crossing_etl", Name: "timestamp_parse_failures_total"}),
		DimensionCandidates:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "crossing_etl", Name: "dimension_candidates_total"}, []string{"table"}),
		FactRowsInserted:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "crossing_etl", Name: "fact_rows_inserted_total"}),
		FactsPublished:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "crossing_etl", Name: "facts_published_total"}),
		PublishErrors:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "crossing_etl", Name: "publish_errors_total"}),
	}
}
