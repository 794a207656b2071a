// Package metrics provides the centralized Prometheus metrics registry for gridcast.
package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gridcast"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Total number of pipeline runs by kind and status",
	}, []string{"kind", "status"})
	FixturesProcessedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fixtures_processed_total",
		Help:      "Total number of fixtures carried through the adjustment cascade",
	})
	StageSkipsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stage_skips_total",
		Help:      "Total number of cascade stages skipped by stage and reason",
	}, []string{"stage", "reason"})
	RowsExcludedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rows_excluded_total",
		Help:      "Total number of feature rows excluded for incomplete history",
	}, []string{"phase"})
)

// Gauge metrics
var (
	TrainingRows = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "training_rows",
		Help:      "Number of rows used in the latest model fit",
	})
	LastRunTimestamp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time of the latest successful run by kind",
	}, []string{"kind"})
)

// Histogram metrics
var (
	RunDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of pipeline runs in seconds",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"kind"})
	StageAdjustment = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_adjustment_points",
		Help:      "Absolute spread adjustment applied by each cascade stage",
		Buckets:   []float64{0.5, 1, 2, 3, 4.5, 6, 9, 12},
	}, []string{"stage"})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(RunsTotal)
		registry.MustRegister(FixturesProcessedTotal)
		registry.MustRegister(StageSkipsTotal)
		registry.MustRegister(RowsExcludedTotal)

		registry.MustRegister(TrainingRows)
		registry.MustRegister(LastRunTimestamp)

		registry.MustRegister(RunDuration)
		registry.MustRegister(StageAdjustment)

		// Feed metrics
		registry.MustRegister(FeedRequestsTotal)
		registry.MustRegister(FeedRetriesTotal)
		registry.MustRegister(FeedFailuresTotal)
		registry.MustRegister(FeedCacheHitRatio)
		registry.MustRegister(CircuitBreakerState)

		// Validation metrics
		registry.MustRegister(ValidationStageMAE)
		registry.MustRegister(ValidationWinnerAccuracy)
		registry.MustRegister(ValidationBias)
		registry.MustRegister(ValidationStageFlagsTotal)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, GetRegistry()); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// RecordRun records a finished run.
// status should be one of: "success", "failure"
func RecordRun(kind, status string, durationSeconds float64, finishedUnix float64) {
	RunsTotal.WithLabelValues(kind, status).Inc()
	RunDuration.WithLabelValues(kind).Observe(durationSeconds)
	if status == "success" {
		LastRunTimestamp.WithLabelValues(kind).Set(finishedUnix)
	}
}

// RecordFixtureProcessed records a fixture reaching the final stage.
func RecordFixtureProcessed() {
	FixturesProcessedTotal.Inc()
}

// RecordStageSkipped records a stage forwarding its prior value.
func RecordStageSkipped(stage, reason string) {
	StageSkipsTotal.WithLabelValues(stage, reason).Inc()
}

// RecordStageAdjustment records the magnitude of a stage adjustment.
func RecordStageAdjustment(stage string, adjustment float64) {
	if adjustment < 0 {
		adjustment = -adjustment
	}
	StageAdjustment.WithLabelValues(stage).Observe(adjustment)
}

// RecordRowsExcluded records rows dropped for incomplete history.
func RecordRowsExcluded(phase string, count int) {
	RowsExcludedTotal.WithLabelValues(phase).Add(float64(count))
}

// UpdateTrainingRows updates the training set size gauge.
func UpdateTrainingRows(count int) {
	TrainingRows.Set(float64(count))
}
