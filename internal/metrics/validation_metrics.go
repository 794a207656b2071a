// Package metrics defines validation metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Validation gauges
var (
	ValidationStageMAE = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "validation_stage_mae_points",
		Help:      "Spread mean absolute error of the latest validated batch by stage",
	}, []string{"stage"})

	ValidationWinnerAccuracy = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "validation_winner_accuracy",
		Help:      "Winner accuracy of the latest validated batch",
	})

	ValidationBias = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "validation_bias_points",
		Help:      "Signed mean spread error of the latest validated batch",
	})
)

// ValidationStageFlagsTotal counts stages that worsened accuracy over the previous stage.
var ValidationStageFlagsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "validation_stage_flags_total",
	Help:      "Total number of batches where a stage worsened spread MAE",
}, []string{"stage"})

// RecordValidation records the headline numbers of a validated batch.
func RecordValidation(stageMAE map[string]float64, winnerAccuracy, bias float64, flaggedStages []string) {
	for stage, mae := range stageMAE {
		ValidationStageMAE.WithLabelValues(stage).Set(mae)
	}
	ValidationWinnerAccuracy.Set(winnerAccuracy)
	ValidationBias.Set(bias)
	for _, stage := range flaggedStages {
		ValidationStageFlagsTotal.WithLabelValues(stage).Inc()
	}
}
