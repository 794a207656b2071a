package backtest

import (
	"fmt"
	"strings"

	"github.com/yourusername/gridcast/internal/models"
)

// GenerateConsoleReport formats a validation report for terminal output
func GenerateConsoleReport(report *Report) string {
	s := report.Summary
	var builder strings.Builder
	builder.WriteString("Validation Report\n")
	builder.WriteString("=================\n")
	builder.WriteString(fmt.Sprintf("Batch: %s (%s)\n", s.Label, s.BatchID))
	builder.WriteString(fmt.Sprintf("Fixtures: %d\n", s.Fixtures))
	builder.WriteString(fmt.Sprintf("Winner Accuracy: %.2f%%\n", s.WinnerAccuracy*100))
	builder.WriteString(fmt.Sprintf("Total MAE: %.2f\n", s.TotalMAE))
	builder.WriteString(fmt.Sprintf("Bias: %+.2f\n", s.Bias))
	builder.WriteString("\nStage                MAE     Bias\n")
	for _, stage := range models.StageOrder {
		builder.WriteString(fmt.Sprintf("%-18s %6.2f  %+6.2f\n", stage, s.StageMAE[stage], s.StageBias[stage]))
	}
	if len(s.Flags) > 0 {
		builder.WriteString("\nFlags:\n")
		for _, f := range s.Flags {
			builder.WriteString(fmt.Sprintf("- %s worse than %s (%.2f > %.2f)\n", f.Stage, f.Previous, f.MAE, f.PreviousMAE))
		}
	}
	if u := report.Uncertainty; u != nil {
		builder.WriteString(fmt.Sprintf("\n%.0f%% intervals (%d resamples):\n", u.Level*100, u.Iterations))
		builder.WriteString(fmt.Sprintf("Winner Accuracy: [%.2f%%, %.2f%%]\n", u.WinnerAccuracy.Low*100, u.WinnerAccuracy.High*100))
		builder.WriteString(fmt.Sprintf("Final MAE: [%.2f, %.2f]\n", u.FinalMAE.Low, u.FinalMAE.High))
		builder.WriteString(fmt.Sprintf("Bias: [%+.2f, %+.2f]\n", u.Bias.Low, u.Bias.High))
	}
	return builder.String()
}

// GenerateWalkForwardReport summarises a walk-forward replay week by week
func GenerateWalkForwardReport(result *WalkForwardResult) string {
	var builder strings.Builder
	builder.WriteString("Walk-Forward Report\n")
	builder.WriteString("===================\n")
	for _, w := range result.Weeks {
		builder.WriteString(fmt.Sprintf("%-14s fixtures=%-3d accuracy=%6.2f%% final_mae=%6.2f bias=%+.2f\n",
			w.Summary.Label, w.Summary.Fixtures, w.Summary.WinnerAccuracy*100,
			w.Summary.StageMAE[models.StageFinal], w.Summary.Bias))
	}
	if result.Pooled != nil {
		builder.WriteString("\n")
		builder.WriteString(GenerateConsoleReport(result.Pooled))
	}
	return builder.String()
}
