// Package logger provides pipeline run logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// PipelineLogger provides dedicated logging for forecast and validation runs.
type PipelineLogger struct {
	*logrus.Entry
}

// NewPipelineLogger creates a new pipeline logger.
func NewPipelineLogger(baseLogger *logrus.Logger) *PipelineLogger {
	return &PipelineLogger{
		Entry: baseLogger.WithField("component", "pipeline"),
	}
}

// WithRun scopes the logger to one run.
func (pl *PipelineLogger) WithRun(runID string) *PipelineLogger {
	return &PipelineLogger{Entry: pl.WithField("run_id", runID)}
}

// LogRunStarted logs the start of a run.
func (pl *PipelineLogger) LogRunStarted(kind string, season, week int) {
	pl.WithFields(logrus.Fields{
		"kind":   kind,
		"season": season,
		"week":   week,
	}).Info("Run started")
}

// LogRunCompleted logs the end of a run.
func (pl *PipelineLogger) LogRunCompleted(kind string, fixtures int, duration time.Duration) {
	pl.WithFields(logrus.Fields{
		"kind":        kind,
		"fixtures":    fixtures,
		"duration_ms": duration.Milliseconds(),
	}).Info("Run completed")
}

// LogHistoryLoaded logs the size of the match history used for a run.
func (pl *PipelineLogger) LogHistoryLoaded(completed, fixtures, teams int) {
	pl.WithFields(logrus.Fields{
		"completed_matches": completed,
		"fixtures":          fixtures,
		"teams":             teams,
	}).Info("Match history loaded")
}

// LogRowsExcluded logs rows left out for missing history.
func (pl *PipelineLogger) LogRowsExcluded(phase string, matchIDs []string) {
	if len(matchIDs) == 0 {
		return
	}
	pl.WithFields(logrus.Fields{
		"phase":     phase,
		"excluded":  len(matchIDs),
		"match_ids": matchIDs,
	}).Warn("Rows excluded for incomplete history")
}

// LogModelTrained logs a completed model fit.
func (pl *PipelineLogger) LogModelTrained(version string, rows int, duration time.Duration) {
	pl.WithFields(logrus.Fields{
		"model_version": version,
		"training_rows": rows,
		"duration_ms":   duration.Milliseconds(),
	}).Info("Model training completed")
}

// LogFeedDegraded logs a feed that could not be used for this run.
func (pl *PipelineLogger) LogFeedDegraded(feed string, err error) {
	pl.WithFields(logrus.Fields{
		"feed": feed,
	}).WithError(err).Warn("Feed unavailable, dependent stages will be skipped")
}

// LogArtifactWritten logs a persisted artifact.
func (pl *PipelineLogger) LogArtifactWritten(kind, path string, rows int) {
	pl.WithFields(logrus.Fields{
		"artifact": kind,
		"path":     path,
		"rows":     rows,
	}).Info("Artifact written")
}

// LogValidationSummary logs batch accuracy.
func (pl *PipelineLogger) LogValidationSummary(batchID string, fixtures int, winnerAccuracy, finalMAE, bias float64, flagged []string) {
	pl.WithFields(logrus.Fields{
		"batch_id":        batchID,
		"fixtures":        fixtures,
		"winner_accuracy": winnerAccuracy,
		"final_mae":       finalMAE,
		"bias":            bias,
		"flagged_stages":  flagged,
	}).Info("Validation batch scored")
}
