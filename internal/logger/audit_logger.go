// Package logger provides audit logging.
package logger

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// AuditLogger records every cascade stage decision so a prediction can be traced.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogStageApplied logs a stage that moved (or explicitly kept) the spread.
func (al *AuditLogger) LogStageApplied(matchID, stage string, adjustment, spread, winProbability float64, winner string, justifications []string) {
	al.WithFields(logrus.Fields{
		"match_id":        matchID,
		"stage":           stage,
		"adjustment":      adjustment,
		"spread":          spread,
		"win_probability": winProbability,
		"winner":          winner,
		"justifications":  strings.Join(justifications, "; "),
	}).Info("Cascade stage applied")
}

// LogStageSkipped logs a stage that forwarded the prior value.
func (al *AuditLogger) LogStageSkipped(matchID, stage, reason string) {
	al.WithFields(logrus.Fields{
		"match_id": matchID,
		"stage":    stage,
		"reason":   reason,
	}).Warn("Cascade stage skipped")
}

// LogAvailabilityNote logs a participant considered by the availability resolver.
func (al *AuditLogger) LogAvailabilityNote(matchID, team, player, note string, impact float64) {
	al.WithFields(logrus.Fields{
		"match_id": matchID,
		"team":     team,
		"player":   player,
		"impact":   impact,
		"note":     note,
	}).Info("Availability impact evaluated")
}

// LogChainVerified logs the outcome of replaying a stored adjustment chain.
func (al *AuditLogger) LogChainVerified(matchID string, finalSpread float64, err error) {
	entry := al.WithFields(logrus.Fields{
		"match_id":     matchID,
		"final_spread": finalSpread,
	})
	if err != nil {
		entry.WithError(err).Error("Adjustment chain failed verification")
		return
	}
	entry.Debug("Adjustment chain verified")
}
