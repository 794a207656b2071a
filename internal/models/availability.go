package models

import (
	"strings"
	"time"
)

// Severity is the reported availability tier of a participant.
type Severity string

const (
	SeverityOut          Severity = "OUT"
	SeverityDoubtful     Severity = "DOUBTFUL"
	SeverityQuestionable Severity = "QUESTIONABLE"
	SeverityLongTermOut  Severity = "LONG_TERM_OUT"
)

// ParseSeverity maps feed spellings onto a Severity. The second value is false
// for tiers that carry no availability signal (e.g. "Probable").
func ParseSeverity(raw string) (Severity, bool) {
	switch strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(raw, "-", "_"))) {
	case "OUT", "O":
		return SeverityOut, true
	case "DOUBTFUL", "D":
		return SeverityDoubtful, true
	case "QUESTIONABLE", "Q":
		return SeverityQuestionable, true
	case "LONG_TERM_OUT", "IR", "INJURED RESERVE", "PUP", "RESERVE/INJURED":
		return SeverityLongTermOut, true
	default:
		return "", false
	}
}

// ExpectedToMiss reports whether the tier means the participant will not play.
func (s Severity) ExpectedToMiss() bool {
	return s == SeverityOut || s == SeverityDoubtful || s == SeverityLongTermOut
}

// UnavailabilityReport is one availability entry for a participant.
type UnavailabilityReport struct {
	Team     string   `json:"team" validate:"required"`
	Player   string   `json:"player" validate:"required"`
	PlayerID string   `json:"player_id"`
	Position string   `json:"position" validate:"required"`
	Severity Severity `json:"severity" validate:"required,severity"`
	Note     string   `json:"note"`
}

// DepthChartEntry ranks a participant at a position for a team. Rank 1 is the starter.
type DepthChartEntry struct {
	Team     string `json:"team" validate:"required"`
	Position string `json:"position" validate:"required"`
	PlayerID string `json:"player_id"`
	Player   string `json:"player" validate:"required"`
	Rank     int    `json:"rank" validate:"gt=0"`
}

// Play types carried by the play-level feed.
const (
	PlayTypePass  = "pass"
	PlayTypeRun   = "run"
	PlayTypeOther = "other"
)

// Play is a single play-level event tagged with an efficiency metric.
type Play struct {
	GameID     string    `json:"game_id" validate:"required"`
	Date       time.Time `json:"date" validate:"required"`
	Offense    string    `json:"offense" validate:"required"`
	Defense    string    `json:"defense" validate:"required"`
	PlayType   string    `json:"play_type" validate:"oneof=pass run other"`
	EPA        float64   `json:"epa"`
	PasserID   string    `json:"passer_id"`
	RusherID   string    `json:"rusher_id"`
	ReceiverID string    `json:"receiver_id"`
}

// Participants returns every participant id credited on the play.
func (p *Play) Participants() []string {
	ids := make([]string, 0, 3)
	for _, id := range []string{p.PasserID, p.RusherID, p.ReceiverID} {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
