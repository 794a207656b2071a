package availability

import "strings"

// Group decides which opponent defense multiplier scales a position's impact.
type Group int

const (
	GroupOther Group = iota
	GroupReceiver
	GroupBallCarrier
	GroupLine
)

func (g Group) String() string {
	switch g {
	case GroupReceiver:
		return "receiver"
	case GroupBallCarrier:
		return "ball carrier"
	case GroupLine:
		return "line"
	default:
		return "other"
	}
}

// PositionGroup classifies a position abbreviation.
func PositionGroup(position string) Group {
	switch strings.ToUpper(position) {
	case "WR", "TE":
		return GroupReceiver
	case "RB", "HB", "FB":
		return GroupBallCarrier
	case "T", "G", "C", "OL", "OT", "OG", "LT", "RT", "LG", "RG":
		return GroupLine
	default:
		return GroupOther
	}
}

// DefaultPositionImpacts is the points-at-OUT table for non-critical positions.
func DefaultPositionImpacts() map[string]float64 {
	return map[string]float64{
		"WR": 1.5, "TE": 1.0,
		"RB": 1.0, "HB": 1.0, "FB": 0.3,
		"T": 1.0, "OT": 1.0, "LT": 1.2, "RT": 0.9,
		"G": 0.6, "OG": 0.6, "LG": 0.6, "RG": 0.6,
		"C": 0.7, "OL": 0.7,
		"EDGE": 1.0, "DE": 0.9, "DT": 0.6, "DL": 0.7, "NT": 0.5,
		"LB": 0.6, "ILB": 0.6, "MLB": 0.6, "OLB": 0.7,
		"CB": 1.0, "S": 0.7, "FS": 0.7, "SS": 0.6, "DB": 0.7,
		"K": 0.5, "P": 0.3, "LS": 0.2,
	}
}
