package backtest

import (
	"math"

	"github.com/yourusername/gridcast/internal/models"
)

// realizedWinner returns the winning side, or "" for a draw.
func realizedWinner(o *models.Outcome) string {
	switch {
	case *o.HomeScore > *o.AwayScore:
		return o.Record.HomeTeam
	case *o.AwayScore > *o.HomeScore:
		return o.Record.AwayTeam
	default:
		return ""
	}
}

// scoreFixture computes the per-stage errors for one finished fixture.
// Stage error is predicted spread minus realized spread.
func scoreFixture(o *models.Outcome) models.ValidationRecord {
	realized := float64(*o.HomeScore - *o.AwayScore)
	rec := models.ValidationRecord{
		MatchID:        o.Record.MatchID,
		HomeTeam:       o.Record.HomeTeam,
		AwayTeam:       o.Record.AwayTeam,
		StageSpreads:   make(map[string]float64, len(o.Record.Stages)),
		StageErrors:    make(map[string]float64, len(o.Record.Stages)),
		RealizedSpread: realized,
		RealizedTotal:  float64(*o.HomeScore + *o.AwayScore),
		PredictedTotal: o.Record.PredictedTotal,
	}
	for _, s := range o.Record.Stages {
		rec.StageSpreads[s.Name] = s.Spread
		rec.StageErrors[s.Name] = s.Spread - realized
	}
	winner := realizedWinner(o)
	rec.WinnerCorrect = winner != "" && o.Record.Final().Winner == winner
	return rec
}

// batchMetrics holds the aggregate scores of a set of fixture records.
type batchMetrics struct {
	winnerAccuracy float64
	stageMAE       map[string]float64
	stageBias      map[string]float64
	totalMAE       float64
}

func aggregate(records []models.ValidationRecord) batchMetrics {
	m := batchMetrics{
		stageMAE:  make(map[string]float64, len(models.StageOrder)),
		stageBias: make(map[string]float64, len(models.StageOrder)),
	}
	if len(records) == 0 {
		return m
	}
	n := float64(len(records))
	correct := 0
	for _, r := range records {
		if r.WinnerCorrect {
			correct++
		}
		m.totalMAE += math.Abs(r.PredictedTotal - r.RealizedTotal)
		for _, stage := range models.StageOrder {
			e := r.StageErrors[stage]
			m.stageMAE[stage] += math.Abs(e)
			m.stageBias[stage] += e
		}
	}
	m.winnerAccuracy = float64(correct) / n
	m.totalMAE /= n
	for _, stage := range models.StageOrder {
		m.stageMAE[stage] /= n
		m.stageBias[stage] /= n
	}
	return m
}

// stageFlags reports every stage whose MAE is worse than the stage before it.
func stageFlags(mae map[string]float64, tolerance float64) []models.StageFlag {
	var flags []models.StageFlag
	for i := 1; i < len(models.StageOrder); i++ {
		prev, cur := models.StageOrder[i-1], models.StageOrder[i]
		if mae[cur] > mae[prev]+tolerance {
			flags = append(flags, models.StageFlag{
				Stage:       cur,
				Previous:    prev,
				MAE:         mae[cur],
				PreviousMAE: mae[prev],
			})
		}
	}
	return flags
}
