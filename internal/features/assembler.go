// Package features joins ratings, rolling aggregates and context into model rows.
package features

import (
	"fmt"

	"github.com/yourusername/gridcast/internal/models"
	"github.com/yourusername/gridcast/internal/rating"
	"github.com/yourusername/gridcast/internal/rolling"
)

// Exclusion records a match or fixture left out of the row set.
type Exclusion struct {
	MatchID string
	Err     error
}

// Assembler builds training and inference rows.
type Assembler struct {
	divisions map[string]string
}

// NewAssembler creates an assembler. teams supplies division membership for the divisional flag.
func NewAssembler(teams []models.Team) *Assembler {
	divisions := make(map[string]string, len(teams))
	for _, t := range teams {
		if t.Division != "" {
			divisions[t.Code] = t.Division
		}
	}
	return &Assembler{divisions: divisions}
}

// Divisional reports whether both teams are configured in the same division.
func (a *Assembler) Divisional(home, away string) bool {
	dh, ok := a.divisions[home]
	return ok && dh == a.divisions[away]
}

// BuildTraining returns one labelled row per completed match whose both sides have
// complete aggregates. Ratings are the stored pre-game values.
func (a *Assembler) BuildTraining(matches []*models.Match, state *rating.State, table *rolling.Table) ([]models.FeatureRow, []Exclusion, error) {
	var rows []models.FeatureRow
	var excluded []Exclusion

	for _, m := range matches {
		if !m.IsCompleted() {
			continue
		}
		home, homeOK := table.ForMatch(m.ID, m.HomeTeam)
		away, awayOK := table.ForMatch(m.ID, m.AwayTeam)
		if !homeOK || !awayOK || !home.Complete || !away.Complete {
			excluded = append(excluded, Exclusion{
				MatchID: m.ID,
				Err:     fmt.Errorf("match %s lacks prior history: %w", m.ID, models.ErrDataIncomplete),
			})
			continue
		}

		homeRating, err := state.PreGameRating(m.HomeTeam, m.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", models.ErrOrderingViolation, err)
		}
		awayRating, err := state.PreGameRating(m.AwayTeam, m.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", models.ErrOrderingViolation, err)
		}

		row := a.row(m, homeRating, awayRating, home, away)
		row.Margin = float64(m.Margin())
		row.Total = float64(m.Total())
		row.HomeWin = m.Result(m.HomeTeam)
		rows = append(rows, row)
	}
	return rows, excluded, nil
}

// BuildInference returns one unlabelled row per fixture using the current ratings.
// Every completed match in state must precede each fixture; otherwise the
// ordering violation is returned and no rows are produced.
func (a *Assembler) BuildInference(fixtures []*models.Match, state *rating.State, table *rolling.Table) ([]models.FeatureRow, []Exclusion, error) {
	var rows []models.FeatureRow
	var excluded []Exclusion

	for _, f := range fixtures {
		homeRating, err := state.RatingAsOf(f.HomeTeam, f.Date)
		if err != nil {
			return nil, nil, err
		}
		awayRating, err := state.RatingAsOf(f.AwayTeam, f.Date)
		if err != nil {
			return nil, nil, err
		}

		home := table.AsOf(f.HomeTeam, f.Date)
		away := table.AsOf(f.AwayTeam, f.Date)
		if !home.Complete || !away.Complete {
			excluded = append(excluded, Exclusion{
				MatchID: f.ID,
				Err:     fmt.Errorf("fixture %s lacks prior history: %w", f.ID, models.ErrDataIncomplete),
			})
			continue
		}
		rows = append(rows, a.row(f, homeRating, awayRating, home, away))
	}
	return rows, excluded, nil
}

func (a *Assembler) row(m *models.Match, homeRating, awayRating float64, home, away rolling.Entry) models.FeatureRow {
	return models.FeatureRow{
		MatchID:          m.ID,
		Season:           m.Season,
		Week:             m.Week,
		Date:             m.Date,
		HomeTeam:         m.HomeTeam,
		AwayTeam:         m.AwayTeam,
		HomeRatingBefore: homeRating,
		AwayRatingBefore: awayRating,
		Home:             home.Stats,
		Away:             away.Stats,
		HomeRestDays:     home.RestDays,
		AwayRestDays:     away.RestDays,
		Divisional:       a.Divisional(m.HomeTeam, m.AwayTeam),
	}
}
