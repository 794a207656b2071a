package backtest

import (
	"fmt"
	"sort"
	"time"

	"github.com/yourusername/gridcast/internal/models"
)

// WeekWindow is one step of a walk-forward replay: history strictly before
// Cutoff trains the model, then the week's matches are predicted and scored.
type WeekWindow struct {
	Season  int
	Week    int
	Cutoff  time.Time
	Matches []*models.Match
}

// WalkForwardResult collects per-week reports and the pooled score across all weeks.
type WalkForwardResult struct {
	Weeks  []*Report `json:"weeks"`
	Pooled *Report   `json:"pooled"`
}

// WeekWindows splits the completed matches of a season into chronological
// weekly windows starting at fromWeek. Unfinished matches are left out.
func WeekWindows(matches []*models.Match, season, fromWeek int) []WeekWindow {
	byWeek := make(map[int][]*models.Match)
	for _, m := range matches {
		if m.Season != season || m.Week < fromWeek || !m.IsCompleted() {
			continue
		}
		byWeek[m.Week] = append(byWeek[m.Week], m)
	}

	weeks := make([]int, 0, len(byWeek))
	for w := range byWeek {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)

	windows := make([]WeekWindow, 0, len(weeks))
	for _, w := range weeks {
		games := byWeek[w]
		sort.SliceStable(games, func(i, j int) bool { return games[i].Date.Before(games[j].Date) })
		windows = append(windows, WeekWindow{
			Season:  season,
			Week:    w,
			Cutoff:  games[0].Date,
			Matches: games,
		})
	}
	return windows
}

// History returns the matches dated strictly before the window cutoff.
func (w WeekWindow) History(matches []*models.Match) []*models.Match {
	out := make([]*models.Match, 0, len(matches))
	for _, m := range matches {
		if m.Date.Before(w.Cutoff) {
			out = append(out, m)
		}
	}
	return out
}

// Batch is one labelled set of outcomes, typically a week.
type Batch struct {
	Label    string
	Outcomes []models.Outcome
}

// Pool validates every batch on its own, then the union of all batches as one pooled batch.
func (e *Engine) Pool(batches []Batch, label string) (*WalkForwardResult, error) {
	result := &WalkForwardResult{Weeks: make([]*Report, 0, len(batches))}
	var all []models.Outcome
	for _, b := range batches {
		rep, err := e.Validate(b.Outcomes, b.Label)
		if err != nil {
			return nil, fmt.Errorf("batch %s: %w", b.Label, err)
		}
		result.Weeks = append(result.Weeks, rep)
		all = append(all, b.Outcomes...)
	}
	pooled, err := e.Validate(all, label)
	if err != nil {
		return nil, err
	}
	result.Pooled = pooled
	return result, nil
}
