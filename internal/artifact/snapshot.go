package artifact

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/yourusername/gridcast/internal/models"
)

// Snapshot file names inside the cache directory.
const (
	RatingsFile  = "ratings.json"
	FeaturesFile = "features.json"
)

// RatingsSnapshot is the cached rating history after a run.
type RatingsSnapshot struct {
	GeneratedAt time.Time               `json:"generated_at"`
	AsOf        time.Time               `json:"as_of"`
	Current     map[string]float64      `json:"current"`
	History     []models.RatingSnapshot `json:"history"`
}

// FeaturesSnapshot is the cached feature table after a run.
type FeaturesSnapshot struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Names       []string            `json:"names"`
	Training    []models.FeatureRow `json:"training"`
	Inference   []models.FeatureRow `json:"inference"`
}

// Leaderboard returns team codes ordered by current rating, highest first.
func (s *RatingsSnapshot) Leaderboard() []string {
	teams := make([]string, 0, len(s.Current))
	for team := range s.Current {
		teams = append(teams, team)
	}
	sort.Slice(teams, func(i, j int) bool {
		if s.Current[teams[i]] != s.Current[teams[j]] {
			return s.Current[teams[i]] > s.Current[teams[j]]
		}
		return teams[i] < teams[j]
	})
	return teams
}

// WriteRatings stores the rating snapshot in dir.
func (w *AtomicWriter) WriteRatings(dir string, snap RatingsSnapshot) error {
	return w.WriteJSON(filepath.Join(dir, RatingsFile), snap)
}

// WriteFeatures stores the feature snapshot in dir.
func (w *AtomicWriter) WriteFeatures(dir string, snap FeaturesSnapshot) error {
	return w.WriteJSON(filepath.Join(dir, FeaturesFile), snap)
}

// ReadRatings loads the rating snapshot from dir.
func ReadRatings(dir string) (*RatingsSnapshot, error) {
	var snap RatingsSnapshot
	if err := ReadJSON(filepath.Join(dir, RatingsFile), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
