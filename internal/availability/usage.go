package availability

import (
	"sort"
	"time"

	"github.com/yourusername/gridcast/internal/models"
	"gonum.org/v1/gonum/stat"
)

type snap struct {
	date time.Time
	epa  float64
}

// UsageIndex records every play a participant was credited on. An index built
// from no plays is unknown: absence of usage says nothing about rotation.
type UsageIndex struct {
	plays map[string][]snap
}

// NewUsageIndex indexes scrimmage plays by participant id.
func NewUsageIndex(plays []models.Play) *UsageIndex {
	idx := &UsageIndex{plays: make(map[string][]snap)}
	for i := range plays {
		p := &plays[i]
		if p.PlayType != models.PlayTypePass && p.PlayType != models.PlayTypeRun {
			continue
		}
		for _, id := range p.Participants() {
			idx.plays[id] = append(idx.plays[id], snap{date: p.Date, epa: p.EPA})
		}
	}
	for id := range idx.plays {
		s := idx.plays[id]
		sort.SliceStable(s, func(i, j int) bool { return s[i].date.Before(s[j].date) })
	}
	return idx
}

// Known reports whether any play data backs the index.
func (u *UsageIndex) Known() bool {
	return u != nil && len(u.plays) > 0
}

func (u *UsageIndex) window(id string, from, before time.Time) []snap {
	if u == nil {
		return nil
	}
	s := u.plays[id]
	start := 0
	if !from.IsZero() {
		start = sort.Search(len(s), func(i int) bool { return !s[i].date.Before(from) })
	}
	end := sort.Search(len(s), func(i int) bool { return !s[i].date.Before(before) })
	if start >= end {
		return nil
	}
	return s[start:end]
}

// Count returns plays credited to id with from <= date < before.
func (u *UsageIndex) Count(id string, from, before time.Time) int {
	return len(u.window(id, from, before))
}

// EPAPerPlay returns the participant's mean EPA over every play strictly before the date.
func (u *UsageIndex) EPAPerPlay(id string, before time.Time) (float64, int) {
	s := u.window(id, time.Time{}, before)
	if len(s) == 0 {
		return 0, 0
	}
	epa := make([]float64, len(s))
	for i, p := range s {
		epa[i] = p.epa
	}
	return stat.Mean(epa, nil), len(s)
}
