package availability

import (
	"strings"
	"unicode"

	"github.com/yourusername/gridcast/internal/models"
)

var nameSuffixes = map[string]bool{"jr": true, "sr": true, "ii": true, "iii": true, "iv": true, "v": true}

// NormalizeName folds case, drops punctuation and generational suffixes.
// "D.K. Metcalf" and "DK Metcalf" normalise identically, as do "Odell Beckham Jr." and "odell beckham".
func NormalizeName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return unicode.ToLower(r)
		case unicode.IsSpace(r) || r == '-':
			return ' '
		default:
			return -1
		}
	}, name)

	fields := strings.Fields(cleaned)
	for len(fields) > 1 && nameSuffixes[fields[len(fields)-1]] {
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}

// IdentityResolver maps free-text participant names between feeds onto stable ids.
type IdentityResolver struct {
	byName map[string]string
	names  map[string]string
}

// NewIdentityResolver indexes every named participant on the depth charts.
// A normalised name shared by two different ids is ambiguous and never resolves.
func NewIdentityResolver(entries []models.DepthChartEntry) *IdentityResolver {
	r := &IdentityResolver{
		byName: make(map[string]string),
		names:  make(map[string]string),
	}
	ambiguous := make(map[string]bool)
	for _, e := range entries {
		if e.PlayerID == "" {
			continue
		}
		r.names[e.PlayerID] = e.Player
		key := teamKey(e.Team, NormalizeName(e.Player))
		if existing, ok := r.byName[key]; ok && existing != e.PlayerID {
			ambiguous[key] = true
		}
		r.byName[key] = e.PlayerID
	}
	for key := range ambiguous {
		delete(r.byName, key)
	}
	return r
}

func teamKey(team, name string) string {
	return team + "|" + name
}

// Resolve returns the participant id for a report: the reported id when present,
// otherwise the unique id registered under the normalised name for that team.
func (r *IdentityResolver) Resolve(team, name, id string) (string, bool) {
	if id != "" {
		return id, true
	}
	resolved, ok := r.byName[teamKey(team, NormalizeName(name))]
	return resolved, ok
}

// Name returns the display name registered for an id.
func (r *IdentityResolver) Name(id string) string {
	if name, ok := r.names[id]; ok {
		return name
	}
	return id
}
