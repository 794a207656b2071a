// Package availability turns injury reports into a signed spread correction.
package availability

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/yourusername/gridcast/internal/cascade"
	"github.com/yourusername/gridcast/internal/logger"
	"github.com/yourusername/gridcast/internal/models"
	"github.com/yourusername/gridcast/internal/rolling"
)

// ReportSource supplies availability reports for a team ahead of a date.
type ReportSource interface {
	Reports(ctx context.Context, team string, date time.Time) ([]models.UnavailabilityReport, error)
}

// DepthChartSource supplies ranked depth charts for a team.
type DepthChartSource interface {
	DepthChart(ctx context.Context, team string) ([]models.DepthChartEntry, error)
}

// Band is an inclusive clamp range in points.
type Band struct {
	Min float64
	Max float64
}

func (b Band) clamp(v float64) float64 {
	return math.Min(b.Max, math.Max(b.Min, v))
}

// Config holds resolver tunables.
type Config struct {
	CriticalPosition    string
	UsageMinPlays       int
	UsageWindow         time.Duration
	EPAScale            float64
	LeagueAverageEPA    float64
	ReplacementLevelEPA float64
	CompetentBand       Band
	WeakBand            Band
	FallbackPenalty     float64
	DefenseSensitivity  float64
	DefenseLookback     time.Duration
	MultiplierMin       float64
	MultiplierMax       float64
	DoubtfulFactor      float64
	QuestionableFactor  float64
	PositionImpacts     map[string]float64
}

// DefaultConfig returns quarterback-centred defaults.
func DefaultConfig() Config {
	return Config{
		CriticalPosition:    "QB",
		UsageMinPlays:       50,
		UsageWindow:         21 * 24 * time.Hour,
		EPAScale:            35,
		LeagueAverageEPA:    0,
		ReplacementLevelEPA: -0.15,
		CompetentBand:       Band{Min: 1.5, Max: 4.5},
		WeakBand:            Band{Min: 3, Max: 9},
		FallbackPenalty:     4,
		DefenseSensitivity:  2,
		DefenseLookback:     112 * 24 * time.Hour,
		MultiplierMin:       0.8,
		MultiplierMax:       1.2,
		DoubtfulFactor:      0.6,
		QuestionableFactor:  0.2,
		PositionImpacts:     DefaultPositionImpacts(),
	}
}

// Resolver is the availability step of the cascade.
type Resolver struct {
	cfg        Config
	reports    ReportSource
	depth      DepthChartSource
	usage      *UsageIndex
	efficiency *rolling.EfficiencyIndex
	audit      *logger.AuditLogger
}

// NewResolver creates a resolver. depth, usage and efficiency may be nil; the
// resolver then falls back to replacement-level and unscaled estimates.
func NewResolver(cfg Config, reports ReportSource, depth DepthChartSource, usage *UsageIndex, efficiency *rolling.EfficiencyIndex, audit *logger.AuditLogger) *Resolver {
	if cfg.PositionImpacts == nil {
		cfg.PositionImpacts = DefaultPositionImpacts()
	}
	return &Resolver{
		cfg:        cfg,
		reports:    reports,
		depth:      depth,
		usage:      usage,
		efficiency: efficiency,
		audit:      audit,
	}
}

// Contribution is one participant's share of a team's impact.
type Contribution struct {
	Team     string
	Player   string
	Position string
	Severity models.Severity
	Impact   float64
	Note     string
}

func (c Contribution) String() string {
	return fmt.Sprintf("%s %s %s %s: %.2f (%s)", c.Team, c.Position, c.Player, c.Severity, c.Impact, c.Note)
}

// Adjust implements cascade.Stage. Net adjustment = away impact − home impact.
func (r *Resolver) Adjust(ctx context.Context, fx *models.Match, _ float64) cascade.Outcome {
	if r.reports == nil {
		return cascade.Skip(models.SkipReasonNoData, "no availability feed configured")
	}

	homeReports, homeErr := r.reports.Reports(ctx, fx.HomeTeam, fx.Date)
	awayReports, awayErr := r.reports.Reports(ctx, fx.AwayTeam, fx.Date)
	if homeErr != nil || awayErr != nil {
		err := homeErr
		if err == nil {
			err = awayErr
		}
		return cascade.Skip(models.SkipReasonNoData, fmt.Sprintf("availability feed unavailable: %v", err))
	}
	if len(homeReports) == 0 && len(awayReports) == 0 {
		return cascade.Skip(models.SkipReasonNoData, "availability feed returned no reports")
	}

	home := r.TeamImpact(ctx, fx.HomeTeam, fx.AwayTeam, fx.Date, homeReports)
	away := r.TeamImpact(ctx, fx.AwayTeam, fx.HomeTeam, fx.Date, awayReports)

	homeTotal, awayTotal := sum(home), sum(away)
	justifications := make([]string, 0, len(home)+len(away)+1)
	for _, c := range append(append([]Contribution{}, home...), away...) {
		justifications = append(justifications, c.String())
		if r.audit != nil {
			r.audit.LogAvailabilityNote(fx.ID, c.Team, c.Player, c.Note, c.Impact)
		}
	}
	justifications = append(justifications, fmt.Sprintf("net %s %.2f - %s %.2f", fx.AwayTeam, awayTotal, fx.HomeTeam, homeTotal))

	return cascade.Outcome{
		Adjustment:     awayTotal - homeTotal,
		Justifications: justifications,
	}
}

func sum(cs []Contribution) float64 {
	total := 0.0
	for _, c := range cs {
		total += c.Impact
	}
	return total
}

// TeamImpact scores every report for one team against its opponent.
func (r *Resolver) TeamImpact(ctx context.Context, team, opponent string, date time.Time, reports []models.UnavailabilityReport) []Contribution {
	reports = dedupe(reports)
	for i := range reports {
		reports[i].Team = team
	}
	if len(reports) == 0 {
		return nil
	}

	var chart []models.DepthChartEntry
	var chartErr error
	if r.depth != nil {
		chart, chartErr = r.depth.DepthChart(ctx, team)
	}
	identity := NewIdentityResolver(chart)
	mult := r.multipliers(opponent, date)

	out := make([]Contribution, 0, len(reports))
	for _, rep := range reports {
		c := Contribution{Team: team, Player: rep.Player, Position: strings.ToUpper(rep.Position), Severity: rep.Severity}
		if strings.EqualFold(rep.Position, r.cfg.CriticalPosition) {
			c.Impact, c.Note = r.critical(rep, date, chart, chartErr, identity, reports)
		} else {
			c.Impact, c.Note = r.positional(rep, mult)
		}
		out = append(out, c)
	}
	return out
}

// critical scores an absent critical-position participant from the EPA gap to the replacement.
func (r *Resolver) critical(rep models.UnavailabilityReport, date time.Time, chart []models.DepthChartEntry, chartErr error, identity *IdentityResolver, all []models.UnavailabilityReport) (float64, string) {
	factor := r.severityFactor(rep.Severity)
	if rep.Severity == models.SeverityDoubtful {
		factor = 1
	}

	id, ok := identity.Resolve(rep.Team, rep.Player, rep.PlayerID)
	if !ok {
		return r.cfg.FallbackPenalty * factor, fmt.Sprintf("unresolved identity, fallback penalty %.1f", r.cfg.FallbackPenalty)
	}

	if !r.usage.Known() {
		return r.cfg.FallbackPenalty * factor, fmt.Sprintf("usage data unavailable, fallback penalty %.1f", r.cfg.FallbackPenalty)
	}

	recent := r.usage.Count(id, date.Add(-r.cfg.UsageWindow), date)
	if recent < r.cfg.UsageMinPlays {
		return 0, fmt.Sprintf("already out of rotation: %d plays in %d days (threshold %d)",
			recent, int(r.cfg.UsageWindow.Hours()/24), r.cfg.UsageMinPlays)
	}

	starterEPA, _ := r.usage.EPAPerPlay(id, date)
	replacementID, replacementName := r.replacement(rep, id, date, chart, identity, all)
	replacementEPA, replacementPlays := r.usage.EPAPerPlay(replacementID, date)
	if replacementID == "" || replacementPlays == 0 {
		replacementEPA = r.cfg.ReplacementLevelEPA
	}

	band, bandName := r.cfg.WeakBand, "weak backup"
	if replacementEPA >= r.cfg.LeagueAverageEPA {
		band, bandName = r.cfg.CompetentBand, "competent backup"
	}
	raw := (starterEPA - replacementEPA) * r.cfg.EPAScale
	impact := band.clamp(raw) * factor

	note := fmt.Sprintf("replacement %s, EPA/play %.3f vs %.3f, raw %.2f clamped to %s band [%.1f, %.1f]",
		replacementName, starterEPA, replacementEPA, raw, bandName, band.Min, band.Max)
	if chartErr != nil {
		note += "; depth chart unavailable"
	}
	return impact, note
}

// replacement picks the best-ranked available participant at the critical position,
// breaking rank ties by recent usage.
func (r *Resolver) replacement(rep models.UnavailabilityReport, starterID string, date time.Time, chart []models.DepthChartEntry, identity *IdentityResolver, all []models.UnavailabilityReport) (string, string) {
	unavailable := map[string]bool{starterID: true}
	for _, other := range all {
		if !other.Severity.ExpectedToMiss() {
			continue
		}
		if id, ok := identity.Resolve(other.Team, other.Player, other.PlayerID); ok {
			unavailable[id] = true
		}
	}

	var candidates []models.DepthChartEntry
	for _, e := range chart {
		if !strings.EqualFold(e.Position, rep.Position) || e.PlayerID == "" || unavailable[e.PlayerID] {
			continue
		}
		candidates = append(candidates, e)
	}
	if len(candidates) == 0 {
		return "", "replacement-level (no depth chart entry)"
	}

	from := date.Add(-r.cfg.UsageWindow)
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Rank != candidates[j].Rank {
			return candidates[i].Rank < candidates[j].Rank
		}
		return r.usage.Count(candidates[i].PlayerID, from, date) > r.usage.Count(candidates[j].PlayerID, from, date)
	})
	return candidates[0].PlayerID, candidates[0].Player
}

// positional scores a non-critical participant from the impact table.
func (r *Resolver) positional(rep models.UnavailabilityReport, mult multipliers) (float64, string) {
	points, ok := r.cfg.PositionImpacts[strings.ToUpper(rep.Position)]
	if !ok {
		return 0, "position not in impact table"
	}
	group := PositionGroup(rep.Position)
	m := mult.forGroup(group)
	impact := points * r.severityFactor(rep.Severity) * m
	return impact, fmt.Sprintf("%.1f pts at OUT x %.2f severity x %.2f %s multiplier", points, r.severityFactor(rep.Severity), m, group)
}

func (r *Resolver) severityFactor(s models.Severity) float64 {
	switch s {
	case models.SeverityOut, models.SeverityLongTermOut:
		return 1
	case models.SeverityDoubtful:
		return r.cfg.DoubtfulFactor
	case models.SeverityQuestionable:
		return r.cfg.QuestionableFactor
	default:
		return 0
	}
}

type multipliers struct {
	pass float64
	rush float64
}

func (m multipliers) forGroup(g Group) float64 {
	switch g {
	case GroupReceiver:
		return m.pass
	case GroupBallCarrier:
		return m.rush
	case GroupLine:
		return (m.pass + m.rush) / 2
	default:
		return 1
	}
}

// multipliers rates the opponent defense against the league over the lookback window.
// A defense allowing less EPA than the league raises the cost of a missing participant.
func (r *Resolver) multipliers(opponent string, date time.Time) multipliers {
	neutral := multipliers{pass: 1, rush: 1}
	if r.efficiency.Empty() {
		return neutral
	}
	opp, ok := r.efficiency.DefenseAllowed(opponent, date, r.cfg.DefenseLookback)
	if !ok {
		return neutral
	}
	league, ok := r.efficiency.LeagueAllowed(date, r.cfg.DefenseLookback)
	if !ok {
		return neutral
	}
	scale := func(leagueAllowed, oppAllowed float64) float64 {
		m := 1 + (leagueAllowed-oppAllowed)*r.cfg.DefenseSensitivity
		return math.Min(r.cfg.MultiplierMax, math.Max(r.cfg.MultiplierMin, m))
	}
	return multipliers{
		pass: scale(league.PassAllowed, opp.PassAllowed),
		rush: scale(league.RushAllowed, opp.RushAllowed),
	}
}

// dedupe keeps the most severe report per participant.
func dedupe(reports []models.UnavailabilityReport) []models.UnavailabilityReport {
	rank := map[models.Severity]int{
		models.SeverityQuestionable: 1,
		models.SeverityDoubtful:     2,
		models.SeverityOut:          3,
		models.SeverityLongTermOut:  3,
	}
	index := make(map[string]int)
	var out []models.UnavailabilityReport
	for _, rep := range reports {
		key := rep.PlayerID
		if key == "" {
			key = NormalizeName(rep.Player)
		}
		if i, ok := index[key]; ok {
			if rank[rep.Severity] > rank[out[i].Severity] {
				out[i] = rep
			}
			continue
		}
		index[key] = len(out)
		out = append(out, rep)
	}
	return out
}
