package datasource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/gridcast/internal/availability"
	"github.com/yourusername/gridcast/internal/models"
	"github.com/yourusername/gridcast/internal/retry"
)

// reportLookback bounds how old an availability report may be and still count for a fixture.
const reportLookback = 7 * 24 * time.Hour

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "01/02/2006"}

// csvRow gives named access to one record. Each accessor takes column aliases
// and reads the first one present in the header.
type csvRow struct {
	header map[string]int
	record []string
	line   int
}

func (r csvRow) str(names ...string) string {
	for _, n := range names {
		if i, ok := r.header[n]; ok && i < len(r.record) {
			return strings.TrimSpace(r.record[i])
		}
	}
	return ""
}

func missing(v string) bool {
	return v == "" || strings.EqualFold(v, "NA") || strings.EqualFold(v, "null")
}

func (r csvRow) float(names ...string) (float64, bool, error) {
	v := r.str(names...)
	if missing(v) {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false, fmt.Errorf("line %d: column %s: %w", r.line, names[0], err)
	}
	return f, true, nil
}

func (r csvRow) int(names ...string) (int, bool, error) {
	v := r.str(names...)
	if missing(v) {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		// Some exports write integers as 24.0.
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil {
			return 0, false, fmt.Errorf("line %d: column %s: %w", r.line, names[0], err)
		}
		n = int(f)
	}
	return n, true, nil
}

func (r csvRow) date(names ...string) (time.Time, error) {
	v := r.str(names...)
	if missing(v) {
		return time.Time{}, nil
	}
	return parseDate(v)
}

func parseDate(v string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", v)
}

// readCSV streams every data row of a headered CSV file through fn.
// Row errors are collected so one bad line never hides the rest of the file.
func readCSV(path string, fn func(csvRow) error) (rowErrs []error, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, retry.Permanent(fmt.Errorf("%w: %v", models.ErrDataUnavailable, err))
		}
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	head, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, retry.Permanent(fmt.Errorf("%w: header: %v", ErrInvalidData, err))
	}
	header := make(map[string]int, len(head))
	for i, h := range head {
		header[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			rowErrs = append(rowErrs, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		if rerr := fn(csvRow{header: header, record: record, line: line}); rerr != nil {
			rowErrs = append(rowErrs, rerr)
		}
	}
	return rowErrs, nil
}

// csvLoader reads a file once per process through the retry policy and keeps
// the parsed records. A failed load is retried on the next call.
type csvLoader[T any] struct {
	feed      string
	path      string
	policy    retry.Policy
	validator *RecordValidator
	logger    *logrus.Entry
	parse     func(csvRow) (T, bool, error)
	ref       func(T) string

	mu     sync.Mutex
	loaded bool
	rows   []T
}

func (l *csvLoader[T]) load(ctx context.Context) ([]T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		return l.rows, nil
	}

	rows, err := retry.Do(ctx, l.feed, l.policy, func(context.Context) ([]T, error) {
		var out []T
		rowErrs, err := readCSV(l.path, func(r csvRow) error {
			v, ok, err := l.parse(r)
			if err != nil {
				return err
			}
			if ok {
				out = append(out, v)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		for _, rerr := range rowErrs {
			l.logger.WithFields(logrus.Fields{"feed": l.feed, "path": l.path, "error": rerr.Error()}).Warn("Skipping unreadable CSV row")
		}
		return out, nil
	})
	if err != nil {
		code := ErrCodeNotFound
		if errors.Is(err, ErrInvalidData) {
			code = ErrCodeInvalidData
		}
		return nil, NewDataSourceError(l.feed, code, "failed to load "+l.path, err)
	}

	l.rows = filterValid(l.validator, l.feed, rows, l.ref)
	l.loaded = true
	l.logger.WithFields(logrus.Fields{"feed": l.feed, "path": l.path, "records": len(l.rows), "dropped": len(rows) - len(l.rows)}).Debug("Loaded CSV feed")
	return l.rows, nil
}

func newLoader[T any](feed, path string, policy retry.Policy, rv *RecordValidator, logger *logrus.Logger, parse func(csvRow) (T, bool, error), ref func(T) string) *csvLoader[T] {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	if rv == nil {
		rv = NewRecordValidator(logger)
	}
	return &csvLoader[T]{
		feed:      feed,
		path:      path,
		policy:    policy,
		validator: rv,
		logger:    logger.WithField("component", "csv_feed"),
		parse:     parse,
		ref:       ref,
	}
}

// MatchCSV reads a schedule/results file.
// Columns: game_id, season, week, gameday, home_team, away_team, home_score, away_score, stadium, roof.
type MatchCSV struct {
	loader *csvLoader[*models.Match]
}

// NewMatchCSV creates a match feed over a CSV file.
func NewMatchCSV(path string, policy retry.Policy, rv *RecordValidator, logger *logrus.Logger) *MatchCSV {
	return &MatchCSV{loader: newLoader(FeedMatches, path, policy, rv, logger, parseMatchRow,
		func(m *models.Match) string { return m.ID })}
}

// Matches returns every match in file order.
func (s *MatchCSV) Matches(ctx context.Context) ([]*models.Match, error) {
	rows, err := s.loader.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Match, len(rows))
	for i, m := range rows {
		c := *m
		out[i] = &c
	}
	return out, nil
}

func parseMatchRow(r csvRow) (*models.Match, bool, error) {
	season, _, err := r.int("season")
	if err != nil {
		return nil, false, err
	}
	week, _, err := r.int("week")
	if err != nil {
		return nil, false, err
	}
	date, err := r.date("gameday", "game_date", "date")
	if err != nil {
		return nil, false, fmt.Errorf("line %d: %w", r.line, err)
	}
	m := &models.Match{
		ID:       r.str("game_id", "id"),
		Season:   season,
		Week:     week,
		Date:     date,
		HomeTeam: r.str("home_team"),
		AwayTeam: r.str("away_team"),
		Venue:    r.str("stadium", "venue"),
		Roof:     NormalizeRoof(r.str("roof")),
	}
	home, homeOK, err := r.int("home_score")
	if err != nil {
		return nil, false, err
	}
	away, awayOK, err := r.int("away_score")
	if err != nil {
		return nil, false, err
	}
	if homeOK && awayOK {
		m.HomeScore, m.AwayScore = models.IntPtr(home), models.IntPtr(away)
	}
	return m, true, nil
}

// NormalizeRoof maps feed roof spellings onto the model's roof types.
func NormalizeRoof(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "dome", "indoors", "indoor":
		return models.RoofDome
	case "closed":
		return models.RoofClosed
	case "retractable":
		return models.RoofRetractable
	case "open", "outdoors", "outdoor":
		return models.RoofOpen
	default:
		return ""
	}
}

// PlayCSV reads a play-by-play file.
// Columns: game_id, game_date, posteam, defteam, play_type, epa, passer_player_id, rusher_player_id, receiver_player_id.
type PlayCSV struct {
	loader *csvLoader[models.Play]
}

// NewPlayCSV creates a play feed over a CSV file.
func NewPlayCSV(path string, policy retry.Policy, rv *RecordValidator, logger *logrus.Logger) *PlayCSV {
	return &PlayCSV{loader: newLoader(FeedPlays, path, policy, rv, logger, parsePlayRow,
		func(p models.Play) string { return p.GameID })}
}

// Plays returns every play in file order.
func (s *PlayCSV) Plays(ctx context.Context) ([]models.Play, error) {
	rows, err := s.loader.load(ctx)
	if err != nil {
		return nil, err
	}
	return append([]models.Play(nil), rows...), nil
}

func parsePlayRow(r csvRow) (models.Play, bool, error) {
	offense := r.str("posteam", "offense")
	if missing(offense) {
		// Timeouts, period ends and other administrative rows.
		return models.Play{}, false, nil
	}
	date, err := r.date("game_date", "date")
	if err != nil {
		return models.Play{}, false, fmt.Errorf("line %d: %w", r.line, err)
	}
	playType := models.PlayTypeOther
	switch strings.ToLower(r.str("play_type")) {
	case models.PlayTypePass:
		playType = models.PlayTypePass
	case models.PlayTypeRun:
		playType = models.PlayTypeRun
	}
	epa, ok, err := r.float("epa")
	if err != nil {
		return models.Play{}, false, err
	}
	if !ok && playType != models.PlayTypeOther {
		return models.Play{}, false, nil
	}
	return models.Play{
		GameID:     r.str("game_id"),
		Date:       date,
		Offense:    offense,
		Defense:    r.str("defteam", "defense"),
		PlayType:   playType,
		EPA:        epa,
		PasserID:   idOrEmpty(r.str("passer_player_id", "passer_id")),
		RusherID:   idOrEmpty(r.str("rusher_player_id", "rusher_id")),
		ReceiverID: idOrEmpty(r.str("receiver_player_id", "receiver_id")),
	}, true, nil
}

func idOrEmpty(v string) string {
	if missing(v) {
		return ""
	}
	return v
}

type datedReport struct {
	models.UnavailabilityReport
	date time.Time
}

// InjuryCSV reads an availability report file.
// Columns: team, full_name, gsis_id, position, report_status, date_modified, report_primary_injury.
type InjuryCSV struct {
	loader *csvLoader[datedReport]
}

// NewInjuryCSV creates an availability feed over a CSV file.
func NewInjuryCSV(path string, policy retry.Policy, rv *RecordValidator, logger *logrus.Logger) *InjuryCSV {
	return &InjuryCSV{loader: newLoader(FeedAvailability, path, policy, rv, logger, parseInjuryRow,
		func(d datedReport) string { return d.Team + "/" + d.Player })}
}

func parseInjuryRow(r csvRow) (datedReport, bool, error) {
	severity, ok := models.ParseSeverity(r.str("report_status", "status", "severity"))
	if !ok {
		// Probable, full participation and blank statuses carry no signal.
		return datedReport{}, false, nil
	}
	date, err := r.date("date_modified", "report_date", "date")
	if err != nil {
		return datedReport{}, false, fmt.Errorf("line %d: %w", r.line, err)
	}
	return datedReport{
		UnavailabilityReport: models.UnavailabilityReport{
			Team:     r.str("team", "club_code"),
			Player:   r.str("full_name", "player"),
			PlayerID: idOrEmpty(r.str("gsis_id", "player_id")),
			Position: strings.ToUpper(r.str("position")),
			Severity: severity,
			Note:     r.str("report_primary_injury", "note"),
		},
		date: date,
	}, true, nil
}

// Reports returns the latest report per participant for team issued within the
// week up to and including date. Undated rows always count.
func (s *InjuryCSV) Reports(ctx context.Context, team string, date time.Time) ([]models.UnavailabilityReport, error) {
	rows, err := s.loader.load(ctx)
	if err != nil {
		return nil, err
	}

	var window []datedReport
	for _, row := range rows {
		if row.Team != team {
			continue
		}
		if !row.date.IsZero() && (row.date.After(date) || !row.date.After(date.Add(-reportLookback))) {
			continue
		}
		window = append(window, row)
	}
	sort.SliceStable(window, func(i, j int) bool { return window[i].date.Before(window[j].date) })

	latest := make(map[string]int)
	var out []models.UnavailabilityReport
	for _, row := range window {
		key := row.PlayerID
		if key == "" {
			key = availability.NormalizeName(row.Player)
		}
		if i, ok := latest[key]; ok {
			out[i] = row.UnavailabilityReport
			continue
		}
		latest[key] = len(out)
		out = append(out, row.UnavailabilityReport)
	}
	return out, nil
}

// DepthChartCSV reads a depth chart file.
// Columns: club_code, position, depth_team, full_name, gsis_id.
type DepthChartCSV struct {
	loader *csvLoader[models.DepthChartEntry]
}

// NewDepthChartCSV creates a depth chart feed over a CSV file.
func NewDepthChartCSV(path string, policy retry.Policy, rv *RecordValidator, logger *logrus.Logger) *DepthChartCSV {
	return &DepthChartCSV{loader: newLoader(FeedDepthCharts, path, policy, rv, logger, parseDepthRow,
		func(e models.DepthChartEntry) string { return e.Team + "/" + e.Player })}
}

func parseDepthRow(r csvRow) (models.DepthChartEntry, bool, error) {
	rank, _, err := r.int("depth_team", "rank")
	if err != nil {
		return models.DepthChartEntry{}, false, err
	}
	return models.DepthChartEntry{
		Team:     r.str("club_code", "team"),
		Position: strings.ToUpper(r.str("position", "depth_position")),
		PlayerID: idOrEmpty(r.str("gsis_id", "player_id")),
		Player:   r.str("full_name", "player"),
		Rank:     rank,
	}, true, nil
}

// DepthChart returns team's entries ordered by position then rank.
func (s *DepthChartCSV) DepthChart(ctx context.Context, team string) ([]models.DepthChartEntry, error) {
	rows, err := s.loader.load(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.DepthChartEntry
	for _, e := range rows {
		if e.Team == team {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].Rank < out[j].Rank
	})
	return out, nil
}
