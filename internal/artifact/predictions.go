package artifact

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/gridcast/internal/models"
)

// Decimal places written for spreads, probabilities and totals.
const precision = models.SpreadPrecision

// JustificationSeparator joins a stage's justifications into one cell.
const JustificationSeparator = " | "

var predictionHead = []string{
	"match_id", "season", "week", "date", "home_team", "away_team", "model_version",
	"winner", "spread", "win_probability", "model_win_probability",
	"base_total", "total_adjustment", "predicted_total",
}

var stageColumns = []string{"spread", "adjustment", "win_probability", "winner", "skipped", "skip_reason", "justifications"}

// PredictionHeader returns the prediction file's column names.
func PredictionHeader() []string {
	header := append([]string(nil), predictionHead...)
	for _, stage := range models.StageOrder {
		for _, col := range stageColumns {
			header = append(header, stage+"_"+col)
		}
	}
	return header
}

// FormatNumber renders v with fixed precision. Negative zero prints as zero;
// NaN and infinities print empty.
func FormatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return decimal.NewFromFloat(v).StringFixed(precision)
}

// EncodePredictions renders one row per record. Equal input yields byte-identical output.
func EncodePredictions(records []models.AdjustmentRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(PredictionHeader()); err != nil {
		return nil, err
	}
	for i := range records {
		r := &records[i]
		final := r.Final()
		row := []string{
			r.MatchID,
			strconv.Itoa(r.Season),
			strconv.Itoa(r.Week),
			r.Date.UTC().Format("2006-01-02"),
			r.HomeTeam,
			r.AwayTeam,
			r.ModelVersion,
			final.Winner,
			FormatNumber(final.Spread),
			FormatNumber(final.WinProbability),
			FormatNumber(r.ModelWinProb),
			FormatNumber(r.BaseTotal),
			FormatNumber(r.TotalAdjustment),
			FormatNumber(r.PredictedTotal),
		}
		for _, name := range models.StageOrder {
			s, ok := r.Stage(name)
			if !ok {
				return nil, fmt.Errorf("%w: %s has no %s stage", models.ErrChainMismatch, r.MatchID, name)
			}
			row = append(row,
				FormatNumber(s.Spread),
				FormatNumber(s.Adjustment),
				FormatNumber(s.WinProbability),
				s.Winner,
				strconv.FormatBool(s.Skipped),
				s.SkipReason,
				strings.Join(s.Justifications, JustificationSeparator),
			)
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WritePredictions encodes records and replaces path atomically.
func (w *AtomicWriter) WritePredictions(path string, records []models.AdjustmentRecord) error {
	data, err := EncodePredictions(records)
	if err != nil {
		return fmt.Errorf("failed to encode predictions: %w", err)
	}
	return w.Write(path, data)
}

// ReadPredictions parses a prediction file back into records. Values carry the
// file's fixed precision.
func ReadPredictions(path string) ([]models.AdjustmentRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}
	col := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		col[h] = i
	}
	for _, h := range PredictionHeader() {
		if _, ok := col[h]; !ok {
			return nil, fmt.Errorf("%s is missing column %s", path, h)
		}
	}

	out := make([]models.AdjustmentRecord, 0, len(rows)-1)
	for n, row := range rows[1:] {
		p := rowParser{row: row, col: col}
		r := models.AdjustmentRecord{
			MatchID:         p.str("match_id"),
			Season:          p.int("season"),
			Week:            p.int("week"),
			Date:            p.date("date"),
			HomeTeam:        p.str("home_team"),
			AwayTeam:        p.str("away_team"),
			ModelVersion:    p.str("model_version"),
			ModelWinProb:    p.float("model_win_probability"),
			BaseTotal:       p.float("base_total"),
			TotalAdjustment: p.float("total_adjustment"),
			PredictedTotal:  p.float("predicted_total"),
		}
		for _, name := range models.StageOrder {
			s := models.StageRecord{
				Name:           name,
				Spread:         p.float(name + "_spread"),
				Adjustment:     p.float(name + "_adjustment"),
				WinProbability: p.float(name + "_win_probability"),
				Winner:         p.str(name + "_winner"),
				Skipped:        p.bool(name + "_skipped"),
				SkipReason:     p.str(name + "_skip_reason"),
			}
			if j := p.str(name + "_justifications"); j != "" {
				s.Justifications = strings.Split(j, JustificationSeparator)
			}
			r.Stages = append(r.Stages, s)
		}
		if p.err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, n+2, p.err)
		}
		out = append(out, r)
	}
	return out, nil
}

// rowParser reads typed cells, keeping the first error.
type rowParser struct {
	row []string
	col map[string]int
	err error
}

func (p *rowParser) str(name string) string {
	i, ok := p.col[name]
	if !ok || i >= len(p.row) {
		return ""
	}
	return p.row[i]
}

func (p *rowParser) float(name string) float64 {
	v := p.str(name)
	if v == "" {
		return 0
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		p.fail(name, err)
		return 0
	}
	f, _ := d.Float64()
	return f
}

func (p *rowParser) int(name string) int {
	n, err := strconv.Atoi(p.str(name))
	if err != nil {
		p.fail(name, err)
	}
	return n
}

func (p *rowParser) bool(name string) bool {
	b, err := strconv.ParseBool(p.str(name))
	if err != nil {
		p.fail(name, err)
	}
	return b
}

func (p *rowParser) date(name string) time.Time {
	t, err := time.Parse("2006-01-02", p.str(name))
	if err != nil {
		p.fail(name, err)
	}
	return t
}

func (p *rowParser) fail(name string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("column %s: %w", name, err)
	}
}
