package artifact

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/gridcast/internal/models"
)

// ValidationLogHeader returns the validation log's column names.
func ValidationLogHeader() []string {
	header := []string{"batch_id", "label", "validated_at", "fixtures", "winner_accuracy", "total_mae", "bias"}
	for _, stage := range models.StageOrder {
		header = append(header, "mae_"+stage)
	}
	for _, stage := range models.StageOrder {
		header = append(header, "bias_"+stage)
	}
	return append(header, "flags")
}

func summaryRow(s models.ValidationSummary) []string {
	row := []string{
		s.BatchID.String(),
		s.Label,
		s.ValidatedAt.UTC().Format(time.RFC3339),
		strconv.Itoa(s.Fixtures),
		FormatNumber(s.WinnerAccuracy),
		FormatNumber(s.TotalMAE),
		FormatNumber(s.Bias),
	}
	for _, stage := range models.StageOrder {
		row = append(row, FormatNumber(s.StageMAE[stage]))
	}
	for _, stage := range models.StageOrder {
		row = append(row, FormatNumber(s.StageBias[stage]))
	}
	flags := make([]string, len(s.Flags))
	for i, f := range s.Flags {
		flags[i] = f.Stage
	}
	return append(row, strings.Join(flags, ";"))
}

// AppendValidation adds one summary row to the log at path, creating it with a
// header when absent. The whole file is rewritten atomically.
func (w *AtomicWriter) AppendValidation(path string, summary models.ValidationSummary) error {
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read validation log: %w", err)
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if len(existing) == 0 {
		if err := cw.Write(ValidationLogHeader()); err != nil {
			return err
		}
	} else {
		head, err := csv.NewReader(bytes.NewReader(existing)).Read()
		if err != nil {
			return fmt.Errorf("failed to read validation log header: %w", err)
		}
		if strings.Join(head, ",") != strings.Join(ValidationLogHeader(), ",") {
			return fmt.Errorf("validation log %s has an unexpected header", path)
		}
		buf.Write(existing)
		if existing[len(existing)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	if err := cw.Write(summaryRow(summary)); err != nil {
		return err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return w.Write(path, buf.Bytes())
}

// ReadValidationLog parses every summary row in the log.
func ReadValidationLog(path string) ([]models.ValidationSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	head, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	col := make(map[string]int, len(head))
	for i, h := range head {
		col[h] = i
	}

	var out []models.ValidationSummary
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		p := rowParser{row: row, col: col}
		batchID, idErr := uuid.Parse(p.str("batch_id"))
		if idErr != nil {
			p.fail("batch_id", idErr)
		}
		validatedAt, tErr := time.Parse(time.RFC3339, p.str("validated_at"))
		if tErr != nil {
			p.fail("validated_at", tErr)
		}
		s := models.ValidationSummary{
			BatchID:        batchID,
			Label:          p.str("label"),
			ValidatedAt:    validatedAt,
			Fixtures:       p.int("fixtures"),
			WinnerAccuracy: p.float("winner_accuracy"),
			TotalMAE:       p.float("total_mae"),
			Bias:           p.float("bias"),
			StageMAE:       make(map[string]float64, len(models.StageOrder)),
			StageBias:      make(map[string]float64, len(models.StageOrder)),
		}
		for _, stage := range models.StageOrder {
			s.StageMAE[stage] = p.float("mae_" + stage)
			s.StageBias[stage] = p.float("bias_" + stage)
		}
		if flags := p.str("flags"); flags != "" {
			for _, stage := range strings.Split(flags, ";") {
				s.Flags = append(s.Flags, models.StageFlag{Stage: stage})
			}
		}
		if p.err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, line, p.err)
		}
		out = append(out, s)
	}
	return out, nil
}
