package rebalance

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/mkoyama/shisan/internal/models"
)

var csvHeader = []string{
	"class", "cur_value_jpy", "cur_pct", "target_pct", "min_pct", "max_pct", "drift_pct", "breach",
}

// ToCSV renders a plan's breach report as CSV, one row per asset class.
// Percentages are fixed to two decimals, breach is 1 or 0.
func ToCSV(plan *models.PlanResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("writing csv header: %w", err)
	}
	for _, r := range plan.Rows {
		breach := "0"
		if r.Breach {
			breach = "1"
		}
		row := []string{
			r.Class,
			strconv.FormatFloat(r.CurValueJPY, 'f', -1, 64),
			fmt.Sprintf("%.2f", r.CurPct),
			fmt.Sprintf("%.2f", r.TargetPct),
			fmt.Sprintf("%.2f", r.MinPct),
			fmt.Sprintf("%.2f", r.MaxPct),
			fmt.Sprintf("%.2f", r.DriftPct),
			breach,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("writing csv row for class '%s': %w", r.Class, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing csv: %w", err)
	}
	return buf.Bytes(), nil
}
