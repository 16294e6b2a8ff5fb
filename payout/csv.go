package payout

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/voucher-engine/voucher"
)

// =============================================================================
// LEGACY CSV - Semicolon-separated operator format with comma decimals
// =============================================================================

// csvHeader is the exact column set the finance import expects. Casing and
// spelling are contractual; do not "fix" them.
var csvHeader = []string{
	"matricula",
	"admissao",
	"sindicato",
	"competencia",
	"dias",
	"valor diario",
	"TOTAL",
	"custo empresa",
	"desconto funcionario",
	"OBS GERAL",
}

// WriteCSV emits the payout in the legacy format: semicolon separators,
// comma decimal marks, day-first dates.
func WriteCSV(w io.Writer, p *Payout) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range p.Rows {
		record := []string{
			string(row.WorkerID),
			legacyDate(row.HireDate),
			row.Union,
			legacyDate(&row.Competence),
			strconv.Itoa(row.Days),
			legacyDecimal(row.DailyRate),
			legacyDecimal(row.Total),
			legacyDecimal(row.Employer),
			legacyDecimal(row.Employee),
			row.Observations,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %s: %w", row.WorkerID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the legacy CSV to path, creating or truncating it.
func WriteCSVFile(path string, p *Payout) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(f, p); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func legacyDate(d *voucher.Date) string {
	if d == nil || d.IsZero() {
		return ""
	}
	return d.Time.Format("02/01/2006")
}

func legacyDecimal(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1)
}
