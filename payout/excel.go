package payout

import (
	"bytes"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// EXCEL WORKBOOK - The operator deliverable
// =============================================================================

const sheetName = "VR Mensal"

// excelHeader mirrors the legacy CSV column set; the workbook and the CSV
// must stay column-for-column identical.
var excelHeader = []string{
	"Matricula",
	"Admissão",
	"Sindicato do Colaborador",
	"Competência",
	"Dias",
	"VALOR DIÁRIO VR",
	"TOTAL",
	"Custo empresa",
	"Desconto profissional",
	"OBS GERAL",
}

var excelColumnWidths = []float64{12, 12, 55, 12, 8, 14, 12, 14, 18, 30}

// WriteExcel renders the payout workbook into a byte slice.
func WriteExcel(p *Payout) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for col, header := range excelHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("header cell name: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("style header cell %s: %w", cell, err)
		}
	}
	for i := range excelHeader {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("column name: %w", err)
		}
		if err := f.SetColWidth(sheetName, col, col, excelColumnWidths[i]); err != nil {
			f.Close()
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	for i, row := range p.Rows {
		r := i + 2
		values := []any{
			string(row.WorkerID),
			legacyDate(row.HireDate),
			row.Union,
			legacyDate(&row.Competence),
			row.Days,
			toFloat(row.DailyRate),
			toFloat(row.Total),
			toFloat(row.Employer),
			toFloat(row.Employee),
			row.Observations,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, r)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("cell name row %d: %w", r, err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	// Totals row below the data, labeled in the union column.
	totalsRow := len(p.Rows) + 2
	totals := map[int]any{
		3: "TOTAL",
		7: toFloat(p.TotalValue),
		8: toFloat(p.TotalEmployer),
		9: toFloat(p.TotalEmployee),
	}
	for col, v := range totals {
		cell, err := excelize.CoordinatesToCellName(col, totalsRow)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("totals cell name: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			f.Close()
			return nil, fmt.Errorf("set totals cell %s: %w", cell, err)
		}
	}

	// Keep the header visible while scrolling.
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("render workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteExcelFile writes the payout workbook to path.
func WriteExcelFile(path string, p *Payout) error {
	data, err := WriteExcel(p)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func toFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
