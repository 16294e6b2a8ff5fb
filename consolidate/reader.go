package consolidate

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/warp/voucher-engine/voucher"
)

// =============================================================================
// FILE SET - Which spreadsheet feeds which source
// =============================================================================

// FileSet names the input spreadsheets. Every entry is optional except
// Active: a payroll run without the active base is not a run.
type FileSet struct {
	Active       string `toml:"active"`
	Hires        string `toml:"hires"`
	Terminations string `toml:"terminations"`
	Vacations    string `toml:"vacations"`
	Interns      string `toml:"interns"`
	Apprentices  string `toml:"apprentices"`
	Overseas     string `toml:"overseas"`
	WorkingDays  string `toml:"working_days"`
	StateRates   string `toml:"state_rates"`
}

// DefaultFileSet matches the operator's delivery naming.
func DefaultFileSet() FileSet {
	return FileSet{
		Active:       "ATIVOS.xlsx",
		Hires:        "ADMISSÃO ABRIL.xlsx",
		Terminations: "DESLIGADOS.xlsx",
		Vacations:    "FÉRIAS.xlsx",
		Interns:      "ESTÁGIO.xlsx",
		Apprentices:  "APRENDIZ.xlsx",
		Overseas:     "EXTERIOR.xlsx",
		WorkingDays:  "Base dias uteis.xlsx",
		StateRates:   "Base sindicato x valor.xlsx",
	}
}

// =============================================================================
// READER - excelize-backed source loading
// =============================================================================

type Reader struct {
	dir   string
	files FileSet
	log   *zap.Logger
}

func NewReader(dir string, files FileSet, log *zap.Logger) *Reader {
	return &Reader{dir: dir, files: files, log: log}
}

// LoadSources reads every available source spreadsheet. Missing optional
// files are logged and skipped; a missing active base is fatal.
func (r *Reader) LoadSources() ([]Source, error) {
	entries := []struct {
		kind     Kind
		file     string
		required bool
	}{
		{KindActive, r.files.Active, true},
		{KindHires, r.files.Hires, false},
		{KindTerminations, r.files.Terminations, false},
		{KindVacations, r.files.Vacations, false},
		{KindInterns, r.files.Interns, false},
		{KindApprentices, r.files.Apprentices, false},
		{KindOverseas, r.files.Overseas, false},
	}

	var sources []Source
	for _, entry := range entries {
		rows, err := r.readSheet(entry.file)
		if err != nil {
			if !entry.required && voucher.IsRecoverable(err) {
				r.log.Warn("optional source missing, proceeding without it",
					zap.String("source", entry.kind.String()),
					zap.String("file", entry.file))
				continue
			}
			return nil, &voucher.StageError{Stage: "consolidate", File: entry.file, Err: err}
		}
		sources = append(sources, Source{Kind: entry.kind, Rows: rows})
	}
	return sources, nil
}

// LoadRateTable reads the union working-day and state rate spreadsheets.
// Either file missing falls back to the built-in defaults with a warning.
func (r *Reader) LoadRateTable() *voucher.RateTable {
	table := voucher.DefaultRateTable()

	if rows, err := r.rawRows(r.files.WorkingDays); err == nil {
		days := parseWorkingDays(rows)
		if len(days) > 0 {
			table.DaysByUnion = days
		}
	} else {
		r.log.Warn("working-days table missing, using defaults",
			zap.String("file", r.files.WorkingDays), zap.Error(err))
	}

	if rows, err := r.rawRows(r.files.StateRates); err == nil {
		rates := parseStateRates(rows)
		if len(rates) > 0 {
			table.RateByState = rates
		}
	} else {
		r.log.Warn("state-rate table missing, using defaults",
			zap.String("file", r.files.StateRates), zap.Error(err))
	}

	return table
}

func (r *Reader) readSheet(name string) ([]Row, error) {
	raw, err := r.rawRows(name)
	if err != nil {
		return nil, err
	}
	return mapRows(raw), nil
}

func (r *Reader) rawRows(name string) ([][]string, error) {
	path := filepath.Join(r.dir, name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", voucher.ErrSourceMissing, path)
		}
		return nil, fmt.Errorf("%w: %v", voucher.ErrSourceUnreadable, err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", voucher.ErrSourceUnreadable, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", voucher.ErrSourceUnreadable, err)
	}
	return rows, nil
}

// =============================================================================
// COLUMN MAPPING
// =============================================================================

// mapRows converts a raw sheet (header row + data rows) into Rows. Header
// names are matched case-insensitively after trimming.
func mapRows(raw [][]string) []Row {
	if len(raw) == 0 {
		return nil
	}
	idx := headerIndex(raw[0])
	rows := make([]Row, 0, len(raw)-1)
	for _, line := range raw[1:] {
		rows = append(rows, Row{
			EmployeeID:        cell(line, idx, "matricula"),
			Company:           cell(line, idx, "empresa"),
			JobTitle:          cell(line, idx, "cargo"),
			Situation:         cell(line, idx, "situacao"),
			Union:             cell(line, idx, "sindicato"),
			HireDate:          cell(line, idx, "admissao"),
			TerminationDate:   cell(line, idx, "demissao data"),
			VacationSituation: cell(line, idx, "situacao"),
			VacationDays:      cell(line, idx, "dias de férias"),
		})
	}
	return rows
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(CleanString(h))] = i
	}
	return idx
}

func cell(line []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(line) {
		return ""
	}
	return line[i]
}

func parseWorkingDays(raw [][]string) map[string]int {
	if len(raw) == 0 {
		return nil
	}
	idx := headerIndex(raw[0])
	out := make(map[string]int)
	for _, line := range raw[1:] {
		union := CleanString(cell(line, idx, "sindicato"))
		days, err := strconv.Atoi(strings.TrimSpace(cell(line, idx, "dias uteis")))
		if union == "" || err != nil {
			continue
		}
		out[union] = days
	}
	return out
}

func parseStateRates(raw [][]string) map[string]decimal.Decimal {
	if len(raw) == 0 {
		return nil
	}
	idx := headerIndex(raw[0])
	out := make(map[string]decimal.Decimal)
	for _, line := range raw[1:] {
		state := CleanString(cell(line, idx, "estado"))
		rate, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(cell(line, idx, "valor")), ",", "."))
		if state == "" || err != nil {
			continue
		}
		out[state] = rate
	}
	return out
}
