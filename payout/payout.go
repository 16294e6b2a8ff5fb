/*
Package payout turns calculated worker records into the delivered artifacts.

PURPOSE:
  Stage 5 of the VR pipeline. Eligible records become payout rows carrying
  the operator's column set; the employer/employee cost split is applied
  here, and only here, so rounding happens exactly once. Rows are emitted
  as the Excel workbook the benefits operator ingests (excel.go) and as
  the legacy semicolon CSV the finance system still reads (csv.go).

COST SPLIT:
  total            = value rounded to 2 places
  employer share   = round2(total × employer fraction), default 80%
  employee share   = total − employer share
  The subtraction, not a second multiplication, keeps the two shares
  summing exactly to the total.

ORDERING:
  Rows are sorted by total descending; ties keep consolidation order, so
  two runs over the same input produce byte-identical artifacts.
*/
package payout

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/voucher-engine/voucher"
)

// DefaultEmployerShare is the contractual employer fraction of the cost.
var DefaultEmployerShare = decimal.RequireFromString("0.80")

// =============================================================================
// ROWS
// =============================================================================

// Row is one line of the operator deliverable.
type Row struct {
	WorkerID     voucher.EmployeeID `json:"worker_id"`
	HireDate     *voucher.Date      `json:"hire_date,omitempty"`
	Union        string             `json:"union"`
	Competence   voucher.Date       `json:"competence"`
	Days         int                `json:"days"`
	DailyRate    decimal.Decimal    `json:"daily_rate"`
	Total        decimal.Decimal    `json:"total"`
	Employer     decimal.Decimal    `json:"employer"`
	Employee     decimal.Decimal    `json:"employee"`
	Observations string             `json:"observations,omitempty"`
}

// Payout is the complete formatted result of one run.
type Payout struct {
	Competence    voucher.Date    `json:"competence"`
	Rows          []Row           `json:"rows"`
	TotalValue    decimal.Decimal `json:"total_value"`
	TotalEmployer decimal.Decimal `json:"total_employer"`
	TotalEmployee decimal.Decimal `json:"total_employee"`
}

// =============================================================================
// FORMATTER
// =============================================================================

type Formatter struct {
	period        voucher.ReferencePeriod
	employerShare decimal.Decimal
	log           *zap.Logger
}

func NewFormatter(period voucher.ReferencePeriod, employerShare decimal.Decimal, log *zap.Logger) *Formatter {
	if employerShare.IsZero() {
		employerShare = DefaultEmployerShare
	}
	return &Formatter{period: period, employerShare: employerShare, log: log}
}

// Build produces the payout for every eligible worker in the set. Workers
// without a calculation or with zero value are left out.
func (f *Formatter) Build(set *voucher.WorkerSet) *Payout {
	competence := f.period.Competence()
	out := &Payout{
		Competence:    competence,
		TotalValue:    decimal.Zero,
		TotalEmployer: decimal.Zero,
		TotalEmployee: decimal.Zero,
	}

	for _, w := range set.All() {
		if w.Calc == nil || !w.Calc.Eligible {
			continue
		}
		total := w.Calc.Value.Round(2)
		employer := total.Mul(f.employerShare).Round(2)
		employee := total.Sub(employer)

		out.Rows = append(out.Rows, Row{
			WorkerID:     w.ID,
			HireDate:     w.Hire,
			Union:        w.Union,
			Competence:   competence,
			Days:         w.Calc.AdjustedDays,
			DailyRate:    w.Calc.DailyRate,
			Total:        total,
			Employer:     employer,
			Employee:     employee,
			Observations: observations(w),
		})
		out.TotalValue = out.TotalValue.Add(total)
		out.TotalEmployer = out.TotalEmployer.Add(employer)
		out.TotalEmployee = out.TotalEmployee.Add(employee)
	}

	sort.SliceStable(out.Rows, func(i, j int) bool {
		return out.Rows[i].Total.GreaterThan(out.Rows[j].Total)
	})

	f.log.Info("payout built",
		zap.Int("rows", len(out.Rows)),
		zap.String("competence", competence.String()),
		zap.String("total", out.TotalValue.StringFixed(2)))
	return out
}

// observations carries anything unusual about the record into the OBS
// column: a non-working situation, or calculation notes worth surfacing.
func observations(w *voucher.Worker) string {
	var parts []string
	if s := strings.TrimSpace(w.Situation); s != "" && !strings.EqualFold(s, "Trabalhando") {
		parts = append(parts, s)
	}
	if w.Calc != nil {
		for _, n := range w.Calc.Notes {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, "; ")
}
