/*
Package eligibility computes adjusted working days and benefit values.

PURPOSE:
  Stage 3 of the VR pipeline, and its algorithmic core. For each worker
  that survived exclusion it resolves the applicable state, looks up the
  union's working-day count and the state's daily rate, deducts vacation
  and leave, applies the termination pro-ration rule, and prices the
  result.

DECISION SEQUENCE (per worker):
  1. Status gate     - inactive workers get 0 days, 0 value, done.
  2. Base days       - union → working-day count; unions absent from the
                       table fall back to the period's business days on
                       the holiday calendar for the worker's state.
  3. State           - union keywords → state, else seeded proportional
                       fallback (states.go).
  4. Deductions      - min(vacation days, base); full-period leave
                       deducts the whole base.
  5. Termination     - the 15th rule: notice on or before the 15th of the
                       first period month pays nothing; later notice pays
                       weekdays (Mon-Fri) from period start through the
                       date. Holidays never reduce the notice count.
  6. Final days      - max(0, base − deductions), capped by pro-ration.
  7. Value           - final days × state daily rate. Kept unrounded;
                       the payout formatter rounds once at the boundary.

NUMERIC SEMANTICS:
  Day counts are non-negative ints. Values are decimal.Decimal and are
  never rounded here, so intermediate rounding error cannot compound.

FAILURE POLICY:
  A termination date the consolidator/validator could not parse falls
  back to the full reference period: the conservative default favors
  paying the worker. Every fallback is noted on the record.
*/
package eligibility

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/voucher-engine/voucher"
)

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	rates  *voucher.RateTable
	period voucher.ReferencePeriod
	// calendar backs the base-day fallback for unmapped unions; nil
	// falls back to the table default instead.
	calendar *voucher.HolidayCalendar
	log      *zap.Logger
}

func NewEngine(rates *voucher.RateTable, period voucher.ReferencePeriod, calendar *voucher.HolidayCalendar, log *zap.Logger) *Engine {
	return &Engine{rates: rates, period: period, calendar: calendar, log: log}
}

// Summary reports the stage totals.
type Summary struct {
	Total      int             `json:"total"`
	Eligible   int             `json:"eligible"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// Process enriches every worker in the set with its Calculation. The set
// itself is not restructured; records are enriched in place, in order.
func (e *Engine) Process(set *voucher.WorkerSet) Summary {
	summary := Summary{TotalValue: decimal.Zero}
	for _, w := range set.All() {
		calc := e.Calculate(w)
		w.Calc = calc
		summary.Total++
		if calc.Eligible {
			summary.Eligible++
			summary.TotalValue = summary.TotalValue.Add(calc.Value)
		}
	}
	e.log.Info("benefit calculation complete",
		zap.Int("workers", summary.Total),
		zap.Int("eligible", summary.Eligible),
		zap.String("total_value", summary.TotalValue.StringFixed(2)))
	return summary
}

// Calculate runs the decision sequence for one worker.
func (e *Engine) Calculate(w *voucher.Worker) *voucher.Calculation {
	state, inferred := ResolveState(w.Union, w.ID)
	calc := &voucher.Calculation{
		State:         state,
		StateInferred: inferred,
		DailyRate:     e.rates.DailyRate(state),
		Value:         decimal.Zero,
	}
	if inferred {
		calc.Notes = append(calc.Notes, "state inferred from headcount proportions")
	}

	// Status gate.
	if isInactive(w) {
		calc.Notes = append(calc.Notes, "inactive status, no benefit")
		return calc
	}

	baseDays := e.baseDays(w.Union, state)
	calc.BaseDays = baseDays

	// Deductions.
	deducted := 0
	if w.VacationInfo != nil && w.VacationInfo.Days > 0 {
		d := min(w.VacationInfo.Days, baseDays)
		deducted += d
		calc.Notes = append(calc.Notes, noteDays("vacation", d))
	}
	if isFullPeriodLeave(w.Situation) {
		deducted += baseDays
		calc.Notes = append(calc.Notes, "full-period leave")
	}

	// Termination pro-ration caps the base before deductions apply.
	capDays := baseDays
	switch {
	case w.Termination != nil:
		capDays = e.prorationDays(*w.Termination, baseDays)
		if capDays < baseDays {
			calc.Notes = append(calc.Notes, noteDays("termination pro-ration", capDays))
		}
	case w.RawTermination != "":
		// Unparseable termination date: assume present for the whole
		// period, the conservative default toward payment.
		calc.Notes = append(calc.Notes, "unparseable termination date, full period assumed")
	}
	if capDays < baseDays {
		baseDays = capDays
	}

	final := baseDays - deducted
	if final < 0 {
		final = 0
	}
	calc.AdjustedDays = final
	calc.Value = decimal.NewFromInt(int64(final)).Mul(calc.DailyRate)
	calc.Eligible = calc.Value.IsPositive()
	return calc
}

// baseDays looks up the union's working-day count. Unions absent from
// the table fall back to counting the period's business days on the
// holiday calendar for the worker's state, or to the table default when
// no calendar is injected.
func (e *Engine) baseDays(union, state string) int {
	if d, ok := e.rates.DaysByUnion[union]; ok {
		return d
	}
	if e.calendar != nil {
		return e.period.BusinessDays(e.calendar, state)
	}
	return e.rates.DefaultDays
}

// prorationDays applies the 15th rule for a termination date.
//
//   - before the period start            → 0 (not eligible this cycle)
//   - after the period end               → full base
//   - on/before the 15th, first month    → 0 (notice given in time)
//   - otherwise                          → weekdays (Mon-Fri) from period
//     start through the termination date
//
// The notice count is plain weekdays: holidays reduce a union's base
// days, never a terminated worker's pro-rated entitlement.
func (e *Engine) prorationDays(termination voucher.Date, base int) int {
	switch {
	case termination.Before(e.period.Start):
		return 0
	case termination.After(e.period.End):
		return base
	case termination.Day() <= 15 && e.period.InFirstMonth(termination):
		return 0
	default:
		return voucher.BusinessDaysBetween(e.period.Start, termination, nil, "")
	}
}

func isInactive(w *voucher.Worker) bool {
	if w.Status == voucher.StatusInactive {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(w.Situation)) {
	case "inativo", "inactive":
		return true
	}
	return false
}

// isFullPeriodLeave recognizes the leave situations that suspend the
// contract for the whole reference period.
func isFullPeriodLeave(situation string) bool {
	switch strings.ToLower(strings.TrimSpace(situation)) {
	case "afastado", "afastamento", "licença", "licenca":
		return true
	}
	return false
}

func noteDays(what string, days int) string {
	return fmt.Sprintf("%s: %d days", what, days)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
