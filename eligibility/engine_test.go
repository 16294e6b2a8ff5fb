package eligibility

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/voucher-engine/voucher"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const (
	unionSP = "SINDPD SP - SIND.TRAB.EM PROC DADOS E EMPR.EMPRESAS PROC DADOS ESTADO DE SP."
	unionRS = "SINDPPD RS - SINDICATO DOS TRAB. EM PROC. DE DADOS RIO GRANDE DO SUL"
	unionRJ = "SINDPD RJ - SINDICATO PROFISSIONAIS DE PROC DADOS EST RIO DE JANEIRO"
	unionPR = "SITEPD PR - SIND DOS TRAB EM EMPR PRIVADAS DE PROC DE DADOS EST PR"
)

func testEngine(t *testing.T, cal *voucher.HolidayCalendar) *Engine {
	t.Helper()
	period := voucher.NewReferencePeriod(2025, time.April)
	return NewEngine(voucher.DefaultRateTable(), period, cal, zap.NewNop())
}

func activeWorker(id, union string) *voucher.Worker {
	return &voucher.Worker{
		ID:        voucher.EmployeeID(id),
		Union:     union,
		Situation: "Trabalhando",
		Status:    voucher.StatusActive,
	}
}

func date(y int, m time.Month, d int) *voucher.Date {
	dd := voucher.NewDate(y, m, d)
	return &dd
}

// =============================================================================
// FULL-PERIOD CALCULATION
// =============================================================================

func TestCalculate_FullPeriodSaoPaulo(t *testing.T) {
	// GIVEN an active São Paulo worker with no vacation or termination
	e := testEngine(t, nil)
	w := activeWorker("1001", unionSP)

	// WHEN the benefit is calculated
	calc := e.Calculate(w)

	// THEN the full union working-day count is priced at the SP rate
	assert.Equal(t, voucher.StateSaoPaulo, calc.State)
	assert.False(t, calc.StateInferred)
	assert.Equal(t, 22, calc.BaseDays)
	assert.Equal(t, 22, calc.AdjustedDays)
	assert.Equal(t, "825.00", calc.Value.StringFixed(2))
	assert.True(t, calc.Eligible)
}

func TestCalculate_RioGrandeDoSulRate(t *testing.T) {
	e := testEngine(t, nil)
	calc := e.Calculate(activeWorker("1002", unionRS))

	assert.Equal(t, voucher.StateRioGrandeDoSul, calc.State)
	assert.Equal(t, 21, calc.BaseDays)
	assert.Equal(t, "735.00", calc.Value.StringFixed(2))
}

// =============================================================================
// TERMINATION PRO-RATION (the 15th rule)
// =============================================================================

func TestCalculate_TerminationOn15thOfFirstMonth(t *testing.T) {
	// GIVEN a worker terminated exactly on the 15th of the first period month
	e := testEngine(t, nil)
	w := activeWorker("2001", unionSP)
	w.Status = voucher.StatusTerminated
	w.Termination = date(2025, time.April, 15)

	// THEN notice was given in time and nothing is paid
	calc := e.Calculate(w)
	assert.Equal(t, 0, calc.AdjustedDays)
	assert.True(t, calc.Value.IsZero())
	assert.False(t, calc.Eligible)
}

func TestCalculate_TerminationOn16thOfFirstMonth(t *testing.T) {
	// GIVEN a termination one day past the notice cutoff
	e := testEngine(t, nil)
	w := activeWorker("2002", unionSP)
	w.Status = voucher.StatusTerminated
	w.Termination = date(2025, time.April, 16)

	// THEN business days from the period start through the date are paid:
	// Tue 15 and Wed 16 of April
	calc := e.Calculate(w)
	assert.Equal(t, 2, calc.AdjustedDays)
	assert.Equal(t, "75.00", calc.Value.StringFixed(2))
	assert.True(t, calc.Eligible)
}

func TestCalculate_TerminationLaterInFirstMonth(t *testing.T) {
	// Apr 15-25 2025 spans 9 weekdays
	e := testEngine(t, nil)
	w := activeWorker("2003", unionSP)
	w.Status = voucher.StatusTerminated
	w.Termination = date(2025, time.April, 25)

	calc := e.Calculate(w)
	assert.Equal(t, 9, calc.AdjustedDays)
	assert.Equal(t, "337.50", calc.Value.StringFixed(2))
}

func TestCalculate_TerminationInSecondMonth(t *testing.T) {
	// GIVEN a termination on May 5, day 5 of the second period month: the
	// 15th rule only zeroes notices in the FIRST month, so this pays the
	// business days Apr 15 through May 5 (15 weekdays)
	e := testEngine(t, nil)
	w := activeWorker("2004", unionSP)
	w.Status = voucher.StatusTerminated
	w.Termination = date(2025, time.May, 5)

	calc := e.Calculate(w)
	assert.Equal(t, 15, calc.AdjustedDays)
	assert.Equal(t, "562.50", calc.Value.StringFixed(2))
}

func TestCalculate_TerminationOutsidePeriod(t *testing.T) {
	e := testEngine(t, nil)

	// Before the period start: nothing owed this cycle.
	before := activeWorker("2005", unionSP)
	before.Status = voucher.StatusTerminated
	before.Termination = date(2025, time.April, 10)
	assert.Equal(t, 0, e.Calculate(before).AdjustedDays)

	// After the period end: the full base is owed.
	after := activeWorker("2006", unionSP)
	after.Status = voucher.StatusTerminated
	after.Termination = date(2025, time.May, 20)
	assert.Equal(t, 22, e.Calculate(after).AdjustedDays)
}

func TestCalculate_TerminationCountsPlainWeekdays(t *testing.T) {
	// GIVEN the 2025 calendar is injected and Apr 18 (Sexta-feira Santa)
	// and Apr 21 (Tiradentes) fall inside Apr 15-22
	e := testEngine(t, voucher.BrazilCalendar2025())
	w := activeWorker("2007", unionSP)
	w.Status = voucher.StatusTerminated
	w.Termination = date(2025, time.April, 22)

	// THEN the notice rule still counts every weekday Tue 15 through
	// Tue 22: holidays never reduce the pro-rated entitlement
	calc := e.Calculate(w)
	assert.Equal(t, 6, calc.AdjustedDays)
	assert.Equal(t, "225.00", calc.Value.StringFixed(2))

	// AND a second-month termination agrees with the weekday-only count
	w2 := activeWorker("2009", unionSP)
	w2.Status = voucher.StatusTerminated
	w2.Termination = date(2025, time.May, 5)
	assert.Equal(t, 15, e.Calculate(w2).AdjustedDays)
}

func TestCalculate_UnknownUnionBaseDaysFromCalendar(t *testing.T) {
	// GIVEN a union that resolves to São Paulo but has no working-day
	// entry in the table
	w := activeWorker("2010", "sindicato de são paulo")

	// WHEN the calendar is injected, the base falls back to the period's
	// business days for the state: 23 weekdays in Apr 15 - May 15 minus
	// Apr 18, Apr 21 and May 1
	withCal := testEngine(t, voucher.BrazilCalendar2025())
	calc := withCal.Calculate(w)
	assert.Equal(t, voucher.StateSaoPaulo, calc.State)
	assert.Equal(t, 20, calc.BaseDays)
	assert.Equal(t, "750.00", calc.Value.StringFixed(2))

	// AND without a calendar the table default applies
	withoutCal := testEngine(t, nil)
	assert.Equal(t, 22, withoutCal.Calculate(w).BaseDays)
}

func TestCalculate_UnparseableTerminationAssumesFullPeriod(t *testing.T) {
	// GIVEN a termination date the upstream stages could not parse
	e := testEngine(t, nil)
	w := activeWorker("2008", unionSP)
	w.Status = voucher.StatusTerminated
	w.RawTermination = "sometime in April"

	// THEN the conservative default pays the full period and says so
	calc := e.Calculate(w)
	assert.Equal(t, 22, calc.AdjustedDays)
	assert.Contains(t, calc.Notes, "unparseable termination date, full period assumed")
}

// =============================================================================
// DEDUCTIONS
// =============================================================================

func TestCalculate_VacationDeduction(t *testing.T) {
	e := testEngine(t, nil)
	w := activeWorker("3001", unionSP)
	w.VacationInfo = &voucher.Vacation{Situation: "Férias", Days: 10}

	calc := e.Calculate(w)
	assert.Equal(t, 12, calc.AdjustedDays)
	assert.Equal(t, "450.00", calc.Value.StringFixed(2))
}

func TestCalculate_VacationNeverGoesNegative(t *testing.T) {
	// GIVEN more vacation days than the base working-day count
	e := testEngine(t, nil)
	w := activeWorker("3002", unionSP)
	w.VacationInfo = &voucher.Vacation{Situation: "Férias", Days: 30}

	calc := e.Calculate(w)
	assert.Equal(t, 0, calc.AdjustedDays)
	assert.False(t, calc.Eligible)
}

func TestCalculate_FullPeriodLeave(t *testing.T) {
	e := testEngine(t, nil)
	for _, situation := range []string{"Afastado", "Licença", "afastamento"} {
		w := activeWorker("3003", unionSP)
		w.Situation = situation
		calc := e.Calculate(w)
		assert.Equal(t, 0, calc.AdjustedDays, "situation %q", situation)
		assert.False(t, calc.Eligible, "situation %q", situation)
	}
}

func TestCalculate_InactiveGetsNothing(t *testing.T) {
	e := testEngine(t, nil)
	w := activeWorker("3004", unionSP)
	w.Status = voucher.StatusInactive

	calc := e.Calculate(w)
	assert.Equal(t, 0, calc.AdjustedDays)
	assert.False(t, calc.Eligible)
	assert.Contains(t, calc.Notes, "inactive status, no benefit")
}

func TestCalculate_AdjustedDaysStayWithinBounds(t *testing.T) {
	// Whatever the combination of deductions and pro-ration, the result
	// stays within [0, base].
	e := testEngine(t, nil)
	w := activeWorker("3005", unionSP)
	w.Status = voucher.StatusTerminated
	w.Termination = date(2025, time.April, 17)
	w.VacationInfo = &voucher.Vacation{Situation: "Férias", Days: 25}

	calc := e.Calculate(w)
	assert.GreaterOrEqual(t, calc.AdjustedDays, 0)
	assert.LessOrEqual(t, calc.AdjustedDays, calc.BaseDays)
}

// =============================================================================
// STATE RESOLUTION
// =============================================================================

func TestResolveState_KnownUnions(t *testing.T) {
	cases := map[string]string{
		unionSP: voucher.StateSaoPaulo,
		unionRS: voucher.StateRioGrandeDoSul,
		unionRJ: voucher.StateRioDeJaneiro,
		unionPR: voucher.StateParana,
	}
	for union, want := range cases {
		state, inferred := ResolveState(union, "any")
		assert.Equal(t, want, state, "union %q", union)
		assert.False(t, inferred, "union %q", union)
	}
}

func TestResolveState_AbbreviationsAndSpelledOutNames(t *testing.T) {
	state, inferred := ResolveState("sindicato de são paulo", "x")
	assert.Equal(t, voucher.StateSaoPaulo, state)
	assert.False(t, inferred)

	state, _ = ResolveState("SINDPPD-RS", "x")
	assert.Equal(t, voucher.StateRioGrandeDoSul, state)

	state, _ = ResolveState("algo do paraná", "x")
	assert.Equal(t, voucher.StateParana, state)
}

func TestResolveState_FallbackIsDeterministic(t *testing.T) {
	// GIVEN no recognizable union, the fallback must agree across reruns
	first, inferred := ResolveState("", "9001")
	require.True(t, inferred)
	second, _ := ResolveState("", "9001")
	assert.Equal(t, first, second)

	// AND the assigned state is one of the four covered states
	assert.Contains(t, []string{
		voucher.StateSaoPaulo,
		voucher.StateRioGrandeDoSul,
		voucher.StateRioDeJaneiro,
		voucher.StateParana,
	}, first)
}

func TestResolveState_FallbackFavorsRioGrandeDoSul(t *testing.T) {
	// The proportional fallback mirrors the real headcount: across many
	// IDs, Rio Grande do Sul must dominate.
	counts := map[string]int{}
	for i := 0; i < 1000; i++ {
		state, _ := ResolveState("", voucher.EmployeeID(strconv.Itoa(i)))
		counts[state]++
	}
	assert.Greater(t, counts[voucher.StateRioGrandeDoSul], counts[voucher.StateSaoPaulo])
	assert.Greater(t, counts[voucher.StateSaoPaulo], counts[voucher.StateParana])
}

// =============================================================================
// SET PROCESSING
// =============================================================================

func TestProcess_SummarizesSet(t *testing.T) {
	e := testEngine(t, nil)
	set := voucher.NewWorkerSet()
	set.Put(activeWorker("1", unionSP))

	gone := activeWorker("2", unionSP)
	gone.Status = voucher.StatusTerminated
	gone.Termination = date(2025, time.April, 15)
	set.Put(gone)

	summary := e.Process(set)

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Eligible)
	assert.Equal(t, "825.00", summary.TotalValue.StringFixed(2))

	w := set.Get("1")
	require.NotNil(t, w)
	require.NotNil(t, w.Calc)
	assert.True(t, w.Calc.Eligible)
}
