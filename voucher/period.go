package voucher

import (
	"fmt"
	"time"
)

// =============================================================================
// REFERENCE PERIOD - The 15th-to-15th benefit window
// =============================================================================

// ReferencePeriod is the window over which working days and eligibility are
// computed: day 15 of month M through day 15 of month M+1, inclusive.
//
// The 15th matters legally: a termination notice given on or before the
// 15th of the first period month excludes the worker from this cycle's
// payment; notice after the 15th entitles a pro-rated payment.
type ReferencePeriod struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// NewReferencePeriod builds the period anchored at the 15th of the given
// month. Month rollover (December → January) is handled by time.Date.
func NewReferencePeriod(year int, month time.Month) ReferencePeriod {
	start := NewDate(year, month, 15)
	return ReferencePeriod{Start: start, End: start.AddMonths(1)}
}

// Contains reports whether d falls inside [Start, End].
func (p ReferencePeriod) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// InFirstMonth reports whether d belongs to the period's first calendar
// month (the month of Start).
func (p ReferencePeriod) InFirstMonth(d Date) bool {
	return d.Year() == p.Start.Year() && d.Month() == p.Start.Month()
}

// BusinessDays counts the period's business days for a state.
func (p ReferencePeriod) BusinessDays(cal *HolidayCalendar, state string) int {
	return BusinessDaysBetween(p.Start, p.End, cal, state)
}

// Competence returns the payout competence date: the first day of the
// period's closing month, the convention the benefits operator expects.
func (p ReferencePeriod) Competence() Date {
	return NewDate(p.End.Year(), p.End.Month(), 1)
}

func (p ReferencePeriod) Validate() error {
	if p.End.Before(p.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

func (p ReferencePeriod) String() string {
	return fmt.Sprintf("[%s, %s]", p.Start, p.End)
}
