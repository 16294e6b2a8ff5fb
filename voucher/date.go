package voucher

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// DATE - Civil date (the whole pipeline works at day granularity)
// =============================================================================

// Date is a calendar day in UTC. All comparisons normalize to midnight so
// source timestamps with stray time components compare correctly.
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts the canonical storage format (2006-01-02).
// The validator handles the messy source formats before dates get here.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return NewDate(t.Year(), t.Month(), t.Day()), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.normalize().Before(other.normalize()) }
func (d Date) After(other Date) bool         { return d.normalize().After(other.normalize()) }
func (d Date) Equal(other Date) bool         { return d.normalize().Equal(other.normalize()) }
func (d Date) BeforeOrEqual(other Date) bool { return d.Before(other) || d.Equal(other) }
func (d Date) AfterOrEqual(other Date) bool  { return d.After(other) || d.Equal(other) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{Time: d.Time.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int             { return d.Time.Year() }
func (d Date) Month() time.Month     { return d.Time.Month() }
func (d Date) Day() int              { return d.Time.Day() }
func (d Date) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Date) IsZero() bool          { return d.Time.IsZero() }

func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) String() string { return d.normalize().Format("2006-01-02") }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// BUSINESS DAY ARITHMETIC
// =============================================================================

// IsBusinessDay reports whether d is a Monday–Friday that is not a holiday
// in the given state. A nil calendar counts weekdays only.
func (d Date) IsBusinessDay(cal *HolidayCalendar, state string) bool {
	if d.IsWeekend() {
		return false
	}
	if cal != nil && cal.IsHoliday(state, d) {
		return false
	}
	return true
}

// BusinessDaysBetween counts business days in [from, to], inclusive on both
// ends. Returns 0 when to precedes from.
func BusinessDaysBetween(from, to Date, cal *HolidayCalendar, state string) int {
	if to.Before(from) {
		return 0
	}
	count := 0
	for cur := from; cur.BeforeOrEqual(to); cur = cur.AddDays(1) {
		if cur.IsBusinessDay(cal, state) {
			count++
		}
	}
	return count
}
