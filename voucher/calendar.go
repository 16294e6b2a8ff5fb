package voucher

import (
	"sync"
	"time"
)

// =============================================================================
// HOLIDAY CALENDAR - Explicit, injectable holiday lookups
// =============================================================================

// Holiday is a non-working day, either national (State == "") or specific
// to one state.
type Holiday struct {
	Date  Date
	Name  string
	State string
}

// HolidayCalendar answers holiday lookups for business-day counting.
// It is an explicit object passed into the eligibility engine, not ambient
// process state; lookups are memoized per (state, year) under a mutex so a
// single calendar can be shared by repeated stage runs.
type HolidayCalendar struct {
	holidays []Holiday

	mu    sync.Mutex
	index map[string]map[Date]bool // state+year → dates
}

func NewHolidayCalendar(holidays []Holiday) *HolidayCalendar {
	return &HolidayCalendar{
		holidays: holidays,
		index:    make(map[string]map[Date]bool),
	}
}

// IsHoliday reports whether d is a national holiday or a holiday in state.
func (c *HolidayCalendar) IsHoliday(state string, d Date) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := state + "/" + d.Time.Format("2006")
	dates, ok := c.index[key]
	if !ok {
		dates = make(map[Date]bool)
		for _, h := range c.holidays {
			if h.Date.Year() != d.Year() {
				continue
			}
			if h.State == "" || h.State == state {
				dates[h.Date] = true
			}
		}
		c.index[key] = dates
	}
	return dates[d]
}

// CoversYear reports whether the calendar carries at least one holiday in
// the given year. A period falling outside coverage still counts business
// days, just without any holiday deductions.
func (c *HolidayCalendar) CoversYear(year int) bool {
	for _, h := range c.holidays {
		if h.Date.Year() == year {
			return true
		}
	}
	return false
}

// Invalidate drops the memoized lookups, forcing them to be rebuilt from
// the holiday list on next access.
func (c *HolidayCalendar) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = make(map[string]map[Date]bool)
}

// BrazilCalendar2025 returns the national holidays for 2025 plus the state
// holidays relevant to the four covered states.
func BrazilCalendar2025() *HolidayCalendar {
	return NewHolidayCalendar([]Holiday{
		{Date: NewDate(2025, time.January, 1), Name: "Confraternização Universal"},
		{Date: NewDate(2025, time.March, 3), Name: "Carnaval"},
		{Date: NewDate(2025, time.March, 4), Name: "Carnaval"},
		{Date: NewDate(2025, time.April, 18), Name: "Sexta-feira Santa"},
		{Date: NewDate(2025, time.April, 21), Name: "Tiradentes"},
		{Date: NewDate(2025, time.May, 1), Name: "Dia do Trabalho"},
		{Date: NewDate(2025, time.June, 19), Name: "Corpus Christi"},
		{Date: NewDate(2025, time.September, 7), Name: "Independência"},
		{Date: NewDate(2025, time.October, 12), Name: "Nossa Senhora Aparecida"},
		{Date: NewDate(2025, time.November, 2), Name: "Finados"},
		{Date: NewDate(2025, time.November, 15), Name: "Proclamação da República"},
		{Date: NewDate(2025, time.November, 20), Name: "Consciência Negra"},
		{Date: NewDate(2025, time.December, 25), Name: "Natal"},

		{Date: NewDate(2025, time.January, 25), Name: "Aniversário de São Paulo", State: "São Paulo"},
		{Date: NewDate(2025, time.July, 9), Name: "Revolução Constitucionalista", State: "São Paulo"},
		{Date: NewDate(2025, time.April, 23), Name: "São Jorge", State: "Rio de Janeiro"},
		{Date: NewDate(2025, time.September, 20), Name: "Revolução Farroupilha", State: "Rio Grande do Sul"},
		{Date: NewDate(2025, time.September, 8), Name: "Aniversário de Curitiba", State: "Paraná"},
	})
}
