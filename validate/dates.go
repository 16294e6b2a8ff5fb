package validate

import (
	"strconv"
	"strings"
	"time"

	"github.com/warp/voucher-engine/voucher"
)

// =============================================================================
// DATE REPAIR - Multi-format parsing for dates the sources mangle
// =============================================================================

// dateLayouts in the order they appear in the sources: ISO first, then the
// Brazilian day-first forms, with and without two-digit years.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"2006/01/02",
	"02/01/06",
	"02-01-06",
}

// RepairDate parses a date the strict reader rejected. It tries the known
// layouts first, then falls back to pulling the digit groups out of the
// string and reading them day-first (or year-first when the leading group
// has four digits). Two-digit years below 50 land in 2000-2049.
func RepairDate(raw string) (voucher.Date, bool) {
	s := strings.TrimSpace(raw)
	// Drop a trailing time component ("2025-04-01 00:00:00").
	if i := strings.IndexAny(s, " T"); i > 0 {
		s = s[:i]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return voucher.NewDate(t.Year(), t.Month(), t.Day()), true
		}
	}
	return repairFromDigits(s)
}

func repairFromDigits(s string) (voucher.Date, bool) {
	groups := digitGroups(s)
	if len(groups) != 3 {
		return voucher.Date{}, false
	}

	var day, month, year int
	if len(groups[0]) == 4 {
		year = atoi(groups[0])
		month = atoi(groups[1])
		day = atoi(groups[2])
	} else {
		day = atoi(groups[0])
		month = atoi(groups[1])
		year = atoi(groups[2])
	}
	if year < 100 {
		if year < 50 {
			year += 2000
		} else {
			year += 1900
		}
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return voucher.Date{}, false
	}
	// Reject day overflow (31/02 would normalize to March otherwise).
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != time.Month(month) {
		return voucher.Date{}, false
	}
	return voucher.NewDate(year, time.Month(month), day), true
}

func digitGroups(s string) []string {
	var groups []string
	var cur strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			cur.WriteRune(r)
			continue
		}
		if cur.Len() > 0 {
			groups = append(groups, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		groups = append(groups, cur.String())
	}
	return groups
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func itoa(n int) string { return strconv.Itoa(n) }
