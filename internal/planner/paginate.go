package planner

import "time"

// DefaultPageSize is two school weeks per printed page.
const DefaultPageSize = 10

// MonthWeekdays returns the weekdays shown for the month containing month:
// from the Monday on or before the 1st through the Sunday on or after the
// last day, with weekends dropped.
func MonthWeekdays(month time.Time) []time.Time {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	start := first.AddDate(0, 0, -daysSinceMonday(first))
	end := last.AddDate(0, 0, 6-daysSinceMonday(last))

	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if IsWeekend(d) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// PrintPages splits the month's weekdays into chronological pages of
// pageSize days. The last page may be shorter.
func PrintPages(month time.Time, pageSize int) [][]time.Time {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	days := MonthWeekdays(month)
	pages := make([][]time.Time, 0, (len(days)+pageSize-1)/pageSize)
	for i := 0; i < len(days); i += pageSize {
		end := i + pageSize
		if end > len(days) {
			end = len(days)
		}
		pages = append(pages, days[i:end])
	}
	return pages
}

// InMonth reports whether d belongs to the same calendar month as month.
func InMonth(d, month time.Time) bool {
	return d.Year() == month.Year() && d.Month() == month.Month()
}

func daysSinceMonday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
