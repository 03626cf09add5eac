package backtest

import "time"

// IsTradingDay reports whether a date is a simulated trading day.
// Weekends are skipped; exchange holidays are left to the price data,
// which simply has no point on those days.
func IsTradingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// SimulationDays returns every trading day from start through end
// inclusive, normalized to midnight UTC, in ascending order.
func SimulationDays(start, end time.Time) []time.Time {
	var days []time.Time
	for d := dateOnly(start); !d.After(dateOnly(end)); d = d.AddDate(0, 0, 1) {
		if IsTradingDay(d) {
			days = append(days, d)
		}
	}
	return days
}

// RebalanceDates selects the calendar-aligned rebalance days out of the
// simulation days. Alignment is to the calendar, not to iteration counts:
// weekly means the first trading day of each ISO week, monthly the first
// trading day of each month, quarterly the first trading day of January,
// April, July and October.
func RebalanceDates(days []time.Time, freq Frequency) []time.Time {
	if freq == FrequencyDaily {
		out := make([]time.Time, len(days))
		copy(out, days)
		return out
	}

	var dates []time.Time
	for i, d := range days {
		if i == 0 {
			// The run always rebalances on its first trading day.
			dates = append(dates, d)
			continue
		}
		if boundaryBetween(days[i-1], d, freq) {
			dates = append(dates, d)
		}
	}
	return dates
}

// boundaryBetween reports whether a new rebalance period starts at curr,
// given the previous trading day.
func boundaryBetween(prev, curr time.Time, freq Frequency) bool {
	switch freq {
	case FrequencyWeekly:
		py, pw := prev.ISOWeek()
		cy, cw := curr.ISOWeek()
		return py != cy || pw != cw
	case FrequencyMonthly:
		return prev.Month() != curr.Month() || prev.Year() != curr.Year()
	case FrequencyQuarterly:
		if prev.Month() == curr.Month() && prev.Year() == curr.Year() {
			return false
		}
		switch curr.Month() {
		case time.January, time.April, time.July, time.October:
			return true
		}
		return false
	}
	return false
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
